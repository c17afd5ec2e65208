package i18n

import "net/http"

// LangCookie remembers a language chosen with ?lang=.
const LangCookie = "qpgen_lang"

// Middleware injects a localizer into every request context. The language is
// taken from ?lang=, then the language cookie, then Accept-Language, then
// fallback.
func Middleware(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			prefs := []string{r.URL.Query().Get("lang")}
			if q := prefs[0]; q != "" {
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookie,
					Value:    Match(q),
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			if c, err := r.Cookie(LangCookie); err == nil {
				prefs = append(prefs, c.Value)
			}
			prefs = append(prefs, r.Header.Get("Accept-Language"), fallback)

			ctx := WithLang(r.Context(), Match(prefs...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
