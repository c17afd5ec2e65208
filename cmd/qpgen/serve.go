package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Nagarajan13172/qpgen/internal/handler"
	appI18n "github.com/Nagarajan13172/qpgen/internal/i18n"
	"github.com/Nagarajan13172/qpgen/internal/llm"
	"github.com/Nagarajan13172/qpgen/internal/llm/prompts"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local web UI",
		RunE:  runServe,
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /qp)")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	f.StringSlice("cors-origins", nil, "Origins allowed to call the UI cross-site (repeatable)")
	f.Int("page-size", 10, "Items per list page")
	f.Duration("fetch-wait", 10*time.Second, "How long a page waits for paper and answer key fetches")
	f.Duration("view-idle", 30*time.Minute, "How long an unvisited paper view keeps its review session")
	addLLMFlags(f)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	v := e.v

	if _, err := e.client.Health(e.ctx); err != nil {
		slog.Warn("backend is not reachable; pages will show errors until it is", "api_url", e.client.BaseURL(), "error", err)
	} else {
		slog.Info("backend OK", "api_url", e.client.BaseURL())
	}

	grader, err := graderFromConfig(cmd)
	if err != nil {
		return err
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	h, err := handler.New(e.client, e.db, grader, handler.Config{
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
		BackendURL:    e.client.BaseURL(),
		PageSize:      v.GetInt("page-size"),
		FetchWait:     v.GetDuration("fetch-wait"),
		ViewIdle:      v.GetDuration("view-idle"),
	})
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}
	defer h.Close()

	lang := appI18n.Match(v.GetString("lang"))
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if origins := v.GetStringSlice("cors-origins"); len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-e.ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting server",
		"addr", addr,
		"api_url", e.client.BaseURL(),
		"lang", lang,
		"base_path", basePath,
		"grading", grader != nil,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func addLLMFlags(f *pflag.FlagSet) {
	f.String("llm-provider", "openai", "LLM provider for answer marking (openai, anthropic)")
	f.String("llm-url", "", "OpenAI-compatible API base URL (e.g. http://localhost:11434/v1)")
	f.String("llm-key", "", "API key for the LLM provider")
	f.String("llm-model", "", "LLM model name")
	f.String("prompt-variant", string(prompts.Standard), "Marking prompt variant (strict, standard, lenient)")
}

// graderFromConfig builds the answer-marking client. Marking stays disabled
// when neither an LLM URL nor a key is configured.
func graderFromConfig(cmd *cobra.Command) (*llm.Client, error) {
	v := viperForCmd(cmd)
	if v.GetString("llm-url") == "" && v.GetString("llm-key") == "" {
		slog.Info("answer marking disabled; set --llm-url or --llm-key to enable it")
		return nil, nil
	}
	promptVariant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(promptVariant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", promptVariant)
		promptVariant = string(prompts.Standard)
	}
	c, err := llm.NewFromConfig(llm.Config{
		Provider: v.GetString("llm-provider"),
		BaseURL:  v.GetString("llm-url"),
		APIKey:   v.GetString("llm-key"),
		Model:    v.GetString("llm-model"),
		Variant:  promptVariant,
	})
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	slog.Info("answer marking enabled", "provider", v.GetString("llm-provider"), "model", v.GetString("llm-model"), "variant", promptVariant)
	return c, nil
}
