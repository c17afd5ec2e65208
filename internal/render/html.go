package render

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/Nagarajan13172/qpgen/internal/answers"
	"github.com/Nagarajan13172/qpgen/internal/compose"
	"github.com/Nagarajan13172/qpgen/internal/i18n"
	"github.com/Nagarajan13172/qpgen/internal/model"
	"github.com/Nagarajan13172/qpgen/internal/review"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the embedded stylesheet directory.
func Static() fs.FS {
	sub, _ := fs.Sub(staticFS, "static")
	return sub
}

// Page is the data passed to every HTML page.
type Page struct {
	Title string
	// Nav marks the active navigation tab.
	Nav   string
	Error string
	Flash string
	Data  any
}

// PaperData is the data of the paper detail and print pages.
type PaperData struct {
	Snapshot review.Snapshot
	View     review.View
	Warnings []answers.DataIntegrityWarning
	Print    bool
	// Token identifies the browser view the page belongs to. Links and
	// forms carry it so the view keeps its own review session.
	Token string
	// CanGrade enables the answer marking form.
	CanGrade bool
	Grades   []model.Grade
}

// Loaded reports whether the paper is composed and can be shown.
func (d PaperData) Loaded() bool { return d.Snapshot.State == review.PaperLoaded }

// KeyLoading reports whether the answer key is being fetched.
func (d PaperData) KeyLoading() bool { return d.Snapshot.KeyState == review.LoadingKey }

// KeyFailed reports whether the answer key could not be fetched.
func (d PaperData) KeyFailed() bool { return d.Snapshot.KeyState == review.KeyError }

// Answer returns the answer to show for questionID, or nil.
func (d PaperData) Answer(questionID string) *model.AnswerKeyEntry {
	if !d.View.Evaluation || d.View.Lookup == nil {
		return nil
	}
	if e, ok := d.View.Lookup(questionID); ok {
		return &e
	}
	return nil
}

// HTML renders the web UI pages.
type HTML struct {
	pages map[string]*template.Template
}

// funcMap binds the template helpers to ctx. NewHTML parses with a
// background context and Render rebinds the helpers per request.
func funcMap(ctx context.Context) template.FuncMap {
	return template.FuncMap{
		"t":  func(id string) string { return i18n.T(ctx, id) },
		"tp": func(id string, n int) string { return i18n.Tp(ctx, id, n) },
		"td": func(id string, kv ...any) (string, error) {
			if len(kv)%2 != 0 {
				return "", fmt.Errorf("td %s: odd number of arguments", id)
			}
			data := make(map[string]any, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				k, ok := kv[i].(string)
				if !ok {
					return "", fmt.Errorf("td %s: key %v is not a string", id, kv[i])
				}
				data[k] = kv[i+1]
			}
			return i18n.Td(ctx, id, data), nil
		},
		"typeName": func(t model.QuestionType) string { return TypeName(ctx, t) },
		"heading":  func(s compose.Section) string { return SectionHeading(ctx, s) },
		"option":   compose.OptionLabel,
		"total":    compose.Total,
		"date":     Date,
		"ago":      Ago,
		"bytes":    Bytes,
		"inc":      func(i int) int { return i + 1 },
		"url": func(path string) string {
			return model.BasePathFromContext(ctx) + path
		},
		"csrf": func() string { return model.CSRFTokenFromContext(ctx) },
		"questionTypes": func() []model.QuestionType { return model.QuestionTypes },
		"join":          strings.Join,
	}
}

// NewHTML parses the embedded templates.
func NewHTML() (*HTML, error) {
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	h := &HTML{pages: make(map[string]*template.Template)}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".html")
		if name == "layout" || name == "partials" {
			continue
		}
		t, err := template.New(name).Funcs(funcMap(context.Background())).ParseFS(templateFS,
			"templates/layout.html", "templates/partials.html", "templates/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", e.Name(), err)
		}
		h.pages[name] = t
	}
	return h, nil
}

// Render writes page name with the request's language, base path and CSRF
// token taken from ctx.
func (h *HTML) Render(ctx context.Context, w io.Writer, name string, p Page) error {
	base, ok := h.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	t, err := base.Clone()
	if err != nil {
		return fmt.Errorf("clone template %s: %w", name, err)
	}
	t.Funcs(funcMap(ctx))

	entry := "layout"
	if t.Lookup("document") != nil {
		entry = "document"
	}
	return t.ExecuteTemplate(w, entry, p)
}

// HTMLPrinter prints a paper as a standalone printable page. It satisfies
// review.Printer.
type HTMLPrinter struct {
	h   *HTML
	ctx context.Context
	w   io.Writer
}

// NewHTMLPrinter creates a printer writing to w.
func NewHTMLPrinter(ctx context.Context, h *HTML, w io.Writer) *HTMLPrinter {
	return &HTMLPrinter{h: h, ctx: ctx, w: w}
}

// Print writes the print layout of v.
func (p *HTMLPrinter) Print(v review.View) error {
	return p.h.Render(p.ctx, p.w, "print", Page{
		Title: v.Paper.CourseName,
		Data: PaperData{
			Snapshot: review.Snapshot{PaperID: v.Paper.ID, State: review.PaperLoaded, Paper: v.Paper, Sections: v.Sections, Evaluation: v.Evaluation},
			View:     v,
			Print:    true,
		},
	})
}
