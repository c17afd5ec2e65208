// Package handler serves the local web UI of qpgen.
package handler

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/Nagarajan13172/qpgen/internal/backend"
	"github.com/Nagarajan13172/qpgen/internal/i18n"
	"github.com/Nagarajan13172/qpgen/internal/llm"
	"github.com/Nagarajan13172/qpgen/internal/model"
	"github.com/Nagarajan13172/qpgen/internal/render"
	"github.com/Nagarajan13172/qpgen/internal/review"
	"github.com/Nagarajan13172/qpgen/internal/rules"
	"github.com/Nagarajan13172/qpgen/internal/store"
)

// Backend is the part of the backend client the web UI uses.
type Backend interface {
	Health(ctx context.Context) (model.HealthStatus, error)
	GeneratePaper(ctx context.Context, req model.GenerationRequest) (*model.Paper, error)
	ListPapers(ctx context.Context, opts backend.ListOptions) (backend.Page[model.Paper], error)
	GetPaper(ctx context.Context, id string) (*model.Paper, error)
	GetAnswerKey(ctx context.Context, paperID string) (*model.AnswerKey, error)
	DeletePaper(ctx context.Context, id string) error
	DownloadPDF(ctx context.Context, paperID string, includeAnswers bool) ([]byte, error)
	UploadSyllabusText(ctx context.Context, courseName, content string) (*model.Syllabus, error)
	UploadSyllabusFile(ctx context.Context, courseName, fileName string, data []byte) (*model.Syllabus, error)
	ListSyllabi(ctx context.Context, opts backend.ListOptions) (backend.Page[model.Syllabus], error)
	GetSyllabus(ctx context.Context, id string) (*model.Syllabus, error)
	DeleteSyllabus(ctx context.Context, id string) error
}

// Config holds web UI settings.
type Config struct {
	BasePath      string
	SecureCookies bool
	BackendURL    string
	// PageSize is the list page size; 0 means backend.DefaultLimit.
	PageSize int
	// FetchWait bounds how long a paper page waits for its fetches.
	FetchWait time.Duration
	// ViewIdle is how long an unvisited paper view keeps its review session.
	ViewIdle time.Duration
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	backend  Backend
	store    *store.Store
	grader   *llm.Client
	html     *render.HTML
	config   Config
	sessions *sessions
}

// New creates a new Handler. grader may be nil, which hides answer marking.
func New(b Backend, s *store.Store, grader *llm.Client, cfg Config) (*Handler, error) {
	html, err := render.NewHTML()
	if err != nil {
		return nil, err
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = backend.DefaultLimit
	}
	if cfg.FetchWait <= 0 {
		cfg.FetchWait = 10 * time.Second
	}
	if cfg.ViewIdle <= 0 {
		cfg.ViewIdle = 30 * time.Minute
	}
	return &Handler{
		backend:  b,
		store:    s,
		grader:   grader,
		html:     html,
		config:   cfg,
		sessions: newSessions(store.NewRecorder(b, s), cfg.FetchWait, cfg.ViewIdle),
	}, nil
}

// Close tears down open review sessions.
func (h *Handler) Close() {
	h.sessions.closeAll()
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Handle("/static/*", http.StripPrefix(h.path("/static/"), http.FileServer(http.FS(render.Static()))))

	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)

		r.Get("/", h.handleDashboard)
		r.Get("/history", h.handleHistory)

		r.Get("/syllabi", h.handleSyllabi)
		r.Post("/syllabi/upload/text", h.handleUploadText)
		r.Post("/syllabi/upload/file", h.handleUploadFile)
		r.Get("/syllabi/{syllabusID}", h.handleSyllabus)
		r.Post("/syllabi/{syllabusID}/delete", h.handleDeleteSyllabus)

		r.Get("/papers", h.handlePapers)
		r.Get("/papers/{paperID}", h.handlePaper)
		r.Get("/papers/{paperID}/print", h.handlePrint)
		r.Get("/papers/{paperID}/pdf", h.handlePDF)
		r.Post("/papers/{paperID}/delete", h.handleDeletePaper)
		r.Post("/papers/{paperID}/grade", h.handleGrade)
		r.Post("/grades/{gradeID}/score", h.handleMarkerScore)

		r.Get("/generate", h.handleGenerateForm)
		r.Post("/generate", h.handleGenerate)
	})
}

// Static returns the embedded assets, for callers mounting them elsewhere.
func Static() fs.FS {
	return render.Static()
}

// flashMessages maps the ?done= value of a post-redirect-get to its message.
var flashMessages = map[string]string{
	"syllabus_uploaded": "SyllabusUploaded",
	"syllabus_deleted":  "SyllabusDeleted",
	"paper_deleted":     "PaperDeleted",
}

// renderPage buffers the page so a template error never leaves a partial
// response.
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, p render.Page) {
	if p.Flash == "" {
		if id, ok := flashMessages[r.URL.Query().Get("done")]; ok {
			p.Flash = i18n.T(r.Context(), id)
		}
	}
	var buf bytes.Buffer
	if err := h.html.Render(r.Context(), &buf, name, p); err != nil {
		slog.Error("render error", "page", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError shows err on the error page with a status derived from it.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	h.renderPage(w, r, status, "error", render.Page{
		Title: http.StatusText(status),
		Error: err.Error(),
		Data:  render.ErrorData{Status: status, Message: http.StatusText(status)},
	})
}

func statusFor(err error) int {
	var be *backend.Error
	switch {
	case errors.Is(err, store.ErrNotCached), backend.IsNotFound(err):
		return http.StatusNotFound
	case rules.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, review.ErrNotReady):
		return http.StatusConflict
	case errors.As(err, &be):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// listOptions reads skip and limit from the query string.
func (h *Handler) listOptions(r *http.Request) backend.ListOptions {
	opts := backend.ListOptions{Limit: h.config.PageSize}
	if n, err := strconv.Atoi(r.URL.Query().Get("skip")); err == nil && n > 0 {
		opts.Skip = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 100 {
		opts.Limit = n
	}
	return opts
}

// countLimit is the page size used when only counting items.
const countLimit = 100

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := render.DashboardData{BackendURL: h.config.BackendURL}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		page, err := h.backend.ListSyllabi(ctx, backend.ListOptions{Limit: countLimit})
		if err != nil {
			return err
		}
		data.SyllabusCount = len(page.Items)
		return nil
	})
	g.Go(func() error {
		page, err := h.backend.ListPapers(ctx, backend.ListOptions{Limit: countLimit})
		if err != nil {
			return err
		}
		data.PaperCount = len(page.Items)
		data.Recent = page.Items[:min(len(page.Items), 5)]
		return nil
	})
	// Health never fails the group; an unreachable backend is shown as such.
	g.Go(func() error {
		hctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if _, err := h.backend.Health(hctx); err != nil {
			slog.Debug("backend health check failed", "error", err)
			return nil
		}
		data.BackendOK = true
		return nil
	})

	page := render.Page{Title: i18n.T(r.Context(), "Dashboard"), Nav: "dashboard"}
	if err := g.Wait(); err != nil {
		slog.Error("dashboard fetch failed", "error", err)
		page.Error = err.Error()
	}
	page.Data = data
	h.renderPage(w, r, http.StatusOK, "dashboard", page)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	exp, err := h.store.ExportHistory()
	if err != nil {
		slog.Error("failed to load history", "error", err)
		h.renderError(w, r, err)
		return
	}
	h.renderPage(w, r, http.StatusOK, "history", render.Page{
		Title: i18n.T(r.Context(), "History"),
		Nav:   "history",
		Data: render.HistoryData{
			Generations: exp.Generations,
			Papers:      exp.Papers,
			Downloads:   exp.Downloads,
			Grades:      exp.Grades,
		},
	})
}
