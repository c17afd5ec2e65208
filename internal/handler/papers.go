package handler

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/Nagarajan13172/qpgen/internal/backend"
	"github.com/Nagarajan13172/qpgen/internal/i18n"
	"github.com/Nagarajan13172/qpgen/internal/model"
	"github.com/Nagarajan13172/qpgen/internal/render"
	"github.com/Nagarajan13172/qpgen/internal/review"
	"github.com/Nagarajan13172/qpgen/internal/store"
)

func (h *Handler) handlePapers(w http.ResponseWriter, r *http.Request) {
	h.renderPapers(w, r, http.StatusOK, render.Page{})
}

// renderPapers fetches the paper list and the syllabus filter choices.
func (h *Handler) renderPapers(w http.ResponseWriter, r *http.Request, status int, p render.Page) {
	opts := h.listOptions(r)
	opts.SyllabusID = r.URL.Query().Get("syllabus_id")

	var (
		papers  backend.Page[model.Paper]
		syllabi backend.Page[model.Syllabus]
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		papers, err = h.backend.ListPapers(ctx, opts)
		return err
	})
	g.Go(func() error {
		var err error
		syllabi, err = h.backend.ListSyllabi(ctx, backend.ListOptions{Limit: countLimit})
		if err != nil {
			slog.Warn("failed to list syllabi for filter", "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.Error("failed to list papers", "error", err)
		if p.Error == "" {
			p.Error = err.Error()
		}
	}

	q := r.URL.Query().Get("q")
	p.Title = i18n.T(r.Context(), "Papers")
	p.Nav = "papers"
	p.Data = render.PapersData{
		Papers:     render.Filter(papers.Items, q, func(pp model.Paper) string { return pp.CourseName }),
		Pager:      render.NewPager(opts.Skip, opts.Limit, len(papers.Items)),
		Query:      q,
		SyllabusID: opts.SyllabusID,
		Syllabi:    syllabi.Items,
	}
	h.renderPage(w, r, status, "papers", p)
}

// viewToken returns the request's view token, or a fresh one when the
// request belongs to no view yet.
func viewToken(r *http.Request) (string, bool) {
	if v := r.FormValue(viewParam); validToken(v) {
		return v, true
	}
	return newToken(), false
}

// paperSession returns the review session of the request's paper in view
// token with the requested evaluation mode applied, after waiting for its
// fetches.
func (h *Handler) paperSession(r *http.Request, token string) (*review.Session, review.Snapshot) {
	id := chi.URLParam(r, "paperID")
	rs := h.sessions.get(token, id)

	switch r.URL.Query().Get("eval") {
	case "1", "true":
		rs.SetEvaluationMode(true)
	case "0", "false":
		rs.SetEvaluationMode(false)
	}
	if r.URL.Query().Get("dismiss") != "" {
		rs.DismissError()
	}
	h.sessions.settle(r.Context(), rs)
	return rs, rs.Snapshot()
}

// failed reports whether a fetch of snap ended in an error. Such a session
// is dropped once shown so that the next request fetches again.
func failed(snap review.Snapshot) bool {
	return snap.State == review.PaperError || snap.KeyState == review.KeyError
}

func (h *Handler) handlePaper(w http.ResponseWriter, r *http.Request) {
	token, _ := viewToken(r)
	rs, snap := h.paperSession(r, token)

	data := render.PaperData{Snapshot: snap, Token: token, CanGrade: h.grader != nil}
	page := render.Page{Title: i18n.T(r.Context(), "Papers"), Nav: "papers"}
	status := http.StatusOK

	switch snap.State {
	case review.PaperLoaded:
		v, err := rs.View()
		if err != nil {
			h.renderError(w, r, err)
			return
		}
		data.View = v
		data.Warnings = rs.Warnings()
		page.Title = snap.Paper.CourseName
		grades, err := h.store.ListGrades(snap.PaperID)
		if err != nil {
			slog.Warn("failed to list grades", "paper_id", snap.PaperID, "error", err)
		}
		data.Grades = grades
	case review.PaperError:
		if snap.Err != nil {
			page.Error = snap.Err.Error()
			status = statusFor(snap.Err)
		}
	}
	if failed(snap) {
		h.sessions.drop(token, snap.PaperID)
	}

	page.Data = data
	h.renderPage(w, r, status, "paper", page)
}

func (h *Handler) handlePrint(w http.ResponseWriter, r *http.Request) {
	token, ok := viewToken(r)
	rs, snap := h.paperSession(r, token)
	if !ok || failed(snap) {
		// A print outside any view uses a session of its own.
		defer h.sessions.drop(token, snap.PaperID)
	}

	var buf bytes.Buffer
	err := rs.Print(render.NewHTMLPrinter(r.Context(), h.html, &buf))
	switch {
	case errors.Is(err, review.ErrNotReady):
		if snap.State == review.PaperError && snap.Err != nil {
			h.renderError(w, r, snap.Err)
			return
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		slog.Error("print failed", "paper_id", snap.PaperID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paperID")
	includeAnswers, _ := strconv.ParseBool(r.URL.Query().Get("include_answers"))

	data, err := h.backend.DownloadPDF(r.Context(), id, includeAnswers)
	if err != nil {
		slog.Error("failed to download PDF", "paper_id", id, "error", err)
		h.renderError(w, r, err)
		return
	}

	name := backend.PDFFileName(id)
	if _, err := h.store.RecordDownload(model.Download{
		PaperID:        id,
		IncludeAnswers: includeAnswers,
		Path:           name,
		SizeBytes:      int64(len(data)),
	}); err != nil {
		slog.Warn("failed to record download", "paper_id", id, "error", err)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (h *Handler) handleDeletePaper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "paperID")
	if err := h.backend.DeletePaper(r.Context(), id); err != nil {
		slog.Error("failed to delete paper", "id", id, "error", err)
		// The list is shown exactly as the backend still has it.
		h.renderPapers(w, r, statusFor(err), render.Page{Error: err.Error()})
		return
	}

	h.sessions.dropPaper(id)
	if err := h.store.DeletePaper(id); err != nil {
		slog.Warn("failed to delete paper snapshot", "id", id, "error", err)
	}
	slog.Info("deleted paper", "id", id)
	http.Redirect(w, r, h.path("/papers?done=paper_deleted"), http.StatusSeeOther)
}

// findQuestion returns the question with id from a composed view.
func findQuestion(v review.View, id string) (model.Question, bool) {
	for _, s := range v.Sections {
		for _, q := range s.Questions {
			if q.ID == id {
				return q, true
			}
		}
	}
	return model.Question{}, false
}

func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	if h.grader == nil {
		http.Error(w, "answer marking is not configured", http.StatusNotFound)
		return
	}
	paperID := chi.URLParam(r, "paperID")
	questionID := r.FormValue("question_id")
	answer := strings.TrimSpace(r.FormValue("answer"))

	token, _ := viewToken(r)
	rs := h.sessions.get(token, paperID)
	rs.SetEvaluationMode(true)
	h.sessions.settle(r.Context(), rs)
	if failed(rs.Snapshot()) {
		h.sessions.drop(token, paperID)
	}

	v, err := rs.View()
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	q, ok := findQuestion(v, questionID)
	if !ok {
		http.Error(w, "unknown question", http.StatusBadRequest)
		return
	}
	entry, ok := v.Lookup(questionID)
	if !ok {
		http.Error(w, i18n.T(r.Context(), "AnswerKeyUnavailable"), http.StatusConflict)
		return
	}

	result, err := h.grader.GradeAnswer(r.Context(), q, entry, answer)
	if err != nil {
		slog.Error("LLM marking failed", "paper_id", paperID, "question_id", questionID, "error", err)
		http.Error(w, "LLM marking failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	if _, err := h.store.AddGrade(model.Grade{
		PaperID:    paperID,
		QuestionID: questionID,
		Answer:     answer,
		LLMScore:   result.Score,
		MaxMarks:   result.MaxMarks,
		Feedback:   result.Feedback,
		Model:      result.Model,
	}); err != nil {
		slog.Error("failed to store grade", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, h.paperPath(paperID, token), http.StatusSeeOther)
}

// paperPath is the evaluation view of paperID in view token.
func (h *Handler) paperPath(paperID, token string) string {
	q := url.Values{"eval": {"1"}, viewParam: {token}}
	return h.path("/papers/" + url.PathEscape(paperID) + "?" + q.Encode())
}

func (h *Handler) handleMarkerScore(w http.ResponseWriter, r *http.Request) {
	gradeID, err := strconv.ParseInt(chi.URLParam(r, "gradeID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid grade ID", http.StatusBadRequest)
		return
	}
	score, err := strconv.ParseFloat(r.FormValue("marker_score"), 64)
	if err != nil || score < 0 {
		http.Error(w, "invalid score", http.StatusBadRequest)
		return
	}

	if err := h.store.SetMarkerScore(gradeID, score); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "grade not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, store.ErrScoreOutOfRange) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("failed to set marker score", "grade_id", gradeID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	token, _ := viewToken(r)
	http.Redirect(w, r, h.paperPath(r.FormValue("paper_id"), token), http.StatusSeeOther)
}
