package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/Nagarajan13172/qpgen/internal/backend"
	"github.com/Nagarajan13172/qpgen/internal/i18n"
	"github.com/Nagarajan13172/qpgen/internal/model"
	"github.com/Nagarajan13172/qpgen/internal/render"
)

func (h *Handler) handleSyllabi(w http.ResponseWriter, r *http.Request) {
	h.renderSyllabi(w, r, http.StatusOK, render.Page{}, render.SyllabiData{})
}

// renderSyllabi fetches the list and renders it with any banner and form
// values already set on p and form.
func (h *Handler) renderSyllabi(w http.ResponseWriter, r *http.Request, status int, p render.Page, form render.SyllabiData) {
	opts := h.listOptions(r)
	page, err := h.backend.ListSyllabi(r.Context(), opts)
	if err != nil {
		slog.Error("failed to list syllabi", "error", err)
		if p.Error == "" {
			p.Error = err.Error()
		}
	}
	q := r.URL.Query().Get("q")
	form.Syllabi = render.Filter(page.Items, q, func(s model.Syllabus) string { return s.CourseName })
	form.Pager = render.NewPager(opts.Skip, opts.Limit, len(page.Items))
	form.Query = q

	p.Title = i18n.T(r.Context(), "Syllabi")
	p.Nav = "syllabi"
	p.Data = form
	h.renderPage(w, r, status, "syllabi", p)
}

func (h *Handler) handleUploadText(w http.ResponseWriter, r *http.Request) {
	courseName := strings.TrimSpace(r.FormValue("course_name"))
	content := strings.TrimSpace(r.FormValue("content"))
	form := render.SyllabiData{CourseName: courseName, Content: content}

	switch {
	case courseName == "":
		h.renderSyllabi(w, r, http.StatusBadRequest, render.Page{Error: i18n.T(r.Context(), "CourseNameRequired")}, form)
		return
	case content == "":
		h.renderSyllabi(w, r, http.StatusBadRequest, render.Page{Error: i18n.T(r.Context(), "ContentRequired")}, form)
		return
	}

	s, err := h.backend.UploadSyllabusText(r.Context(), courseName, content)
	if err != nil {
		slog.Error("failed to upload syllabus text", "course", courseName, "error", err)
		h.renderSyllabi(w, r, statusFor(err), render.Page{Error: err.Error()}, form)
		return
	}
	slog.Info("uploaded syllabus", "id", s.ID, "course", s.CourseName, "units", len(s.Units))
	http.Redirect(w, r, h.path("/syllabi/"+s.ID+"?done=syllabus_uploaded"), http.StatusSeeOther)
}

func (h *Handler) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(backend.MaxUploadBytes); err != nil {
		h.renderSyllabi(w, r, http.StatusBadRequest, render.Page{Error: i18n.T(r.Context(), "FileRequired")}, render.SyllabiData{})
		return
	}

	courseName := strings.TrimSpace(r.FormValue("course_name"))
	form := render.SyllabiData{CourseName: courseName}
	if courseName == "" {
		h.renderSyllabi(w, r, http.StatusBadRequest, render.Page{Error: i18n.T(r.Context(), "CourseNameRequired")}, form)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.renderSyllabi(w, r, http.StatusBadRequest, render.Page{Error: i18n.T(r.Context(), "FileRequired")}, form)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("failed to read uploaded file", "error", err)
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	s, err := h.backend.UploadSyllabusFile(r.Context(), courseName, path.Base(header.Filename), data)
	if err != nil {
		status := statusFor(err)
		if errors.Is(err, backend.ErrNotPDF) || errors.Is(err, backend.ErrFileTooLarge) {
			status = http.StatusBadRequest
		}
		slog.Warn("syllabus file upload rejected", "filename", header.Filename, "error", err)
		h.renderSyllabi(w, r, status, render.Page{Error: err.Error()}, form)
		return
	}

	slog.Info("uploaded syllabus file", "id", s.ID, "filename", header.Filename, "size", header.Size)
	http.Redirect(w, r, h.path("/syllabi/"+s.ID+"?done=syllabus_uploaded"), http.StatusSeeOther)
}

func (h *Handler) handleSyllabus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "syllabusID")

	var (
		syl    *model.Syllabus
		papers []model.Paper
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		syl, err = h.backend.GetSyllabus(ctx, id)
		return err
	})
	g.Go(func() error {
		page, err := h.backend.ListPapers(ctx, backend.ListOptions{SyllabusID: id, Limit: countLimit})
		if err != nil {
			// The syllabus is still worth showing without its papers.
			slog.Warn("failed to list papers for syllabus", "syllabus_id", id, "error", err)
			return nil
		}
		papers = page.Items
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.Error("failed to get syllabus", "id", id, "error", err)
		h.renderError(w, r, err)
		return
	}

	h.renderPage(w, r, http.StatusOK, "syllabus", render.Page{
		Title: syl.CourseName,
		Nav:   "syllabi",
		Data:  render.SyllabusData{Syllabus: syl, Papers: papers},
	})
}

func (h *Handler) handleDeleteSyllabus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "syllabusID")
	if err := h.backend.DeleteSyllabus(r.Context(), id); err != nil {
		slog.Error("failed to delete syllabus", "id", id, "error", err)
		h.renderSyllabi(w, r, statusFor(err), render.Page{Error: err.Error()}, render.SyllabiData{})
		return
	}
	slog.Info("deleted syllabus", "id", id)
	http.Redirect(w, r, h.path("/syllabi?done=syllabus_deleted"), http.StatusSeeOther)
}
