package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Nagarajan13172/qpgen/internal/backend"
	"github.com/Nagarajan13172/qpgen/internal/i18n"
	"github.com/Nagarajan13172/qpgen/internal/model"
	"github.com/Nagarajan13172/qpgen/internal/render"
	"github.com/Nagarajan13172/qpgen/internal/rules"
)

func (h *Handler) handleGenerateForm(w http.ResponseWriter, r *http.Request) {
	syllabusID := r.URL.Query().Get("syllabus_id")
	if syllabusID == "" {
		last, err := h.store.LastSyllabus()
		if err != nil {
			slog.Warn("failed to read last syllabus", "error", err)
		}
		syllabusID = last
	}
	h.renderGenerate(w, r, http.StatusOK, render.Page{}, rules.Default(), syllabusID, "")
}

func (h *Handler) renderGenerate(w http.ResponseWriter, r *http.Request, status int, p render.Page, rs *rules.RuleSet, syllabusID, errField string) {
	syllabi, err := h.backend.ListSyllabi(r.Context(), backend.ListOptions{Limit: countLimit})
	if err != nil {
		slog.Error("failed to list syllabi", "error", err)
		if p.Error == "" {
			p.Error = err.Error()
		}
	}
	p.Title = i18n.T(r.Context(), "GeneratePaper")
	p.Nav = "generate"
	p.Data = render.GenerateData{
		Syllabi:          syllabi.Items,
		SyllabusID:       syllabusID,
		Rules:            render.RuleRows(rs.Rules()),
		Difficulty:       rs.Difficulty,
		UnitDistribution: rs.UnitDistribution,
		IncludeAnswers:   rs.IncludeAnswers,
		RandomizeOptions: rs.RandomizeOptions,
		TotalMarks:       rs.TotalMarks(),
		ErrorField:       errField,
	}
	h.renderPage(w, r, status, "generate", p)
}

// ruleSetFromForm rebuilds the rule set from the last accepted rows and then
// applies the edited values field by field. A rejected edit leaves that field
// at its last accepted value; the first rejection is returned.
func ruleSetFromForm(form url.Values) (*rules.RuleSet, error) {
	var prev []model.QuestionTypeRule
	for _, spec := range form["rule_prev"] {
		rule, err := rules.ParseRule(spec)
		if err != nil {
			return nil, err
		}
		prev = append(prev, rule)
	}
	if len(prev) == 0 {
		return rules.Default(), nil
	}
	rs, err := rules.New(prev...)
	if err != nil {
		return nil, err
	}

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	types, marks, counts := form["rule_type"], form["rule_marks"], form["rule_count"]
	for i := 0; i < rs.Len(); i++ {
		if i < len(types) {
			keep(rs.Update(i, rules.FieldType, types[i]))
		}
		if i < len(marks) {
			keep(rs.Update(i, rules.FieldMarks, marks[i]))
		}
		if i < len(counts) {
			keep(rs.Update(i, rules.FieldCount, counts[i]))
		}
	}

	weights := []struct {
		name string
		dst  *int
	}{
		{"easy", &rs.Difficulty.Easy},
		{"medium", &rs.Difficulty.Medium},
		{"hard", &rs.Difficulty.Hard},
	}
	for _, wt := range weights {
		raw := strings.TrimSpace(form.Get(wt.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			keep(&rules.ValidationError{Field: "difficulty_distribution." + wt.name, Message: strconv.Quote(raw) + " is not a non-negative whole number"})
			continue
		}
		*wt.dst = n
	}

	if ud := form.Get("unit_distribution"); ud != "" {
		rs.UnitDistribution = model.UnitDistribution(ud)
	}
	rs.IncludeAnswers = form.Get("include_answers") != ""
	rs.RandomizeOptions = form.Get("randomize_options") != ""
	return rs, firstErr
}

func validationField(err error) string {
	var ve *rules.ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	syllabusID := strings.TrimSpace(r.PostForm.Get("syllabus_id"))

	rs, err := ruleSetFromForm(r.PostForm)
	if rs == nil {
		h.renderGenerate(w, r, http.StatusBadRequest, render.Page{Error: err.Error()}, rules.Default(), syllabusID, validationField(err))
		return
	}
	if err != nil {
		h.renderGenerate(w, r, http.StatusBadRequest, render.Page{Error: err.Error()}, rs, syllabusID, validationField(err))
		return
	}

	action := r.PostForm.Get("action")
	switch {
	case action == "add":
		err = rs.Add(model.QuestionTypeRule{})
	case strings.HasPrefix(action, "remove:"):
		i, convErr := strconv.Atoi(strings.TrimPrefix(action, "remove:"))
		if convErr != nil {
			http.Error(w, "invalid action", http.StatusBadRequest)
			return
		}
		err = rs.Remove(i)
	case action == "generate":
		h.generate(w, r, rs, syllabusID)
		return
	}
	status := http.StatusOK
	page := render.Page{}
	if err != nil {
		status = http.StatusBadRequest
		page.Error = err.Error()
	}
	h.renderGenerate(w, r, status, page, rs, syllabusID, validationField(err))
}

// generate submits the request and records it in the local history.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request, rs *rules.RuleSet, syllabusID string) {
	req, err := rs.ToRequest(syllabusID)
	if err != nil {
		h.renderGenerate(w, r, http.StatusBadRequest, render.Page{Error: err.Error()}, rs, syllabusID, validationField(err))
		return
	}

	genID, err := h.store.RecordGeneration(req)
	if err != nil {
		slog.Warn("failed to record generation", "error", err)
	}
	if err := h.store.SetLastSyllabus(syllabusID); err != nil {
		slog.Warn("failed to remember syllabus", "error", err)
	}

	paper, err := h.backend.GeneratePaper(r.Context(), req)
	if genID != 0 {
		paperID := ""
		if paper != nil {
			paperID = paper.ID
		}
		if cerr := h.store.CompleteGeneration(genID, paperID, err); cerr != nil {
			slog.Warn("failed to complete generation record", "id", genID, "error", cerr)
		}
	}
	if err != nil {
		slog.Error("paper generation failed", "syllabus_id", syllabusID, "error", err)
		h.renderGenerate(w, r, statusFor(err), render.Page{Error: err.Error()}, rs, syllabusID, "")
		return
	}

	if err := h.store.SavePaper(paper); err != nil {
		slog.Warn("failed to snapshot generated paper", "paper_id", paper.ID, "error", err)
	}
	slog.Info("generated paper", "paper_id", paper.ID, "syllabus_id", syllabusID, "total_marks", req.TotalMarks, "questions", len(paper.Questions))
	http.Redirect(w, r, h.path("/papers/"+url.PathEscape(paper.ID)), http.StatusSeeOther)
}
