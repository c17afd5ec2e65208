package render

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Nagarajan13172/qpgen/internal/compose"
	"github.com/Nagarajan13172/qpgen/internal/i18n"
	"github.com/Nagarajan13172/qpgen/internal/model"
	"github.com/Nagarajan13172/qpgen/internal/review"
)

func testContext(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := i18n.Init("en"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	ctx := i18n.WithLang(context.Background(), lang)
	return model.ContextWithCSRFToken(model.ContextWithBasePath(ctx, "/qp"), "tok123")
}

func testView(evaluation bool) review.View {
	p := &model.Paper{
		ID:         "p1",
		CourseName: "Operating Systems",
		TotalMarks: 12,
		Questions: []model.Question{
			{ID: "q1", Type: model.TypeMultipleChoice, Marks: 1, Text: "Which is not a scheduler?", Options: []string{"FIFO", "SJF", "TCP"}, CourseOutcome: "CO1", BloomsLevel: "L1"},
			{ID: "q2", Type: model.TypeMultipleChoice, Marks: 1, Text: "Which is a page replacement policy?", Options: []string{"LRU", "UDP"}},
			{ID: "q3", Type: model.TypeEssay, Marks: 10, Text: "Explain deadlock prevention."},
		},
	}
	key := map[string]model.AnswerKeyEntry{
		"q1": {QuestionID: "q1", CorrectAnswer: "TCP", Explanation: "TCP is a protocol"},
		"q3": {QuestionID: "q3", CorrectAnswer: "Break one of the four conditions"},
	}
	return review.View{
		Paper:      p,
		Sections:   compose.Compose(p.Questions),
		Evaluation: evaluation,
		Lookup: func(id string) (model.AnswerKeyEntry, bool) {
			e, ok := key[id]
			return e, ok
		},
	}
}

func TestSectionHeading(t *testing.T) {
	ctx := testContext(t, "en")
	tests := []struct {
		name  string
		marks []int
		want  string
	}{
		{"uniform", []int{2, 2, 2}, "Part A – (3 × 2 = 6 Marks)"},
		{"mixed", []int{2, 5}, "Part A – (7 Marks)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var qs []model.Question
			for _, m := range tt.marks {
				qs = append(qs, model.Question{Type: model.TypeShortAnswer, Marks: m})
			}
			s := compose.Compose(qs)[0]
			if got := SectionHeading(ctx, s); got != tt.want {
				t.Errorf("SectionHeading = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypeName(t *testing.T) {
	ctx := testContext(t, "en")
	tests := []struct {
		in   model.QuestionType
		want string
	}{
		{model.TypeMultipleChoice, "Multiple Choice"},
		{model.TypeEssay, "Essay"},
		{"case_study", "Case Study"},
		{"", "Other"},
	}
	for _, tt := range tests {
		if got := TypeName(ctx, tt.in); got != tt.want {
			t.Errorf("TypeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextPrinter(t *testing.T) {
	ctx := testContext(t, "en")

	var buf bytes.Buffer
	if err := NewText(ctx, &buf).Print(testView(false)); err != nil {
		t.Fatalf("Print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Operating Systems",
		"Part A – (2 × 1 = 2 Marks)",
		"Part B – (1 × 10 = 10 Marks)",
		"  1. Which is not a scheduler?",
		"c. TCP",
		"CO CO1",
		"*** End of Question Paper ***",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Answer:") {
		t.Errorf("answers printed outside evaluation mode:\n%s", out)
	}
}

func TestTextPrinterEvaluation(t *testing.T) {
	ctx := testContext(t, "en")

	var buf bytes.Buffer
	if err := NewText(ctx, &buf).Print(testView(true)); err != nil {
		t.Fatalf("Print: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "[Evaluation mode]") {
		t.Error("evaluation marker missing")
	}
	if !strings.Contains(out, "Answer: TCP") || !strings.Contains(out, "Explanation: TCP is a protocol") {
		t.Errorf("answer for q1 missing:\n%s", out)
	}
	// q2 has no key entry.
	if strings.Count(out, "Answer:") != 2 {
		t.Errorf("expected 2 answers, got %d:\n%s", strings.Count(out, "Answer:"), out)
	}
}

func TestAnswerKey(t *testing.T) {
	ctx := testContext(t, "en")
	var buf bytes.Buffer
	err := AnswerKey(ctx, &buf, &model.AnswerKey{
		CourseName: "Operating Systems",
		TotalMarks: 12,
		Answers:    []model.AnswerKeyEntry{{QuestionNumber: 3, Marks: 10, QuestionText: "Explain deadlock prevention.", CorrectAnswer: "Break a condition"}},
	})
	if err != nil {
		t.Fatalf("AnswerKey: %v", err)
	}
	if !strings.Contains(buf.String(), "Q3 (10) Explain deadlock prevention.") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func newTestHTML(t *testing.T) *HTML {
	t.Helper()
	h, err := NewHTML()
	if err != nil {
		t.Fatalf("NewHTML: %v", err)
	}
	return h
}

func TestRenderPaperPage(t *testing.T) {
	ctx := testContext(t, "en")
	h := newTestHTML(t)

	v := testView(true)
	data := PaperData{
		Snapshot: review.Snapshot{PaperID: "p1", State: review.PaperLoaded, KeyState: review.KeyLoaded, Paper: v.Paper, Sections: v.Sections, Evaluation: true},
		View:     v,
	}
	var buf bytes.Buffer
	if err := h.Render(ctx, &buf, "paper", Page{Title: "Operating Systems", Nav: "papers", Data: data}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`href="/qp/static/style.css"`,
		`href="/qp/papers/p1?eval=0"`,
		`value="tok123"`,
		"Part B",
		"Break one of the four conditions",
		"End of Question Paper",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestRenderPaperPageRussian(t *testing.T) {
	ctx := testContext(t, "ru")
	h := newTestHTML(t)

	v := testView(false)
	data := PaperData{
		Snapshot: review.Snapshot{PaperID: "p1", State: review.PaperLoaded, Paper: v.Paper, Sections: v.Sections},
		View:     v,
	}
	var buf bytes.Buffer
	if err := h.Render(ctx, &buf, "paper", Page{Data: data}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "Показать ответы") {
		t.Error("page not localized")
	}
	if strings.Contains(buf.String(), "TCP is a protocol") {
		t.Error("answers shown outside evaluation mode")
	}
}

func TestHTMLPrinter(t *testing.T) {
	ctx := testContext(t, "en")
	h := newTestHTML(t)

	var buf bytes.Buffer
	if err := NewHTMLPrinter(ctx, h, &buf).Print(testView(false)); err != nil {
		t.Fatalf("Print: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "window.print()") {
		t.Error("print page should trigger the print dialog")
	}
	if strings.Contains(out, "<nav>") {
		t.Error("print page should not include navigation")
	}
}

func TestRenderUnknownPage(t *testing.T) {
	h := newTestHTML(t)
	if err := h.Render(context.Background(), &bytes.Buffer{}, "nope", Page{}); err == nil {
		t.Error("expected error for unknown page")
	}
}

func TestNewPager(t *testing.T) {
	tests := []struct {
		skip, limit, got int
		want             Pager
	}{
		{0, 10, 3, Pager{Skip: 0, Limit: 10}},
		{0, 10, 10, Pager{Skip: 0, Limit: 10, HasNext: true, NextSkip: 10}},
		{5, 10, 2, Pager{Skip: 5, Limit: 10, HasPrev: true, PrevSkip: 0}},
		{20, 10, 10, Pager{Skip: 20, Limit: 10, HasPrev: true, PrevSkip: 10, HasNext: true, NextSkip: 30}},
	}
	for _, tt := range tests {
		if got := NewPager(tt.skip, tt.limit, tt.got); got != tt.want {
			t.Errorf("NewPager(%d, %d, %d) = %+v, want %+v", tt.skip, tt.limit, tt.got, got, tt.want)
		}
	}
}
