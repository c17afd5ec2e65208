package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Nagarajan13172/qpgen/internal/compose"
	"github.com/Nagarajan13172/qpgen/internal/i18n"
	"github.com/Nagarajan13172/qpgen/internal/model"
	"github.com/Nagarajan13172/qpgen/internal/review"
)

// Text prints a paper as plain text. It satisfies review.Printer.
type Text struct {
	ctx context.Context
	w   io.Writer
	// Instructions prints the instructions block under the header.
	Instructions bool
}

// NewText creates a text printer that localizes with ctx.
func NewText(ctx context.Context, w io.Writer) *Text {
	return &Text{ctx: ctx, w: w, Instructions: true}
}

// Print writes the paper. In evaluation mode each question is followed by
// its answer when the key has one.
func (t *Text) Print(v review.View) error {
	ew := &errWriter{w: t.w}
	ctx := t.ctx
	p := v.Paper

	ew.printf("%s\n", p.CourseName)
	ew.printf("%s\n", strings.Repeat("=", max(len([]rune(p.CourseName)), 20)))
	header := []string{fmt.Sprintf("ID: %s", p.ID), fmt.Sprintf("%s: %d", i18n.T(ctx, "TotalMarks"), p.TotalMarks)}
	header = append(header, i18n.Tp(ctx, "QuestionsCount", len(p.Questions)))
	if d := Date(p.Date()); d != "" {
		header = append(header, fmt.Sprintf("%s: %s", i18n.T(ctx, "Date"), d))
	}
	ew.printf("%s\n", strings.Join(header, " | "))
	if v.Evaluation {
		ew.printf("[%s]\n", i18n.T(ctx, "EvaluationMode"))
	}

	if t.Instructions {
		ew.printf("\n%s\n", i18n.T(ctx, "Instructions"))
		ew.printf("  1. %s\n", i18n.T(ctx, "InstructionAnswerAll"))
		ew.printf("  2. %s\n", i18n.Td(ctx, "InstructionTotalMarks", map[string]any{"Total": compose.Total(v.Sections)}))
		ew.printf("  3. %s\n", i18n.T(ctx, "InstructionWriteClearly"))
	}

	for _, s := range v.Sections {
		ew.printf("\n%s  [%s]\n", SectionHeading(ctx, s), TypeName(ctx, s.Type))
		for i, q := range s.Questions {
			t.question(ew, i+1, q, v)
		}
	}

	ew.printf("\n*** %s ***\n", i18n.T(ctx, "EndOfPaper"))
	return ew.err
}

func (t *Text) question(ew *errWriter, n int, q model.Question, v review.View) {
	ctx := t.ctx
	meta := []string{fmt.Sprintf("%d", q.Marks)}
	if q.CourseOutcome != "" {
		meta = append(meta, i18n.T(ctx, "ColCO")+" "+q.CourseOutcome)
	}
	if q.BloomsLevel != "" {
		meta = append(meta, i18n.T(ctx, "ColBL")+" "+q.BloomsLevel)
	}

	ew.printf("%3d. %s  (%s)\n", n, q.Text, strings.Join(meta, ", "))
	for i, o := range q.Options {
		ew.printf("       %s. %s\n", compose.OptionLabel(i), o)
	}
	if !v.Evaluation {
		return
	}
	if e, ok := v.Lookup(q.ID); ok {
		ew.printf("     %s: %s\n", i18n.T(ctx, "Answer"), e.CorrectAnswer)
		if e.Explanation != "" {
			ew.printf("     %s: %s\n", i18n.T(ctx, "Explanation"), e.Explanation)
		}
	}
}

// AnswerKey prints an answer key as a numbered list.
func AnswerKey(ctx context.Context, w io.Writer, k *model.AnswerKey) error {
	ew := &errWriter{w: w}
	ew.printf("%s: %s\n", i18n.T(ctx, "AnswerKey"), k.CourseName)
	ew.printf("%s: %d\n\n", i18n.T(ctx, "TotalMarks"), k.TotalMarks)
	for _, e := range k.Answers {
		ew.printf("%s (%d) %s\n", i18n.Td(ctx, "QuestionNumber", map[string]any{"Number": e.QuestionNumber}), e.Marks, e.QuestionText)
		ew.printf("     %s: %s\n", i18n.T(ctx, "Answer"), e.CorrectAnswer)
		if e.Explanation != "" {
			ew.printf("     %s: %s\n", i18n.T(ctx, "Explanation"), e.Explanation)
		}
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
