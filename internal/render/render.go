// Package render turns review sessions and backend lists into text for the
// terminal and HTML for the local web UI.
package render

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Nagarajan13172/qpgen/internal/compose"
	"github.com/Nagarajan13172/qpgen/internal/i18n"
	"github.com/Nagarajan13172/qpgen/internal/model"
)

var typeMessageIDs = map[model.QuestionType]string{
	model.TypeMultipleChoice: "TypeMultipleChoice",
	model.TypeShortAnswer:    "TypeShortAnswer",
	model.TypeDescriptive:    "TypeDescriptive",
	model.TypeEssay:          "TypeEssay",
}

// TypeName is the localized name of a question type. Unknown types are
// title-cased from their wire value.
func TypeName(ctx context.Context, t model.QuestionType) string {
	if id, ok := typeMessageIDs[t]; ok {
		return i18n.T(ctx, id)
	}
	if t == "" {
		return i18n.T(ctx, "TypeOther")
	}
	return compose.TypeTitle(t)
}

// SectionHeading is "Part A – (10 × 1 = 10 Marks)" when every question in the
// section carries the same marks, and "Part A – (12 Marks)" otherwise.
func SectionHeading(ctx context.Context, s compose.Section) string {
	if m, ok := s.UniformMarks(); ok {
		return i18n.Td(ctx, "SectionHeading", map[string]any{
			"Label": s.Label,
			"Count": len(s.Questions),
			"Marks": m,
			"Total": s.Subtotal,
		})
	}
	return i18n.Td(ctx, "SectionHeadingMixed", map[string]any{
		"Label": s.Label,
		"Total": s.Subtotal,
	})
}

// Date formats a backend timestamp as a calendar date, or "" when unset.
func Date(ts model.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format("2 Jan 2006")
}

// Ago formats t relative to now ("3 hours ago").
func Ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// Bytes formats a size ("2.0 kB").
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
