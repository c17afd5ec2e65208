// Package answers binds a separately fetched answer key to composed paper
// sections by question ID.
package answers

import (
	"fmt"
	"log/slog"

	"github.com/Nagarajan13172/qpgen/internal/compose"
	"github.com/Nagarajan13172/qpgen/internal/model"
)

// WarningKind classifies a data-integrity warning.
type WarningKind string

const (
	// WarnDuplicate means the key holds more than one entry for a question.
	WarnDuplicate WarningKind = "duplicate"
	// WarnOrphan means a key entry matches no question in the paper.
	WarnOrphan WarningKind = "orphan"
)

// DataIntegrityWarning is a recoverable inconsistency in an answer key.
type DataIntegrityWarning struct {
	Kind       WarningKind
	QuestionID string
	Message    string
}

func (w DataIntegrityWarning) Error() string {
	return w.Message
}

// Index is an O(1) lookup from question ID to its answer key entry. It holds
// no display state. A nil *Index finds nothing.
type Index struct {
	entries  map[string]model.AnswerKeyEntry
	warnings []DataIntegrityWarning
}

// Bind indexes key once. Duplicate question IDs keep the first entry; entries
// for questions not present in sections are kept but reported.
func Bind(sections []compose.Section, key *model.AnswerKey) *Index {
	ix := &Index{entries: make(map[string]model.AnswerKeyEntry)}
	if key == nil {
		return ix
	}

	for _, e := range key.Answers {
		if _, dup := ix.entries[e.QuestionID]; dup {
			ix.warn(DataIntegrityWarning{
				Kind:       WarnDuplicate,
				QuestionID: e.QuestionID,
				Message:    fmt.Sprintf("answer key lists question %s more than once; keeping the first entry", e.QuestionID),
			})
			continue
		}
		ix.entries[e.QuestionID] = e
	}

	known := make(map[string]struct{})
	for _, s := range sections {
		for _, q := range s.Questions {
			known[q.ID] = struct{}{}
		}
	}
	for _, e := range key.Answers {
		if _, ok := known[e.QuestionID]; ok {
			continue
		}
		if ix.hasWarning(WarnOrphan, e.QuestionID) {
			continue
		}
		ix.warn(DataIntegrityWarning{
			Kind:       WarnOrphan,
			QuestionID: e.QuestionID,
			Message:    fmt.Sprintf("answer key entry for question %s matches no question in the paper", e.QuestionID),
		})
	}

	return ix
}

func (ix *Index) warn(w DataIntegrityWarning) {
	slog.Warn("answer key integrity", "kind", w.Kind, "question_id", w.QuestionID, "detail", w.Message)
	ix.warnings = append(ix.warnings, w)
}

func (ix *Index) hasWarning(kind WarningKind, questionID string) bool {
	for _, w := range ix.warnings {
		if w.Kind == kind && w.QuestionID == questionID {
			return true
		}
	}
	return false
}

// Lookup returns the entry for questionID.
func (ix *Index) Lookup(questionID string) (model.AnswerKeyEntry, bool) {
	if ix == nil {
		return model.AnswerKeyEntry{}, false
	}
	e, ok := ix.entries[questionID]
	return e, ok
}

// Len returns the number of distinct question IDs indexed.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// Warnings returns the data-integrity warnings raised while binding.
func (ix *Index) Warnings() []DataIntegrityWarning {
	if ix == nil {
		return nil
	}
	out := make([]DataIntegrityWarning, len(ix.warnings))
	copy(out, ix.warnings)
	return out
}
