package answers

import (
	"testing"

	"github.com/Nagarajan13172/qpgen/internal/compose"
	"github.com/Nagarajan13172/qpgen/internal/model"
)

func testSections() []compose.Section {
	return compose.Compose([]model.Question{
		{ID: "q1", Type: model.TypeMultipleChoice, Marks: 1},
		{ID: "q2", Type: model.TypeMultipleChoice, Marks: 1},
		{ID: "q3", Type: model.TypeEssay, Marks: 10},
	})
}

func entry(id, answer string) model.AnswerKeyEntry {
	return model.AnswerKeyEntry{QuestionID: id, CorrectAnswer: answer}
}

func TestBindUniqueKey(t *testing.T) {
	sections := testSections()
	key := &model.AnswerKey{Answers: []model.AnswerKeyEntry{
		entry("q1", "a"),
		entry("q3", "essay answer"),
	}}

	ix := Bind(sections, key)

	tests := []struct {
		id     string
		want   string
		wantOK bool
	}{
		{"q1", "a", true},
		{"q2", "", false},
		{"q3", "essay answer", true},
		{"missing", "", false},
	}
	for _, tt := range tests {
		got, ok := ix.Lookup(tt.id)
		if ok != tt.wantOK {
			t.Errorf("Lookup(%s) ok = %v, want %v", tt.id, ok, tt.wantOK)
		}
		if got.CorrectAnswer != tt.want {
			t.Errorf("Lookup(%s) = %q, want %q", tt.id, got.CorrectAnswer, tt.want)
		}
	}
	if len(ix.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", ix.Warnings())
	}
	if ix.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ix.Len())
	}
}

func TestBindDuplicateKeepsFirst(t *testing.T) {
	key := &model.AnswerKey{Answers: []model.AnswerKeyEntry{
		entry("q1", "first"),
		entry("q2", "b"),
		entry("q1", "second"),
	}}

	ix := Bind(testSections(), key)

	got, ok := ix.Lookup("q1")
	if !ok || got.CorrectAnswer != "first" {
		t.Errorf("Lookup(q1) = %q, %v; want first entry", got.CorrectAnswer, ok)
	}
	warnings := ix.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	if warnings[0].Kind != WarnDuplicate || warnings[0].QuestionID != "q1" {
		t.Errorf("warning = %+v", warnings[0])
	}
}

func TestBindOrphanEntry(t *testing.T) {
	key := &model.AnswerKey{Answers: []model.AnswerKeyEntry{
		entry("q1", "a"),
		entry("zz", "ghost"),
		entry("zz", "ghost again"),
	}}

	ix := Bind(testSections(), key)

	var kinds []WarningKind
	for _, w := range ix.Warnings() {
		kinds = append(kinds, w.Kind)
	}
	if len(kinds) != 2 || kinds[0] != WarnDuplicate || kinds[1] != WarnOrphan {
		t.Errorf("warning kinds = %v, want [duplicate orphan]", kinds)
	}
	// Orphans stay resolvable; they just do not match a rendered question.
	if _, ok := ix.Lookup("zz"); !ok {
		t.Error("orphan entry should still be indexed")
	}
}

func TestNilIndexAndNilKey(t *testing.T) {
	var ix *Index
	if _, ok := ix.Lookup("q1"); ok {
		t.Error("nil index found an entry")
	}
	if ix.Len() != 0 || ix.Warnings() != nil {
		t.Error("nil index should be empty")
	}

	empty := Bind(testSections(), nil)
	if _, ok := empty.Lookup("q1"); ok {
		t.Error("nil key bound an entry")
	}
}
