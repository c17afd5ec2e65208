package rules

import (
	"strings"
	"testing"

	"github.com/Nagarajan13172/qpgen/internal/model"
)

func newTestRuleSet(t *testing.T, rs ...model.QuestionTypeRule) *RuleSet {
	t.Helper()
	s, err := New(rs...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestDefaultTotalMarks(t *testing.T) {
	s := Default()
	if s.Len() != 4 {
		t.Fatalf("expected 4 default rules, got %d", s.Len())
	}
	if got := s.TotalMarks(); got != 60 {
		t.Errorf("TotalMarks() = %d, want 60", got)
	}
}

func TestTotalMarksMatchesRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []model.QuestionTypeRule
		want  int
	}{
		{"single", []model.QuestionTypeRule{{Type: model.TypeEssay, Marks: 10, Count: 2}}, 20},
		{"mixed", []model.QuestionTypeRule{
			{Type: model.TypeMultipleChoice, Marks: 1, Count: 10},
			{Type: model.TypeShortAnswer, Marks: 2, Count: 5},
			{Type: model.TypeDescriptive, Marks: 5, Count: 4},
			{Type: model.TypeEssay, Marks: 10, Count: 2},
		}, 60},
		{"repeated type", []model.QuestionTypeRule{
			{Type: model.TypeShortAnswer, Marks: 2, Count: 3},
			{Type: model.TypeShortAnswer, Marks: 3, Count: 3},
		}, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestRuleSet(t, tt.rules...)
			if got := s.TotalMarks(); got != tt.want {
				t.Errorf("TotalMarks() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAddThenRemoveRestoresTotal(t *testing.T) {
	s := Default()
	before := s.TotalMarks()

	if err := s.Add(model.QuestionTypeRule{Type: model.TypeEssay, Marks: 15, Count: 3}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := s.TotalMarks(); got != before+45 {
		t.Errorf("after Add TotalMarks() = %d, want %d", got, before+45)
	}
	if err := s.Remove(s.Len() - 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := s.TotalMarks(); got != before {
		t.Errorf("after Remove TotalMarks() = %d, want %d", got, before)
	}
}

func TestAddDefaults(t *testing.T) {
	s := newTestRuleSet(t, model.QuestionTypeRule{Type: model.TypeEssay, Marks: 10, Count: 1})
	if err := s.Add(model.QuestionTypeRule{}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	got := s.Rules()[1]
	if got != DefaultRule {
		t.Errorf("added rule = %+v, want %+v", got, DefaultRule)
	}

	if err := s.Add(model.QuestionTypeRule{Type: model.TypeMultipleChoice}); err != nil {
		t.Fatalf("Add with type override: %v", err)
	}
	got = s.Rules()[2]
	if got.Type != model.TypeMultipleChoice || got.Marks != 2 || got.Count != 1 {
		t.Errorf("added rule = %+v", got)
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	s := Default()
	err := s.Add(model.QuestionTypeRule{Type: model.TypeEssay, Marks: -1, Count: 1})
	if !IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if s.Len() != 4 {
		t.Errorf("rule set changed after rejected Add: len %d", s.Len())
	}
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name      string
		field     Field
		value     string
		wantErr   bool
		wantRule  model.QuestionTypeRule
		wantField string
	}{
		{"marks", FieldMarks, "3", false, model.QuestionTypeRule{Type: model.TypeMultipleChoice, Marks: 3, Count: 10}, ""},
		{"count", FieldCount, " 4 ", false, model.QuestionTypeRule{Type: model.TypeMultipleChoice, Marks: 1, Count: 4}, ""},
		{"type", FieldType, "essay", false, model.QuestionTypeRule{Type: model.TypeEssay, Marks: 1, Count: 10}, ""},
		{"zero marks", FieldMarks, "0", true, model.QuestionTypeRule{}, "question_types[0].marks"},
		{"zero count", FieldCount, "0", true, model.QuestionTypeRule{}, "question_types[0].count"},
		{"too many", FieldCount, "51", true, model.QuestionTypeRule{}, "question_types[0].count"},
		{"not a number", FieldMarks, "abc", true, model.QuestionTypeRule{}, "question_types[0].marks"},
		{"unknown type", FieldType, "true_false", true, model.QuestionTypeRule{}, "question_types[0].type"},
		{"unknown field", Field("difficulty"), "hard", true, model.QuestionTypeRule{}, "question_types[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			original := s.Rules()[0]
			err := s.Update(0, tt.field, tt.value)
			if tt.wantErr {
				var ve *ValidationError
				if err == nil {
					t.Fatal("expected error")
				}
				if !IsValidationError(err) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
				ve = err.(*ValidationError)
				if ve.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
				}
				if s.Rules()[0] != original {
					t.Errorf("rule changed after rejected update: %+v", s.Rules()[0])
				}
				return
			}
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if got := s.Rules()[0]; got != tt.wantRule {
				t.Errorf("rule = %+v, want %+v", got, tt.wantRule)
			}
		})
	}
}

func TestUpdateOutOfRange(t *testing.T) {
	s := Default()
	if err := s.Update(9, FieldMarks, "1"); !IsValidationError(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestRemoveLastRuleRejected(t *testing.T) {
	s := newTestRuleSet(t, model.QuestionTypeRule{Type: model.TypeEssay, Marks: 10, Count: 1})
	err := s.Remove(0)
	if !IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected rule to remain, len %d", s.Len())
	}
}

func TestRemoveKeepsOrder(t *testing.T) {
	s := Default()
	rulesBefore := s.Rules()
	if err := s.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	got := s.Rules()
	want := []model.QuestionTypeRule{rulesBefore[0], rulesBefore[2], rulesBefore[3]}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rule %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	// The earlier copy must not observe the removal.
	if rulesBefore[1].Type != model.TypeShortAnswer {
		t.Errorf("Rules() copy was mutated: %+v", rulesBefore[1])
	}
}

func TestToRequest(t *testing.T) {
	s := Default()
	req, err := s.ToRequest("syl-1")
	if err != nil {
		t.Fatalf("ToRequest: %v", err)
	}
	if req.SyllabusID != "syl-1" {
		t.Errorf("SyllabusID = %q", req.SyllabusID)
	}
	if req.TotalMarks != 60 {
		t.Errorf("TotalMarks = %d, want 60", req.TotalMarks)
	}
	if len(req.GenerationRules.QuestionTypes) != 4 {
		t.Errorf("QuestionTypes len = %d", len(req.GenerationRules.QuestionTypes))
	}
	if req.GenerationRules.UnitDistribution != model.UnitsEqual {
		t.Errorf("UnitDistribution = %q", req.GenerationRules.UnitDistribution)
	}
	if !req.GenerationRules.IncludeAnswers || !req.GenerationRules.RandomizeOptions {
		t.Errorf("expected include-answers and randomize-options on")
	}

	// The request must not alias the rule set.
	req.GenerationRules.QuestionTypes[0].Marks = 99
	if s.Rules()[0].Marks == 99 {
		t.Error("request aliases rule set storage")
	}
}

func TestToRequestValidation(t *testing.T) {
	t.Run("missing syllabus", func(t *testing.T) {
		_, err := Default().ToRequest("  ")
		if !IsValidationError(err) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if !strings.Contains(err.Error(), "syllabus") {
			t.Errorf("error = %q", err)
		}
	})

	t.Run("negative difficulty", func(t *testing.T) {
		s := Default()
		s.Difficulty.Hard = -5
		if _, err := s.ToRequest("syl-1"); !IsValidationError(err) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("difficulty not summing to 100 is allowed", func(t *testing.T) {
		s := Default()
		s.Difficulty = model.DifficultyDistribution{Easy: 10, Medium: 10, Hard: 10}
		if _, err := s.ToRequest("syl-1"); err != nil {
			t.Fatalf("ToRequest: %v", err)
		}
	})

	t.Run("bad unit distribution", func(t *testing.T) {
		s := Default()
		s.UnitDistribution = "by-topic"
		if _, err := s.ToRequest("syl-1"); !IsValidationError(err) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestNewRequiresRule(t *testing.T) {
	if _, err := New(); !IsValidationError(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		spec    string
		want    model.QuestionTypeRule
		wantErr bool
	}{
		{"multiple_choice:1:10", model.QuestionTypeRule{Type: model.TypeMultipleChoice, Marks: 1, Count: 10}, false},
		{" essay:10:2 ", model.QuestionTypeRule{Type: model.TypeEssay, Marks: 10, Count: 2}, false},
		{"essay:10", model.QuestionTypeRule{}, true},
		{"essay:x:2", model.QuestionTypeRule{}, true},
		{"essay:10:y", model.QuestionTypeRule{}, true},
		{"essay:0:2", model.QuestionTypeRule{}, true},
		{"poem:1:1", model.QuestionTypeRule{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseRule(tt.spec)
			if tt.wantErr {
				if !IsValidationError(err) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRule: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
