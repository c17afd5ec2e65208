// Package rules holds the client-side rule set a user edits before requesting
// a question paper.
package rules

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/Nagarajan13172/qpgen/internal/model"
)

// Field names a mutable field of a QuestionTypeRule.
type Field string

const (
	FieldType  Field = "type"
	FieldMarks Field = "marks"
	FieldCount Field = "count"
)

// DefaultRule is the rule appended by Add when the caller leaves fields zero.
var DefaultRule = model.QuestionTypeRule{
	Type:  model.TypeShortAnswer,
	Marks: 2,
	Count: 1,
}

// RuleSet is an ordered sequence of question-type rules plus distribution
// parameters. The order of rules is the default section order.
type RuleSet struct {
	rules []model.QuestionTypeRule

	Difficulty       model.DifficultyDistribution
	UnitDistribution model.UnitDistribution
	IncludeAnswers   bool
	RandomizeOptions bool
}

// New creates a rule set from the given rules with default distribution
// parameters. At least one rule is required.
func New(rules ...model.QuestionTypeRule) (*RuleSet, error) {
	if len(rules) == 0 {
		return nil, &ValidationError{Field: "question_types", Message: "at least one question type is required"}
	}
	s := &RuleSet{
		Difficulty:       model.DifficultyDistribution{Easy: 33, Medium: 34, Hard: 33},
		UnitDistribution: model.UnitsEqual,
		IncludeAnswers:   true,
		RandomizeOptions: true,
	}
	for _, r := range rules {
		if err := s.Add(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Default returns the rule set a new generation form starts with.
func Default() *RuleSet {
	s, _ := New(
		model.QuestionTypeRule{Type: model.TypeMultipleChoice, Marks: 1, Count: 10},
		model.QuestionTypeRule{Type: model.TypeShortAnswer, Marks: 2, Count: 5},
		model.QuestionTypeRule{Type: model.TypeDescriptive, Marks: 5, Count: 4},
		model.QuestionTypeRule{Type: model.TypeEssay, Marks: 10, Count: 2},
	)
	return s
}

// Len returns the number of rules.
func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Rules returns a copy of the rules in order.
func (s *RuleSet) Rules() []model.QuestionTypeRule {
	out := make([]model.QuestionTypeRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Add appends a rule. Zero fields take the values of DefaultRule.
func (s *RuleSet) Add(r model.QuestionTypeRule) error {
	if r.Type == "" {
		r.Type = DefaultRule.Type
	}
	if r.Marks == 0 {
		r.Marks = DefaultRule.Marks
	}
	if r.Count == 0 {
		r.Count = DefaultRule.Count
	}
	if err := check(r, fmt.Sprintf("question_types[%d]", len(s.rules))); err != nil {
		return err
	}
	s.rules = append(s.rules, r)
	return nil
}

// Update replaces one field of the rule at index with the textual value.
// An invalid value is rejected and the rule set is left unchanged.
func (s *RuleSet) Update(index int, field Field, value string) error {
	if index < 0 || index >= len(s.rules) {
		return &ValidationError{Field: "question_types", Message: fmt.Sprintf("no rule at position %d", index+1)}
	}
	prefix := fmt.Sprintf("question_types[%d]", index)
	candidate := s.rules[index]
	value = strings.TrimSpace(value)

	switch field {
	case FieldType:
		candidate.Type = model.QuestionType(value)
	case FieldMarks, FieldCount:
		n, err := strconv.Atoi(value)
		if err != nil {
			return &ValidationError{Field: prefix + "." + string(field), Message: fmt.Sprintf("%q is not a whole number", value)}
		}
		if field == FieldMarks {
			candidate.Marks = n
		} else {
			candidate.Count = n
		}
	default:
		return &ValidationError{Field: prefix, Message: fmt.Sprintf("unknown field %q", field)}
	}

	if err := check(candidate, prefix); err != nil {
		return err
	}
	s.rules[index] = candidate
	return nil
}

// Remove deletes the rule at index. Removing the last remaining rule is
// rejected because a rule set with no rules cannot generate a paper.
func (s *RuleSet) Remove(index int) error {
	if index < 0 || index >= len(s.rules) {
		return &ValidationError{Field: "question_types", Message: fmt.Sprintf("no rule at position %d", index+1)}
	}
	if len(s.rules) == 1 {
		return &ValidationError{Field: "question_types", Message: "at least one question type is required"}
	}
	s.rules = append(s.rules[:index:index], s.rules[index+1:]...)
	return nil
}

// TotalMarks is the sum of marks × count over all rules. It is always derived
// from the rules and never stored.
func (s *RuleSet) TotalMarks() int {
	return lo.SumBy(s.rules, func(r model.QuestionTypeRule) int {
		return r.Subtotal()
	})
}

// Validate checks every rule and the distribution parameters.
func (s *RuleSet) Validate() error {
	if len(s.rules) == 0 {
		return &ValidationError{Field: "question_types", Message: "at least one question type is required"}
	}
	for i, r := range s.rules {
		if err := check(r, fmt.Sprintf("question_types[%d]", i)); err != nil {
			return err
		}
	}
	if err := check(s.Difficulty, "difficulty_distribution"); err != nil {
		return err
	}
	switch s.UnitDistribution {
	case model.UnitsEqual, model.UnitsWeighted, model.UnitsRandom:
	default:
		return &ValidationError{Field: "unit_distribution", Message: fmt.Sprintf("unit_distribution must be one of [equal weighted random], got %q", s.UnitDistribution)}
	}
	return nil
}

// ToRequest builds the generation request payload for the given syllabus.
func (s *RuleSet) ToRequest(syllabusID string) (model.GenerationRequest, error) {
	syllabusID = strings.TrimSpace(syllabusID)
	if syllabusID == "" {
		return model.GenerationRequest{}, &ValidationError{Field: "syllabus_id", Message: "please select a syllabus"}
	}
	if err := s.Validate(); err != nil {
		return model.GenerationRequest{}, err
	}
	total := s.TotalMarks()
	if total == 0 {
		return model.GenerationRequest{}, &ValidationError{Field: "total_marks", Message: "total marks must be greater than zero"}
	}
	if sum := s.Difficulty.Sum(); sum != 100 {
		slog.Debug("difficulty distribution does not sum to 100", "sum", sum)
	}

	return model.GenerationRequest{
		SyllabusID: syllabusID,
		TotalMarks: total,
		GenerationRules: model.GenerationRules{
			QuestionTypes:          s.Rules(),
			DifficultyDistribution: s.Difficulty,
			UnitDistribution:       s.UnitDistribution,
			IncludeAnswers:         s.IncludeAnswers,
			RandomizeOptions:       s.RandomizeOptions,
		},
	}, nil
}

// ParseRule parses a "type:marks:count" rule specification.
func ParseRule(spec string) (model.QuestionTypeRule, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	if len(parts) != 3 {
		return model.QuestionTypeRule{}, &ValidationError{Field: "rule", Message: fmt.Sprintf("%q must look like type:marks:count", spec)}
	}
	marks, err := strconv.Atoi(parts[1])
	if err != nil {
		return model.QuestionTypeRule{}, &ValidationError{Field: "rule", Message: fmt.Sprintf("marks %q is not a whole number", parts[1])}
	}
	count, err := strconv.Atoi(parts[2])
	if err != nil {
		return model.QuestionTypeRule{}, &ValidationError{Field: "rule", Message: fmt.Sprintf("count %q is not a whole number", parts[2])}
	}
	r := model.QuestionTypeRule{Type: model.QuestionType(parts[0]), Marks: marks, Count: count}
	if err := check(r, "rule"); err != nil {
		return model.QuestionTypeRule{}, err
	}
	return r, nil
}
