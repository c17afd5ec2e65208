// Package compose turns a generated paper's flat question list into ordered,
// labelled sections.
package compose

import (
	"strings"

	"github.com/samber/lo"

	"github.com/Nagarajan13172/qpgen/internal/model"
)

// Section is a type-homogeneous group of questions.
type Section struct {
	Label     string
	Type      model.QuestionType
	Questions []model.Question
	Subtotal  int
}

// UniformMarks returns the per-question mark when every question in the
// section carries the same marks.
func (s Section) UniformMarks() (int, bool) {
	if len(s.Questions) == 0 {
		return 0, false
	}
	m := s.Questions[0].Marks
	for _, q := range s.Questions[1:] {
		if q.Marks != m {
			return 0, false
		}
	}
	return m, true
}

// Compose groups questions by type. Sections appear in the order their type
// is first seen in questions, and questions keep their relative order inside
// a section. Unknown types are grouped by their literal value.
func Compose(questions []model.Question) []Section {
	sections := make([]Section, 0)
	index := make(map[model.QuestionType]int)

	for _, q := range questions {
		i, ok := index[q.Type]
		if !ok {
			i = len(sections)
			index[q.Type] = i
			sections = append(sections, Section{Type: q.Type})
		}
		sections[i].Questions = append(sections[i].Questions, q)
	}

	for i := range sections {
		sections[i].Label = Label(i)
		sections[i].Subtotal = lo.SumBy(sections[i].Questions, func(q model.Question) int {
			return q.Marks
		})
	}
	return sections
}

// Total sums the section subtotals.
func Total(sections []Section) int {
	return lo.SumBy(sections, func(s Section) int { return s.Subtotal })
}

// Label returns the positional label of the i-th section (0-based):
// A, B, ..., Z, AA, AB, ...
func Label(i int) string {
	if i < 0 {
		return ""
	}
	var b []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		b = append(b, byte('A'+(n-1)%26))
	}
	for l, r := 0, len(b)-1; l < r; l, r = l+1, r-1 {
		b[l], b[r] = b[r], b[l]
	}
	return string(b)
}

// TypeTitle formats a question type for headings: "short_answer" becomes
// "Short Answer".
func TypeTitle(t model.QuestionType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// OptionLabel returns the letter used for the i-th option (0-based): a, b, c, ...
func OptionLabel(i int) string {
	return strings.ToLower(Label(i))
}
