package compose

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/Nagarajan13172/qpgen/internal/model"
)

func q(id string, typ model.QuestionType, marks int) model.Question {
	return model.Question{
		ID:       id,
		UnitID:   "u1",
		UnitName: "Unit 1",
		Text:     "question " + id,
		Marks:    marks,
		Type:     typ,
	}
}

func TestComposeEmpty(t *testing.T) {
	got := Compose(nil)
	if got == nil {
		t.Fatal("expected empty, non-nil slice")
	}
	if len(got) != 0 {
		t.Fatalf("expected 0 sections, got %d", len(got))
	}
}

func TestComposeFirstSeenOrder(t *testing.T) {
	in := []model.Question{
		q("1", model.TypeMultipleChoice, 1),
		q("2", model.TypeMultipleChoice, 1),
		q("3", model.TypeMultipleChoice, 1),
		q("4", model.TypeEssay, 10),
		q("5", model.TypeEssay, 10),
		q("6", model.TypeMultipleChoice, 1),
	}

	got := Compose(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(got))
	}
	if got[0].Type != model.TypeMultipleChoice || len(got[0].Questions) != 4 {
		t.Errorf("section A = %s with %d questions", got[0].Type, len(got[0].Questions))
	}
	if got[1].Type != model.TypeEssay || len(got[1].Questions) != 2 {
		t.Errorf("section B = %s with %d questions", got[1].Type, len(got[1].Questions))
	}

	var ids []string
	for _, qq := range got[0].Questions {
		ids = append(ids, qq.ID)
	}
	if want := []string{"1", "2", "3", "6"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("section A order = %v, want %v", ids, want)
	}
	if got[0].Label != "A" || got[1].Label != "B" {
		t.Errorf("labels = %q, %q", got[0].Label, got[1].Label)
	}
}

func TestComposeNotAlphabetical(t *testing.T) {
	in := []model.Question{
		q("1", model.TypeShortAnswer, 2),
		q("2", model.TypeEssay, 10),
		q("3", model.TypeDescriptive, 5),
		q("4", model.TypeMultipleChoice, 1),
	}
	got := Compose(in)
	want := []model.QuestionType{model.TypeShortAnswer, model.TypeEssay, model.TypeDescriptive, model.TypeMultipleChoice}
	for i, s := range got {
		if s.Type != want[i] {
			t.Errorf("section %d type = %s, want %s", i, s.Type, want[i])
		}
	}
}

func TestComposeDeterministic(t *testing.T) {
	in := []model.Question{
		q("1", model.TypeEssay, 10),
		q("2", model.TypeMultipleChoice, 1),
		q("3", model.TypeEssay, 10),
		q("4", "true_false", 1),
	}
	first := Compose(in)
	second := Compose(in)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Compose is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestComposePartition(t *testing.T) {
	types := []model.QuestionType{model.TypeEssay, model.TypeShortAnswer, model.TypeMultipleChoice, model.TypeDescriptive, "oral"}
	var in []model.Question
	for i := 0; i < 40; i++ {
		in = append(in, q(fmt.Sprintf("q%d", i), types[(i*7)%len(types)], i%5+1))
	}
	original := make([]model.Question, len(in))
	copy(original, in)

	sections := Compose(in)

	seen := make(map[string]int)
	total := 0
	for _, s := range sections {
		for _, qq := range s.Questions {
			seen[qq.ID]++
			total++
			if qq.Type != s.Type {
				t.Errorf("question %s of type %s in section %s", qq.ID, qq.Type, s.Type)
			}
		}
	}
	if total != len(in) {
		t.Errorf("sections hold %d questions, input had %d", total, len(in))
	}
	for _, qq := range in {
		if seen[qq.ID] != 1 {
			t.Errorf("question %s appears %d times", qq.ID, seen[qq.ID])
		}
	}
	if !reflect.DeepEqual(in, original) {
		t.Error("input was mutated")
	}

	// Within each section, order must follow input order.
	pos := make(map[string]int)
	for i, qq := range in {
		pos[qq.ID] = i
	}
	for _, s := range sections {
		for i := 1; i < len(s.Questions); i++ {
			if pos[s.Questions[i-1].ID] > pos[s.Questions[i].ID] {
				t.Errorf("section %s reorders %s and %s", s.Label, s.Questions[i-1].ID, s.Questions[i].ID)
			}
		}
	}
}

func TestComposeUnknownType(t *testing.T) {
	got := Compose([]model.Question{q("1", "true_false", 1), q("2", model.TypeEssay, 10), q("3", "true_false", 1)})
	if len(got) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(got))
	}
	if got[0].Type != "true_false" || len(got[0].Questions) != 2 {
		t.Errorf("unknown type section = %+v", got[0])
	}
}

func TestSubtotalMixedMarks(t *testing.T) {
	got := Compose([]model.Question{
		q("1", model.TypeDescriptive, 5),
		q("2", model.TypeDescriptive, 3),
		q("3", model.TypeDescriptive, 7),
		q("4", model.TypeEssay, 10),
	})
	if got[0].Subtotal != 15 {
		t.Errorf("mixed subtotal = %d, want 15", got[0].Subtotal)
	}
	if _, ok := got[0].UniformMarks(); ok {
		t.Error("mixed section reported uniform marks")
	}
	if m, ok := got[1].UniformMarks(); !ok || m != 10 {
		t.Errorf("UniformMarks() = %d, %v", m, ok)
	}
	if Total(got) != 25 {
		t.Errorf("Total() = %d, want 25", Total(got))
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		i    int
		want string
	}{
		{0, "A"}, {1, "B"}, {25, "Z"}, {26, "AA"}, {27, "AB"}, {51, "AZ"}, {52, "BA"}, {701, "ZZ"}, {702, "AAA"}, {-1, ""},
	}
	for _, tt := range tests {
		if got := Label(tt.i); got != tt.want {
			t.Errorf("Label(%d) = %q, want %q", tt.i, got, tt.want)
		}
	}
}

func TestTypeTitle(t *testing.T) {
	tests := map[model.QuestionType]string{
		model.TypeMultipleChoice: "Multiple Choice",
		model.TypeShortAnswer:    "Short Answer",
		model.TypeEssay:          "Essay",
		"true_false":             "True False",
	}
	for in, want := range tests {
		if got := TypeTitle(in); got != want {
			t.Errorf("TypeTitle(%q) = %q, want %q", in, got, want)
		}
	}
	if OptionLabel(2) != "c" {
		t.Errorf("OptionLabel(2) = %q", OptionLabel(2))
	}
}
