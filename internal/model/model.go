package model

import (
	"context"
)

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// QuestionType is the kind of question a rule or question describes.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeDescriptive    QuestionType = "descriptive"
	TypeEssay          QuestionType = "essay"
)

// QuestionTypes lists the known question types in form order.
var QuestionTypes = []QuestionType{
	TypeMultipleChoice,
	TypeShortAnswer,
	TypeDescriptive,
	TypeEssay,
}

// Known reports whether t is one of the four known question types.
func (t QuestionType) Known() bool {
	switch t {
	case TypeMultipleChoice, TypeShortAnswer, TypeDescriptive, TypeEssay:
		return true
	}
	return false
}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// UnitDistribution is the policy the generator uses to spread questions over units.
type UnitDistribution string

const (
	UnitsEqual    UnitDistribution = "equal"
	UnitsWeighted UnitDistribution = "weighted"
	UnitsRandom   UnitDistribution = "random"
)

// Unit is one unit of a parsed syllabus.
type Unit struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Topics []string `json:"topics"`
	Order  int      `json:"order"`
}

// Syllabus is an uploaded course syllabus as parsed by the backend.
type Syllabus struct {
	ID         string     `json:"id"`
	CourseName string     `json:"course_name"`
	Content    string     `json:"content"`
	Units      []Unit     `json:"units"`
	CreatedAt  Timestamp  `json:"created_at"`
	UpdatedAt  *Timestamp `json:"updated_at,omitempty"`
}

// QuestionTypeRule is a quota of questions of one type.
type QuestionTypeRule struct {
	Type  QuestionType `json:"type" validate:"oneof=multiple_choice short_answer descriptive essay"`
	Marks int          `json:"marks" validate:"min=1,max=100"`
	Count int          `json:"count" validate:"min=1,max=50"`
}

// Subtotal is the marks this rule contributes to the paper.
func (r QuestionTypeRule) Subtotal() int {
	return r.Marks * r.Count
}

// DifficultyDistribution holds percentage-like weights per difficulty.
type DifficultyDistribution struct {
	Easy   int `json:"easy" validate:"min=0"`
	Medium int `json:"medium" validate:"min=0"`
	Hard   int `json:"hard" validate:"min=0"`
}

// Sum returns the total weight.
func (d DifficultyDistribution) Sum() int {
	return d.Easy + d.Medium + d.Hard
}

// GenerationRules is the rule block of a generation request.
type GenerationRules struct {
	QuestionTypes          []QuestionTypeRule     `json:"question_types" validate:"min=1,dive"`
	DifficultyDistribution DifficultyDistribution `json:"difficulty_distribution"`
	UnitDistribution       UnitDistribution       `json:"unit_distribution" validate:"oneof=equal weighted random"`
	IncludeAnswers         bool                   `json:"include_answers"`
	RandomizeOptions       bool                   `json:"randomize_options"`
}

// GenerationRequest is the payload submitted to the backend to generate a paper.
type GenerationRequest struct {
	SyllabusID      string          `json:"syllabus_id"`
	TotalMarks      int             `json:"total_marks"`
	GenerationRules GenerationRules `json:"generation_rules"`
}

// Question is one generated question.
type Question struct {
	ID                string       `json:"id"`
	UnitID            string       `json:"unit_id"`
	UnitName          string       `json:"unit_name"`
	Text              string       `json:"question_text"`
	Marks             int          `json:"marks"`
	Type              QuestionType `json:"type"`
	Difficulty        Difficulty   `json:"difficulty"`
	Options           []string     `json:"options,omitempty"`
	CourseOutcome     string       `json:"course_outcome,omitempty"`
	BloomsLevel       string       `json:"blooms_level,omitempty"`
	CorrectAnswer     string       `json:"correct_answer,omitempty"`
	AnswerExplanation string       `json:"answer_explanation,omitempty"`
}

// PaperRuleEntry is one question-type quota as confirmed by the backend.
type PaperRuleEntry struct {
	Marks      int     `json:"marks"`
	Count      int     `json:"count"`
	Type       string  `json:"type"`
	Difficulty *string `json:"difficulty"`
}

// PaperRules is the backend-confirmed record of the rules a paper was generated with.
type PaperRules struct {
	QuestionTypes          []PaperRuleEntry       `json:"question_types"`
	DifficultyDistribution DifficultyDistribution `json:"difficulty_distribution"`
	UnitSelection          string                 `json:"unit_selection"`
	IncludeAnswerKey       bool                   `json:"include_answer_key"`
	RandomizeOrder         bool                   `json:"randomize_order"`
	RandomizeOptions       bool                   `json:"randomize_options"`
}

// Paper is a generated question paper.
type Paper struct {
	ID              string         `json:"id"`
	SyllabusID      string         `json:"syllabus_id"`
	CourseName      string         `json:"course_name"`
	GeneratedAt     Timestamp      `json:"generated_at"`
	TotalMarks      int            `json:"total_marks"`
	TotalQuestions  int            `json:"total_questions"`
	Questions       []Question     `json:"questions"`
	GenerationRules PaperRules     `json:"generation_rules"`
	UnitsCoverage   map[string]int `json:"units_coverage"`
	CreatedAt       *Timestamp     `json:"created_at,omitempty"`
}

// Date returns the generation time, falling back to the creation time.
func (p *Paper) Date() Timestamp {
	if p.GeneratedAt.IsZero() && p.CreatedAt != nil {
		return *p.CreatedAt
	}
	return p.GeneratedAt
}

// AnswerKeyEntry is the authoritative answer for one question.
type AnswerKeyEntry struct {
	QuestionID     string `json:"question_id"`
	QuestionNumber int    `json:"question_number"`
	Marks          int    `json:"marks"`
	QuestionText   string `json:"question_text"`
	CorrectAnswer  string `json:"correct_answer"`
	Explanation    string `json:"explanation,omitempty"`
}

// AnswerKey is the answer record of a paper, fetched separately from the paper.
type AnswerKey struct {
	PaperID     string           `json:"paper_id"`
	CourseName  string           `json:"course_name"`
	TotalMarks  int              `json:"total_marks"`
	GeneratedAt Timestamp        `json:"generated_at"`
	Answers     []AnswerKeyEntry `json:"answers"`
}

// UploadTextRequest is the payload for a plain-text syllabus upload.
type UploadTextRequest struct {
	CourseName string `json:"course_name"`
	Content    string `json:"content"`
}

// HealthStatus is the backend health response.
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
