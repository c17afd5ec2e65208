package model

import "time"

// GenerationStatus is the outcome of a submitted generation request.
type GenerationStatus string

const (
	GenerationSubmitted GenerationStatus = "submitted"
	GenerationSucceeded GenerationStatus = "succeeded"
	GenerationFailed    GenerationStatus = "failed"
)

// Generation is one locally recorded generation submission.
type Generation struct {
	ID         int64             `json:"id"`
	SyllabusID string            `json:"syllabus_id"`
	TotalMarks int               `json:"total_marks"`
	Request    GenerationRequest `json:"request"`
	PaperID    string            `json:"paper_id,omitempty"`
	Status     GenerationStatus  `json:"status"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// PaperSnapshot is a locally cached copy of a fetched paper.
type PaperSnapshot struct {
	PaperID        string    `json:"paper_id"`
	CourseName     string    `json:"course_name"`
	SyllabusID     string    `json:"syllabus_id"`
	TotalMarks     int       `json:"total_marks"`
	TotalQuestions int       `json:"total_questions"`
	HasAnswerKey   bool      `json:"has_answer_key"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// Download is a recorded PDF download.
type Download struct {
	ID             int64     `json:"id"`
	PaperID        string    `json:"paper_id"`
	IncludeAnswers bool      `json:"include_answers"`
	Path           string    `json:"path"`
	SizeBytes      int64     `json:"size_bytes"`
	CreatedAt      time.Time `json:"created_at"`
}

// Grade is a mark suggested for one candidate answer, optionally overridden
// by the human marker.
type Grade struct {
	ID          int64     `json:"id"`
	PaperID     string    `json:"paper_id"`
	QuestionID  string    `json:"question_id"`
	Answer      string    `json:"answer"`
	LLMScore    float64   `json:"llm_score"`
	MaxMarks    int       `json:"max_marks"`
	Feedback    string    `json:"feedback"`
	Model       string    `json:"model"`
	MarkerScore *float64  `json:"marker_score,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FinalScore is the marker's score when set, otherwise the suggested one.
func (g Grade) FinalScore() float64 {
	if g.MarkerScore != nil {
		return *g.MarkerScore
	}
	return g.LLMScore
}

// HistoryExport is the top-level JSON structure of a local history export.
type HistoryExport struct {
	ExportedAt  time.Time       `json:"exported_at"`
	BackendURL  string          `json:"backend_url"`
	Generations []Generation    `json:"generations"`
	Papers      []PaperSnapshot `json:"papers"`
	Downloads   []Download      `json:"downloads"`
	Grades      []Grade         `json:"grades"`
}
