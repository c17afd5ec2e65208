package render

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/Nagarajan13172/qpgen/internal/model"
)

// Pager carries list offsets for the previous/next links.
type Pager struct {
	Skip     int
	Limit    int
	HasPrev  bool
	HasNext  bool
	PrevSkip int
	NextSkip int
}

// NewPager builds a pager for a page of got items fetched at skip. The
// backend does not report a total, so a full page implies a next page.
func NewPager(skip, limit, got int) Pager {
	p := Pager{Skip: skip, Limit: limit}
	if skip > 0 {
		p.HasPrev = true
		p.PrevSkip = max(skip-limit, 0)
	}
	if limit > 0 && got >= limit {
		p.HasNext = true
		p.NextSkip = skip + limit
	}
	return p
}

// DashboardData is the data of the dashboard page.
type DashboardData struct {
	SyllabusCount int
	PaperCount    int
	Recent        []model.Paper
	BackendOK     bool
	BackendURL    string
}

// SyllabiData is the data of the syllabus list and upload page.
type SyllabiData struct {
	Syllabi    []model.Syllabus
	Pager      Pager
	Query      string
	CourseName string
	Content    string
}

// SyllabusData is the data of the syllabus detail page.
type SyllabusData struct {
	Syllabus *model.Syllabus
	Papers   []model.Paper
}

// PapersData is the data of the paper list page.
type PapersData struct {
	Papers     []model.Paper
	Pager      Pager
	Query      string
	SyllabusID string
	Syllabi    []model.Syllabus
}

// RuleRow is one editable row of the generation form.
type RuleRow struct {
	Index int
	model.QuestionTypeRule
}

// GenerateData is the data of the generation form.
type GenerateData struct {
	Syllabi          []model.Syllabus
	SyllabusID       string
	Rules            []RuleRow
	Difficulty       model.DifficultyDistribution
	UnitDistribution model.UnitDistribution
	IncludeAnswers   bool
	RandomizeOptions bool
	TotalMarks       int
	// ErrorField names the field a validation error refers to.
	ErrorField string
}

// UnitDistributions lists the choices of the unit distribution select.
func (GenerateData) UnitDistributions() []model.UnitDistribution {
	return []model.UnitDistribution{model.UnitsEqual, model.UnitsWeighted, model.UnitsRandom}
}

// DifficultyOff reports whether the difficulty weights do not sum to 100.
func (d GenerateData) DifficultyOff() bool {
	return d.Difficulty.Sum() != 100
}

// HistoryData is the data of the local history page.
type HistoryData struct {
	Generations []model.Generation
	Papers      []model.PaperSnapshot
	Downloads   []model.Download
	Grades      []model.Grade
}

// ErrorData is the data of the error page.
type ErrorData struct {
	Status  int
	Message string
}

// Spec is the "type:marks:count" form the generation form round-trips as
// the last accepted value of the row.
func (r RuleRow) Spec() string {
	return fmt.Sprintf("%s:%d:%d", r.Type, r.Marks, r.Count)
}

// RuleRows numbers rules for the generation form.
func RuleRows(rs []model.QuestionTypeRule) []RuleRow {
	return lo.Map(rs, func(r model.QuestionTypeRule, i int) RuleRow {
		return RuleRow{Index: i, QuestionTypeRule: r}
	})
}
