// Package prompts builds the marking prompts sent to the LLM.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/Nagarajan13172/qpgen/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

const maxAnswerRunes = 10000

var (
	candidateAnswerRegex    = regexp.MustCompile(`(?i)</?\s*candidate-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

// Variant is a marking strictness level.
type Variant string

const (
	// Strict marks only what the reference answer covers.
	Strict Variant = "strict"
	// Standard is the default variant.
	Standard Variant = "standard"
	// Lenient gives partial credit for partially correct reasoning.
	Lenient Variant = "lenient"
)

// Variants lists the known variants.
var Variants = []Variant{Strict, Standard, Lenient}

// IsValidVariant reports whether v names a known variant.
func IsValidVariant(v string) bool {
	for _, known := range Variants {
		if string(known) == v {
			return true
		}
	}
	return false
}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Variant]*template.Template
)

// Data is the template input of a marking prompt.
type Data struct {
	QuestionText  string
	QuestionType  string
	Marks         int
	Options       []string
	CorrectAnswer string
	Explanation   string
	Answer        string
}

func load() error {
	loadOnce.Do(func() {
		templates = make(map[Variant]*template.Template)
		for _, v := range Variants {
			name := "templates/grade_" + string(v) + ".txt"
			content, err := fs.ReadFile(templateFS, name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New(string(v)).Funcs(template.FuncMap{
				"optionLabel": optionLabel,
			}).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			templates[v] = tmpl
		}
	})
	return loadErr
}

// BuildGradePrompt builds the system prompt for marking answer to question q
// against the answer key entry.
func BuildGradePrompt(variant Variant, q model.Question, entry model.AnswerKeyEntry, answer string) (string, error) {
	if err := load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	tmpl, ok := templates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	text := q.Text
	if text == "" {
		text = entry.QuestionText
	}
	marks := q.Marks
	if marks == 0 {
		marks = entry.Marks
	}

	data := Data{
		QuestionText:  text,
		QuestionType:  string(q.Type),
		Marks:         marks,
		Options:       q.Options,
		CorrectAnswer: entry.CorrectAnswer,
		Explanation:   entry.Explanation,
		Answer:        SanitizeAnswer(answer),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// SanitizeAnswer strips delimiter tags a candidate could use to break out of
// the answer block, and truncates very long answers.
func SanitizeAnswer(answer string) string {
	answer = candidateAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}
	return answer
}

func optionLabel(i int) string {
	return string(rune('a'+i%26)) + "."
}
