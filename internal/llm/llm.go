// Package llm assists a human marker by scoring a candidate's written answer
// against a paper's answer key.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Nagarajan13172/qpgen/internal/llm/prompts"
	"github.com/Nagarajan13172/qpgen/internal/model"
)

// Completer sends one system prompt and returns the raw text reply.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string) (string, error)
	Model() string
}

// GradeResult is the LLM's suggested mark for one answer.
type GradeResult struct {
	Score    float64 `json:"score"`
	MaxMarks int     `json:"max_marks"`
	Feedback string  `json:"feedback"`
	Model    string  `json:"-"`
}

// Client marks answers with a Completer and a prompt variant.
type Client struct {
	c       Completer
	variant prompts.Variant
}

// Option configures a Client.
type Option func(*Client)

// WithVariant selects the marking prompt variant.
func WithVariant(v prompts.Variant) Option {
	return func(c *Client) { c.variant = v }
}

// New creates a marking client on top of c.
func New(c Completer, opts ...Option) *Client {
	cl := &Client{c: c, variant: prompts.Standard}
	for _, o := range opts {
		o(cl)
	}
	return cl
}

// Config selects and configures an LLM provider.
type Config struct {
	Provider string // "openai" (any OpenAI-compatible endpoint) or "anthropic"
	BaseURL  string
	APIKey   string
	Model    string
	Variant  string
}

// NewFromConfig builds a Client for the configured provider.
func NewFromConfig(cfg Config) (*Client, error) {
	variant := prompts.Standard
	if cfg.Variant != "" {
		if !prompts.IsValidVariant(cfg.Variant) {
			return nil, fmt.Errorf("invalid prompt variant %q (want strict, standard or lenient)", cfg.Variant)
		}
		variant = prompts.Variant(cfg.Variant)
	}

	var c Completer
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		c = NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case "anthropic":
		c = NewAnthropic(cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
	return New(c, WithVariant(variant)), nil
}

// GradeAnswer scores answer to question q using the answer key entry as the
// reference. The score is clamped to [0, marks].
func (c *Client) GradeAnswer(ctx context.Context, q model.Question, entry model.AnswerKeyEntry, answer string) (*GradeResult, error) {
	if entry.CorrectAnswer == "" {
		return nil, errors.New("answer key has no reference answer for this question")
	}
	prompt, err := prompts.BuildGradePrompt(c.variant, q, entry, answer)
	if err != nil {
		return nil, fmt.Errorf("build grade prompt: %w", err)
	}

	raw, err := c.c.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	slog.Debug("LLM response", "model", c.c.Model(), "raw", raw)

	result, err := parseResult(raw)
	if err != nil {
		return nil, err
	}

	marks := q.Marks
	if marks == 0 {
		marks = entry.Marks
	}
	result.MaxMarks = marks
	result.Score = clamp(result.Score, 0, float64(marks))
	result.Model = c.c.Model()
	return result, nil
}

// parseResult decodes the JSON object in raw, tolerating code fences or prose
// around it.
func parseResult(raw string) (*GradeResult, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("parse LLM response: no JSON object (raw: %s)", raw)
	}
	var result GradeResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	return &result, nil
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
