package backend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a backend failure.
type Kind string

const (
	// KindFetch is a failed read (paper, answer key, list, detail).
	KindFetch Kind = "fetch"
	// KindDelete is a failed delete.
	KindDelete Kind = "delete"
	// KindSubmit is a rejected generation request or upload.
	KindSubmit Kind = "submit"
	// KindTransport is a failure before any response was received.
	KindTransport Kind = "transport"
)

// Error is a backend call failure. Its message is shown to users verbatim.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var be *Error
	return errors.As(err, &be) && be.StatusCode == http.StatusNotFound
}

// IsKind reports whether err is a backend error of the given kind.
func IsKind(err error, kind Kind) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == kind
}

// errorMessage extracts a human-readable message from an error response body:
// a string "detail", a FastAPI validation list in "detail", or "message".
func errorMessage(body []byte, status int) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := detailMessage(payload.Detail); msg != "" {
			return msg
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if text := http.StatusText(status); text != "" {
		return "request failed: " + text
	}
	return "an unexpected error occurred"
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
