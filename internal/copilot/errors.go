package copilot

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every failure leaving the dispatcher carries exactly one
// of these; anything unrecognized is folded into KindInternal.
const (
	KindValidation  = "ValidationError"
	KindExecution   = "ExecutionError"
	KindTranslation = "TranslationError"
	KindAI          = "AIError"
	KindInternal    = "InternalError"

	// KindUnauthorized never leaves the dispatcher; the HTTP layer uses
	// it for rejected API keys so every error body shares one envelope.
	KindUnauthorized = "UnauthorizedError"
)

// Error is the typed failure crossing the dispatch boundary.
type Error struct {
	Kind       string
	Message    string
	Suggestion string
	Err        error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Envelope is the terminal error shape callers see. It is never nested
// inside a result.
type Envelope struct {
	Message    string `json:"message"`
	Kind       string `json:"kind"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (e *Error) Envelope() Envelope {
	return Envelope{Message: e.Message, Kind: e.Kind, Suggestion: e.Suggestion}
}

func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func newExecutionError(err error) *Error {
	return &Error{
		Kind:       KindExecution,
		Message:    err.Error(),
		Suggestion: suggestionFor(err.Error()),
		Err:        err,
	}
}

// NewTranslationError wraps a translator failure; the HTTP translate
// endpoint shares it so both surfaces phrase the failure the same way.
func NewTranslationError(err error) *Error {
	return &Error{
		Kind:       KindTranslation,
		Message:    "SQL generation failed: " + err.Error(),
		Suggestion: "Rephrase the question or submit SQL directly.",
		Err:        err,
	}
}

func newAIError(err error) *Error {
	return &Error{Kind: KindAI, Message: err.Error(), Err: err}
}

// FromError coerces any error to the boundary type. Unrecognized errors
// become internal failures with a generic remediation hint, so nothing
// escapes unstructured.
func FromError(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return &Error{
		Kind:       KindInternal,
		Message:    err.Error(),
		Suggestion: "Check logs for details. Ensure the database is initialized.",
		Err:        err,
	}
}

// suggestionFor maps common store error text to a remediation hint.
func suggestionFor(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "no such table"), strings.Contains(msg, "does not exist"):
		return "Table not found. Run bicopilot-seed to create the demo tables."
	case strings.Contains(msg, "syntax error"):
		return "SQL syntax error. Check your query for typos or missing keywords."
	case strings.Contains(msg, "permission"):
		return "Permission denied. Check file permissions on the database file."
	case strings.Contains(msg, "no data found"), strings.Contains(msg, "no rows"):
		return "No rows matched. Load data with bicopilot-seed or widen the time period."
	default:
		return "An unexpected error occurred. Check the logs for details."
	}
}
