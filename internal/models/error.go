package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the crawl pipeline. Only ErrBackendUnreachable and
// ErrRunTimeout abort a run; the others degrade to a failed CrawlResult.
var (
	ErrInvalidURL         = errors.New("invalid URL")
	ErrBackendUnreachable = errors.New("crawl backend unreachable")
	ErrBackendTimeout     = errors.New("crawl task timed out")
	ErrParse              = errors.New("malformed crawl backend payload")
	ErrRunTimeout         = errors.New("crawl request deadline exceeded")
)

// Error messages recorded on failed results.
const (
	ErrorMessageTimeout = "timeout"
	ErrorMessageParse   = "parse error"
)

// URLValidationError represents an error during URL validation.
type URLValidationError struct {
	URL     string
	Message string
}

// Error returns the error message for URLValidationError.
func (e *URLValidationError) Error() string {
	return fmt.Sprintf("invalid URL %q: %s", e.URL, e.Message)
}

// Unwrap lets callers match the error against ErrInvalidURL.
func (e *URLValidationError) Unwrap() error {
	return ErrInvalidURL
}

// NewURLValidationError creates a URLValidationError.
func NewURLValidationError(rawURL, message string) *URLValidationError {
	return &URLValidationError{URL: rawURL, Message: message}
}

// BackendError describes a failure to talk to the crawl backend at all.
type BackendError struct {
	Op  string // "submit", "poll" or "health"
	URL string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("crawl backend %s failed for %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap exposes both the sentinel and the transport error.
func (e *BackendError) Unwrap() []error {
	return []error{ErrBackendUnreachable, e.Err}
}

// NewBackendError creates a BackendError.
func NewBackendError(op, rawURL string, err error) *BackendError {
	return &BackendError{Op: op, URL: rawURL, Err: err}
}

// ValidationError represents a rejected request field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every rejected field of a request.
type ValidationErrors []*ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	msg := ve[0].Error()
	if len(ve) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(ve)-1)
	}
	return msg
}
