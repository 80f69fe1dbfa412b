package api

import (
	"time"

	"github.com/aleister1102/crawlgate/internal/models"
	"github.com/aleister1102/crawlgate/internal/rslimiter"
)

// errorResponse mirrors the {"detail": ...} shape callers of the crawl
// service already parse.
type errorResponse struct {
	Detail string       `json:"detail"`
	Errors []fieldError `json:"errors,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

type invalidateRequest struct {
	URL string `json:"url"`
}

type cleanupResponse struct {
	Message        string    `json:"message"`
	RemovedEntries int       `json:"removed_entries"`
	Timestamp      time.Time `json:"timestamp"`
}

type healthPayload struct {
	models.HealthResponse
	Resources *rslimiter.Usage `json:"resources,omitempty"`
}

func toFieldErrors(verrs models.ValidationErrors) []fieldError {
	out := make([]fieldError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, fieldError{Field: e.Field, Message: e.Message, Value: e.Value})
	}
	return out
}
