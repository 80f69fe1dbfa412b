package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
)

// HTTPRequest represents an HTTP request. Body is a byte slice so that
// retries can replay it.
type HTTPRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
	Context context.Context
}

// HTTPResponse represents an HTTP response
type HTTPResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *HTTPResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// DecodeJSON unmarshals the response body into v.
func (r *HTTPResponse) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return WrapError(err, fmt.Sprintf("failed to decode JSON response (status %d)", r.StatusCode))
	}
	return nil
}

// NewJSONRequest builds a request whose body is payload encoded as JSON.
// A nil payload produces a request without a body.
func NewJSONRequest(ctx context.Context, method, url string, payload any) (*HTTPRequest, error) {
	req := &HTTPRequest{
		URL:     url,
		Method:  method,
		Headers: map[string]string{},
		Context: ctx,
	}
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, WrapError(err, "failed to encode JSON request body")
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json"
	}
	return req, nil
}
