package box

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned when Box responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("box: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("box: HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus exposes the response status for transient-error classification.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// errorBody is the JSON error envelope Box returns.
type errorBody struct {
	Type      string `json:"type"`
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func newAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(data)}
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Type == "error" {
		apiErr.Code = eb.Code
		apiErr.Message = eb.Message
		apiErr.RequestID = eb.RequestID
	}
	return apiErr
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not
// (and does not wrap) an *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a Box 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsConflict reports whether err is a Box 409, e.g. a metadata instance that
// already exists on the file.
func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusConflict
}
