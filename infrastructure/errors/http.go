// Package errors extracts readable messages from peer error responses.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// MinErrorStatusCode is the smallest status treated as an error.
const MinErrorStatusCode = 400

// HTTPError describes a non-2xx response from a peer service.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP error (%d %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.Status)
}

// FromResponse builds an HTTPError from an already-read response. It returns
// nil for statuses below 400. Message is taken from the first non-empty of
// the JSON keys error, detail and message, falling back to the raw body.
func FromResponse(statusCode int, body []byte) *HTTPError {
	if statusCode < MinErrorStatusCode {
		return nil
	}

	bodyStr := string(body)
	herr := &HTTPError{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Body:       bodyStr,
		Message:    strings.TrimSpace(bodyStr),
	}

	var envelope struct {
		Error   string          `json:"error"`
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &envelope) != nil {
		return herr
	}

	switch {
	case envelope.Error != "":
		herr.Message = envelope.Error
	case len(envelope.Detail) > 0:
		// detail is a string for auth failures and a list for validation errors.
		var s string
		if json.Unmarshal(envelope.Detail, &s) == nil {
			herr.Message = s
		} else {
			herr.Message = string(envelope.Detail)
		}
	case envelope.Message != "":
		herr.Message = envelope.Message
	}

	return herr
}

// GetHTTPStatusCode extracts the status code when err is an *HTTPError.
func GetHTTPStatusCode(err error) (int, bool) {
	if httpErr, ok := err.(*HTTPError); ok {
		return httpErr.StatusCode, true
	}
	return 0, false
}
