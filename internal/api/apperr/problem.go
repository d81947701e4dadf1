package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// GenericMessage is shown when a failed response carries no readable message.
const GenericMessage = "Something went wrong, please try again."

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`    // e.g. "required", "pattern", "min", "mismatch"
	Message string `json:"message"` // human readable
}

// RequestError is any non-2xx response from the backend.
type RequestError struct {
	Status    int    `json:"-"`
	Code      int    `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"-"`
	Method    string `json:"-"`
	Path      string `json:"-"`
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// UserMessage is the text to surface verbatim to the user.
func (e *RequestError) UserMessage() string {
	if m := strings.TrimSpace(e.Message); m != "" {
		return m
	}
	return GenericMessage
}

// Retryable marks transient failures worth offering a retry for.
func (e *RequestError) Retryable() bool {
	switch e.Status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return e.Status >= 500
}

// Parse builds a RequestError from a response status and body. Bodies that are
// not JSON, or JSON without a message, fall back to the generic message.
func Parse(status int, body []byte) *RequestError {
	e := &RequestError{Status: status}
	var payload struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
		Error   any    `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return e
	}
	e.Code = payload.Code
	e.Field = payload.Field
	e.Message = strings.TrimSpace(payload.Message)
	if e.Message == "" {
		switch v := payload.Error.(type) {
		case string:
			e.Message = v
		case map[string]any:
			if m, ok := v["message"].(string); ok {
				e.Message = m
			}
		}
	}
	if e.Message == "" {
		e.Message = payload.Detail
	}
	return e
}

// As returns the RequestError inside err, if any.
func As(err error) (*RequestError, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

func IsStatus(err error, status int) bool {
	re, ok := As(err)
	return ok && re.Status == status
}

// Message extracts a user-facing message from any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if re, ok := As(err); ok {
		return re.UserMessage()
	}
	var fe interface{ FieldErrors() []FieldError }
	if errors.As(err, &fe) {
		return err.Error()
	}
	return GenericMessage
}
