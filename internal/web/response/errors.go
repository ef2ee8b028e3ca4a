// Package response renders JSON bodies and the HTTP error taxonomy.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is an error that carries the HTTP status it should be reported with
type Error struct {
	Status  int
	Message string
	Err     error
}

// Error returns the user-visible message
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON body of every error response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Errorf creates an Error with a formatted message
func Errorf(status int, format string, args ...interface{}) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// BadRequest reports a malformed or disallowed parameter
func BadRequest(format string, args ...interface{}) *Error {
	return Errorf(http.StatusBadRequest, format, args...)
}

// Unauthorized reports access to a restricted field
func Unauthorized(format string, args ...interface{}) *Error {
	return Errorf(http.StatusUnauthorized, format, args...)
}

// NotFound reports a missing document or path
func NotFound(format string, args ...interface{}) *Error {
	return Errorf(http.StatusNotFound, format, args...)
}

// MethodNotAllowed reports a verb that is not bound on an existing path
func MethodNotAllowed(method, path string) *Error {
	return Errorf(http.StatusMethodNotAllowed, "Method %s is not allowed on %s.", method, path)
}

// Conflict reports a uniqueness violation
func Conflict(format string, args ...interface{}) *Error {
	return Errorf(http.StatusConflict, format, args...)
}

// Internal wraps an unexpected failure; the message is the underlying error's
func Internal(err error) *Error {
	message := "Internal server error"
	if err != nil {
		message = err.Error()
	}
	return &Error{Status: http.StatusInternalServerError, Message: message, Err: err}
}

// StatusOf returns the status an error should be reported with
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// RenderError writes err as a JSON error body. Errors that are not an *Error
// are reported as 500 with their message.
func RenderError(w http.ResponseWriter, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = Internal(err)
	}
	RenderJSON(w, e.Status, &ErrorResponse{
		Message: e.Message,
		Code:    errorCodeFromStatus(e.Status),
	})
}

// RenderJSON writes v as a JSON body with the given status
func RenderJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		return "error"
	}
}
