// Package errors maps service failures to HTTP responses.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/copyleftdev/egoserver/internal/optimization"
)

// Error is an error reported to an HTTP client.
type Error struct {
	// Status is the HTTP status code of the response
	Status int
	// Code is a stable machine readable identifier
	Code string
	// Message is a human-readable description
	Message string
	// The underlying error, never sent to the client
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder
	builder.WriteString(e.Code)
	if e.Message != "" {
		builder.WriteString(": ")
		builder.WriteString(e.Message)
	}
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	return builder.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a client error.
func New(status int, code, msg string) *Error {
	return &Error{Status: status, Code: code, Message: msg}
}

// BadRequest reports a malformed request.
func BadRequest(msg string, err error) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "bad_request", Message: msg, Err: err}
}

// NotFound reports an unknown resource.
func NotFound(msg string) *Error {
	return New(http.StatusNotFound, "not_found", msg)
}

// From converts err into a client error. Optimization errors are mapped by kind.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	switch {
	case optimization.IsKind(err, optimization.KindConfiguration):
		return &Error{Status: http.StatusBadRequest, Code: "invalid_configuration", Message: err.Error(), Err: err}
	case optimization.IsKind(err, optimization.KindInfeasible):
		return &Error{Status: http.StatusUnprocessableEntity, Code: "infeasible", Message: err.Error(), Err: err}
	case optimization.IsKind(err, optimization.KindEvaluation):
		return &Error{Status: http.StatusInternalServerError, Code: "evaluation_failed", Message: err.Error(), Err: err}
	case optimization.IsKind(err, optimization.KindRefit):
		return &Error{Status: http.StatusInternalServerError, Code: "refit_failed", Message: err.Error(), Err: err}
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return &Error{Status: http.StatusServiceUnavailable, Code: "cancelled", Message: err.Error(), Err: err}
	default:
		return &Error{Status: http.StatusInternalServerError, Code: "internal", Message: http.StatusText(http.StatusInternalServerError), Err: err}
	}
}

// Body is the JSON error payload.
type Body struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Write sends err as a JSON error response.
func Write(w http.ResponseWriter, err error) {
	e := From(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(map[string]Body{
		"error": {Code: e.Code, Message: e.Message},
	})
}
