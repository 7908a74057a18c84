// Package http provides the JSON API server and its handlers.
//
// This file implements the builder for the response envelope shared by
// every endpoint: {success, message, data, errors}.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    any          `json:"data"`
	Errors  []FieldError `json:"errors"`
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ResponseBuilder provides a fluent API for writing envelopes.
type ResponseBuilder struct {
	statusCode int
	envelope   Envelope
	headers    map[string]string
}

// NewResponse creates a successful 200 response builder.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		envelope:   Envelope{Success: true},
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	b.envelope.Success = code < 400
	return b
}

func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	b.envelope.Message = msg
	return b
}

func (b *ResponseBuilder) Data(data any) *ResponseBuilder {
	b.envelope.Data = data
	return b
}

// FieldError appends a field error to the envelope.
func (b *ResponseBuilder) FieldError(field, message string) *ResponseBuilder {
	b.envelope.Errors = append(b.envelope.Errors, FieldError{Field: field, Message: message})
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the envelope as JSON.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.statusCode == http.StatusNoContent {
		return
	}
	_ = json.NewEncoder(w).Encode(b.envelope)
}

// ErrorResponse creates a failed response with the given status.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).Message(message)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	NewResponse().Status(status).Message(message).Data(data).Write(w)
}

// errorStatus maps a service error onto its HTTP status and error type.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, errBadRequest):
		return http.StatusBadRequest, log.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, log.ErrorTypeNotFound
	case errors.Is(err, services.ErrReconciliation):
		return http.StatusConflict, log.ErrorTypeConflict
	default:
		return http.StatusInternalServerError, log.ErrorTypeInternal
	}
}

// writeError maps err onto a status and envelope. Internal errors are
// logged and their text is not returned to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, errorType := errorStatus(err)
	resp := ErrorResponse(status, err.Error())

	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Message("validation failed").FieldError(verr.Field, verr.Err.Error())
	case status == http.StatusBadRequest:
		resp.FieldError("", err.Error())
	case status == http.StatusInternalServerError:
		resp.Message("internal error")
	}

	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldError, err, log.FieldErrorType, errorType, log.FieldPath, r.URL.Path)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err, log.FieldErrorType, errorType, log.FieldStatusCode, status)
	}

	resp.Write(w)
}
