// Package httputil renders the uniform response envelope and decodes request bodies.
//
// Success: {"success": true, "data": ..., "pagination": ...}
// Failure: {"success": false, "message": "...", "errors": [...]}
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "pawnshop/pkg/domain-errors"
	"pawnshop/pkg/requestcontext"
)

const maxBodyBytes = 1 << 20

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success    bool                 `json:"success"`
	Data       any                  `json:"data,omitempty"`
	Pagination any                  `json:"pagination,omitempty"`
	Message    string               `json:"message,omitempty"`
	Errors     []dErrors.FieldError `json:"errors,omitempty"`
}

// Validatable is implemented by request DTOs that normalize and check themselves.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes a success envelope around data.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WritePage writes a success envelope with a pagination block.
func WritePage(w http.ResponseWriter, data any, pagination any) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: pagination})
}

// WriteMessage writes a success envelope carrying only a message.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Envelope{Success: true, Message: message})
}

// WriteError translates err into the failure envelope. Internal errors never
// expose their message.
func WriteError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		de = &dErrors.Error{Code: dErrors.CodeInternal}
	}
	status := dErrors.ToHTTPStatus(de.Code)
	body := Envelope{Success: false, Message: de.Message, Errors: de.Fields}
	if status == http.StatusInternalServerError {
		body = Envelope{Success: false, Message: "Internal Server Error"}
	}
	WriteJSON(w, status, body)
}

// WriteServiceError logs a failed operation and writes the error envelope.
// Internal failures log at ERROR with their cause; client errors at WARN.
func WriteServiceError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	attrs := []any{"error", err, "request_id", requestcontext.RequestID(ctx)}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		logger.ErrorContext(ctx, msg, attrs...)
	} else {
		logger.WarnContext(ctx, msg, attrs...)
	}
	WriteError(w, err)
}

// Decode reads a JSON body into T.
func Decode[T any](r *http.Request) (*T, error) {
	var v T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body")
	}
	return &v, nil
}

// DecodeAndPrepare decodes and validates a request body, writing the error
// response itself when either step fails.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req, err := Decode[T](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, err)
		return nil, false
	}
	if err := PT(req).Validate(); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
