package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jfapp/reactix/internal/session"
)

// newEngineError starts an error of errType. Context is added with With.
func newEngineError(errType, message string) EngineError {
	return EngineError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// With returns a copy of e carrying key in its context.
func (e EngineError) With(key string, value interface{}) EngineError {
	ctx := make(map[string]interface{}, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	e.Context = ctx
	return e
}

// forRequest stamps e with the request id and route.
func (e EngineError) forRequest(r *http.Request) EngineError {
	e.RequestID = middleware.GetReqID(r.Context())
	return e.With("method", r.Method).With("path", r.URL.Path)
}

// classify picks the error type for an error surfaced by the session or
// progress layers.
func classify(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return ErrTypeRunNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTypeTimeout
	default:
		return ErrTypeInternal
	}
}

// statusFor maps an error type to its HTTP status.
func statusFor(errType string) int {
	switch errType {
	case ErrTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	}
	switch GetErrorCategory(errType) {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryRun:
		return http.StatusNotFound
	case CategoryTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// ErrorHandler writes EngineErrors and logs them.
type ErrorHandler struct {
	logger *log.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *log.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError reports err. EngineErrors keep their type; anything else is
// classified.
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var engineErr EngineError
	if !errors.As(err, &engineErr) {
		engineErr = newEngineError(classify(err), err.Error())
	}
	eh.respond(w, r, engineErr.forRequest(r))
}

// HandleValidationError rejects a bad request field.
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, errType, field, message string) {
	eh.respond(w, r, newEngineError(errType, "Validation failed: "+message).
		With("field", field).
		forRequest(r))
}

// HandleRunNotFound reports an unknown run id.
func (eh *ErrorHandler) HandleRunNotFound(w http.ResponseWriter, r *http.Request, runID string) {
	eh.respond(w, r, newEngineError(ErrTypeRunNotFound, "Run not found").
		With("run_id", runID).
		forRequest(r))
}

func (eh *ErrorHandler) respond(w http.ResponseWriter, r *http.Request, e EngineError) {
	status := statusFor(e.Type)
	category := GetErrorCategory(e.Type)

	level := "ERROR"
	if category == CategoryValidation || category == CategoryRun {
		level = "WARN"
	}
	eh.logger.Printf("request_failed level=%s type=%s category=%s status=%d request_id=%s message=%q context=%v",
		level, e.Type, category, status, e.RequestID, e.Message, e.Context)

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Engine-Version", EngineVersion)
	h.Set("X-Error-Type", e.Type)
	h.Set("X-Error-Category", string(category))
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(e); err != nil {
		eh.logger.Printf("write error response: %v", err)
	}
}

// RecoveryHandler turns a handler panic into a 500 EngineError.
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			eh.respond(w, r, newEngineError(ErrTypeInternal, "Internal server error").
				With("panic", fmt.Sprint(rvr)).
				forRequest(r))
		}()
		next.ServeHTTP(w, r)
	})
}
