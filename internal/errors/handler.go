package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Pittuba/dash-mercado/internal/period"
	"github.com/Pittuba/dash-mercado/internal/workbook"
)

// Problem types shared by every endpoint
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeUnauthorized    = "/errors/unauthorized"
	TypeForbidden       = "/errors/forbidden"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeServiceDown     = "/errors/service-unavailable"
	TypeTimeout         = "/errors/timeout"
	TypeConflict        = "/errors/conflict"
	TypePayloadTooLarge = "/errors/payload-too-large"
)

// Problem types of the indicator domain
const (
	TypeInvalidWindow    = "/errors/period/invalid-window"
	TypeWorkbookInvalid  = "/errors/workbook/invalid"
	TypeDatasetNotLoaded = "/errors/dataset/not-loaded"
	TypeWebSocketUpgrade = "/errors/websocket/upgrade-failed"
)

// codeTypes maps APIError codes to problem types. Unknown codes fall back to
// the type of their status.
var codeTypes = map[string]string{
	"VALIDATION_FAILED":   TypeValidation,
	"INVALID_REQUEST":     TypeValidation,
	"INVALID_WINDOW":      TypeInvalidWindow,
	"NOT_FOUND":           TypeNotFound,
	"WORKBOOK_INVALID":    TypeWorkbookInvalid,
	"RATE_LIMIT_EXCEEDED": TypeRateLimit,
	"DATASET_NOT_LOADED":  TypeDatasetNotLoaded,
	"SERVICE_UNAVAILABLE": TypeServiceDown,
}

// ErrorHandler writes every handler error as an RFC 7807 problem document
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates the handler. includeStack adds the goroutine stack
// to each problem and is meant for development.
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs err and responds with its problem document. Client
// errors log at warn, server errors at error.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r).WithExtension("trace_id", reqID)
	if h.includeStack {
		problem.WithExtension("stack", string(debug.Stack()))
	}

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.LogAttrs(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	WriteProblem(w, problem)
}

// ErrorToProblem classifies err. Unknown errors become a 500 that does not
// leak the error text.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	instance := r.URL.Path

	var (
		apiErr    *APIError
		windowErr *period.InvalidWindowError
		parseErr  *workbook.ParseError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", instance)

	case errors.As(err, &apiErr):
		return apiErrorToProblem(apiErr, instance)

	case errors.As(err, &windowErr):
		return InvalidWindowProblem(windowErr, instance)

	case errors.As(err, &parseErr):
		return WorkbookProblem(parseErr, instance)

	case strings.Contains(err.Error(), "not found"):
		return NewProblemDetails(http.StatusNotFound, TypeNotFound, "Resource Not Found", err.Error(), instance)
	}

	return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred while processing your request", instance)
}

// InvalidWindowProblem reports a period selection that cannot be resolved
func InvalidWindowProblem(err *period.InvalidWindowError, instance string) *ProblemDetails {
	return NewProblemDetails(http.StatusBadRequest, TypeInvalidWindow, "Invalid Window", err.Error(), instance).
		WithExtension("error_code", ErrInvalidWindow.ErrorCode).
		WithExtension("year", err.Year).
		WithExtension("month", err.Month).
		WithExtension("length", err.Length)
}

// WorkbookProblem reports where the workbook could not be parsed
func WorkbookProblem(err *workbook.ParseError, instance string) *ProblemDetails {
	p := NewProblemDetails(http.StatusUnprocessableEntity, TypeWorkbookInvalid, "Workbook Parse Failed", err.Error(), instance).
		WithExtension("error_code", ErrWorkbookInvalid.ErrorCode).
		WithExtension("sheet", err.Sheet)
	if err.Row > 0 {
		p.WithExtension("row", err.Row)
	}
	if err.Column != "" {
		p.WithExtension("column", err.Column)
	}
	return p
}

func apiErrorToProblem(apiErr *APIError, instance string) *ProblemDetails {
	problemType, ok := codeTypes[apiErr.ErrorCode]
	if !ok {
		problemType = TypeForStatus(apiErr.StatusCode)
	}

	p := NewProblemDetails(apiErr.StatusCode, problemType, http.StatusText(apiErr.StatusCode), apiErr.Message, instance).
		WithExtension("error_code", apiErr.ErrorCode)
	if apiErr.Details != nil {
		p.WithExtension("details", apiErr.Details)
	}
	return p
}

// NotFound is the router's 404 handler
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.routeProblem(w, r, http.StatusNotFound, "The requested resource was not found")
}

// MethodNotAllowed is the router's 405 handler
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.routeProblem(w, r, http.StatusMethodNotAllowed,
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method))
}

func (h *ErrorHandler) routeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	WriteProblem(w, NewProblemDetails(status, TypeForStatus(status), http.StatusText(status), detail, r.URL.Path).
		WithExtension("trace_id", middleware.GetReqID(r.Context())))
}
