package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pittuba/dash-mercado/internal/period"
	"github.com/Pittuba/dash-mercado/internal/shared/testutil"
	"github.com/Pittuba/dash-mercado/internal/workbook"
)

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
	}{
		{
			name:       "deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "api error",
			err:        ErrInvalidRequest,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "dataset not loaded",
			err:        fmt.Errorf("returns table: %w", ErrDatasetNotLoaded),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeDatasetNotLoaded,
			wantCode:   "DATASET_NOT_LOADED",
		},
		{
			name: "invalid window",
			err: fmt.Errorf("risk table: %w", &period.InvalidWindowError{
				Year: 2031, Month: 1, Length: 3, Err: period.ErrOutOfRange,
			}),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeInvalidWindow,
			wantCode:   "INVALID_WINDOW",
		},
		{
			name:       "workbook parse error",
			err:        &workbook.ParseError{Sheet: "Retorno", Row: 7, Column: "B", Value: "abc", Err: workbook.ErrInvalidValue},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeWorkbookInvalid,
			wantCode:   "WORKBOOK_INVALID",
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("ranking: %w", NotFoundError("instrument")),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "plain not found",
			err:        fmt.Errorf("sheet not found"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "generic",
			err:        fmt.Errorf("something went wrong"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/test", nil)

			handler.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/test", body["instance"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			}
			assert.NotContains(t, body, "stack")

			level := slog.LevelWarn
			if tt.wantStatus >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			testutil.AssertLogContains(t, logs, level, "request failed")
			assert.True(t, logs.ContainsAttr("component", "error_handler"))
		})
	}
}

func TestErrorHandler_HandleErrorNil(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Zero(t, w.Body.Len())
	assert.Zero(t, logs.Count())
}

func TestErrorHandler_WindowExtensions(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/inflation", nil)
	handler.HandleError(w, r, &period.InvalidWindowError{Year: 2024, Month: 13, Length: 3, Err: period.ErrInvalidMonth})

	body := decodeProblem(t, w)
	assert.Equal(t, float64(2024), body["year"])
	assert.Equal(t, float64(13), body["month"])
	assert.Equal(t, float64(3), body["length"])
	assert.Contains(t, body["detail"], "month must be between 1 and 12")
	assert.Contains(t, body, "stack")
}

func TestWorkbookProblem(t *testing.T) {
	p := WorkbookProblem(&workbook.ParseError{Sheet: "Inflação", Err: workbook.ErrInvalidValue}, "/api/admin/reload")

	assert.Equal(t, http.StatusUnprocessableEntity, p.Status)
	assert.Equal(t, "Inflação", p.Extensions["sheet"])
	assert.NotContains(t, p.Extensions, "row")
	assert.NotContains(t, p.Extensions, "column")
}

func TestErrorHandler_RequestID(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Get("/fail", func(w http.ResponseWriter, r *http.Request) {
		handler.HandleError(w, r, ErrNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	body := decodeProblem(t, w)
	assert.NotEmpty(t, body["trace_id"])
	assert.True(t, logs.ContainsAttr("request_id", body["trace_id"]))
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)
	r.Get("/api/overview", func(w http.ResponseWriter, r *http.Request) {})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, w)["type"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/overview", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, decodeProblem(t, w)["detail"], "DELETE")
}

func TestTypeForStatus(t *testing.T) {
	assert.Equal(t, TypeUnauthorized, TypeForStatus(http.StatusUnauthorized))
	assert.Equal(t, TypeRateLimit, TypeForStatus(http.StatusTooManyRequests))
	assert.Equal(t, TypeTimeout, TypeForStatus(http.StatusGatewayTimeout))
	assert.Equal(t, TypeInternal, TypeForStatus(http.StatusBadGateway))
	assert.Equal(t, "about:blank", TypeForStatus(http.StatusTeapot))
}

func TestWriteProblem(t *testing.T) {
	w := httptest.NewRecorder()
	WriteProblem(w, NewProblemDetails(http.StatusConflict, TypeConflict, "Conflict", "busy", "/api/dataset/reload").
		WithExtension("trace_id", "t-1"))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	body := decodeProblem(t, w)
	assert.Equal(t, "busy", body["detail"])
	assert.Equal(t, "t-1", body["trace_id"])
	assert.Equal(t, "/api/dataset/reload", body["instance"])
}
