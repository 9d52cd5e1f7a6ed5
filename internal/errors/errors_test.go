package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_PARAMETER", "length must be positive")

	assert.Equal(t, "length must be positive", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Nil(t, err.Details)

	withDetails := NewWithDetails(http.StatusNotFound, "NOT_FOUND", "sheet not found", "Retorno")
	assert.Equal(t, "Retorno", withDetails.Details)
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{ErrInvalidWindow, http.StatusBadRequest, "INVALID_WINDOW"},
		{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{ErrWorkbookInvalid, http.StatusUnprocessableEntity, "WORKBOOK_INVALID"},
		{ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{ErrDatasetNotLoaded, http.StatusServiceUnavailable, "DATASET_NOT_LOADED"},
		{ErrServiceUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestHelpers(t *testing.T) {
	invalid := InvalidRequestWithError(errors.New("unexpected EOF"))
	assert.Equal(t, "unexpected EOF", invalid.Details)

	validation := ErrValidation("month", "must be between 1 and 12")
	require.IsType(t, ValidationError{}, validation.Details)
	assert.Equal(t, "month", validation.Details.(ValidationError).Field)

	notFound := NotFoundError("instrument")
	assert.Equal(t, "instrument not found", notFound.Message)

	multi := NewValidationErrors([]ValidationError{{Field: "year"}, {Field: "length"}})
	assert.Len(t, multi.Details.(ValidationErrors).Errors, 2)
}

func TestAPIError_JSON(t *testing.T) {
	data, err := json.Marshal(ErrValidation("window", "must be one of 3 6 12 24 36"))
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	assert.Equal(t, float64(400), body["status_code"])
	assert.Equal(t, "window", body["details"].(map[string]interface{})["field"])
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeInvalidWindow, "Invalid Window", "", "/api/inflation").
		WithExtension("year", 2024)

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, TypeInvalidWindow, body["type"])
	assert.Equal(t, float64(400), body["status"])
	assert.Equal(t, float64(2024), body["year"])
	assert.NotContains(t, body, "detail", "empty detail is omitted")

	var zero ProblemDetails
	assert.NotPanics(t, func() { zero.WithExtension("k", "v") })
}
