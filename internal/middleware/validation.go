package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/Pittuba/dash-mercado/internal/errors"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

// ValidationMiddleware provides request validation using struct tags
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxBodySize  int64
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	v := validator.New()

	// Register custom validators
	v.RegisterValidation("sheet", isKnownSheet)
	v.RegisterValidation("label", isValidLabel)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &ValidationMiddleware{
		validator:    v,
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
		maxBodySize:  64 << 10,
	}
}

// ValidateRequest rejects bodies larger than the limit or not well-formed
// JSON. The body is buffered and handed on unchanged.
func (m *ValidationMiddleware) ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, m.maxBodySize))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				m.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
					http.StatusRequestEntityTooLarge,
					"PAYLOAD_TOO_LARGE",
					"Request body exceeds maximum allowed size",
					map[string]interface{}{"max_size": m.maxBodySize},
				))
				return
			}
			m.logger.ErrorContext(r.Context(), "failed to read request body",
				slog.String("error", err.Error()),
				slog.String("request_id", GetRequestID(r.Context())))
			m.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}

		if len(body) > 0 && !json.Valid(body) {
			m.errorHandler.HandleError(w, r, apierrors.New(http.StatusBadRequest, "INVALID_JSON", "Request body contains invalid JSON"))
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// ValidateStruct validates a struct and returns validation errors
func (m *ValidationMiddleware) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: m.formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// ContentTypeValidator rejects request bodies whose Content-Type is not one
// of contentTypes
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				writeProblem(w, r, http.StatusBadRequest, "Content-Type header is required")
				return
			}
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeProblem(w, r, http.StatusUnsupportedMediaType,
				fmt.Sprintf("Unsupported content type %q, expected %s", contentType, strings.Join(contentTypes, " or ")))
		})
	}
}

// formatValidationError turns a failed tag into the message returned to the
// client
func (m *ValidationMiddleware) formatValidationError(err validator.FieldError) string {
	field, param := err.Field(), err.Param()

	unit := ""
	if err.Kind() == reflect.String {
		unit = " characters"
	} else if err.Kind() == reflect.Slice {
		unit = " items"
	}

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s%s", field, param, unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s%s", field, param, unit)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "sheet":
		return fmt.Sprintf("%s must be one of: %s", field, sheetNames())
	case "label":
		return fmt.Sprintf("%s must be printable text without path separators", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// Custom validators

// isKnownSheet accepts the workbook sheet names, case-insensitively
func isKnownSheet(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	for _, sheet := range domain.Sheets {
		if strings.EqualFold(name, string(sheet)) {
			return true
		}
	}
	return false
}

func sheetNames() string {
	names := make([]string, len(domain.Sheets))
	for i, sheet := range domain.Sheets {
		names[i] = string(sheet)
	}
	return strings.Join(names, ", ")
}

// isValidLabel validates category and instrument labels
func isValidLabel(fl validator.FieldLevel) bool {
	label := fl.Field().String()
	if strings.ContainsAny(label, "/\\") || strings.Contains(label, "..") {
		return false
	}
	for _, ch := range label {
		if !unicode.IsPrint(ch) {
			return false
		}
	}
	return len(label) <= 128
}
