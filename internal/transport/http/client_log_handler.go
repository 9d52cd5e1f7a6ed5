package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "github.com/Pittuba/dash-mercado/internal/errors"
	api "github.com/Pittuba/dash-mercado/pkg/contracts/api/v1"
)

// MaxClientEvents bounds a batch
const MaxClientEvents = 50

// ClientLogHandler relays dashboard client events into the server log
type ClientLogHandler struct {
	validator    StructValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewClientLogHandler creates a new client log handler
func NewClientLogHandler(validator StructValidator, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ClientLogHandler {
	return &ClientLogHandler{
		validator:    validator,
		logger:       logger.With(slog.String("component", "client_log")),
		errorHandler: errorHandler,
	}
}

// Handle accepts one event or a batch and answers 202 with the number logged
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req api.ClientLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	events := req.Events
	if len(events) == 0 {
		events = []api.ClientEvent{req.ClientEvent}
	}
	if len(events) > MaxClientEvents {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("events", "at most 50 events per request"))
		return
	}
	for _, ev := range events {
		if err := h.validator.ValidateStruct(ev); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	for _, ev := range events {
		h.logEvent(r, ev)
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"status": StatusSuccess,
		"count":  len(events),
	})
}

func (h *ClientLogHandler) logEvent(r *http.Request, ev api.ClientEvent) {
	// Unknown or empty levels log at info
	level := slog.LevelInfo
	if ev.Level != "" {
		_ = level.UnmarshalText([]byte(ev.Level))
	}

	attrs := []slog.Attr{slog.String("remote_addr", r.RemoteAddr)}
	if ev.View != "" {
		attrs = append(attrs, slog.String("view", ev.View))
	}
	if ev.Period != "" {
		attrs = append(attrs, slog.String("period", ev.Period))
	}
	if len(ev.Data) > 0 {
		attrs = append(attrs, slog.Any("data", ev.Data))
	}

	h.logger.LogAttrs(r.Context(), level, ev.Message, attrs...)
}
