package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	apierrors "github.com/Pittuba/dash-mercado/internal/errors"
	"github.com/Pittuba/dash-mercado/internal/infrastructure"
)

// HandlerConfig controls the upgrade
type HandlerConfig struct {
	AllowedOrigins []string
	// AllowAnyOrigin skips the origin check, for development
	AllowAnyOrigin  bool
	ReadBufferSize  int
	WriteBufferSize int
}

// Handler upgrades GET /ws requests and attaches the connection to the hub
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates the upgrade handler
func NewHandler(hub *Hub, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	h := &Handler{
		hub:    hub,
		logger: logger.With(slog.String("component", "websocket.handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin(cfg),
		Error:           h.upgradeError,
	}
	return h
}

func (h *Handler) checkOrigin(cfg HandlerConfig) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Same-origin and non-browser clients
		if origin == "" || cfg.AllowAnyOrigin {
			return true
		}
		for _, allowed := range cfg.AllowedOrigins {
			if allowed == "*" || strings.EqualFold(origin, allowed) {
				return true
			}
		}
		h.logger.WarnContext(r.Context(), "origin not allowed",
			slog.String("origin", origin),
			slog.Any("allowed_origins", cfg.AllowedOrigins))
		return false
	}
}

func (h *Handler) upgradeError(w http.ResponseWriter, r *http.Request, status int, reason error) {
	h.logger.WarnContext(r.Context(), "upgrade failed",
		slog.Int("status", status),
		slog.String("reason", reason.Error()),
		slog.String("origin", r.Header.Get("Origin")))

	problem := apierrors.NewProblemDetails(status, apierrors.TypeWebSocketUpgrade,
		"WebSocket Upgrade Failed", reason.Error(), r.URL.Path)
	apierrors.WriteProblem(w, problem)
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}
	ctx := infrastructure.WithTraceID(r.Context(), reqID)

	conn, err := h.upgrader.Upgrade(w, r.WithContext(ctx), nil)
	if err != nil {
		// the upgrader already answered
		return
	}

	client := NewClient(h.hub, WrapConn(conn), reqID, h.logger)
	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	h.logger.InfoContext(ctx, "client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))

	go h.pump(ctx, "write", client.WritePump)
	go h.pump(ctx, "read", client.ReadPump)
}

func (h *Handler) pump(ctx context.Context, name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.ErrorContext(ctx, "websocket pump panic",
				slog.String("pump", name),
				slog.Any("panic", rec))
		}
	}()
	fn()
}
