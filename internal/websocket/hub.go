package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Pittuba/dash-mercado/internal/infrastructure"
	"github.com/Pittuba/dash-mercado/pkg/contracts/events"
)

// Options tunes the client pumps
type Options struct {
	PingPeriod time.Duration
	PongWait   time.Duration
	// SendBuffer is the number of messages queued per client before the
	// client is dropped
	SendBuffer int
}

// DefaultOptions matches the gorilla chat example timings
func DefaultOptions() Options {
	return Options{
		PingPeriod: 54 * time.Second,
		PongWait:   60 * time.Second,
		SendBuffer: 256,
	}
}

type outbound struct {
	messageType events.MessageType
	payload     []byte
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *OTelMetrics
	opts    Options

	messagesSent atomic.Int64

	quit    chan struct{}
	done    chan struct{}
	running bool
}

// NewHub creates a hub. metrics may be nil.
func NewHub(opts Options, metrics *OTelMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	defaults := DefaultOptions()
	if opts.PongWait <= 0 {
		opts.PongWait = defaults.PongWait
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = (opts.PongWait * 9) / 10
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaults.SendBuffer
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		opts:       opts,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in a goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop closes every client and waits for the loop to exit
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			ctx := client.ctx
			h.metrics.RecordConnection(ctx)
			h.logger.InfoContext(ctx, "client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))

			hello, err := h.encode(ctx, events.MessageTypeConnect, map[string]interface{}{
				"status":    "connected",
				"client_id": client.id,
			})
			if err == nil {
				select {
				case client.send <- hello:
				default:
				}
			}

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				ctx := client.ctx
				h.metrics.RecordDisconnection(ctx, time.Since(client.connectedAt), "closed")
				h.logger.InfoContext(ctx, "client unregistered",
					slog.String("client_id", client.id),
					slog.Int("total_clients", count),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case msg := <-h.broadcast:
			h.mu.Lock()
			dropped := 0
			for client := range h.clients {
				select {
				case client.send <- msg.payload:
				default:
					// slow consumer
					close(client.send)
					delete(h.clients, client)
					dropped++
					h.metrics.RecordDisconnection(client.ctx, time.Since(client.connectedAt), "slow_consumer")
					h.logger.Warn("client send buffer full, disconnecting",
						slog.String("client_id", client.id))
				}
			}
			delivered := len(h.clients)
			h.mu.Unlock()

			h.messagesSent.Add(int64(delivered))
			h.metrics.RecordBroadcast(context.Background(), string(msg.messageType), dropped)
			h.logger.Debug("broadcast",
				slog.String("type", string(msg.messageType)),
				slog.Int("delivered", delivered),
				slog.Int("dropped", dropped),
				slog.Int("payload_size", len(msg.payload)))
		}
	}
}

// Publish broadcasts a typed message to every connected client. It is a
// no-op unless the hub is running.
func (h *Hub) Publish(ctx context.Context, messageType events.MessageType, data interface{}) {
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()
	if !running {
		return
	}

	payload, err := h.encode(ctx, messageType, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal message",
			slog.String("type", string(messageType)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- outbound{messageType: messageType, payload: payload}:
	case <-h.quit:
	case <-ctx.Done():
	}
}

func (h *Hub) encode(ctx context.Context, messageType events.MessageType, data interface{}) ([]byte, error) {
	return json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.New().String(),
			Type:      messageType,
			Timestamp: time.Now().UTC(),
			TraceID:   infrastructure.GetTraceID(ctx),
		},
		Data: data,
	})
}

// Register adds a client. It returns false when the hub is not running.
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()
	if !running {
		return false
	}
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount is read by the health check
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MessagesSent returns the number of messages queued to clients so far
func (h *Hub) MessagesSent() int64 {
	return h.messagesSent.Load()
}
