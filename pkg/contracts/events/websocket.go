// Package events contains event contract definitions for WebSocket communication
// of the indicators service.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Dataset lifecycle
	MessageTypeDatasetReloaded     MessageType = "dataset:reloaded"
	MessageTypeDatasetReloadFailed MessageType = "dataset:reload_failed"

	// System messages
	MessageTypeSystemStatus MessageType = "system:status"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// DatasetReloaded is pushed after a new workbook snapshot has been swapped in.
type DatasetReloaded struct {
	Source       string    `json:"source"`
	Version      int64     `json:"version"`
	LoadedAt     time.Time `json:"loaded_at"`
	Observations int       `json:"observations"`
	Trigger      string    `json:"trigger"` // api|watcher|startup
}

// DatasetReloadFailed is pushed when a reload could not parse the workbook.
// The previous snapshot keeps being served.
type DatasetReloadFailed struct {
	Source  string `json:"source"`
	Error   string `json:"error"`
	Trigger string `json:"trigger"`
}
