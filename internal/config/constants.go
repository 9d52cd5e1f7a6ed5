package config

import "time"

// Application constants
const (
	// Application Info
	AppName = "Dash Mercado"

	// Server
	DefaultPort           = 10000
	DefaultRateLimit      = 100 // requests per second
	DefaultBurstSize      = 50
	DefaultRequestTimeout = 60 * time.Second

	// Data
	DefaultWorkbookPath   = "Data/Base - Indicadores.xlsx"
	DefaultReportsDir     = "reports"
	DefaultReloadInterval = time.Minute

	// WebSocket
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
