package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Pittuba/dash-mercado/internal/config"
)

var (
	globalMu     sync.Mutex
	globalLogger *slog.Logger
	globalFile   *os.File
)

// InitializeLogger builds the server logger from cfg and installs it as the
// slog default. Later calls return the logger built by the first one.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalLogger != nil {
		return globalLogger, nil
	}

	var out io.Writer = os.Stdout
	switch strings.ToLower(cfg.Output) {
	case "file", "both":
		file, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		globalFile = file
		out = file
		if strings.EqualFold(cfg.Output, "both") {
			out = io.MultiWriter(os.Stdout, file)
		}
	}

	globalLogger = slog.New(&traceHandler{Handler: newHandler(out, cfg, true)})
	slog.SetDefault(globalLogger)
	return globalLogger, nil
}

// GetLogger returns the server logger, or the slog default before
// InitializeLogger ran.
func GetLogger() *slog.Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// NewLogger builds a standalone logger on w. One-shot commands use it to keep
// stdout for their output; text is the default format there.
func NewLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	if !strings.EqualFold(cfg.Format, "json") {
		cfg.Format = "text"
	}
	return slog.New(&traceHandler{Handler: newHandler(w, cfg, false)})
}

func newHandler(w io.Writer, cfg config.LoggingConfig, addSource bool) slog.Handler {
	opts := &slog.HandlerOptions{AddSource: addSource, Level: parseLogLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// CloseLogFile closes the log file opened by InitializeLogger, if any
func CloseLogFile() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalFile == nil {
		return nil
	}
	err := globalFile.Close()
	globalFile = nil
	return err
}

// ResetLoggerForTesting forgets the server logger. Tests only.
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	globalMu.Lock()
	globalLogger = nil
	globalMu.Unlock()
}

// traceHandler stamps every record with the trace id found in its context
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}
