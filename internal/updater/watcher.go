// Package updater keeps the served dataset in step with the workbook on
// disk by polling its modification time.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Pittuba/dash-mercado/internal/dataset"
	"github.com/Pittuba/dash-mercado/internal/infrastructure"
)

// ErrNotStarted is returned by Check before Start recorded a baseline
var ErrNotStarted = errors.New("watcher not started")

// Reloader replaces the served snapshot
type Reloader interface {
	Reload(ctx context.Context, trigger string) (*dataset.Context, error)
}

// ModTimeFunc reports when the workbook was last written
type ModTimeFunc func() (time.Time, error)

// Trigger is the reload trigger reported by the watcher
const Trigger = "watcher"

// Watcher reloads the dataset whenever the workbook's modification time
// changes
type Watcher struct {
	reloader    Reloader
	modTime     ModTimeFunc
	interval    time.Duration
	loadTimeout time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	last    time.Time
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcher creates a watcher polling every interval. A zero interval
// disables polling; Check still works.
func NewWatcher(reloader Reloader, modTime ModTimeFunc, interval, loadTimeout time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		reloader:    reloader,
		modTime:     modTime,
		interval:    interval,
		loadTimeout: loadTimeout,
		logger:      logger.With(slog.String("component", "workbook_watcher")),
	}
}

// Start records the current modification time and begins polling. Calling
// it twice is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}

	mt, err := w.modTime()
	if err != nil {
		return fmt.Errorf("failed to stat workbook: %w", err)
	}
	w.last = mt
	w.started = true

	if w.interval <= 0 {
		w.logger.Info("workbook polling disabled")
		return nil
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx, w.done)

	w.logger.Info("watching workbook",
		slog.Duration("interval", w.interval),
		slog.Time("mod_time", mt))
	return nil
}

// Stop ends polling and waits for an in-flight reload to finish
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Check(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Warn("workbook check failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Check reloads once when the workbook changed since the last check. It
// reports whether a reload was attempted. A failed reload is not retried
// until the file changes again; the previous snapshot keeps being served.
func (w *Watcher) Check(ctx context.Context) (bool, error) {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return false, ErrNotStarted
	}
	last := w.last
	w.mu.Unlock()

	mt, err := w.modTime()
	if err != nil {
		return false, fmt.Errorf("failed to stat workbook: %w", err)
	}
	if mt.Equal(last) {
		return false, nil
	}

	w.mu.Lock()
	w.last = mt
	w.mu.Unlock()

	ctx = infrastructure.EnsureTraceID(ctx)
	w.logger.InfoContext(ctx, "workbook changed, reloading",
		slog.Time("previous", last),
		slog.Time("current", mt))

	if w.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.loadTimeout)
		defer cancel()
	}
	if _, err := w.reloader.Reload(ctx, Trigger); err != nil {
		return true, fmt.Errorf("reload after change: %w", err)
	}
	return true, nil
}
