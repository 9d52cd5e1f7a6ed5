package dataset

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Pittuba/dash-mercado/internal/category"
	"github.com/Pittuba/dash-mercado/internal/workbook"
)

// ErrNotLoaded is returned before the first successful load.
var ErrNotLoaded = errors.New("dataset not loaded")

// WorkbookLoader reads a workbook from disk.
type WorkbookLoader interface {
	Load(ctx context.Context, path string) (*workbook.Workbook, error)
}

// ReloadEvent is delivered to listeners after every load attempt.
type ReloadEvent struct {
	Trigger  string
	Context  *Context
	Err      error
	Duration time.Duration
}

// Listener observes load attempts.
type Listener func(ReloadEvent)

// Store serves the current snapshot and replaces it on reload. Concurrent
// reloads share a single workbook read.
type Store struct {
	loader  WorkbookLoader
	path    string
	catalog *category.Catalog
	logger  *slog.Logger

	current atomic.Pointer[Context]
	version atomic.Int64
	group   singleflight.Group

	mu        sync.RWMutex
	listeners []Listener
}

// NewStore creates an empty store. Call Reload to load the workbook.
func NewStore(loader WorkbookLoader, path string, catalog *category.Catalog, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		loader:  loader,
		path:    path,
		catalog: catalog,
		logger:  logger.With(slog.String("component", "dataset_store")),
	}
}

// Path returns the workbook location.
func (s *Store) Path() string {
	return s.path
}

// Catalog returns the category tables and glossary every snapshot shares.
func (s *Store) Catalog() *category.Catalog {
	return s.catalog
}

// Current returns the snapshot being served, or nil before the first load.
func (s *Store) Current() *Context {
	return s.current.Load()
}

// Snapshot is Current with an error when nothing is loaded.
func (s *Store) Snapshot() (*Context, error) {
	c := s.current.Load()
	if c == nil {
		return nil, ErrNotLoaded
	}
	return c, nil
}

// OnReload registers a listener.
func (s *Store) OnReload(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Reload reads the workbook and swaps in a new snapshot. On failure the
// previous snapshot stays in place. The load is shared by every concurrent
// caller, so cancelling one caller's ctx does not stop it; a deadline on ctx
// still bounds it.
func (s *Store) Reload(ctx context.Context, trigger string) (*Context, error) {
	v, err, shared := s.group.Do("reload", func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithDeadline(loadCtx, deadline)
			defer cancel()
		}
		return s.load(loadCtx, trigger)
	})
	if shared {
		s.logger.Debug("reload shared with concurrent caller", slog.String("trigger", trigger))
	}
	if err != nil {
		return nil, err
	}
	return v.(*Context), nil
}

func (s *Store) load(ctx context.Context, trigger string) (*Context, error) {
	start := time.Now()
	wb, err := s.loader.Load(ctx, s.path)
	if err != nil {
		s.logger.Error("dataset reload failed",
			slog.String("path", s.path),
			slog.String("trigger", trigger),
			slog.String("error", err.Error()))
		s.notify(ReloadEvent{Trigger: trigger, Err: err, Duration: time.Since(start)})
		return nil, err
	}

	next := NewContext(wb, s.catalog, s.version.Add(1))
	s.current.Store(next)

	s.logger.Info("dataset loaded",
		slog.String("path", s.path),
		slog.String("trigger", trigger),
		slog.Int64("version", next.Version),
		slog.Int("observations", next.Observations()),
		slog.Duration("duration", time.Since(start)))
	s.notify(ReloadEvent{Trigger: trigger, Context: next, Duration: time.Since(start)})
	return next, nil
}

func (s *Store) notify(e ReloadEvent) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(e)
	}
}
