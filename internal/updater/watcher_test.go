package updater

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pittuba/dash-mercado/internal/dataset"
	"github.com/Pittuba/dash-mercado/internal/dataset/datasettest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// clock is a settable modification time
type clock struct {
	mu  sync.Mutex
	t   time.Time
	err error
}

func (c *clock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *clock) modTime() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t, c.err
}

func newStore(loader *datasettest.StaticLoader) *dataset.Store {
	return dataset.NewStore(loader, "workbook.xlsx", datasettest.Catalog(nil, nil), quietLogger())
}

func TestWatcher_CheckReloadsOnChange(t *testing.T) {
	loader := &datasettest.StaticLoader{Workbook: datasettest.Workbook()}
	store := newStore(loader)
	mt := &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

	w := NewWatcher(store, mt.modTime, 0, time.Second, quietLogger())
	require.NoError(t, w.Start(context.Background()))

	reloaded, err := w.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, reloaded, "unchanged workbook is not reloaded")
	assert.Equal(t, 0, loader.Calls)

	mt.set(mt.t.Add(time.Minute))
	reloaded, err = w.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.Equal(t, 1, loader.Calls)
	require.NotNil(t, store.Current())

	reloaded, err = w.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, reloaded)
	assert.Equal(t, 1, loader.Calls)
}

func TestWatcher_FailedReloadKeepsSnapshot(t *testing.T) {
	loader := &datasettest.StaticLoader{Workbook: datasettest.Workbook()}
	store := newStore(loader)
	_, err := store.Reload(context.Background(), "startup")
	require.NoError(t, err)
	before := store.Current()

	mt := &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	w := NewWatcher(store, mt.modTime, 0, 0, quietLogger())
	require.NoError(t, w.Start(context.Background()))

	loader.Err = errors.New("zip: not a valid zip file")
	mt.set(mt.t.Add(time.Second))

	reloaded, err := w.Check(context.Background())
	assert.True(t, reloaded)
	require.Error(t, err)
	assert.Same(t, before, store.Current())

	// Not retried until the file changes again
	reloaded, err = w.Check(context.Background())
	assert.False(t, reloaded)
	assert.NoError(t, err)
	assert.Equal(t, 2, loader.Calls)
}

func TestWatcher_CheckBeforeStart(t *testing.T) {
	w := NewWatcher(newStore(&datasettest.StaticLoader{}), (&clock{}).modTime, 0, 0, nil)

	_, err := w.Check(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestWatcher_StartFailsWithoutWorkbook(t *testing.T) {
	missing := &clock{err: os.ErrNotExist}
	w := NewWatcher(newStore(&datasettest.StaticLoader{}), missing.modTime, time.Millisecond, 0, quietLogger())

	err := w.Start(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
	w.Stop()
}

func TestWatcher_PollsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Base - Indicadores.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))
	modTime := func() (time.Time, error) {
		info, err := os.Stat(path)
		if err != nil {
			return time.Time{}, err
		}
		return info.ModTime(), nil
	}

	loader := &datasettest.StaticLoader{Workbook: datasettest.Workbook()}
	store := newStore(loader)

	var mu sync.Mutex
	var triggers []string
	store.OnReload(func(e dataset.ReloadEvent) {
		mu.Lock()
		triggers = append(triggers, e.Trigger)
		mu.Unlock()
	})

	w := NewWatcher(store, modTime, 10*time.Millisecond, time.Second, quietLogger())
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(triggers) == 1 && triggers[0] == Trigger
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	mt := &clock{t: time.Now()}
	w := NewWatcher(newStore(&datasettest.StaticLoader{}), mt.modTime, time.Millisecond, 0, quietLogger())
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
}
