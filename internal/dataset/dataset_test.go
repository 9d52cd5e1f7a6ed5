package dataset_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pittuba/dash-mercado/internal/category"
	"github.com/Pittuba/dash-mercado/internal/dataset"
	dt "github.com/Pittuba/dash-mercado/internal/dataset/datasettest"
	"github.com/Pittuba/dash-mercado/internal/workbook"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func returnsTable() *workbook.Table {
	return dt.Table(domain.SheetReturn, []string{"CDI", "Bitcoin"},
		dt.Row(dt.Date(2024, 1, 30), 0.0005, dt.Missing),
		dt.Row(dt.Date(2024, 1, 31), 0.0004, 0.02),
		dt.Row(dt.Date(2024, 2, 1), 0.0004, -0.01),
	)
}

func TestMelt(t *testing.T) {
	lookup := category.NewTable("returns", [][2]string{{"CDI", "Selic"}})
	obs := dataset.Melt(returnsTable(), lookup)

	require.Len(t, obs, 5, "missing cells produce no observation")
	assert.Equal(t, "CDI", obs[0].Instrument)
	assert.Equal(t, "Selic", obs[0].Category)
	assert.Equal(t, dt.Date(2024, 1, 30), obs[0].Date)

	assert.Equal(t, "Bitcoin", obs[3].Instrument)
	assert.Equal(t, category.Uncategorized, obs[3].Category)
	assert.Equal(t, dt.Date(2024, 1, 31), obs[3].Date)

	assert.Nil(t, dataset.Melt(nil, lookup))
}

func TestMelt_Deterministic(t *testing.T) {
	lookup := category.NewTable("returns", nil)
	first := dataset.Melt(returnsTable(), lookup)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, dataset.Melt(returnsTable(), lookup))
	}
}

func TestGroupByInstrument(t *testing.T) {
	series := dataset.GroupByInstrument(dataset.Melt(returnsTable(), nil))
	require.Len(t, series, 2)
	assert.Equal(t, "CDI", series[0].Instrument)
	assert.Len(t, series[0].Observations, 3)
	assert.Len(t, series[1].Observations, 2)
}

func TestContext_PeriodsAndInfo(t *testing.T) {
	cat := dt.Catalog(map[string]string{"CDI": "Selic"}, map[string]string{"CDI": "Renda Fixa"})
	risk := dt.Table(domain.SheetRisk, []string{"CDI"}, dt.Row(dt.Date(2023, 12, 29), 0.001))
	ctx := dt.Context(cat, returnsTable(), risk)

	p := ctx.Periods(domain.SheetReturn)
	assert.Equal(t, []int{2024}, p.Years)
	assert.Equal(t, []int{1, 2}, p.Months[2024])

	assert.Equal(t, "Selic", ctx.Long(domain.SheetReturn)[0].Category)
	assert.Equal(t, "Renda Fixa", ctx.Long(domain.SheetRisk)[0].Category)
	assert.Equal(t, 6, ctx.Observations())
	assert.Equal(t, dt.Date(2024, 2, 1), ctx.LastDate(domain.SheetReturn))

	info := ctx.Info()
	assert.Equal(t, int64(1), info.Version)
	assert.Len(t, info.Sheets, len(domain.Sheets))

	_, err := ctx.Resolver(domain.SheetReturn).Resolve(2024, 3, 3)
	assert.Error(t, err)
	_, err = ctx.Resolver(domain.SheetDuration).Resolve(2024, 1, 3)
	assert.Error(t, err, "empty sheets accept no window")
}

func TestStore_Reload(t *testing.T) {
	cat := dt.Catalog(nil, nil)
	loader := &dt.StaticLoader{Workbook: dt.Workbook(returnsTable())}
	store := dataset.NewStore(loader, "memory.xlsx", cat, quietLogger())

	_, err := store.Snapshot()
	assert.ErrorIs(t, err, dataset.ErrNotLoaded)

	var events []dataset.ReloadEvent
	store.OnReload(func(e dataset.ReloadEvent) { events = append(events, e) })

	first, err := store.Reload(context.Background(), "startup")
	require.NoError(t, err)
	assert.Same(t, first, store.Current())
	assert.Equal(t, int64(1), first.Version)

	loader.Err = errors.New("disk on fire")
	_, err = store.Reload(context.Background(), "api")
	require.Error(t, err)
	assert.Same(t, first, store.Current(), "failed reload keeps previous snapshot")

	require.Len(t, events, 2)
	assert.NoError(t, events[0].Err)
	assert.Equal(t, "startup", events[0].Trigger)
	assert.Error(t, events[1].Err)
}

type blockingLoader struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	wb      *workbook.Workbook
}

func (l *blockingLoader) Load(ctx context.Context, _ string) (*workbook.Workbook, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	<-l.release
	return l.wb, nil
}

// ctxLoader waits for release and fails when the context it loads with ends
// first
type ctxLoader struct {
	started chan struct{}
	release chan struct{}
	wb      *workbook.Workbook
}

func (l *ctxLoader) Load(ctx context.Context, _ string) (*workbook.Workbook, error) {
	close(l.started)
	select {
	case <-l.release:
	case <-ctx.Done():
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.wb, nil
}

func TestStore_ReloadSurvivesCallerCancel(t *testing.T) {
	loader := &ctxLoader{started: make(chan struct{}), release: make(chan struct{}), wb: dt.Workbook(returnsTable())}
	store := dataset.NewStore(loader, "memory.xlsx", dt.Catalog(nil, nil), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := store.Reload(ctx, "api")
		done <- err
	}()

	<-loader.started
	cancel()
	// the caller is gone but the load is still running
	time.Sleep(10 * time.Millisecond)
	close(loader.release)

	require.NoError(t, <-done)
	require.NotNil(t, store.Current())
}

func TestStore_ReloadKeepsDeadline(t *testing.T) {
	loader := &ctxLoader{started: make(chan struct{}), release: make(chan struct{}), wb: dt.Workbook(returnsTable())}
	store := dataset.NewStore(loader, "memory.xlsx", dt.Catalog(nil, nil), quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := store.Reload(ctx, "watcher")
		done <- err
	}()

	<-loader.started

	assert.ErrorIs(t, <-done, context.DeadlineExceeded)
	assert.Nil(t, store.Current())
}

func TestStore_ConcurrentReloadsCollapse(t *testing.T) {
	loader := &blockingLoader{release: make(chan struct{}), wb: dt.Workbook(returnsTable())}
	store := dataset.NewStore(loader, "memory.xlsx", dt.Catalog(nil, nil), quietLogger())

	var wg sync.WaitGroup
	results := make([]*dataset.Context, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := store.Reload(context.Background(), "api")
			assert.NoError(t, err)
			results[i] = c
		}(i)
	}

	// give every goroutine time to join the in-flight load
	time.Sleep(50 * time.Millisecond)
	close(loader.release)
	wg.Wait()

	loader.mu.Lock()
	defer loader.mu.Unlock()
	assert.Equal(t, 1, loader.calls)
	for _, c := range results {
		assert.Same(t, results[0], c)
	}
}
