package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics records Go runtime gauges next to the business metrics
type RuntimeMetrics struct {
	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	heapSys    metric.Int64Gauge
	gcPause    metric.Float64Histogram
	uptime     metric.Float64Gauge

	lastGC uint32
}

// RuntimeStats is one snapshot of the runtime
type RuntimeStats struct {
	Goroutines  int64         `json:"goroutines"`
	HeapAlloc   int64         `json:"heap_alloc_bytes"`
	HeapSys     int64         `json:"heap_sys_bytes"`
	GCCount     uint32        `json:"gc_count"`
	LastGCPause time.Duration `json:"last_gc_pause"`
	Uptime      time.Duration `json:"uptime"`
	Timestamp   time.Time     `json:"timestamp"`
}

// NewRuntimeMetrics creates the runtime instruments on meter
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	var rm RuntimeMetrics
	var err error

	if rm.goroutines, err = meter.Int64Gauge("runtime_goroutines",
		metric.WithDescription("Number of active goroutines")); err != nil {
		return nil, fmt.Errorf("failed to create goroutines gauge: %w", err)
	}
	if rm.heapAlloc, err = meter.Int64Gauge("runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("failed to create heap alloc gauge: %w", err)
	}
	if rm.heapSys, err = meter.Int64Gauge("runtime_heap_sys_bytes",
		metric.WithDescription("Bytes of heap memory obtained from the OS"),
		metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("failed to create heap sys gauge: %w", err)
	}
	if rm.gcPause, err = meter.Float64Histogram("runtime_gc_pause_seconds",
		metric.WithDescription("Garbage collection pause durations"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create gc pause histogram: %w", err)
	}
	if rm.uptime, err = meter.Float64Gauge("process_uptime_seconds",
		metric.WithDescription("Seconds since the process started"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create uptime gauge: %w", err)
	}

	return &rm, nil
}

// Collect reads the runtime and records every gauge
func (rm *RuntimeMetrics) Collect(ctx context.Context, startTime time.Time) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := RuntimeStats{
		Goroutines:  int64(runtime.NumGoroutine()),
		HeapAlloc:   int64(mem.HeapAlloc),
		HeapSys:     int64(mem.HeapSys),
		GCCount:     mem.NumGC,
		LastGCPause: time.Duration(mem.PauseNs[(mem.NumGC+255)%256]),
		Uptime:      time.Since(startTime),
		Timestamp:   time.Now(),
	}

	rm.goroutines.Record(ctx, stats.Goroutines)
	rm.heapAlloc.Record(ctx, stats.HeapAlloc)
	rm.heapSys.Record(ctx, stats.HeapSys)
	rm.uptime.Record(ctx, stats.Uptime.Seconds())

	// only pauses of collections that ran since the previous tick
	if stats.GCCount != rm.lastGC && stats.LastGCPause > 0 {
		rm.gcPause.Record(ctx, stats.LastGCPause.Seconds())
	}
	rm.lastGC = stats.GCCount

	return stats
}

// RuntimeCollector records runtime metrics on a fixed interval
type RuntimeCollector struct {
	metrics   *RuntimeMetrics
	startTime time.Time
	interval  time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRuntimeCollector creates a collector. interval must be positive.
func NewRuntimeCollector(meter metric.Meter, interval time.Duration) (*RuntimeCollector, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("collection interval must be positive, got %s", interval)
	}

	metrics, err := NewRuntimeMetrics(meter)
	if err != nil {
		return nil, err
	}

	return &RuntimeCollector{
		metrics:   metrics,
		startTime: time.Now(),
		interval:  interval,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start blocks, collecting until ctx is done or Stop is called
func (rc *RuntimeCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	rc.metrics.Collect(ctx, rc.startTime)

	for {
		select {
		case <-ticker.C:
			rc.metrics.Collect(ctx, rc.startTime)
		case <-rc.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends collection. Safe to call more than once.
func (rc *RuntimeCollector) Stop() {
	rc.stopOnce.Do(func() { close(rc.stopCh) })
}

// Snapshot collects immediately and returns the stats
func (rc *RuntimeCollector) Snapshot(ctx context.Context) RuntimeStats {
	return rc.metrics.Collect(ctx, rc.startTime)
}
