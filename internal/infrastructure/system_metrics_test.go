package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRuntimeCollector(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	_, err := NewRuntimeCollector(mp.Meter(MeterName), 0)
	require.Error(t, err)

	rc, err := NewRuntimeCollector(mp.Meter(MeterName), 10*time.Millisecond)
	require.NoError(t, err)

	stats := rc.Snapshot(context.Background())
	assert.Positive(t, stats.Goroutines)
	assert.Positive(t, stats.HeapSys)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["runtime_goroutines"])
	assert.True(t, names["runtime_heap_alloc_bytes"])
	assert.True(t, names["process_uptime_seconds"])

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rc.Start(ctx)
		close(done)
	}()

	rc.Stop()
	rc.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
	cancel()
}
