package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Pittuba/dash-mercado/internal/dataset"
	"github.com/Pittuba/dash-mercado/internal/dataset/datasettest"
	"github.com/Pittuba/dash-mercado/pkg/contracts/domain"
	"github.com/Pittuba/dash-mercado/pkg/contracts/events"
)

type published struct {
	messageType events.MessageType
	data        interface{}
}

type recordingPublisher struct {
	messages []published
}

func (p *recordingPublisher) Publish(_ context.Context, messageType events.MessageType, data interface{}) {
	p.messages = append(p.messages, published{messageType: messageType, data: data})
}

func TestReloadNotifier(t *testing.T) {
	returns := datasettest.Table(domain.SheetReturn, []string{"CDI", "Ibovespa"},
		datasettest.Row(datasettest.Date(2024, 1, 31), 0.0097, 0.0310),
		datasettest.Row(datasettest.Date(2024, 2, 29), 0.0080, datasettest.Missing),
	)
	loader := &datasettest.StaticLoader{Workbook: datasettest.Workbook(returns)}
	store := dataset.NewStore(loader, "Data/Base.xlsx", datasettest.Catalog(map[string]string{"CDI": "Renda Fixa"}, nil), testLogger())

	pub := &recordingPublisher{}
	store.OnReload(ReloadNotifier(pub, store.Path()))

	_, err := store.Reload(context.Background(), "startup")
	require.NoError(t, err)

	loader.Err = errors.New("sheet Return: row 4: invalid date")
	_, err = store.Reload(context.Background(), "watcher")
	require.Error(t, err)

	require.Len(t, pub.messages, 2)

	assert.Equal(t, events.MessageTypeDatasetReloaded, pub.messages[0].messageType)
	reloaded := pub.messages[0].data.(events.DatasetReloaded)
	assert.Equal(t, int64(1), reloaded.Version)
	assert.Equal(t, "startup", reloaded.Trigger)
	assert.Equal(t, "memory", reloaded.Source)
	assert.Equal(t, 3, reloaded.Observations, "missing cells are not observations")

	assert.Equal(t, events.MessageTypeDatasetReloadFailed, pub.messages[1].messageType)
	failed := pub.messages[1].data.(events.DatasetReloadFailed)
	assert.Equal(t, "Data/Base.xlsx", failed.Source)
	assert.Equal(t, "watcher", failed.Trigger)
	assert.Contains(t, failed.Error, "invalid date")
}

func TestOTelMetrics_Recorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	metrics, err := NewOTelMetrics(provider.Meter("test"))
	require.NoError(t, err)

	hub := NewHub(DefaultOptions(), metrics, testLogger())
	hub.Start()
	defer hub.Stop()

	client := NewClient(hub, newMockConnection(), "", testLogger())
	require.True(t, hub.Register(client))
	hub.Publish(context.Background(), events.MessageTypeDatasetReloaded, nil)
	<-client.send
	<-client.send

	collected := func() map[string]bool {
		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))
		names := map[string]bool{}
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				names[m.Name] = true
			}
		}
		return names
	}

	assert.Eventually(t, func() bool {
		names := collected()
		return names["websocket_connections_total"] && names["websocket_broadcast_operations_total"]
	}, time.Second, 10*time.Millisecond)
}

func TestOTelMetrics_NilIsNoop(t *testing.T) {
	var m *OTelMetrics
	assert.NotPanics(t, func() {
		m.RecordConnection(context.Background())
		m.RecordMessage(context.Background(), "outbound", 10)
		m.RecordBroadcast(context.Background(), "x", 1)
	})
}
