package websocket

import (
	"context"

	"github.com/Pittuba/dash-mercado/internal/dataset"
	"github.com/Pittuba/dash-mercado/pkg/contracts/events"
)

// Publisher broadcasts typed messages
type Publisher interface {
	Publish(ctx context.Context, messageType events.MessageType, data interface{})
}

// ReloadNotifier returns a dataset listener that tells clients about every
// load attempt, so dashboards can refetch after a new snapshot is served.
func ReloadNotifier(p Publisher, source string) dataset.Listener {
	return func(e dataset.ReloadEvent) {
		ctx := context.Background()
		if e.Err != nil {
			p.Publish(ctx, events.MessageTypeDatasetReloadFailed, events.DatasetReloadFailed{
				Source:  source,
				Error:   e.Err.Error(),
				Trigger: e.Trigger,
			})
			return
		}
		if e.Context == nil {
			return
		}
		p.Publish(ctx, events.MessageTypeDatasetReloaded, events.DatasetReloaded{
			Source:       e.Context.Workbook.Source,
			Version:      e.Context.Version,
			LoadedAt:     e.Context.Workbook.LoadedAt,
			Observations: e.Context.Observations(),
			Trigger:      e.Trigger,
		})
	}
}
