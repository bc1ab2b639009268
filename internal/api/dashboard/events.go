package dashboard

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/canopyhq/canopy/internal/dataset"
	"github.com/canopyhq/canopy/internal/templates"
)

// EventHandler streams dataset load events to the dashboard via SSE, so the
// stats cards refresh as layers arrive.
type EventHandler struct {
	cache    *dataset.Cache
	bus      *dataset.EventBus
	renderer *templates.Renderer
}

// NewEventHandler creates a new event handler.
func NewEventHandler(cache *dataset.Cache, bus *dataset.EventBus, renderer *templates.Renderer) *EventHandler {
	return &EventHandler{cache: cache, bus: bus, renderer: renderer}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/dashboard/events", h.Events, huma.OperationTags("dashboard"))
}

func (h *EventHandler) Events(ctx context.Context, input *EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSE(humaCtx)
			stats := NewStatsHandler(h.cache, h.renderer)

			ch := h.bus.Subscribe()
			defer h.bus.Unsubscribe(ch)

			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-ch:
					if ev.Action == "loaded" {
						stats.push(ctx, sse)
					}
					sse.DispatchCustomEvent("dataset-changed", map[string]any{
						"dataset": ev.Dataset,
						"action":  ev.Action,
						"count":   ev.Count,
					})
				}
			}
		},
	}, nil
}
