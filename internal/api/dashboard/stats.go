package dashboard

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/canopyhq/canopy/internal/dataset"
	"github.com/canopyhq/canopy/internal/templates"
)

// StatsHandler pushes the statistics cards to the dashboard.
type StatsHandler struct {
	cache    *dataset.Cache
	renderer *templates.Renderer
}

// NewStatsHandler creates a new stats handler. The renderer may be nil when
// the web directory is not configured; signal patches still go out.
func NewStatsHandler(cache *dataset.Cache, renderer *templates.Renderer) *StatsHandler {
	return &StatsHandler{cache: cache, renderer: renderer}
}

func (h *StatsHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/dashboard/stats", h.Stats, huma.OperationTags("dashboard"))
}

func (h *StatsHandler) Stats(ctx context.Context, input *EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSE(humaCtx)
			h.push(ctx, sse)
		},
	}, nil
}

// push sends the current snapshot as signals, plus rendered cards when the
// fragment templates are available.
func (h *StatsHandler) push(ctx context.Context, sse SSE) {
	snap := h.cache.Statistics(ctx)

	sse.Signals(map[string]any{
		"statstotal":     snap.TotalLocations,
		"statstop":       snap.TopLocations,
		"statsheatzones": snap.HeatZones,
		"statsexcluded":  snap.ExclusionZones,
		"statsavgscore":  fmt.Sprintf("%.1f", snap.AvgScore),
		"statsmaxscore":  fmt.Sprintf("%.1f", snap.MaxScore),
	})

	if h.renderer != nil {
		if html, err := h.renderer.Render("stat-cards", snap); err == nil {
			sse.Patch(html, "#stat-cards")
		}
	}
}
