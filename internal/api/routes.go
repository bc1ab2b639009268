// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"log/slog"
	"sync"

	"github.com/danielgtaylor/huma/v2"

	"github.com/canopyhq/canopy/internal/assistant"
	"github.com/canopyhq/canopy/internal/dataset"
	"github.com/canopyhq/canopy/internal/locator"
	"github.com/canopyhq/canopy/internal/metrics"
	"github.com/canopyhq/canopy/internal/style"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Cache     *dataset.Cache
	Assistant *assistant.Client
}

// Types

type LayerInfo struct {
	ID        string           `json:"id" doc:"Dataset identifier" example:"top_locations"`
	Name      string           `json:"name" doc:"Display name"`
	Essential bool             `json:"essential" doc:"Loaded unconditionally at startup"`
	Style     style.Descriptor `json:"style" doc:"Default rendering style"`
}

type LayersBody struct {
	Layers map[string]LayerInfo `json:"layers" doc:"Style info per dataset"`
	Legend []style.LegendItem   `json:"legend" doc:"Score color legend, highest bucket first"`
}

type LayerIDInput struct {
	ID string `path:"id" doc:"Dataset identifier" example:"top_locations"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type SearchInput struct {
	Lat      float64 `query:"lat" required:"true" doc:"Search point latitude" example:"49.1427"`
	Lon      float64 `query:"lon" required:"true" doc:"Search point longitude" example:"9.2109"`
	RadiusKM float64 `query:"radius_km" default:"2" minimum:"0" maximum:"50" doc:"Search radius in kilometres"`
	Sort     string  `query:"sort" enum:"distance,final_score,heat_score" default:"final_score" doc:"Result ordering"`
	Limit    int     `query:"limit" default:"10" minimum:"1" maximum:"25" doc:"Maximum results"`
}

type SearchBody struct {
	Count     int              `json:"count" doc:"Number of results"`
	Locations []locator.Result `json:"locations" doc:"Matching locations"`
}

type PostalInput struct {
	Code string `path:"code" doc:"Postal code" example:"74072"`
}

type RankInput struct {
	Rank int `path:"rank" minimum:"1" doc:"Location rank, 1 is best"`
}

type RecommendInput struct {
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"Natural-language planting question"`
	}
}

// APIHandler holds all REST API handlers.
type APIHandler struct {
	svc *Services

	mu    sync.Mutex
	index *locator.Index
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every REST route with Huma.
func (h *APIHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/stats", h.GetStats, huma.OperationTags("stats"))
	huma.Get(api, "/api/v1/locations/search", h.SearchLocations, huma.OperationTags("locations"))
	huma.Get(api, "/api/v1/locations/postal/{code}", h.LocationsByPostal, huma.OperationTags("locations"))
	huma.Get(api, "/api/v1/locations/rank/{rank}", h.LocationByRank, huma.OperationTags("locations"))
	huma.Post(api, "/api/v1/recommend", h.Recommend, huma.OperationTags("assistant"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*struct{ Body LayersBody }, error) {
	body := LayersBody{Layers: map[string]LayerInfo{}, Legend: style.Legend()}
	for _, d := range h.svc.Cache.Registry().All() {
		body.Layers[d.ID] = LayerInfo{
			ID:        d.ID,
			Name:      d.Name,
			Essential: d.Essential,
			Style:     style.ForLayer(d.ID),
		}
	}
	return &struct{ Body LayersBody }{Body: body}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *LayerIDInput) (*struct{ Body LayerInfo }, error) {
	d, ok := h.svc.Cache.Registry().Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("unknown dataset: " + input.ID)
	}
	return &struct{ Body LayerInfo }{Body: LayerInfo{
		ID:        d.ID,
		Name:      d.Name,
		Essential: d.Essential,
		Style:     style.ForLayer(d.ID),
	}}, nil
}

func (h *APIHandler) GetStats(ctx context.Context, input *struct{}) (*struct{ Body dataset.Snapshot }, error) {
	return &struct{ Body dataset.Snapshot }{Body: h.svc.Cache.Statistics(ctx)}, nil
}

func (h *APIHandler) SearchLocations(ctx context.Context, input *SearchInput) (*struct{ Body SearchBody }, error) {
	metrics.SearchRequestsTotal.Inc()

	ix := h.searchIndex(ctx)
	if ix.Len() == 0 {
		return nil, huma.Error503ServiceUnavailable("location data not available")
	}

	results := ix.Search(input.Lat, input.Lon, input.RadiusKM, locator.SortBy(input.Sort), input.Limit)
	if results == nil {
		results = []locator.Result{}
	}
	return &struct{ Body SearchBody }{Body: SearchBody{Count: len(results), Locations: results}}, nil
}

func (h *APIHandler) LocationsByPostal(ctx context.Context, input *PostalInput) (*struct{ Body SearchBody }, error) {
	top := h.svc.Cache.Get(ctx, dataset.TopLocations)
	if top.Empty() {
		return nil, huma.Error503ServiceUnavailable("location data not available")
	}

	results := locator.NewIndex(top.Collection).Filter("postal_code", input.Code)
	if results == nil {
		results = []locator.Result{}
	}
	return &struct{ Body SearchBody }{Body: SearchBody{Count: len(results), Locations: results}}, nil
}

func (h *APIHandler) LocationByRank(ctx context.Context, input *RankInput) (*struct{ Body locator.Result }, error) {
	top := h.svc.Cache.Get(ctx, dataset.TopLocations)
	if top.Empty() {
		return nil, huma.Error503ServiceUnavailable("location data not available")
	}

	result, ok := locator.NewIndex(top.Collection).ByRank(input.Rank)
	if !ok {
		return nil, huma.Error404NotFound("no location with that rank")
	}
	return &struct{ Body locator.Result }{Body: result}, nil
}

func (h *APIHandler) Recommend(ctx context.Context, input *RecommendInput) (*struct{ Body assistant.Recommendation }, error) {
	rec, err := h.svc.Assistant.Recommend(ctx, input.Body.Query)
	if err != nil {
		// The dashboard renders the fixed failure state instead of an
		// error object; see the assistant package contract.
		slog.Warn("assistant unavailable", "err", err)
		rec = assistant.Fallback()
	}
	return &struct{ Body assistant.Recommendation }{Body: *rec}, nil
}

// searchIndex returns the memoized all-locations index, falling back to the
// top locations when the heavy dataset cannot be loaded. The fallback index
// is not memoized, so a later request retries the heavy fetch.
func (h *APIHandler) searchIndex(ctx context.Context) *locator.Index {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index != nil {
		return h.index
	}

	payload := h.svc.Cache.LoadHeavy(ctx, dataset.AllLocations)
	if payload != nil && !payload.Empty() {
		h.index = locator.NewIndex(payload.Collection)
		return h.index
	}

	top := h.svc.Cache.Get(ctx, dataset.TopLocations)
	return locator.NewIndex(top.Collection)
}
