package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/canopyhq/canopy/internal/metrics"
)

// Config holds the cache configuration.
type Config struct {
	Registry *Registry
	BaseURL  string       // data origin, e.g. "http://localhost:8086/data"
	Client   *http.Client // optional, defaults to http.DefaultClient
	Logger   *slog.Logger // optional, defaults to slog.Default()
	Bus      *EventBus    // optional
}

// Cache is the single point of access for dataset payloads. It fetches each
// dataset from the data origin at most once per process: successful loads are
// kept for the rest of the session, failed loads return an empty payload and
// are retried on the next call. Every method is total; failures surface only
// through the log, the metrics, and the returned data shape.
type Cache struct {
	registry *Registry
	baseURL  string
	client   *http.Client
	log      *slog.Logger
	bus      *EventBus

	mu      sync.RWMutex
	entries map[string]*Payload
}

// NewCache creates a new dataset cache.
func NewCache(cfg Config) *Cache {
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Cache{
		registry: cfg.Registry,
		baseURL:  cfg.BaseURL,
		client:   cfg.Client,
		log:      cfg.Logger,
		bus:      cfg.Bus,
		entries:  make(map[string]*Payload),
	}
}

// Registry returns the registry the cache resolves identifiers against.
func (c *Cache) Registry() *Registry {
	return c.registry
}

// Get resolves a dataset to its parsed payload, fetching it from the data
// origin if it is not cached yet. On any failure it returns an empty payload
// of the right shape without caching it, so a later call retries.
func (c *Cache) Get(ctx context.Context, id string) *Payload {
	d, ok := c.registry.Get(id)
	if !ok {
		c.log.Warn("unknown dataset requested", "dataset", id)
		return &Payload{ID: id, Collection: geojson.NewFeatureCollection()}
	}

	c.mu.RLock()
	cached := c.entries[id]
	c.mu.RUnlock()
	if cached != nil {
		metrics.CacheHitsTotal.Inc()
		return cached
	}
	metrics.CacheMissesTotal.Inc()

	payload, err := c.fetch(ctx, d)
	if err != nil {
		metrics.DatasetFetchFailTotal.WithLabelValues(id).Inc()
		c.log.Error("dataset load failed", "dataset", id, "err", err)
		if c.bus != nil {
			c.bus.Publish(Event{Dataset: id, Action: "failed"})
		}
		return emptyPayload(d)
	}

	c.mu.Lock()
	// A concurrent Get for the same id may have won the race; keep the
	// first stored payload so callers always see one immutable value.
	if existing := c.entries[id]; existing != nil {
		payload = existing
	} else {
		c.entries[id] = payload
	}
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(Event{Dataset: id, Action: "loaded", Count: payload.Len()})
	}
	return payload
}

// EssentialLayers is the named aggregate of the startup datasets. Fields are
// always non-nil; a failed load leaves the matching field empty.
type EssentialLayers struct {
	TopLocations *geojson.FeatureCollection
	HeatZones    *geojson.FeatureCollection
	GreenSpaces  *geojson.FeatureCollection
	WaterBodies  *geojson.FeatureCollection
	TopDetail    *Table
}

// LoadEssential fetches the essential set concurrently and joins on all of
// them. One dataset failing never blocks the others.
func (c *Cache) LoadEssential(ctx context.Context) *EssentialLayers {
	ids := []string{TopLocations, HeatPriorityZones, GreenSpaces, WaterBodies, TopDetail}
	payloads := make([]*Payload, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			payloads[i] = c.Get(ctx, id)
			return nil
		})
	}
	g.Wait() // Get never returns an error

	layers := &EssentialLayers{
		TopLocations: payloads[0].Collection,
		HeatZones:    payloads[1].Collection,
		GreenSpaces:  payloads[2].Collection,
		WaterBodies:  payloads[3].Collection,
		TopDetail:    payloads[4].Table,
	}
	if layers.TopDetail == nil {
		layers.TopDetail = &Table{}
	}
	return layers
}

// LoadHeavy loads a heavy dataset on explicit request. Unknown or
// non-heavy identifiers return nil without any network call; this is a
// caller contract violation, not an environment failure, so it is not
// logged.
func (c *Cache) LoadHeavy(ctx context.Context, id string) *Payload {
	if !c.registry.IsHeavy(id) {
		return nil
	}
	return c.Get(ctx, id)
}

func (c *Cache) fetch(ctx context.Context, d Descriptor) (*Payload, error) {
	url := c.baseURL + "/" + d.Filename
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	metrics.DatasetFetchTotal.WithLabelValues(d.ID).Inc()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", d.Filename, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	payload := &Payload{ID: d.ID}
	switch d.Format {
	case FormatTable:
		table, err := ParseTable(body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.Filename, err)
		}
		payload.Table = table
	default:
		fc, err := geojson.UnmarshalFeatureCollection(body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.Filename, err)
		}
		payload.Collection = fc
	}
	return payload, nil
}
