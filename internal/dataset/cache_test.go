package dataset

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const twoPointFC = `{"type":"FeatureCollection","features":[
	{"type":"Feature","geometry":{"type":"Point","coordinates":[9.2109,49.1427]},"properties":{"final_score":90}},
	{"type":"Feature","geometry":{"type":"Point","coordinates":[9.2200,49.1500]},"properties":{"final_score":70}}
]}`

const onePolygonFC = `{"type":"FeatureCollection","features":[
	{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[9.2,49.1],[9.3,49.1],[9.3,49.2],[9.2,49.1]]]},"properties":{"priority":"high"}}
]}`

// requestCounter wraps a handler and counts requests per path.
type requestCounter struct {
	mu     sync.Mutex
	counts map[string]int
	next   http.Handler
}

func newRequestCounter(next http.Handler) *requestCounter {
	return &requestCounter{counts: make(map[string]int), next: next}
}

func (rc *requestCounter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc.mu.Lock()
	rc.counts[r.URL.Path]++
	rc.mu.Unlock()
	rc.next.ServeHTTP(w, r)
}

func (rc *requestCounter) count(path string) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.counts[path]
}

func (rc *requestCounter) total() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	var n int
	for _, c := range rc.counts {
		n += c
	}
	return n
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(t *testing.T, next http.Handler) (*Cache, *requestCounter) {
	t.Helper()
	rc := newRequestCounter(next)
	srv := httptest.NewServer(rc)
	t.Cleanup(srv.Close)
	return NewCache(Config{
		BaseURL: srv.URL,
		Logger:  quietLogger(),
	}), rc
}

// serveDataFiles serves the default registry's files with small fixtures.
func serveDataFiles() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".csv") {
			io.WriteString(w, "rank,species\n1,Tilia cordata\n2,Acer campestre\n")
			return
		}
		if strings.Contains(r.URL.Path, "heat_priority_zones") {
			io.WriteString(w, onePolygonFC)
			return
		}
		io.WriteString(w, twoPointFC)
	})
}

func TestGetFetchesOnce(t *testing.T) {
	c, rc := newTestCache(t, serveDataFiles())
	ctx := context.Background()

	first := c.Get(ctx, TopLocations)
	second := c.Get(ctx, TopLocations)

	if got := rc.count("/top_100_with_coordinates.geojson"); got != 1 {
		t.Fatalf("fetch count=%d, want 1", got)
	}
	if first != second {
		t.Fatal("second Get returned a different payload than the cached one")
	}
	if first.Len() != 2 {
		t.Fatalf("payload len=%d, want 2", first.Len())
	}
}

func TestGetFailureNotCached(t *testing.T) {
	c, rc := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	ctx := context.Background()

	first := c.Get(ctx, TopLocations)
	second := c.Get(ctx, TopLocations)

	if got := rc.count("/top_100_with_coordinates.geojson"); got != 2 {
		t.Fatalf("fetch count=%d, want 2 (failed loads must be retried)", got)
	}
	if !first.Empty() || !second.Empty() {
		t.Fatal("failed loads must produce empty payloads")
	}
	if first.Collection == nil {
		t.Fatal("geojson dataset failure must still carry an empty collection")
	}
}

func TestGetFailureThenSuccess(t *testing.T) {
	var fail = true
	var mu sync.Mutex
	c, _ := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		failing := fail
		mu.Unlock()
		if failing {
			http.Error(w, "boom", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, twoPointFC)
	}))
	ctx := context.Background()

	if got := c.Get(ctx, TopLocations); !got.Empty() {
		t.Fatal("expected empty payload while the origin is down")
	}

	mu.Lock()
	fail = false
	mu.Unlock()

	if got := c.Get(ctx, TopLocations); got.Len() != 2 {
		t.Fatalf("len=%d after recovery, want 2", got.Len())
	}
}

func TestGetUnknownDataset(t *testing.T) {
	c, rc := newTestCache(t, serveDataFiles())

	got := c.Get(context.Background(), "not_a_real_dataset")
	if got == nil || got.Collection == nil || !got.Empty() {
		t.Fatalf("unknown dataset must yield an empty collection payload, got %+v", got)
	}
	if rc.total() != 0 {
		t.Fatalf("unknown dataset must not hit the network, saw %d requests", rc.total())
	}
}

func TestGetTableParseFailure(t *testing.T) {
	c, _ := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Empty body: no header row, so the table parse fails.
	}))

	got := c.Get(context.Background(), TopDetail)
	if got.Table == nil {
		t.Fatal("table dataset failure must still carry an empty table")
	}
	if !got.Empty() {
		t.Fatal("expected empty payload")
	}
}

func TestLoadEssential(t *testing.T) {
	c, rc := newTestCache(t, serveDataFiles())

	layers := c.LoadEssential(context.Background())
	if layers.TopLocations == nil || layers.HeatZones == nil ||
		layers.GreenSpaces == nil || layers.WaterBodies == nil || layers.TopDetail == nil {
		t.Fatalf("essential layer fields must be non-nil: %+v", layers)
	}
	if got := len(layers.TopLocations.Features); got != 2 {
		t.Fatalf("top locations=%d, want 2", got)
	}
	if got := len(layers.HeatZones.Features); got != 1 {
		t.Fatalf("heat zones=%d, want 1", got)
	}
	if got := len(layers.TopDetail.Records); got != 2 {
		t.Fatalf("detail records=%d, want 2", got)
	}
	if rc.total() != 5 {
		t.Fatalf("requests=%d, want one per essential dataset", rc.total())
	}
}

func TestLoadEssentialTotalOnFailure(t *testing.T) {
	c, _ := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))

	layers := c.LoadEssential(context.Background())
	if layers.TopLocations == nil || layers.HeatZones == nil ||
		layers.GreenSpaces == nil || layers.WaterBodies == nil || layers.TopDetail == nil {
		t.Fatalf("all fields must still be non-nil when every load fails: %+v", layers)
	}
	if len(layers.TopLocations.Features) != 0 || len(layers.TopDetail.Records) != 0 {
		t.Fatal("failed loads must come back empty")
	}
}

func TestLoadHeavy(t *testing.T) {
	c, rc := newTestCache(t, serveDataFiles())
	ctx := context.Background()

	if got := c.LoadHeavy(ctx, "not_a_real_dataset"); got != nil {
		t.Fatalf("unknown id must return nil, got %+v", got)
	}
	if got := c.LoadHeavy(ctx, TopLocations); got != nil {
		t.Fatalf("essential id must return nil from LoadHeavy, got %+v", got)
	}
	if rc.total() != 0 {
		t.Fatalf("rejected LoadHeavy calls must not hit the network, saw %d requests", rc.total())
	}

	got := c.LoadHeavy(ctx, AllLocations)
	if got == nil || got.Len() != 2 {
		t.Fatalf("heavy dataset payload=%+v, want 2 features", got)
	}
	if rc.count("/scored_locations_all_enhanced.geojson") != 1 {
		t.Fatal("heavy dataset must be fetched exactly once")
	}
}

func TestStatistics(t *testing.T) {
	c, _ := newTestCache(t, serveDataFiles())

	snap := c.Statistics(context.Background())
	if snap.TotalLocations != 114982 {
		t.Fatalf("totalLocations=%d, want the pipeline constant 114982", snap.TotalLocations)
	}
	if snap.TopLocations != 2 || snap.HeatZones != 1 {
		t.Fatalf("live counts=%d/%d, want 2/1", snap.TopLocations, snap.HeatZones)
	}
	if snap.AvgScore != 80 || snap.MaxScore != 90 {
		t.Fatalf("scores avg=%v max=%v, want 80/90", snap.AvgScore, snap.MaxScore)
	}
	if snap.ExclusionZones != 38457 || snap.ExcludedAreaKM2 != 23.7 {
		t.Fatalf("exclusion constants=%d/%v", snap.ExclusionZones, snap.ExcludedAreaKM2)
	}
}

func TestStatisticsFallback(t *testing.T) {
	c, _ := newTestCache(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))

	snap := c.Statistics(context.Background())
	if snap != fallbackSnapshot {
		t.Fatalf("snapshot=%+v, want the full fallback %+v", snap, fallbackSnapshot)
	}
	if snap.TotalLocations != 114982 || snap.HeatZones != 412 {
		t.Fatalf("fallback values=%+v", snap)
	}
}

func TestEventBusPublishesLoads(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	rc := newRequestCounter(serveDataFiles())
	srv := httptest.NewServer(rc)
	defer srv.Close()

	c := NewCache(Config{BaseURL: srv.URL, Logger: quietLogger(), Bus: bus})
	c.Get(context.Background(), TopLocations)

	ev := <-ch
	if ev.Dataset != TopLocations || ev.Action != "loaded" || ev.Count != 2 {
		t.Fatalf("event=%+v", ev)
	}
}
