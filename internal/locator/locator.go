// Package locator answers "where near here" queries over a point dataset.
package locator

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/canopyhq/canopy/internal/dataset"
)

// SortBy selects the ordering of search results.
type SortBy string

const (
	SortDistance   SortBy = "distance"
	SortFinalScore SortBy = "final_score"
	SortHeatScore  SortBy = "heat_score"
)

// Valid reports whether s names a known sort order.
func (s SortBy) Valid() bool {
	switch s {
	case SortDistance, SortFinalScore, SortHeatScore:
		return true
	}
	return false
}

// Result is one search hit with the properties the dashboard and the
// assistant care about, flattened out of the feature property bag.
type Result struct {
	Latitude   float64        `json:"latitude" doc:"Location latitude"`
	Longitude  float64        `json:"longitude" doc:"Location longitude"`
	DistanceKM float64        `json:"distanceKm" doc:"Distance from the search point in kilometres"`
	Properties map[string]any `json:"properties" doc:"Location detail properties"`
}

// usefulProps are the property keys carried into results; everything else in
// the feature bag (internal pipeline columns) is dropped.
var usefulProps = []string{
	"rank",
	"final_score",
	"heat_score",
	"spatial_score",
	"social_score",
	"maintenance_score",
	"location_type",
	"recommended_species",
	"cooling_estimate",
	"schools_nearby",
	"residents_nearby",
	"postal_code",
	"area_name",
}

// Index is an immutable search index over the point features of one dataset
// payload. Polygon features are skipped at build time.
type Index struct {
	features []*geojson.Feature
	points   []orb.Point
}

// NewIndex builds an index from a feature collection. Nil collections yield
// an empty, searchable index.
func NewIndex(fc *geojson.FeatureCollection) *Index {
	ix := &Index{}
	if fc == nil {
		return ix
	}
	for _, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		ix.features = append(ix.features, f)
		ix.points = append(ix.points, p)
	}
	return ix
}

// Len returns the number of indexed points.
func (ix *Index) Len() int { return len(ix.points) }

// Search returns up to n locations within radiusKM of the given point,
// ordered by the requested sort. An invalid sort falls back to distance.
func (ix *Index) Search(lat, lon, radiusKM float64, by SortBy, n int) []Result {
	target := orb.Point{lon, lat}

	type hit struct {
		idx  int
		dist float64 // km
	}
	var hits []hit
	for i, p := range ix.points {
		d := geo.DistanceHaversine(p, target) / 1000
		if d <= radiusKM {
			hits = append(hits, hit{idx: i, dist: d})
		}
	}

	switch by {
	case SortFinalScore, SortHeatScore:
		key := string(by)
		sort.Slice(hits, func(a, b int) bool {
			// missing scores sort as 0, i.e. last
			sa, _ := dataset.Score(ix.features[hits[a].idx].Properties, key)
			sb, _ := dataset.Score(ix.features[hits[b].idx].Properties, key)
			if sa != sb {
				return sa > sb
			}
			return hits[a].dist < hits[b].dist
		})
	default:
		sort.Slice(hits, func(a, b int) bool {
			return hits[a].dist < hits[b].dist
		})
	}

	if n > 0 && len(hits) > n {
		hits = hits[:n]
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, ix.result(h.idx, h.dist))
	}
	return results
}

// Filter returns every location whose named property prints as value.
// Property bags are untyped, so postal codes may arrive as strings or
// numbers; both match.
func (ix *Index) Filter(key, value string) []Result {
	var out []Result
	for i, f := range ix.features {
		v, ok := f.Properties[key]
		if !ok {
			continue
		}
		if fmt.Sprint(v) == value {
			out = append(out, ix.result(i, 0))
		}
	}
	return out
}

// ByRank returns the location with the given rank.
func (ix *Index) ByRank(rank int) (Result, bool) {
	for i, f := range ix.features {
		r, ok := dataset.Score(f.Properties, "rank")
		if ok && int(r) == rank {
			return ix.result(i, 0), true
		}
	}
	return Result{}, false
}

func (ix *Index) result(i int, distKM float64) Result {
	f := ix.features[i]
	p := ix.points[i]
	props := make(map[string]any)
	for _, key := range usefulProps {
		if v, ok := f.Properties[key]; ok {
			props[key] = v
		}
	}
	return Result{
		Latitude:   p.Lat(),
		Longitude:  p.Lon(),
		DistanceKM: distKM,
		Properties: props,
	}
}

// FindClosest returns the single nearest feature to the given point, or
// false when the index is empty.
func (ix *Index) FindClosest(lat, lon float64) (*geojson.Feature, bool) {
	if len(ix.points) == 0 {
		return nil, false
	}
	target := orb.Point{lon, lat}
	best := 0
	bestDist := geo.DistanceHaversine(ix.points[0], target)
	for i := 1; i < len(ix.points); i++ {
		if d := geo.DistanceHaversine(ix.points[i], target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return ix.features[best], true
}
