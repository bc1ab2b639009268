package dataset

import (
	"context"

	"github.com/paulmach/orb/geojson"
)

// Snapshot is the derived dashboard statistics record. It is recomputed on
// every request and always fully populated: when the underlying datasets are
// unavailable the precomputed constants below fill every field, never just
// some of them, because the dashboard renders all cards unconditionally.
type Snapshot struct {
	TotalLocations  int     `json:"totalLocations" doc:"Scored candidate locations city-wide"`
	TopLocations    int     `json:"topLocations" doc:"Curated top locations"`
	HeatZones       int     `json:"heatZones" doc:"Heat priority zone polygons"`
	ExclusionZones  int     `json:"exclusionZones" doc:"Exclusion zone polygons"`
	ExcludedAreaKM2 float64 `json:"excludedAreaKm2" doc:"Total excluded area in square kilometres"`
	AvgScore        float64 `json:"avgScore" doc:"Mean final score of the top locations"`
	MaxScore        float64 `json:"maxScore" doc:"Highest final score of the top locations"`
}

// Precomputed constants for the heavy datasets, which are never loaded just
// for counting. Produced by the offline scoring pipeline alongside the files
// themselves.
const (
	allLocationsCount  = 114982
	exclusionZoneCount = 38457
	excludedAreaKM2    = 23.7
)

// fallbackSnapshot covers the case where even the small essential datasets
// cannot be loaded. Values match the last published pipeline run.
var fallbackSnapshot = Snapshot{
	TotalLocations:  allLocationsCount,
	TopLocations:    100,
	HeatZones:       412,
	ExclusionZones:  exclusionZoneCount,
	ExcludedAreaKM2: excludedAreaKM2,
	AvgScore:        67.3,
	MaxScore:        94.6,
}

// Statistics derives the dashboard snapshot from the two smallest essential
// datasets and merges in the precomputed constants for the heavy ones. If
// either essential dataset is unavailable the whole fallback snapshot is
// returned instead of a partially live one.
func (c *Cache) Statistics(ctx context.Context) Snapshot {
	top := c.Get(ctx, TopLocations)
	heat := c.Get(ctx, HeatPriorityZones)
	if top.Empty() || heat.Empty() {
		return fallbackSnapshot
	}

	avg, max := scoreAggregates(top.Collection)
	return Snapshot{
		TotalLocations:  allLocationsCount,
		TopLocations:    len(top.Collection.Features),
		HeatZones:       len(heat.Collection.Features),
		ExclusionZones:  exclusionZoneCount,
		ExcludedAreaKM2: excludedAreaKM2,
		AvgScore:        avg,
		MaxScore:        max,
	}
}

// scoreAggregates returns the mean and maximum final_score over features
// that carry one.
func scoreAggregates(fc *geojson.FeatureCollection) (avg, max float64) {
	var sum float64
	var n int
	for _, f := range fc.Features {
		score, ok := Score(f.Properties, "final_score")
		if !ok {
			continue
		}
		sum += score
		if score > max {
			max = score
		}
		n++
	}
	if n > 0 {
		avg = sum / float64(n)
	}
	return avg, max
}

// Score extracts a numeric property value. JSON numbers decode as float64,
// but features assembled in tests or by other packages may carry ints.
func Score(props geojson.Properties, key string) (float64, bool) {
	v, ok := props[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
