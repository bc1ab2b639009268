package locator

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Points around the Heilbronn city center (49.1427N 9.2109E).
func testIndex() *Index {
	fc := geojson.NewFeatureCollection()

	add := func(lat, lon float64, props map[string]any) {
		f := geojson.NewFeature(orb.Point{lon, lat})
		for k, v := range props {
			f.Properties[k] = v
		}
		fc.Append(f)
	}

	add(49.1427, 9.2109, map[string]any{
		"rank": 1.0, "final_score": 94.6, "heat_score": 55.0,
		"postal_code": "74072", "area_name": "Innenstadt",
		"internal_pipeline_column": "dropme",
	})
	add(49.1450, 9.2150, map[string]any{
		"rank": 2.0, "final_score": 70.0, "heat_score": 90.0,
		"postal_code": "74072",
	})
	add(49.1500, 9.2300, map[string]any{
		"rank": 3.0, "final_score": 85.0, "heat_score": 20.0,
		"postal_code": 74076,
	})
	// Far away (Stuttgart), outside any reasonable radius.
	add(48.7758, 9.1829, map[string]any{
		"rank": 4.0, "final_score": 99.0,
	})
	// Polygon feature, must be skipped at index build time.
	poly := geojson.NewFeature(orb.Polygon{{{9.2, 49.1}, {9.3, 49.1}, {9.3, 49.2}, {9.2, 49.1}}})
	fc.Append(poly)

	return NewIndex(fc)
}

func TestNewIndexSkipsPolygons(t *testing.T) {
	ix := testIndex()
	if ix.Len() != 4 {
		t.Fatalf("indexed points=%d, want 4", ix.Len())
	}
	if NewIndex(nil).Len() != 0 {
		t.Fatal("nil collection must yield an empty index")
	}
}

func TestSearchByDistance(t *testing.T) {
	ix := testIndex()
	got := ix.Search(49.1427, 9.2109, 3, SortDistance, 10)
	if len(got) != 3 {
		t.Fatalf("hits=%d, want 3 (Stuttgart point must be outside the radius)", len(got))
	}
	if got[0].DistanceKM > got[1].DistanceKM || got[1].DistanceKM > got[2].DistanceKM {
		t.Fatalf("results not ordered by distance: %v %v %v",
			got[0].DistanceKM, got[1].DistanceKM, got[2].DistanceKM)
	}
	if got[0].Properties["rank"] != 1.0 {
		t.Fatalf("nearest rank=%v, want 1", got[0].Properties["rank"])
	}
}

func TestSearchByScore(t *testing.T) {
	ix := testIndex()

	got := ix.Search(49.1427, 9.2109, 3, SortFinalScore, 10)
	if got[0].Properties["final_score"] != 94.6 || got[1].Properties["final_score"] != 85.0 {
		t.Fatalf("final_score order wrong: %v then %v",
			got[0].Properties["final_score"], got[1].Properties["final_score"])
	}

	got = ix.Search(49.1427, 9.2109, 3, SortHeatScore, 10)
	if got[0].Properties["heat_score"] != 90.0 {
		t.Fatalf("heat_score order wrong, first=%v", got[0].Properties["heat_score"])
	}
}

func TestSearchLimit(t *testing.T) {
	ix := testIndex()
	got := ix.Search(49.1427, 9.2109, 3, SortDistance, 1)
	if len(got) != 1 {
		t.Fatalf("hits=%d, want 1", len(got))
	}
}

func TestSearchDropsPipelineColumns(t *testing.T) {
	ix := testIndex()
	got := ix.Search(49.1427, 9.2109, 1, SortDistance, 1)
	if _, ok := got[0].Properties["internal_pipeline_column"]; ok {
		t.Fatal("non-useful properties must be dropped from results")
	}
	if got[0].Properties["area_name"] != "Innenstadt" {
		t.Fatalf("useful properties must be kept: %+v", got[0].Properties)
	}
}

func TestFilterByPostalCode(t *testing.T) {
	ix := testIndex()
	if got := ix.Filter("postal_code", "74072"); len(got) != 2 {
		t.Fatalf("postal 74072 hits=%d, want 2", len(got))
	}
	// Numeric property values match their string rendering.
	if got := ix.Filter("postal_code", "74076"); len(got) != 1 {
		t.Fatalf("postal 74076 hits=%d, want 1", len(got))
	}
	if got := ix.Filter("postal_code", "99999"); len(got) != 0 {
		t.Fatalf("postal 99999 hits=%d, want 0", len(got))
	}
}

func TestByRank(t *testing.T) {
	ix := testIndex()
	got, ok := ix.ByRank(3)
	if !ok {
		t.Fatal("rank 3 must exist")
	}
	if got.Properties["final_score"] != 85.0 {
		t.Fatalf("rank 3 score=%v, want 85", got.Properties["final_score"])
	}
	if _, ok := ix.ByRank(42); ok {
		t.Fatal("rank 42 must not exist")
	}
}

func TestFindClosest(t *testing.T) {
	ix := testIndex()
	f, ok := ix.FindClosest(49.1501, 9.2301)
	if !ok {
		t.Fatal("expected a closest feature")
	}
	if f.Properties["rank"] != 3.0 {
		t.Fatalf("closest rank=%v, want 3", f.Properties["rank"])
	}
	if _, ok := NewIndex(nil).FindClosest(0, 0); ok {
		t.Fatal("empty index must report no closest feature")
	}
}

func TestSortByValid(t *testing.T) {
	for _, s := range []SortBy{SortDistance, SortFinalScore, SortHeatScore} {
		if !s.Valid() {
			t.Fatalf("%q must be valid", s)
		}
	}
	if SortBy("alphabetical").Valid() {
		t.Fatal("unknown sort must be invalid")
	}
}
