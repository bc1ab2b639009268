// Package style maps dataset identity to rendering styles for the map
// client. Resolution is pure: a static per-layer table plus a score
// threshold ladder for per-feature coloring. No I/O, no state, no failures.
package style

import (
	"github.com/paulmach/orb/geojson"

	"github.com/canopyhq/canopy/internal/dataset"
)

// Descriptor holds the visual attributes for a layer or a single feature.
type Descriptor struct {
	Stroke      string  `json:"stroke" doc:"Stroke color (CSS)" example:"#2266cc"`
	Fill        string  `json:"fill" doc:"Fill color (CSS)" example:"#3388ff"`
	FillOpacity float64 `json:"fillOpacity" doc:"Fill opacity (0-1)"`
	Weight      float64 `json:"weight" doc:"Stroke weight in pixels"`
	Radius      float64 `json:"radius" doc:"Point radius in pixels"`
}

// LegendItem is one entry of the score legend.
type LegendItem struct {
	Label string `json:"label" doc:"Legend label"`
	Color string `json:"color" doc:"Legend color (CSS)"`
}

var layerStyles = map[string]Descriptor{
	dataset.TopLocations:      {Stroke: "#1a9641", Fill: "#1a9641", FillOpacity: 0.85, Weight: 1, Radius: 7},
	dataset.AllLocations:      {Stroke: "#31a354", Fill: "#74c476", FillOpacity: 0.5, Weight: 0.5, Radius: 3},
	dataset.HeatPriorityZones: {Stroke: "#b30000", Fill: "#e34a33", FillOpacity: 0.35, Weight: 1},
	dataset.GreenSpaces:       {Stroke: "#2ca25f", Fill: "#99d8c9", FillOpacity: 0.4, Weight: 1},
	dataset.WaterBodies:       {Stroke: "#2b8cbe", Fill: "#a6bddb", FillOpacity: 0.5, Weight: 1},
	dataset.ExclusionZones:    {Stroke: "#636363", Fill: "#969696", FillOpacity: 0.3, Weight: 0.5},
}

// defaultStyle is returned for identifiers outside the table. Neutral blue,
// matching the map client's built-in layer default.
var defaultStyle = Descriptor{Stroke: "#2266cc", Fill: "#3388ff", FillOpacity: 0.6, Weight: 1, Radius: 5}

// scoreBucket is one rung of the threshold ladder: scores at or above Min
// take Color. Evaluated top-down, first match wins, so a boundary score
// lands in the higher bucket.
type scoreBucket struct {
	Min   float64
	Label string
	Color string
}

var scoreLadder = []scoreBucket{
	{Min: 80, Label: "Excellent (80+)", Color: "#1a9641"},
	{Min: 60, Label: "Good (60-79)", Color: "#a6d96a"},
	{Min: 40, Label: "Fair (40-59)", Color: "#fdae61"},
	{Min: 0, Label: "Low (<40)", Color: "#d7191c"},
}

// ForLayer returns the static style for a dataset identifier.
func ForLayer(id string) Descriptor {
	if d, ok := layerStyles[id]; ok {
		return d
	}
	return defaultStyle
}

// ForFeature returns the style for one feature of a layer. Features carrying
// a numeric final_score get their colors overridden by the score ladder;
// features without one keep the layer style.
func ForFeature(f *geojson.Feature, id string) Descriptor {
	d := ForLayer(id)
	if f == nil {
		return d
	}
	score, ok := dataset.Score(f.Properties, "final_score")
	if !ok {
		return d
	}
	color := ladderColor(score)
	d.Stroke = color
	d.Fill = color
	return d
}

// ladderColor walks the ladder top-down; anything below the lowest threshold
// (including negative scores) falls into the last bucket.
func ladderColor(score float64) string {
	for _, bucket := range scoreLadder[:len(scoreLadder)-1] {
		if score >= bucket.Min {
			return bucket.Color
		}
	}
	return scoreLadder[len(scoreLadder)-1].Color
}

// Legend returns the score ladder as legend entries, highest bucket first.
func Legend() []LegendItem {
	items := make([]LegendItem, 0, len(scoreLadder))
	for _, bucket := range scoreLadder {
		items = append(items, LegendItem{Label: bucket.Label, Color: bucket.Color})
	}
	return items
}
