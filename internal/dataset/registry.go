// Package dataset loads and caches the precomputed planting datasets.
package dataset

// Format identifies how a dataset file is parsed.
type Format string

const (
	// FormatGeoJSON is a GeoJSON FeatureCollection file.
	FormatGeoJSON Format = "geojson"
	// FormatTable is newline-delimited comma-separated text with a header row.
	FormatTable Format = "table"
)

// Descriptor describes one loadable dataset.
type Descriptor struct {
	ID        string `json:"id" doc:"Dataset identifier" example:"top_locations"`
	Name      string `json:"name" doc:"Display name" example:"Top 100 Locations"`
	Filename  string `json:"file" doc:"File name under the data directory"`
	Format    Format `json:"format" doc:"File format" enum:"geojson,table"`
	Essential bool   `json:"essential" doc:"Loaded unconditionally at startup"`
}

// Dataset identifiers. Stable for the process lifetime; the set is fixed by
// the offline scoring pipeline that produces the files.
const (
	TopLocations      = "top_locations"
	HeatPriorityZones = "heat_priority_zones"
	GreenSpaces       = "green_spaces"
	WaterBodies       = "water_bodies"
	TopDetail         = "top_locations_detail"
	AllLocations      = "all_locations"
	ExclusionZones    = "exclusion_zones"
)

// Registry is the enumerable table of known datasets, split into the
// essential set (small, loaded at startup) and the heavy set (large, loaded
// only on explicit request).
type Registry struct {
	byID  map[string]Descriptor
	order []string
}

// DefaultRegistry returns the registry for the Heilbronn planting pipeline
// output files.
func DefaultRegistry() *Registry {
	return NewRegistry([]Descriptor{
		{ID: TopLocations, Name: "Top 100 Locations", Filename: "top_100_with_coordinates.geojson", Format: FormatGeoJSON, Essential: true},
		{ID: HeatPriorityZones, Name: "Heat Priority Zones", Filename: "heat_priority_zones.geojson", Format: FormatGeoJSON, Essential: true},
		{ID: GreenSpaces, Name: "Green Spaces", Filename: "green_spaces.geojson", Format: FormatGeoJSON, Essential: true},
		{ID: WaterBodies, Name: "Water Bodies", Filename: "water_bodies.geojson", Format: FormatGeoJSON, Essential: true},
		{ID: TopDetail, Name: "Top 100 Details", Filename: "top_100_detailed.csv", Format: FormatTable, Essential: true},
		{ID: AllLocations, Name: "All Scored Locations", Filename: "scored_locations_all_enhanced.geojson", Format: FormatGeoJSON},
		{ID: ExclusionZones, Name: "Exclusion Zones", Filename: "exclusion_combined.geojson", Format: FormatGeoJSON},
	})
}

// NewRegistry creates a registry from a list of descriptors.
func NewRegistry(descriptors []Descriptor) *Registry {
	r := &Registry{byID: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if _, exists := r.byID[d.ID]; exists {
			continue
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r
}

// Get returns the descriptor for an identifier.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// All returns every descriptor in registration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Essential returns the essential descriptors in registration order.
func (r *Registry) Essential() []Descriptor {
	var out []Descriptor
	for _, id := range r.order {
		if d := r.byID[id]; d.Essential {
			out = append(out, d)
		}
	}
	return out
}

// Heavy returns the heavy descriptors in registration order.
func (r *Registry) Heavy() []Descriptor {
	var out []Descriptor
	for _, id := range r.order {
		if d := r.byID[id]; !d.Essential {
			out = append(out, d)
		}
	}
	return out
}

// IsHeavy reports whether id names a known heavy dataset.
func (r *Registry) IsHeavy(id string) bool {
	d, ok := r.byID[id]
	return ok && !d.Essential
}
