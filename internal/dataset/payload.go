package dataset

import (
	"github.com/paulmach/orb/geojson"
)

// Payload is the in-memory parsed form of a dataset. Exactly one of
// Collection or Table is non-nil, depending on the descriptor format. A
// payload handed out by the cache is treated as immutable for the rest of
// the session.
type Payload struct {
	ID         string
	Collection *geojson.FeatureCollection
	Table      *Table
}

// Empty reports whether the payload carries no features or records. Failed
// loads produce empty payloads, so an empty result usually means "not
// available right now" rather than "the file is empty".
func (p *Payload) Empty() bool {
	if p == nil {
		return true
	}
	if p.Collection != nil {
		return len(p.Collection.Features) == 0
	}
	if p.Table != nil {
		return len(p.Table.Records) == 0
	}
	return true
}

// Len returns the number of features or records.
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	if p.Collection != nil {
		return len(p.Collection.Features)
	}
	if p.Table != nil {
		return len(p.Table.Records)
	}
	return 0
}

// emptyPayload returns a structurally valid payload of the right shape for
// the descriptor. Used as the fallback result when a fetch or parse fails.
func emptyPayload(d Descriptor) *Payload {
	p := &Payload{ID: d.ID}
	switch d.Format {
	case FormatTable:
		p.Table = &Table{}
	default:
		p.Collection = geojson.NewFeatureCollection()
	}
	return p
}
