// Package tracts loads Census tract boundaries from GeoJSON feature
// collections and TIGER-style shapefiles into an ordered, key-addressable
// polygon set.
package tracts

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Tract is one administrative polygon with its source attributes.
type Tract struct {
	Key        string
	Geometry   *geom.MultiPolygon
	Attributes map[string]any
}

// Set is an ordered collection of tracts with unique keys.
//
// Positional order matters: downstream renderers re-attach computed columns
// to geometry by position, so the set preserves source order exactly and
// everything derived from it is emitted in that order.
type Set struct {
	tracts []Tract
	byKey  map[string]int
}

// NewSet builds a Set, enforcing key uniqueness across the whole collection.
func NewSet(tracts []Tract) (*Set, error) {
	if len(tracts) == 0 {
		return nil, eris.New("tracts: empty tract set")
	}
	byKey := make(map[string]int, len(tracts))
	for i, tr := range tracts {
		if tr.Key == "" {
			return nil, eris.Errorf("tracts: tract at position %d has empty key", i)
		}
		if prev, dup := byKey[tr.Key]; dup {
			return nil, eris.Errorf("tracts: duplicate key %q at positions %d and %d", tr.Key, prev, i)
		}
		if tr.Geometry == nil {
			return nil, eris.Errorf("tracts: tract %q has no geometry", tr.Key)
		}
		byKey[tr.Key] = i
	}
	return &Set{tracts: tracts, byKey: byKey}, nil
}

// Len returns the number of tracts.
func (s *Set) Len() int { return len(s.tracts) }

// At returns the tract at position i.
func (s *Set) At(i int) Tract { return s.tracts[i] }

// ByKey returns the tract for a key.
func (s *Set) ByKey(key string) (Tract, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return Tract{}, false
	}
	return s.tracts[i], true
}

// Keys returns the tract keys in positional order.
func (s *Set) Keys() []string {
	keys := make([]string, len(s.tracts))
	for i, tr := range s.tracts {
		keys[i] = tr.Key
	}
	return keys
}

// attrString renders an attribute value as a key string. GeoJSON properties
// frequently carry numeric identifiers for what are logically string keys
// (e.g. GEOID columns), so integers render without an exponent or decimals.
func attrString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}
