package geospatial

import (
	"github.com/twpayne/go-geom"

	"github.com/urban-data-lab/tractjoin/internal/tracts"
)

// Locator resolves a coordinate to the key of its enclosing tract. The
// aggregation contract depends only on this interface, so the containment
// strategy (linear scan, bounding-box prefilter, a future R-tree) can be
// swapped without touching the aggregator.
//
// When overlapping polygons both claim a point, the first tract in set order
// wins; tract sets are non-overlapping by construction so this only matters
// for degenerate inputs.
type Locator interface {
	Locate(c geom.Coord) (key string, ok bool)
}

// linearLocator tests every tract in order. O(tracts) per point; the
// baseline the prefilter is measured against.
type linearLocator struct {
	set *tracts.Set
}

// NewLinearLocator returns a Locator that scans the whole set per point.
func NewLinearLocator(set *tracts.Set) Locator {
	return &linearLocator{set: set}
}

func (l *linearLocator) Locate(c geom.Coord) (string, bool) {
	for i := 0; i < l.set.Len(); i++ {
		tr := l.set.At(i)
		if Contains(tr.Geometry, c) {
			return tr.Key, true
		}
	}
	return "", false
}

// boundsLocator precomputes each tract's bounding box and runs the exact
// containment test only for tracts whose box covers the point. Tract
// polygons are small relative to the covered area, so the prefilter
// eliminates nearly every candidate.
type boundsLocator struct {
	set    *tracts.Set
	bounds []*geom.Bounds
}

// NewBoundsLocator returns the default Locator: bounding-box prefilter, then
// exact ray crossing.
func NewBoundsLocator(set *tracts.Set) Locator {
	bounds := make([]*geom.Bounds, set.Len())
	for i := 0; i < set.Len(); i++ {
		bounds[i] = set.At(i).Geometry.Bounds()
	}
	return &boundsLocator{set: set, bounds: bounds}
}

func (l *boundsLocator) Locate(c geom.Coord) (string, bool) {
	for i := 0; i < l.set.Len(); i++ {
		if !l.bounds[i].OverlapsPoint(geom.XY, c) {
			continue
		}
		tr := l.set.At(i)
		if Contains(tr.Geometry, c) {
			return tr.Key, true
		}
	}
	return "", false
}
