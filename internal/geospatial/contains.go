// Package geospatial implements in-process point-in-polygon containment and
// the per-tract count aggregation built on top of it.
package geospatial

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Contains reports whether the point lies inside the multipolygon.
//
// Containment is ray crossing over each polygon's rings. The tie-break for
// points exactly on a ring is fixed here rather than inherited: a point on
// any boundary, exterior or hole, counts as inside.
func Contains(mp *geom.MultiPolygon, c geom.Coord) bool {
	for i := 0; i < mp.NumPolygons(); i++ {
		if polygonContains(mp.Polygon(i), c) {
			return true
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, c geom.Coord) bool {
	if p.NumLinearRings() == 0 {
		return false
	}

	switch xy.LocatePointInRing(p.Layout(), c, p.LinearRing(0).FlatCoords()) {
	case location.Exterior:
		return false
	case location.Boundary:
		return true
	}

	// Strictly inside a hole is outside; on a hole's boundary is inside.
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.LocatePointInRing(p.Layout(), c, p.LinearRing(i).FlatCoords()) == location.Interior {
			return false
		}
	}
	return true
}
