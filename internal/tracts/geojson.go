package tracts

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// FromGeoJSON reads a GeoJSON FeatureCollection and builds a Set keyed by the
// named property. Feature order becomes set order. Features whose geometry is
// not polygonal are skipped and counted; a feature missing the key property
// is a fatal load error since the set cannot hold an anonymous polygon.
func FromGeoJSON(r io.Reader, keyField string) (*Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "tracts: read geojson")
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "tracts: decode feature collection")
	}

	var tracts []Tract
	var skipped int
	for i, f := range fc.Features {
		mp := toMultiPolygon(f.Geometry)
		if mp == nil {
			skipped++
			continue
		}

		key := attrString(f.Properties[keyField])
		if key == "" {
			return nil, eris.Errorf("tracts: feature %d has no %q property", i, keyField)
		}

		tracts = append(tracts, Tract{
			Key:        key,
			Geometry:   mp,
			Attributes: f.Properties,
		})
	}

	if skipped > 0 {
		zap.L().Warn("tracts: skipped non-polygonal features", zap.Int("skipped", skipped))
	}

	return NewSet(tracts)
}

// toMultiPolygon normalizes polygonal geometry to a MultiPolygon. Returns nil
// for non-polygonal or empty geometry.
func toMultiPolygon(g geom.T) *geom.MultiPolygon {
	switch t := g.(type) {
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return nil
		}
		return t
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil
		}
		mp := geom.NewMultiPolygon(t.Layout())
		if err := mp.Push(t); err != nil {
			return nil
		}
		return mp
	default:
		return nil
	}
}
