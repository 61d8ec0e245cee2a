package tracts

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urban-data-lab/tractjoin/internal/fetcher"
)

// FromShapefile reads a shapefile and builds a Set keyed by the named DBF
// field. Record order becomes set order. Records without usable polygon
// geometry are skipped and counted; a record with a blank key field is a
// fatal load error.
func FromShapefile(shpPath, keyField string) (*Set, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tracts: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	keyIdx := -1
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(names[i], keyField) {
			keyIdx = i
		}
	}
	if keyIdx < 0 {
		return nil, eris.Errorf("tracts: key field %q not found in shapefile", keyField)
	}

	var tracts []Tract
	var skipped int
	record := -1
	for reader.Next() {
		record++
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := shpPolygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		attrs := make(map[string]any, len(names))
		for i, name := range names {
			attrs[name] = strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		}

		key := attrString(attrs[names[keyIdx]])
		if key == "" {
			return nil, eris.Errorf("tracts: record %d has blank key field %q", record, keyField)
		}

		tracts = append(tracts, Tract{Key: key, Geometry: mp, Attributes: attrs})
	}

	if skipped > 0 {
		zap.L().Warn("tracts: skipped shapefile records without polygon geometry",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return NewSet(tracts)
}

// FromShapefileZip extracts a zipped shapefile bundle (the form Census
// distributes TIGER/Line data in) into destDir and loads the .shp it contains.
func FromShapefileZip(zipPath, destDir, keyField string) (*Set, error) {
	if _, err := fetcher.ExtractZIP(zipPath, destDir); err != nil {
		return nil, eris.Wrap(err, "tracts: extract shapefile bundle")
	}
	shpPath, err := fetcher.FindByExt(destDir, ".shp")
	if err != nil {
		return nil, eris.Wrap(err, "tracts: locate .shp in bundle")
	}
	return FromShapefile(shpPath, keyField)
}

// shpPolygonToMultiPolygon converts a shapefile polygon's part ranges into a
// go-geom MultiPolygon. Shapefile part semantics (outer vs hole rings by
// winding) are flattened: each part becomes its own single-ring polygon,
// which is sufficient for containment over tract boundaries.
func shpPolygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("tracts: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("tracts: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
