// Package incidents loads point-based incident records (id + coordinates)
// from JSON or CSV sources into normalized points.
package incidents

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urban-data-lab/tractjoin/internal/fetcher"
	"github.com/urban-data-lab/tractjoin/internal/model"
)

// FieldMap names the source fields carrying the point id and coordinates.
// ID may be empty, in which case the record's ordinal is used.
type FieldMap struct {
	ID  string `yaml:"id"`
	Lat string `yaml:"lat"`
	Lon string `yaml:"lon"`
}

// Result is a loaded point set plus the per-record drop count. Dropped
// records are an observability output, not an error: a malformed coordinate
// fails only its own record.
type Result struct {
	Points  []model.Point
	Dropped int
}

// FromJSON reads a JSON array of flat objects and extracts one point per
// element. Records with missing or non-numeric coordinates, or coordinates
// outside the WGS84 domain, are dropped and counted. A malformed stream as a
// whole is a terminal error.
func FromJSON(ctx context.Context, r io.Reader, fm FieldMap) (Result, error) {
	if err := validateFieldMap(fm); err != nil {
		return Result{}, err
	}

	recCh, errCh := fetcher.DecodeJSONArray[map[string]any](ctx, r)

	var res Result
	ordinal := 0
	for rec := range recCh {
		ordinal++
		lat, latOK := numField(rec[fm.Lat])
		lon, lonOK := numField(rec[fm.Lon])
		if !latOK || !lonOK || !model.ValidCoords(lat, lon) {
			res.Dropped++
			continue
		}
		res.Points = append(res.Points, model.Point{
			ID:  recordID(rec[fm.ID], ordinal),
			Lat: lat,
			Lon: lon,
		})
	}
	if err := <-errCh; err != nil {
		return Result{}, eris.Wrap(err, "incidents: decode json source")
	}

	logDropped("json", res)
	return res, nil
}

// FromCSV reads a headed CSV stream and extracts one point per row, mapping
// columns by header name. Drop semantics match FromJSON.
func FromCSV(ctx context.Context, r io.Reader, fm FieldMap, opts fetcher.CSVOptions) (Result, error) {
	if err := validateFieldMap(fm); err != nil {
		return Result{}, err
	}

	headerCh := make(chan []string, 1)
	opts.HasHeader = true
	opts.HeaderCh = headerCh
	opts.TrimSpace = true

	rowCh, errCh := fetcher.StreamCSV(ctx, r, opts)

	idIdx, latIdx, lonIdx := -1, -1, -1
	headerSeen := false

	var res Result
	ordinal := 0
	for row := range rowCh {
		if !headerSeen {
			header := <-headerCh
			headerSeen = true
			for i, name := range header {
				switch {
				case strings.EqualFold(name, fm.ID):
					idIdx = i
				case strings.EqualFold(name, fm.Lat):
					latIdx = i
				case strings.EqualFold(name, fm.Lon):
					lonIdx = i
				}
			}
			if latIdx < 0 || lonIdx < 0 {
				return Result{}, eris.Errorf("incidents: columns %q/%q not found in csv header", fm.Lat, fm.Lon)
			}
		}

		ordinal++
		if latIdx >= len(row) || lonIdx >= len(row) {
			res.Dropped++
			continue
		}
		lat, latErr := strconv.ParseFloat(row[latIdx], 64)
		lon, lonErr := strconv.ParseFloat(row[lonIdx], 64)
		if latErr != nil || lonErr != nil || !model.ValidCoords(lat, lon) {
			res.Dropped++
			continue
		}

		id := ""
		if idIdx >= 0 && idIdx < len(row) {
			id = row[idIdx]
		}
		res.Points = append(res.Points, model.Point{
			ID:  recordID(id, ordinal),
			Lat: lat,
			Lon: lon,
		})
	}
	if err := <-errCh; err != nil {
		return Result{}, eris.Wrap(err, "incidents: read csv source")
	}

	logDropped("csv", res)
	return res, nil
}

func validateFieldMap(fm FieldMap) error {
	if fm.Lat == "" || fm.Lon == "" {
		return eris.New("incidents: field map must name lat and lon fields")
	}
	return nil
}

// numField coerces the value shapes JSON sources use for coordinates:
// numbers, or numbers serialized as strings.
func numField(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func recordID(v any, ordinal int) string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return strconv.Itoa(ordinal)
}

func logDropped(format string, res Result) {
	if res.Dropped > 0 {
		zap.L().Warn("incidents: dropped records with unparseable coordinates",
			zap.String("format", format),
			zap.Int("dropped", res.Dropped),
			zap.Int("loaded", len(res.Points)),
		)
	}
}
