package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urban-data-lab/tractjoin/internal/fetcher"
	"github.com/urban-data-lab/tractjoin/internal/incidents"
	"github.com/urban-data-lab/tractjoin/internal/manifest"
	"github.com/urban-data-lab/tractjoin/internal/model"
	"github.com/urban-data-lab/tractjoin/internal/store"
	"github.com/urban-data-lab/tractjoin/internal/table"
)

// Three unit-square tracts side by side on the x axis (longitude), with a gap
// between each.
const tractsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"GEOID": "A"},
      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}
    },
    {
      "type": "Feature",
      "properties": {"GEOID": "B"},
      "geometry": {"type": "Polygon", "coordinates": [[[2,0],[3,0],[3,1],[2,1],[2,0]]]}
    },
    {
      "type": "Feature",
      "properties": {"GEOID": "C"},
      "geometry": {"type": "Polygon", "coordinates": [[[4,0],[5,0],[5,1],[4,1],[4,0]]]}
    }
  ]
}`

// Two points in tract A, one in tract B, none in C.
const pointsJSON = `[
  {"id": "p1", "latitude": 0.5, "longitude": 0.5},
  {"id": "p2", "latitude": 0.2, "longitude": 0.8},
  {"id": "p3", "latitude": 0.5, "longitude": 2.5}
]`

// Research rows for tracts A and C; nothing for B.
const entitiesCSV = "tract,value\nA,10\nC,20\n"

func writeSources(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tracts.geojson"), []byte(tractsGeoJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "points.json"), []byte(pointsJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entities.csv"), []byte(entitiesCSV), 0o644))
	return dir
}

func testManifest(dir string) *manifest.Manifest {
	return &manifest.Manifest{
		Name: "end-to-end",
		Points: manifest.PointSource{
			URL:    filepath.Join(dir, "points.json"),
			Format: manifest.PointFormatJSON,
			Fields: incidents.FieldMap{ID: "id", Lat: "latitude", Lon: "longitude"},
		},
		Tracts: manifest.TractSource{
			URL:      filepath.Join(dir, "tracts.geojson"),
			Format:   manifest.TractFormatGeoJSON,
			KeyField: "GEOID",
		},
		Entities: manifest.EntitySource{
			URL:         filepath.Join(dir, "entities.csv"),
			Format:      manifest.EntityFormatCSV,
			KeyColumn:   "tract",
			MeanColumns: []string{"value"},
		},
	}
}

func newPipeline(t *testing.T) (*Pipeline, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	return New(fetcher.NewClient(fetcher.HTTPOptions{}), st, t.TempDir()), st
}

func TestPipelineRun(t *testing.T) {
	ctx := context.Background()
	dir := writeSources(t)
	p, st := newPipeline(t)

	run, err := p.Run(ctx, testManifest(dir))
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)

	require.NotNil(t, run.Summary)
	assert.Equal(t, 3, run.Summary.Points)
	assert.Equal(t, 0, run.Summary.DroppedPoints)
	assert.Equal(t, 3, run.Summary.Matched)
	assert.Equal(t, 0, run.Summary.Unmatched)
	assert.Equal(t, 3, run.Summary.Tracts)
	assert.Equal(t, 2, run.Summary.EntityRows)
	assert.Equal(t, 3, run.Summary.MergedRows)

	got, err := st.GetTable(ctx, run.ID)
	require.NoError(t, err)

	// One row per tract in source order, empty tracts included.
	assert.Equal(t, []string{"A", "B", "C"}, got.Keys())

	a, _ := got.Lookup("A")
	assertCell(t, a.Field("count"), 2)
	assertCell(t, a.Field("mean_value"), 10)

	b, _ := got.Lookup("B")
	assertCell(t, b.Field("count"), 1)
	assert.True(t, b.Field("mean_value").IsMissing(), "tract without research rows gets missing, not zero")

	c, _ := got.Lookup("C")
	assertCell(t, c.Field("count"), 0)
	assertCell(t, c.Field("mean_value"), 20)
}

func TestPipelineRunMarksFailureOnBadSource(t *testing.T) {
	ctx := context.Background()
	dir := writeSources(t)
	p, st := newPipeline(t)

	m := testManifest(dir)
	m.Points.URL = filepath.Join(dir, "absent.json")

	_, err := p.Run(ctx, m)
	require.Error(t, err)

	runs, err := st.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
}

func TestPipelineRejectsUnknownFormats(t *testing.T) {
	ctx := context.Background()
	dir := writeSources(t)
	p, _ := newPipeline(t)

	m := testManifest(dir)
	m.Tracts.Format = "kml"

	_, err := p.Run(ctx, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported tract format")
}

func assertCell(t *testing.T, v table.Value, want float64) {
	t.Helper()
	got, ok := v.Number()
	require.True(t, ok, "expected numeric cell")
	assert.InDelta(t, want, got, 1e-9)
}
