// Package manifest defines the YAML job description for one pipeline run:
// where the points, tract boundaries, and research dataset come from and how
// their fields map onto the join.
package manifest

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/urban-data-lab/tractjoin/internal/incidents"
)

// Point source formats.
const (
	PointFormatJSON = "json"
	PointFormatCSV  = "csv"
)

// Tract source formats.
const (
	TractFormatGeoJSON   = "geojson"
	TractFormatShapefile = "shapefile"
)

// Entity source formats.
const (
	EntityFormatCSV  = "csv"
	EntityFormatXLSX = "xlsx"
)

// Manifest describes one pipeline run.
type Manifest struct {
	Name     string       `yaml:"name"`
	Points   PointSource  `yaml:"points"`
	Tracts   TractSource  `yaml:"tracts"`
	Entities EntitySource `yaml:"entities"`
}

// PointSource locates and maps the incident point data.
type PointSource struct {
	URL    string             `yaml:"url"`
	Format string             `yaml:"format"`
	Fields incidents.FieldMap `yaml:"fields"`
}

// TractSource locates the polygon boundaries. KeyField names the feature
// property or DBF column carrying the stable tract identifier; it varies by
// dataset (GEOID, GEOID2, TRACTCE), so the caller must name it.
type TractSource struct {
	URL      string `yaml:"url"`
	Format   string `yaml:"format"`
	KeyField string `yaml:"key_field"`
}

// EntitySource locates the tabular research dataset. MeanColumns names the
// numeric fields to average per tract for the merged output.
type EntitySource struct {
	URL         string   `yaml:"url"`
	Format      string   `yaml:"format"`
	KeyColumn   string   `yaml:"key_column"`
	MeanColumns []string `yaml:"mean_columns"`
	Charset     string   `yaml:"charset,omitempty"`
	Sheet       string   `yaml:"sheet,omitempty"`
}

// Load reads and validates a manifest from a YAML file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "manifest: read %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "manifest: parse %s", path)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest names every required source and mapping.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return eris.New("manifest: name is required")
	}

	if m.Points.URL == "" {
		return eris.New("manifest: points.url is required")
	}
	switch m.Points.Format {
	case PointFormatJSON, PointFormatCSV:
	default:
		return eris.Errorf("manifest: points.format must be %q or %q, got %q",
			PointFormatJSON, PointFormatCSV, m.Points.Format)
	}
	if m.Points.Fields.Lat == "" || m.Points.Fields.Lon == "" {
		return eris.New("manifest: points.fields must map lat and lon")
	}

	if m.Tracts.URL == "" {
		return eris.New("manifest: tracts.url is required")
	}
	switch m.Tracts.Format {
	case TractFormatGeoJSON, TractFormatShapefile:
	default:
		return eris.Errorf("manifest: tracts.format must be %q or %q, got %q",
			TractFormatGeoJSON, TractFormatShapefile, m.Tracts.Format)
	}
	if m.Tracts.KeyField == "" {
		return eris.New("manifest: tracts.key_field is required")
	}

	if m.Entities.URL == "" {
		return eris.New("manifest: entities.url is required")
	}
	switch m.Entities.Format {
	case EntityFormatCSV, EntityFormatXLSX:
	default:
		return eris.Errorf("manifest: entities.format must be %q or %q, got %q",
			EntityFormatCSV, EntityFormatXLSX, m.Entities.Format)
	}
	if m.Entities.KeyColumn == "" {
		return eris.New("manifest: entities.key_column is required")
	}

	return nil
}
