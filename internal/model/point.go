// Package model holds the shared domain types of the tract join pipeline.
package model

// Point is one incident location. ID is opaque and carried through for
// diagnostics only; Lat/Lon are WGS84 degrees.
type Point struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ValidCoords reports whether lat/lon fall in the WGS84 domain.
func ValidCoords(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
