package tracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func unitSquare(t *testing.T) *geom.MultiPolygon {
	t.Helper()
	mp := geom.NewMultiPolygon(geom.XY)
	p := geom.NewPolygon(geom.XY)
	p.MustSetCoords([][]geom.Coord{{
		{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0},
	}})
	require.NoError(t, mp.Push(p))
	return mp
}

func TestNewSetPreservesOrder(t *testing.T) {
	set, err := NewSet([]Tract{
		{Key: "B", Geometry: unitSquare(t)},
		{Key: "A", Geometry: unitSquare(t)},
		{Key: "C", Geometry: unitSquare(t)},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []string{"B", "A", "C"}, set.Keys())
	assert.Equal(t, "A", set.At(1).Key)

	tr, ok := set.ByKey("C")
	require.True(t, ok)
	assert.Equal(t, "C", tr.Key)

	_, ok = set.ByKey("Z")
	assert.False(t, ok)
}

func TestNewSetRejectsDuplicateKey(t *testing.T) {
	_, err := NewSet([]Tract{
		{Key: "A", Geometry: unitSquare(t)},
		{Key: "A", Geometry: unitSquare(t)},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate key "A"`)
}

func TestNewSetRejectsEmptyKey(t *testing.T) {
	_, err := NewSet([]Tract{{Key: "", Geometry: unitSquare(t)}})
	assert.Error(t, err)
}

func TestNewSetRejectsMissingGeometry(t *testing.T) {
	_, err := NewSet([]Tract{{Key: "A"}})
	assert.Error(t, err)
}

func TestNewSetRejectsEmptySet(t *testing.T) {
	_, err := NewSet(nil)
	assert.Error(t, err)
}

func TestAttrString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "17031", "17031"},
		{"float identifier", float64(17031839100), "17031839100"},
		{"int", 42, "42"},
		{"int64", int64(9), "9"},
		{"unsupported", []string{"x"}, ""},
		{"nil", nil, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, attrString(tc.in))
		})
	}
}
