package table

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTable(t *testing.T, name string, cols []string, rows map[string][]Value) *Table {
	t.Helper()
	tbl := New(name, cols)
	for _, key := range sortedKeys(rows) {
		fields := make(map[string]Value, len(cols))
		for i, c := range cols {
			fields[c] = rows[key][i]
		}
		require.NoError(t, tbl.Append(Row{Key: key, Fields: fields}))
	}
	return tbl
}

func sortedKeys(m map[string][]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestMergeFullOuterJoin(t *testing.T) {
	counts := buildTable(t, "counts", []string{"count"}, map[string][]Value{
		"A": {Num(2)},
		"B": {Num(1)},
	})
	study := buildTable(t, "study", []string{"score"}, map[string][]Value{
		"A": {Num(10)},
		"C": {Num(20)},
	})

	merged, err := Merge(counts, study)
	require.NoError(t, err)

	// Every key from either side, exactly once: a's order first, then b-only.
	assert.Equal(t, []string{"A", "B", "C"}, merged.Keys())
	assert.Equal(t, []string{"count", "score"}, merged.Columns)

	a, _ := merged.Lookup("A")
	assertNum(t, a.Field("count"), 2)
	assertNum(t, a.Field("score"), 10)

	b, _ := merged.Lookup("B")
	assertNum(t, b.Field("count"), 1)
	assert.True(t, b.Field("score").IsMissing(), "absent side must be missing, not zero")

	c, _ := merged.Lookup("C")
	assert.True(t, c.Field("count").IsMissing())
	assertNum(t, c.Field("score"), 20)
}

func TestMergeColumnCollisionSuffixedBySource(t *testing.T) {
	left := buildTable(t, "left", []string{"n"}, map[string][]Value{"A": {Num(1)}})
	right := buildTable(t, "right", []string{"n"}, map[string][]Value{"A": {Num(2)}})

	merged, err := Merge(left, right)
	require.NoError(t, err)

	assert.Equal(t, []string{"n_left", "n_right"}, merged.Columns)
	row, _ := merged.Lookup("A")
	assertNum(t, row.Field("n_left"), 1)
	assertNum(t, row.Field("n_right"), 2)
}

func TestMergeCommutativeUpToProvenance(t *testing.T) {
	x := buildTable(t, "x", []string{"v"}, map[string][]Value{
		"A": {Num(1)},
		"B": {Num(2)},
	})
	y := buildTable(t, "y", []string{"w"}, map[string][]Value{
		"B": {Num(3)},
		"C": {Num(4)},
	})

	xy, err := Merge(x, y)
	require.NoError(t, err)
	yx, err := Merge(y, x)
	require.NoError(t, err)

	// Same key set, same non-key values; only ordering and provenance differ.
	assert.ElementsMatch(t, xy.Keys(), yx.Keys())
	for _, key := range xy.Keys() {
		rx, _ := xy.Lookup(key)
		ry, _ := yx.Lookup(key)
		assert.Equal(t, rx.Field("v"), ry.Field("v"), "key %s", key)
		assert.Equal(t, rx.Field("w"), ry.Field("w"), "key %s", key)
	}
}

func TestMergeNilTable(t *testing.T) {
	_, err := Merge(nil, New("x", nil))
	assert.Error(t, err)
}

func assertNum(t *testing.T, v Value, want float64) {
	t.Helper()
	got, ok := v.Number()
	require.True(t, ok, "expected numeric value")
	assert.InDelta(t, want, got, 1e-9)
}
