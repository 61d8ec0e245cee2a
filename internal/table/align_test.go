package table

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignReorders(t *testing.T) {
	tbl := buildTable(t, "counts", []string{"count"}, map[string][]Value{
		"A": {Num(1)},
		"B": {Num(2)},
		"C": {Num(3)},
	})

	aligned, err := Align(tbl, []string{"C", "A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, aligned.Keys())
	assertNum(t, aligned.Row(0).Field("count"), 3)
	assertNum(t, aligned.Row(1).Field("count"), 1)
	assertNum(t, aligned.Row(2).Field("count"), 2)
}

func TestAlignIdentityOrderIsNoOp(t *testing.T) {
	tbl := buildTable(t, "counts", []string{"count"}, map[string][]Value{
		"A": {Num(1)},
		"B": {Num(2)},
	})

	aligned, err := Align(tbl, tbl.Keys())
	require.NoError(t, err)
	assert.Equal(t, tbl.Keys(), aligned.Keys())
	for i := 0; i < tbl.Len(); i++ {
		assert.Equal(t, tbl.Row(i), aligned.Row(i))
	}
}

func TestAlignMissingKeyFailsHard(t *testing.T) {
	tbl := buildTable(t, "counts", []string{"count"}, map[string][]Value{
		"A": {Num(1)},
	})

	_, err := Align(tbl, []string{"A", "Z"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrKeyIntegrity))
	assert.Contains(t, err.Error(), `"Z"`)
}

func TestAlignDropsUnrequestedRows(t *testing.T) {
	tbl := buildTable(t, "counts", []string{"count"}, map[string][]Value{
		"A": {Num(1)},
		"B": {Num(2)},
	})

	aligned, err := Align(tbl, []string{"B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, aligned.Keys())
}

func TestAlignNilTable(t *testing.T) {
	_, err := Align(nil, []string{"A"})
	assert.Error(t, err)
}
