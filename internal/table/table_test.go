package table

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAppendRejectsDuplicateKeys(t *testing.T) {
	tbl := New("counts", []string{"count"})
	require.NoError(t, tbl.Append(Row{Key: "A", Fields: map[string]Value{"count": Num(1)}}))

	err := tbl.Append(Row{Key: "A", Fields: map[string]Value{"count": Num(2)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key")
}

func TestTableAppendRejectsEmptyKey(t *testing.T) {
	tbl := New("counts", nil)
	require.Error(t, tbl.Append(Row{Key: ""}))
}

func TestTableLookupAndOrder(t *testing.T) {
	tbl := New("t", []string{"v"})
	for _, k := range []string{"C", "A", "B"} {
		require.NoError(t, tbl.Append(Row{Key: k, Fields: map[string]Value{"v": Text(k)}}))
	}

	assert.Equal(t, []string{"C", "A", "B"}, tbl.Keys())

	row, ok := tbl.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "A", row.Field("v").String())

	_, ok = tbl.Lookup("Z")
	assert.False(t, ok)
}

func TestRowFieldMissingForAbsentColumn(t *testing.T) {
	row := Row{Key: "A", Fields: map[string]Value{"x": Num(1)}}
	assert.True(t, row.Field("y").IsMissing())
}

func TestValueJSON(t *testing.T) {
	tests := []struct {
		name string
		val  Value
		want string
	}{
		{name: "number", val: Num(2.5), want: "2.5"},
		{name: "text", val: Text("tract"), want: `"tract"`},
		{name: "missing encodes as null, never zero", val: Missing(), want: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.val)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))

			var back Value
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.val.Kind(), back.Kind())
		})
	}
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "3", Num(3).String())
	assert.Equal(t, "hi", Text("hi").String())
	assert.Equal(t, "", Missing().String())
}
