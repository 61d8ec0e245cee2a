package entity

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urban-data-lab/tractjoin/internal/fetcher"
)

func TestFromCSV(t *testing.T) {
	const src = "tract,income,label\n" +
		"A,52000,north\n" +
		"A,48000,north\n" +
		"B,,south\n" +
		",10,orphan\n"

	res, err := FromCSV(context.Background(), strings.NewReader(src), "TRACT", fetcher.CSVOptions{})
	require.NoError(t, err)

	// Key column matched case-insensitively and excluded from columns.
	assert.Equal(t, []string{"income", "label"}, res.Columns)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, 1, res.Dropped)

	// Repeated keys are kept as separate rows.
	assert.Equal(t, "A", res.Rows[0].Key)
	assert.Equal(t, "A", res.Rows[1].Key)

	n, isNum := res.Rows[0].Field("income").Number()
	require.True(t, isNum)
	assert.Equal(t, 52000.0, n)
	assert.Equal(t, "north", res.Rows[0].Field("label").String())

	// Blank cell is missing, not zero or empty text.
	assert.True(t, res.Rows[2].Field("income").IsMissing())
}

func TestFromCSVMissingKeyColumn(t *testing.T) {
	const src = "id,income\n1,10\n"

	_, err := FromCSV(context.Background(), strings.NewReader(src), "tract", fetcher.CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"tract"`)
}

func TestFromCSVShortRowPadsMissing(t *testing.T) {
	const src = "tract,income,label\nA,42\n"

	res, err := FromCSV(context.Background(), strings.NewReader(src), "tract", fetcher.CSVOptions{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.True(t, res.Rows[0].Field("label").IsMissing())
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		in   string
		kind string
	}{
		{"", "missing"},
		{"  ", "missing"},
		{"3.14", "number"},
		{"-7", "number"},
		{"1e3", "number"},
		{"n/a", "text"},
		{"60601", "number"},
	}
	for _, tc := range tests {
		v := cellValue(tc.in)
		switch tc.kind {
		case "missing":
			assert.True(t, v.IsMissing(), "cell %q", tc.in)
		case "number":
			_, isNum := v.Number()
			assert.True(t, isNum, "cell %q", tc.in)
		case "text":
			assert.False(t, v.IsMissing(), "cell %q", tc.in)
			_, isNum := v.Number()
			assert.False(t, isNum, "cell %q", tc.in)
		}
	}
}
