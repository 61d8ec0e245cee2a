package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type incident struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
}

func collectJSON[T any](t *testing.T, outCh <-chan T, errCh <-chan error) ([]T, error) {
	t.Helper()
	var items []T
	for item := range outCh {
		items = append(items, item)
	}
	for err := range errCh {
		if err != nil {
			return items, err
		}
	}
	return items, nil
}

func TestDecodeJSONArray_Basic(t *testing.T) {
	input := `[{"id":"a","lat":41.8},{"id":"b","lat":41.9}]`
	outCh, errCh := DecodeJSONArray[incident](context.Background(), strings.NewReader(input))

	items, err := collectJSON(t, outCh, errCh)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, incident{ID: "a", Lat: 41.8}, items[0])
	assert.Equal(t, incident{ID: "b", Lat: 41.9}, items[1])
}

func TestDecodeJSONArray_Empty(t *testing.T) {
	outCh, errCh := DecodeJSONArray[incident](context.Background(), strings.NewReader(`[]`))
	items, err := collectJSON(t, outCh, errCh)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDecodeJSONArray_NotAnArray(t *testing.T) {
	outCh, errCh := DecodeJSONArray[incident](context.Background(), strings.NewReader(`{"id":"a"}`))
	_, err := collectJSON(t, outCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected '['")
}

func TestDecodeJSONArray_TruncatedStream(t *testing.T) {
	outCh, errCh := DecodeJSONArray[incident](context.Background(), strings.NewReader(`[{"id":"a"`))
	_, err := collectJSON(t, outCh, errCh)
	assert.Error(t, err)
}

func TestDecodeJSONArray_MapElements(t *testing.T) {
	input := `[{"latitude":"41.88","case":"HX1"}]`
	outCh, errCh := DecodeJSONArray[map[string]any](context.Background(), strings.NewReader(input))

	items, err := collectJSON(t, outCh, errCh)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "41.88", items[0]["latitude"])
}
