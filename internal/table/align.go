package table

import (
	"github.com/rotisserie/eris"
)

// ErrKeyIntegrity is returned when a key required for positional re-alignment
// is absent from the table. A silent positional mismatch corrupts everything
// rendered downstream, so alignment fails hard rather than warning.
var ErrKeyIntegrity = eris.New("table: key missing from merged table")

// Align returns a new table whose rows follow keys positionally, resolved by
// key lookup. Every requested key must be present; a missing key aborts with
// ErrKeyIntegrity and no output. Rows whose keys are not requested are
// dropped: this is the projection boundary where an external renderer demands
// arrays positionally aligned with its geometry.
//
// Aligning a table already in the requested order yields an identical row
// sequence.
func Align(t *Table, keys []string) (*Table, error) {
	if t == nil {
		return nil, eris.New("table: align requires a table")
	}

	out := New(t.Name, t.Columns)
	for _, key := range keys {
		row, ok := t.Lookup(key)
		if !ok {
			return nil, eris.Wrapf(ErrKeyIntegrity, "key %q", key)
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}
