// Package table implements keyed in-memory tables with explicit missing-value
// markers, full outer joins, per-key summaries, and positional re-alignment
// against an ordered key sequence.
package table

import (
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// Kind discriminates the cell states a Value can hold.
type Kind int

const (
	// KindMissing marks a cell with no value. Missing is never conflated
	// with zero; it JSON-encodes as null.
	KindMissing Kind = iota
	// KindNumber marks a numeric cell.
	KindNumber
	// KindText marks a text cell.
	KindText
)

// Value is a single table cell.
type Value struct {
	kind Kind
	num  float64
	text string
}

// Num returns a numeric Value.
func Num(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text returns a text Value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Missing returns the explicit missing-value marker.
func Missing() Value { return Value{kind: KindMissing} }

// Kind reports the cell state.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the cell holds no value.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Number returns the numeric value and whether the cell is numeric.
func (v Value) Number() (float64, bool) { return v.num, v.kind == KindNumber }

// String renders the cell for display. Missing cells render as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	default:
		return ""
	}
}

// MarshalJSON encodes numbers as numbers, text as strings, and missing as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes null as missing, numbers as numeric, everything else as text.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "table: unmarshal value")
	}
	switch t := raw.(type) {
	case nil:
		*v = Missing()
	case float64:
		*v = Num(t)
	case string:
		*v = Text(t)
	case bool:
		if t {
			*v = Text("true")
		} else {
			*v = Text("false")
		}
	default:
		return eris.Errorf("table: unsupported value type %T", raw)
	}
	return nil
}

// Row is one keyed table row.
type Row struct {
	Key    string
	Fields map[string]Value
}

// Field returns the named cell, or the missing marker if the row lacks it.
func (r Row) Field(col string) Value {
	if v, ok := r.Fields[col]; ok {
		return v
	}
	return Missing()
}

// Table is an ordered sequence of rows with unique keys and a stable column order.
type Table struct {
	Name    string
	Columns []string
	rows    []Row
	byKey   map[string]int
}

// New creates an empty table with the given name and non-key column order.
func New(name string, columns []string) *Table {
	return &Table{
		Name:    name,
		Columns: append([]string(nil), columns...),
		byKey:   make(map[string]int),
	}
}

// Append adds a row. Duplicate keys are rejected: joins and alignment both
// depend on key uniqueness.
func (t *Table) Append(row Row) error {
	if row.Key == "" {
		return eris.New("table: empty row key")
	}
	if _, dup := t.byKey[row.Key]; dup {
		return eris.Errorf("table: duplicate key %q in table %q", row.Key, t.Name)
	}
	t.byKey[row.Key] = len(t.rows)
	t.rows = append(t.rows, row)
	return nil
}

// Len returns the row count.
func (t *Table) Len() int { return len(t.rows) }

// Row returns the row at position i.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Rows returns the rows in positional order. The slice is shared; callers
// must not mutate it.
func (t *Table) Rows() []Row { return t.rows }

// Lookup returns the row for a key.
func (t *Table) Lookup(key string) (Row, bool) {
	i, ok := t.byKey[key]
	if !ok {
		return Row{}, false
	}
	return t.rows[i], true
}

// Keys returns the keys in positional order.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.rows))
	for i, r := range t.rows {
		keys[i] = r.Key
	}
	return keys
}
