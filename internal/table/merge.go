package table

import (
	"github.com/rotisserie/eris"
)

// Merge performs a full outer join of a and b on their row keys.
//
// Every key present in either input appears exactly once in the output: a's
// keys first in a's order, then keys only in b in b's order. Column names
// shared by both sides are kept from both, disambiguated with the source
// table's name as a suffix. A row missing on one side contributes explicit
// missing markers for that side's columns, never zeros.
func Merge(a, b *Table) (*Table, error) {
	if a == nil || b == nil {
		return nil, eris.New("table: merge requires two tables")
	}

	aCols, bCols := resolveColumns(a, b)

	out := New(a.Name+"_"+b.Name, append(append([]string(nil), colNames(aCols)...), colNames(bCols)...))

	emit := func(key string, ar Row, aOK bool, br Row, bOK bool) error {
		fields := make(map[string]Value, len(aCols)+len(bCols))
		for _, c := range aCols {
			if aOK {
				fields[c.out] = ar.Field(c.in)
			} else {
				fields[c.out] = Missing()
			}
		}
		for _, c := range bCols {
			if bOK {
				fields[c.out] = br.Field(c.in)
			} else {
				fields[c.out] = Missing()
			}
		}
		return out.Append(Row{Key: key, Fields: fields})
	}

	for _, ar := range a.Rows() {
		br, bOK := b.Lookup(ar.Key)
		if err := emit(ar.Key, ar, true, br, bOK); err != nil {
			return nil, err
		}
	}
	for _, br := range b.Rows() {
		if _, inA := a.Lookup(br.Key); inA {
			continue
		}
		if err := emit(br.Key, Row{}, false, br, true); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// colMapping pairs a source column name with its name in the merged output.
type colMapping struct {
	in  string
	out string
}

// resolveColumns computes output column names for both sides, suffixing
// collisions with the owning table's name.
func resolveColumns(a, b *Table) (aCols, bCols []colMapping) {
	inB := make(map[string]bool, len(b.Columns))
	for _, c := range b.Columns {
		inB[c] = true
	}
	inA := make(map[string]bool, len(a.Columns))
	for _, c := range a.Columns {
		inA[c] = true
	}

	for _, c := range a.Columns {
		out := c
		if inB[c] {
			out = c + "_" + a.Name
		}
		aCols = append(aCols, colMapping{in: c, out: out})
	}
	for _, c := range b.Columns {
		out := c
		if inA[c] {
			out = c + "_" + b.Name
		}
		bCols = append(bCols, colMapping{in: c, out: out})
	}
	return aCols, bCols
}

func colNames(cols []colMapping) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.out
	}
	return names
}
