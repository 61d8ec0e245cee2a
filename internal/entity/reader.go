// Package entity reads external per-subject research datasets: tabular files
// keyed by a tract identifier column plus arbitrary measured fields.
package entity

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urban-data-lab/tractjoin/internal/fetcher"
	"github.com/urban-data-lab/tractjoin/internal/table"
)

// Result holds the loaded records and the count of rows dropped for lacking
// a key. Keys may repeat across rows (one row per subject, many subjects per
// tract); de-duplication happens later in summarization.
type Result struct {
	Rows    []table.Row
	Columns []string
	Dropped int
}

// FromCSV reads a headed CSV stream into keyed rows. The key column is
// matched case-insensitively; rows with a blank key are dropped and counted.
// Cells that parse as numbers become numeric values, blank cells become
// missing markers, everything else stays text.
func FromCSV(ctx context.Context, r io.Reader, keyColumn string, opts fetcher.CSVOptions) (Result, error) {
	headerCh := make(chan []string, 1)
	opts.HasHeader = true
	opts.HeaderCh = headerCh
	opts.TrimSpace = true

	rowCh, errCh := fetcher.StreamCSV(ctx, r, opts)

	var res Result
	var header []string
	keyIdx := -1

	for row := range rowCh {
		if header == nil {
			header = <-headerCh
			for i, name := range header {
				if strings.EqualFold(name, keyColumn) {
					keyIdx = i
				}
			}
			if keyIdx < 0 {
				return Result{}, eris.Errorf("entity: key column %q not found in header", keyColumn)
			}
			res.Columns = nonKeyColumns(header, keyIdx)
		}

		rec, ok := buildRow(header, keyIdx, row)
		if !ok {
			res.Dropped++
			continue
		}
		res.Rows = append(res.Rows, rec)
	}
	if err := <-errCh; err != nil {
		return Result{}, eris.Wrap(err, "entity: read csv source")
	}

	logDropped(res)
	return res, nil
}

// FromXLSX reads the first (or named) sheet of a workbook into keyed rows,
// treating the first row as the header. Semantics match FromCSV.
func FromXLSX(path, keyColumn string, opts fetcher.XLSXOptions) (Result, error) {
	raw, err := fetcher.ReadXLSX(path, opts)
	if err != nil {
		return Result{}, eris.Wrap(err, "entity: read xlsx source")
	}
	if len(raw) == 0 {
		return Result{}, eris.New("entity: empty worksheet")
	}

	header := raw[0]
	keyIdx := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), keyColumn) {
			keyIdx = i
		}
	}
	if keyIdx < 0 {
		return Result{}, eris.Errorf("entity: key column %q not found in header", keyColumn)
	}

	res := Result{Columns: nonKeyColumns(header, keyIdx)}
	for _, row := range raw[1:] {
		rec, ok := buildRow(header, keyIdx, row)
		if !ok {
			res.Dropped++
			continue
		}
		res.Rows = append(res.Rows, rec)
	}

	logDropped(res)
	return res, nil
}

func nonKeyColumns(header []string, keyIdx int) []string {
	cols := make([]string, 0, len(header)-1)
	for i, name := range header {
		if i != keyIdx {
			cols = append(cols, strings.TrimSpace(name))
		}
	}
	return cols
}

func buildRow(header []string, keyIdx int, row []string) (table.Row, bool) {
	if keyIdx >= len(row) || strings.TrimSpace(row[keyIdx]) == "" {
		return table.Row{}, false
	}

	fields := make(map[string]table.Value, len(header)-1)
	for i, name := range header {
		if i == keyIdx {
			continue
		}
		name = strings.TrimSpace(name)
		if i >= len(row) {
			fields[name] = table.Missing()
			continue
		}
		fields[name] = cellValue(row[i])
	}
	return table.Row{Key: strings.TrimSpace(row[keyIdx]), Fields: fields}, true
}

func cellValue(s string) table.Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return table.Missing()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return table.Num(f)
	}
	return table.Text(s)
}

func logDropped(res Result) {
	if res.Dropped > 0 {
		zap.L().Warn("entity: dropped rows without a key",
			zap.Int("dropped", res.Dropped),
			zap.Int("loaded", len(res.Rows)),
		)
	}
}
