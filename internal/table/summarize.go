package table

// Summarize groups rows (which may repeat keys) by key and produces one
// output row per key carrying a record count plus the mean of each named
// numeric column. Non-numeric and missing cells are excluded from means; a
// key with no numeric cells for a column gets a missing mean, not zero.
//
// Output keys follow first-seen order in rows. Output columns are
// "n" followed by "mean_<col>" for each requested column.
func Summarize(name string, rows []Row, cols []string) *Table {
	columns := make([]string, 0, len(cols)+1)
	columns = append(columns, "n")
	for _, c := range cols {
		columns = append(columns, "mean_"+c)
	}
	out := New(name, columns)

	type acc struct {
		n    int
		sum  map[string]float64
		seen map[string]int
	}
	accs := make(map[string]*acc)
	var order []string

	for _, row := range rows {
		a, ok := accs[row.Key]
		if !ok {
			a = &acc{sum: make(map[string]float64), seen: make(map[string]int)}
			accs[row.Key] = a
			order = append(order, row.Key)
		}
		a.n++
		for _, c := range cols {
			if f, isNum := row.Field(c).Number(); isNum {
				a.sum[c] += f
				a.seen[c]++
			}
		}
	}

	for _, key := range order {
		a := accs[key]
		fields := map[string]Value{"n": Num(float64(a.n))}
		for _, c := range cols {
			if a.seen[c] > 0 {
				fields["mean_"+c] = Num(a.sum[c] / float64(a.seen[c]))
			} else {
				fields["mean_"+c] = Missing()
			}
		}
		// Keys in order were inserted exactly once; Append cannot fail here.
		_ = out.Append(Row{Key: key, Fields: fields})
	}

	return out
}
