package geospatial

import (
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urban-data-lab/tractjoin/internal/model"
	"github.com/urban-data-lab/tractjoin/internal/table"
	"github.com/urban-data-lab/tractjoin/internal/tracts"
)

// TractCount is the per-tract aggregate: how many points fell inside it.
type TractCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Result is the output of Aggregate. Counts always holds one row per tract
// in set order, zero-filled for tracts that received no points, so
// len(Counts) == set.Len() regardless of the input points, and
// Matched + Unmatched == len(points).
type Result struct {
	Counts    []TractCount
	Matched   int
	Unmatched int
}

// Aggregate assigns each point to its enclosing tract via loc and counts
// points per tract.
//
// The completeness fill is the load-bearing step: rows are enumerated from
// the tract set, not grouped from matched points, so empty tracts appear
// with an explicit zero instead of silently vanishing. Points outside every
// tract are tallied as unmatched, never folded into a default tract.
func Aggregate(set *tracts.Set, points []model.Point, loc Locator) Result {
	counts := make(map[string]int, set.Len())

	res := Result{}
	for _, p := range points {
		key, ok := loc.Locate(geom.Coord{p.Lon, p.Lat})
		if !ok {
			res.Unmatched++
			continue
		}
		counts[key]++
		res.Matched++
	}

	if res.Unmatched > 0 {
		zap.L().Info("geospatial: points outside all tracts",
			zap.Int("unmatched", res.Unmatched),
			zap.Int("matched", res.Matched),
		)
	}

	res.Counts = make([]TractCount, set.Len())
	for i, key := range set.Keys() {
		res.Counts[i] = TractCount{Key: key, Count: counts[key]}
	}
	return res
}

// Table renders the counts as a keyed table (column "count") for merging
// with per-tract research data.
func (r Result) Table(name string) *table.Table {
	t := table.New(name, []string{"count"})
	for _, c := range r.Counts {
		// Keys come from a Set, which guarantees uniqueness.
		_ = t.Append(table.Row{
			Key:    c.Key,
			Fields: map[string]table.Value{"count": table.Num(float64(c.Count))},
		})
	}
	return t
}
