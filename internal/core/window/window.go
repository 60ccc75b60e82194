// Package window computes position-dependent values over ordered partitions:
// lag, row number, rank, and latest-row selection. It is the explicit
// counterpart of OVER (PARTITION BY ... ORDER BY ...) — every function reads
// only its own partition and mutates nothing.
package window

import (
	"sort"

	"github.com/metrika-lab/metrika/internal/core/row"
)

// SortByField stably sorts a copy of records by one field. Stability keeps
// ingestion order as the tie-break, which the rank and latest contracts
// depend on. The input slice is left untouched.
func SortByField(records []row.Record, field string, ascending bool) []row.Record {
	out := make([]row.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		c := out[i].Get(field).Compare(out[j].Get(field))
		if ascending {
			return c < 0
		}
		return c > 0
	})
	return out
}

// Lag returns, per row, the value n rows earlier in the same partition.
// Rows with fewer than n predecessors get NULL. Lag(values, 1) at row 0 is
// therefore always NULL.
func Lag(values []row.Value, n int) []row.Value {
	out := make([]row.Value, len(values))
	for i := range values {
		if n <= 0 || i < n {
			out[i] = row.Null()
			continue
		}
		out[i] = values[i-n]
	}
	return out
}

// RowNumbers returns the 1-based sequential position of each of n rows.
// No ties: position is purely ordinal within the partition.
func RowNumbers(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// RankDesc ranks records by a field, highest value first, with SQL RANK()
// semantics: equal values share a rank and the following distinct value
// skips past the tied run (1, 1, 3 — gaps, not DENSE_RANK). Equality is
// checked at full precision; callers round for display only after ranking.
// The i-th result ranks the i-th record of the value-descending order that
// SortByField(records, field, false) produces.
func RankDesc(sorted []row.Record, field string) []int {
	ranks := make([]int, len(sorted))
	for i := range sorted {
		if i > 0 && sorted[i].Get(field).Equal(sorted[i-1].Get(field)) {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}
	return ranks
}

// Latest selects the record with the maximum value of orderField, ties
// broken by last ingested. ok is false for an empty partition — the caller
// substitutes NULL for every dependent field rather than dropping the
// entity.
func Latest(records []row.Record, orderField string) (row.Record, bool) {
	if len(records) == 0 {
		return nil, false
	}
	best := records[0]
	for _, rec := range records[1:] {
		if rec.Get(orderField).Compare(best.Get(orderField)) >= 0 {
			best = rec
		}
	}
	return best, true
}

// Values projects one field of each record, preserving order. The common
// feed for Lag over an aggregate-bearing sequence.
func Values(records []row.Record, field string) []row.Value {
	out := make([]row.Value, len(records))
	for i, rec := range records {
		out[i] = rec.Get(field)
	}
	return out
}
