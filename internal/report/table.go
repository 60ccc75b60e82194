package report

import (
	"sort"

	"github.com/google/uuid"
	"github.com/metrika-lab/metrika/internal/core/row"
)

// Table is one finished report: an ordered sequence of flat records plus the
// column order for tabular rendering or serialization.
type Table struct {
	Name    string
	Columns []string
	Rows    []row.Record
	Diag    Diagnostics
}

// Diagnostics summarizes per-record data problems encountered while
// assembling a report. Malformed records are counted here and excluded;
// they never fail the report.
type Diagnostics struct {
	RunID   uuid.UUID
	Report  string
	Skipped map[string]int // entity → records excluded from grouping
	Notes   []string
}

func newDiagnostics(report string) Diagnostics {
	return Diagnostics{
		RunID:   uuid.New(),
		Report:  report,
		Skipped: make(map[string]int),
	}
}

func (d *Diagnostics) skip(entity string, n int) {
	if n > 0 {
		d.Skipped[entity] += n
	}
}

// TotalSkipped sums skipped records across entities.
func (d Diagnostics) TotalSkipped() int {
	total := 0
	for _, n := range d.Skipped {
		total += n
	}
	return total
}

// orderBy is one sort key of a report's declared ordering.
type orderBy struct {
	field string
	desc  bool
}

func asc(field string) orderBy  { return orderBy{field: field} }
func desc(field string) orderBy { return orderBy{field: field, desc: true} }

// sortRows stably sorts report rows by the declared keys, compared at full
// precision. NULL sorts as the smallest value, so descending orders push
// unclassifiable rows to the bottom. The caller's slice is sorted in place:
// report rows are derived records the assembler owns.
func sortRows(rows []row.Record, keys ...orderBy) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			c := rows[i].Get(k.field).Compare(rows[j].Get(k.field))
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// limitRows truncates to the report's declared row limit. limit <= 0 means
// no limit.
func limitRows(rows []row.Record, limit int) []row.Record {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

// derive clones a source record and overlays derived fields, keeping the
// original immutable.
func derive(base row.Record, fields row.Record) row.Record {
	out := base.Clone()
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// filterRecords keeps the records satisfying pred, preserving order.
func filterRecords(records []row.Record, pred func(row.Record) bool) []row.Record {
	var out []row.Record
	for _, rec := range records {
		if pred(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// indexBy builds a lookup of records by the canonical encoding of one
// field. Later records win duplicate keys.
func indexBy(records []row.Record, field string) map[string]row.Record {
	out := make(map[string]row.Record, len(records))
	for _, rec := range records {
		v := rec.Get(field)
		if v.IsNull() {
			continue
		}
		out[v.Canonical()] = rec
	}
	return out
}
