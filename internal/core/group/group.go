package group

import (
	"fmt"
	"strings"

	"github.com/metrika-lab/metrika/internal/core/row"
)

// Key identifies a partition: the canonical encoding of an ordered tuple of
// field values. Two records share a partition iff their Keys are equal.
type Key string

// Partition is an ordered run of records sharing a group key. Order is the
// relative ingestion order of the input sequence; window computations rely
// on it being stable.
type Partition struct {
	Key     Key
	Values  []row.Value // the key tuple, in key-field order
	Records []row.Record
}

// Len returns the number of records in the partition.
func (p Partition) Len() int { return len(p.Records) }

// Result is the outcome of a grouping pass. Partitions appear in order of
// first key occurrence. Skipped counts records excluded because a key field
// was missing (InvalidGroupKey); they never abort the pass.
type Result struct {
	Partitions []Partition
	Skipped    int
}

// Get returns the partition for a key tuple, if present.
func (r Result) Get(values ...row.Value) (Partition, bool) {
	want := encodeKey(values)
	for _, p := range r.Partitions {
		if p.Key == want {
			return p, true
		}
	}
	return Partition{}, false
}

// KeyFunc extracts a group key tuple from a record. A false return excludes
// the record from grouping.
type KeyFunc func(row.Record) ([]row.Value, bool)

// ByFields builds a KeyFunc over named fields. A record missing any of the
// fields (absent, not merely NULL) is excluded; NULL key components group
// together, matching GROUP BY semantics over nullable columns.
func ByFields(fields ...string) KeyFunc {
	return func(r row.Record) ([]row.Value, bool) {
		values := make([]row.Value, 0, len(fields))
		for _, f := range fields {
			if !r.Has(f) {
				return nil, false
			}
			values = append(values, r.Get(f))
		}
		return values, true
	}
}

// By partitions records by keyFn. Every accepted record lands in exactly one
// partition; partitions preserve the relative order of the input. Pure: the
// input slice and its records are never mutated.
func By(records []row.Record, keyFn KeyFunc) Result {
	index := make(map[Key]int)
	var out Result
	for _, rec := range records {
		values, ok := keyFn(rec)
		if !ok {
			out.Skipped++
			continue
		}
		k := encodeKey(values)
		i, seen := index[k]
		if !seen {
			i = len(out.Partitions)
			index[k] = i
			out.Partitions = append(out.Partitions, Partition{Key: k, Values: values})
		}
		out.Partitions[i].Records = append(out.Partitions[i].Records, rec)
	}
	return out
}

// ByField is the single-field convenience form of By. It returns a
// structural error when field is absent from every record — the caller asked
// to group on a column the schema does not have.
func ByField(records []row.Record, field string) (Result, error) {
	res := By(records, ByFields(field))
	if len(records) > 0 && res.Skipped == len(records) {
		return Result{}, fmt.Errorf("group: field %q absent from all %d records", field, len(records))
	}
	return res, nil
}

func encodeKey(values []row.Value) Key {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.Canonical()
	}
	return Key(strings.Join(parts, "\x1f"))
}
