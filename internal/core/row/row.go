package row

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the scalar types a report row can carry.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindDecimal
	KindString
	KindDate
	KindBool
)

// Value is a typed scalar as delivered by a row source: integer ids and
// counts, decimal money/scores, dates, bounded strings, boolean flags, or
// SQL-style NULL. Values are immutable; all constructors copy.
type Value struct {
	kind Kind
	i    int64
	d    decimal.Decimal
	s    string
	t    time.Time
	b    bool
}

// Null is the absent value. It propagates through aggregates and derived
// metrics the way SQL NULL does: skipped by sum/avg/min/max, poisoning
// nothing.
func Null() Value { return Value{kind: KindNull} }

func Int(v int64) Value             { return Value{kind: KindInt, i: v} }
func Dec(v decimal.Decimal) Value   { return Value{kind: KindDecimal, d: v} }
func DecFromInt(v int64) Value      { return Dec(decimal.NewFromInt(v)) }
func DecFromString(s string) Value  { d, _ := decimal.NewFromString(s); return Dec(d) }
func Str(v string) Value            { return Value{kind: KindString, s: v} }
func Date(v time.Time) Value        { return Value{kind: KindDate, t: v.UTC()} }
func Bool(v bool) Value             { return Value{kind: KindBool, b: v} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Decimal returns the numeric content of the value. Ints coerce to decimal;
// bools coerce to 0/1 so boolean flags can feed counting aggregates. The
// second return is false for NULL and non-numeric kinds.
func (v Value) Decimal() (decimal.Decimal, bool) {
	switch v.kind {
	case KindDecimal:
		return v.d, true
	case KindInt:
		return decimal.NewFromInt(v.i), true
	case KindBool:
		if v.b {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	default:
		return decimal.Zero, false
	}
}

// Int64 returns the integer content, truncating decimals.
func (v Value) Int64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindDecimal:
		return v.d.IntPart(), true
	default:
		return 0, false
	}
}

func (v Value) String() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) Date() (time.Time, bool) {
	if v.kind != KindDate {
		return time.Time{}, false
	}
	return v.t, true
}

func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Equal compares two values by kind and content. NULL equals only NULL.
// Int and Decimal compare numerically, so a group key of Int(3) matches
// Dec(3) the way a relational equality would.
func (v Value) Equal(o Value) bool {
	if v.kind == KindNull || o.kind == KindNull {
		return v.kind == o.kind
	}
	vd, vok := v.Decimal()
	od, ook := o.Decimal()
	if vok && ook {
		return vd.Equal(od)
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindDate:
		return v.t.Equal(o.t)
	default:
		return false
	}
}

// Compare orders two non-null values of compatible kinds: -1, 0, or +1.
// Numeric kinds compare numerically, strings lexically, dates
// chronologically. NULL sorts before everything (SQL NULLS FIRST on ASC).
func (v Value) Compare(o Value) int {
	if v.kind == KindNull || o.kind == KindNull {
		switch {
		case v.kind == o.kind:
			return 0
		case v.kind == KindNull:
			return -1
		default:
			return 1
		}
	}
	vd, vok := v.Decimal()
	od, ook := o.Decimal()
	if vok && ook {
		return vd.Cmp(od)
	}
	switch v.kind {
	case KindString:
		switch {
		case v.s < o.s:
			return -1
		case v.s > o.s:
			return 1
		}
		return 0
	case KindDate:
		switch {
		case v.t.Before(o.t):
			return -1
		case v.t.After(o.t):
			return 1
		}
		return 0
	}
	return 0
}

// Canonical renders the value in a form stable enough to serve as a group
// key component. Distinct values of the same kind never collide.
func (v Value) Canonical() string {
	switch v.kind {
	case KindNull:
		return "\x00"
	case KindInt:
		return fmt.Sprintf("i:%d", v.i)
	case KindDecimal:
		return "d:" + v.d.String()
	case KindString:
		return "s:" + v.s
	case KindDate:
		return "t:" + v.t.Format(time.RFC3339)
	case KindBool:
		if v.b {
			return "b:1"
		}
		return "b:0"
	}
	return ""
}

// Display renders the value for tabular output. NULL renders empty, dates
// as 2006-01-02, decimals at their natural scale.
func (v Value) Display() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindDecimal:
		return v.d.String()
	case KindString:
		return v.s
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	}
	return ""
}

// Record is an immutable field-name → scalar mapping, one row from a
// source entity. Never mutated after ingestion; engines derive new records
// instead of writing back.
type Record map[string]Value

// Get returns the field value, or NULL when the field is absent.
func (r Record) Get(field string) Value {
	v, ok := r[field]
	if !ok {
		return Null()
	}
	return v
}

// Has reports whether the field is present, NULL included.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Clone copies the record so derived rows never alias source rows.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// TruncMonth truncates a timestamp to the first day of its month, UTC.
// The atomic unit of calendar bucketing for trend reports.
// Example: TruncMonth(2024-03-17 10:35) → 2024-03-01 00:00 UTC.
func TruncMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// MonthLabel renders a month bucket as "2006-01".
func MonthLabel(t time.Time) string {
	return t.UTC().Format("2006-01")
}
