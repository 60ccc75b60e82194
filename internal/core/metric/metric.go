// Package metric derives ratio and classification values from aggregates:
// growth deltas, margin percentages, and ordinal segment ladders. Ratio
// denominators of zero or NULL always resolve to NULL — division never
// raises and never produces a poison value.
package metric

import (
	"github.com/metrika-lab/metrika/internal/core/row"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// GrowthDelta is current − previous. NULL when either side is NULL.
func GrowthDelta(current, previous row.Value) row.Value {
	c, okc := current.Decimal()
	p, okp := previous.Decimal()
	if !okc || !okp {
		return row.Null()
	}
	return row.Dec(c.Sub(p))
}

// Sub is a − b with the NULL policy of the derived metrics: NULL when
// either operand is NULL. Profit and similar differences use this.
func Sub(a, b row.Value) row.Value {
	return GrowthDelta(a, b)
}

// GrowthPct is (current − previous) / previous × 100. NULL when previous is
// NULL or zero.
func GrowthPct(current, previous row.Value) row.Value {
	c, okc := current.Decimal()
	p, okp := previous.Decimal()
	if !okc || !okp || p.IsZero() {
		return row.Null()
	}
	return row.Dec(c.Sub(p).Div(p).Mul(hundred))
}

// MarginPct is (revenue − cost) / revenue × 100. NULL when revenue is NULL
// or zero.
func MarginPct(revenue, cost row.Value) row.Value {
	r, okr := revenue.Decimal()
	c, okc := cost.Decimal()
	if !okr || !okc || r.IsZero() {
		return row.Null()
	}
	return row.Dec(r.Sub(c).Div(r).Mul(hundred))
}

// RatioPct is numerator / denominator × 100, the generic share/rate form.
// NULL when the denominator is NULL or zero.
func RatioPct(numerator, denominator row.Value) row.Value {
	n, okn := numerator.Decimal()
	d, okd := denominator.Decimal()
	if !okn || !okd || d.IsZero() {
		return row.Null()
	}
	return row.Dec(n.Div(d).Mul(hundred))
}

// Round2 rounds a numeric value to two decimal places for presentation.
// Applied only at the output boundary: ranking and classification always
// see unrounded values.
func Round2(v row.Value) row.Value {
	d, ok := v.Decimal()
	if !ok {
		return row.Null()
	}
	return row.Dec(d.Round(2))
}

// DisplayPct renders a rounded percentage as "12.34%", empty for NULL. Kept
// separate from the numeric field so nothing ever sorts on a formatted
// string.
func DisplayPct(v row.Value) row.Value {
	d, ok := v.Decimal()
	if !ok {
		return row.Null()
	}
	return row.Str(d.Round(2).StringFixed(2) + "%")
}
