package group

import (
	"math"

	"github.com/metrika-lab/metrika/internal/core/row"
	"github.com/shopspring/decimal"
)

// Supported aggregate operators.
const (
	OpCount  = "count"
	OpSum    = "sum"
	OpAvg    = "avg"
	OpMin    = "min"
	OpMax    = "max"
	OpStdDev = "stddev"
)

// Accumulator folds a partition's values into one aggregate. Implementations
// are single-use: create via the Operators registry, feed every row, read
// Result once. NULL field values are skipped by every operator except count,
// which counts rows regardless.
type Accumulator interface {
	// Add folds one field value into the running aggregate.
	Add(v row.Value)

	// Result returns the final aggregate. NULL when the operator is
	// undefined for what it saw: min/max/avg over no non-null input,
	// stddev over fewer than two.
	Result() row.Value
}

// Operators is the registry of aggregate operator factories. The report
// assembler's hot path is a map lookup — no switch to extend when adding
// an operator.
var Operators = map[string]func() Accumulator{
	OpCount:  func() Accumulator { return &countAcc{} },
	OpSum:    func() Accumulator { return &sumAcc{} },
	OpAvg:    func() Accumulator { return &avgAcc{} },
	OpMin:    func() Accumulator { return &minmaxAcc{keepLower: true} },
	OpMax:    func() Accumulator { return &minmaxAcc{} },
	OpStdDev: func() Accumulator { return &stddevAcc{} },
}

// ValidOperator reports whether op is a registered aggregate operator.
func ValidOperator(op string) bool {
	_, ok := Operators[op]
	return ok
}

// Aggregate runs one operator over a single field of a partition.
func (p Partition) Aggregate(op, field string) row.Value {
	factory, ok := Operators[op]
	if !ok {
		return row.Null()
	}
	acc := factory()
	for _, rec := range p.Records {
		acc.Add(rec.Get(field))
	}
	return acc.Result()
}

// Count counts the partition's rows, the COUNT(*) form.
func (p Partition) Count() row.Value {
	return row.Int(int64(len(p.Records)))
}

// CountDistinct counts distinct non-null values of a field.
func (p Partition) CountDistinct(field string) row.Value {
	seen := make(map[string]struct{})
	for _, rec := range p.Records {
		v := rec.Get(field)
		if v.IsNull() {
			continue
		}
		seen[v.Canonical()] = struct{}{}
	}
	return row.Int(int64(len(seen)))
}

// CountWhere counts rows satisfying pred, the FILTER (WHERE ...) form.
func (p Partition) CountWhere(pred func(row.Record) bool) row.Value {
	n := int64(0)
	for _, rec := range p.Records {
		if pred(rec) {
			n++
		}
	}
	return row.Int(n)
}

// countAcc counts every row, null or not.
type countAcc struct{ n int64 }

func (a *countAcc) Add(row.Value)     { a.n++ }
func (a *countAcc) Result() row.Value { return row.Int(a.n) }

// sumAcc accumulates the decimal sum of non-null values. An all-null input
// sums to zero, matching the zero-fill the assembler substitutes for
// missing aggregates.
type sumAcc struct{ total decimal.Decimal }

func (a *sumAcc) Add(v row.Value) {
	if d, ok := v.Decimal(); ok {
		a.total = a.total.Add(d)
	}
}
func (a *sumAcc) Result() row.Value { return row.Dec(a.total) }

// avgAcc holds composite state (sum + count) and divides at Result.
type avgAcc struct {
	total decimal.Decimal
	n     int64
}

func (a *avgAcc) Add(v row.Value) {
	if d, ok := v.Decimal(); ok {
		a.total = a.total.Add(d)
		a.n++
	}
}

func (a *avgAcc) Result() row.Value {
	if a.n == 0 {
		return row.Null()
	}
	return row.Dec(a.total.Div(decimal.NewFromInt(a.n)))
}

// minmaxAcc tracks one extreme of the non-null values seen.
type minmaxAcc struct {
	keepLower   bool
	current     decimal.Decimal
	initialized bool
}

func (a *minmaxAcc) Add(v row.Value) {
	d, ok := v.Decimal()
	if !ok {
		return
	}
	if !a.initialized {
		a.current = d
		a.initialized = true
		return
	}
	if a.keepLower == d.LessThan(a.current) {
		a.current = d
	}
}

func (a *minmaxAcc) Result() row.Value {
	if !a.initialized {
		return row.Null()
	}
	return row.Dec(a.current)
}

// stddevAcc computes the sample standard deviation (n−1 denominator) via
// Welford's recurrence. Fewer than two non-null inputs yield NULL, the
// one-row-group policy of the source reports.
type stddevAcc struct {
	n    int64
	mean decimal.Decimal
	m2   decimal.Decimal
}

func (a *stddevAcc) Add(v row.Value) {
	d, ok := v.Decimal()
	if !ok {
		return
	}
	a.n++
	delta := d.Sub(a.mean)
	a.mean = a.mean.Add(delta.Div(decimal.NewFromInt(a.n)))
	a.m2 = a.m2.Add(delta.Mul(d.Sub(a.mean)))
}

func (a *stddevAcc) Result() row.Value {
	if a.n < 2 {
		return row.Null()
	}
	variance := a.m2.Div(decimal.NewFromInt(a.n - 1))
	// Square root leaves decimal arithmetic; float64 precision is ample
	// for a dispersion statistic.
	f, _ := variance.Float64()
	if f < 0 {
		f = 0
	}
	return row.Dec(decimal.NewFromFloat(math.Sqrt(f)))
}
