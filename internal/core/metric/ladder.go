package metric

import (
	"fmt"

	"github.com/metrika-lab/metrika/internal/core/row"
	"github.com/shopspring/decimal"
)

// Comparator operators a ladder rung may use. The strict/inclusive
// distinction is part of each ladder's contract and is never normalized.
const (
	CmpGTE = ">="
	CmpGT  = ">"
	CmpLT  = "<"
	CmpLTE = "<="
)

// Rung is one (comparator, threshold, label) step of a classification
// ladder.
type Rung struct {
	Cmp       string
	Threshold decimal.Decimal
	Label     string
}

// Ladder classifies a metric into an ordinal label: rungs are evaluated in
// declared order and the first satisfied one wins. A NULL metric falls
// through every rung to Default, as does a value no rung matches.
type Ladder struct {
	Name    string
	Rungs   []Rung
	Default string
}

// Classify returns the label for a metric value.
func (l Ladder) Classify(v row.Value) string {
	d, ok := v.Decimal()
	if !ok {
		return l.Default
	}
	for _, r := range l.Rungs {
		if r.matches(d) {
			return r.Label
		}
	}
	return l.Default
}

func (r Rung) matches(d decimal.Decimal) bool {
	c := d.Cmp(r.Threshold)
	switch r.Cmp {
	case CmpGTE:
		return c >= 0
	case CmpGT:
		return c > 0
	case CmpLT:
		return c < 0
	case CmpLTE:
		return c <= 0
	}
	return false
}

// Validate rejects ladders with unknown comparators or empty labels.
func (l Ladder) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("ladder name must not be empty")
	}
	if l.Default == "" {
		return fmt.Errorf("ladder %q: default label must not be empty", l.Name)
	}
	for i, r := range l.Rungs {
		switch r.Cmp {
		case CmpGTE, CmpGT, CmpLT, CmpLTE:
		default:
			return fmt.Errorf("ladder %q rung %d: unsupported comparator %q", l.Name, i, r.Cmp)
		}
		if r.Label == "" {
			return fmt.Errorf("ladder %q rung %d: label must not be empty", l.Name, i)
		}
	}
	return nil
}

func dec(i int64) decimal.Decimal { return decimal.NewFromInt(i) }

// CustomerSegment buckets customers by completed-order count. Zero orders
// (or no order history at all) lands on the default.
var CustomerSegment = Ladder{
	Name: "customer_segment",
	Rungs: []Rung{
		{Cmp: CmpGTE, Threshold: dec(10), Label: "VIP"},
		{Cmp: CmpGTE, Threshold: dec(5), Label: "Loyal"},
		{Cmp: CmpGTE, Threshold: dec(2), Label: "Regular"},
	},
	Default: "New",
}

// TurnoverRisk buckets departments by turnover-rate percentage. Boundaries
// are strict: exactly 20% is Medium Risk.
var TurnoverRisk = Ladder{
	Name: "turnover_risk",
	Rungs: []Rung{
		{Cmp: CmpGT, Threshold: dec(20), Label: "High Risk"},
		{Cmp: CmpGT, Threshold: dec(10), Label: "Medium Risk"},
	},
	Default: "Low Risk",
}

// TenureBracket buckets employees by elapsed days since hire. Evaluated
// low-to-high with strict <, so day 365 is already "1-2 years".
var TenureBracket = Ladder{
	Name: "tenure_bracket",
	Rungs: []Rung{
		{Cmp: CmpLT, Threshold: dec(365), Label: "< 1 year"},
		{Cmp: CmpLT, Threshold: dec(730), Label: "1-2 years"},
		{Cmp: CmpLT, Threshold: dec(1825), Label: "2-5 years"},
		{Cmp: CmpLT, Threshold: dec(3650), Label: "5-10 years"},
	},
	Default: "10+ years",
}

// PerformanceCategory buckets employees by latest review score. An employee
// with no reviews yet classifies as the default, never an error.
var PerformanceCategory = Ladder{
	Name: "performance_category",
	Rungs: []Rung{
		{Cmp: CmpGTE, Threshold: decimal.NewFromFloat(4.5), Label: "Star"},
		{Cmp: CmpGTE, Threshold: decimal.NewFromFloat(4.0), Label: "High"},
		{Cmp: CmpGTE, Threshold: decimal.NewFromFloat(3.5), Label: "Performer"},
	},
	Default: "Needs Training",
}
