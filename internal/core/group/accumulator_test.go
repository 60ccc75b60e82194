package group

import (
	"testing"

	"github.com/metrika-lab/metrika/internal/core/row"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func partitionOf(amounts ...string) Partition {
	p := Partition{}
	for _, a := range amounts {
		p.Records = append(p.Records, row.Record{"amount": row.DecFromString(a)})
	}
	return p
}

func TestAggregate_Operators(t *testing.T) {
	p := partitionOf("10", "20", "30", "40")

	tests := []struct {
		op   string
		want string
	}{
		{OpCount, "4"},
		{OpSum, "100"},
		{OpAvg, "25"},
		{OpMin, "10"},
		{OpMax, "40"},
	}

	for _, tc := range tests {
		t.Run(tc.op, func(t *testing.T) {
			got := p.Aggregate(tc.op, "amount")
			require.True(t, got.Equal(row.DecFromString(tc.want)), "got %s", got.Display())
		})
	}
}

func TestAggregate_CountEqualsLenAndAvgIsSumOverCount(t *testing.T) {
	p := partitionOf("3", "7", "12.5")

	count := p.Aggregate(OpCount, "amount")
	require.True(t, count.Equal(row.Int(int64(p.Len()))))

	sum, _ := p.Aggregate(OpSum, "amount").Decimal()
	n, _ := count.Decimal()
	avg, _ := p.Aggregate(OpAvg, "amount").Decimal()
	require.True(t, sum.Div(n).Sub(avg).Abs().LessThan(decimal.NewFromFloat(1e-9)))
}

func TestAggregate_NullValuesSkipped(t *testing.T) {
	p := Partition{Records: []row.Record{
		{"amount": row.DecFromInt(10)},
		{"amount": row.Null()},
		{"amount": row.DecFromInt(20)},
	}}

	require.True(t, p.Aggregate(OpSum, "amount").Equal(row.DecFromInt(30)))
	require.True(t, p.Aggregate(OpAvg, "amount").Equal(row.DecFromInt(15)))
	// count counts rows, null or not
	require.True(t, p.Aggregate(OpCount, "amount").Equal(row.Int(3)))
}

func TestAggregate_MinMaxAvgOverAllNullsIsNull(t *testing.T) {
	p := Partition{Records: []row.Record{
		{"amount": row.Null()},
		{"amount": row.Null()},
	}}

	require.True(t, p.Aggregate(OpMin, "amount").IsNull())
	require.True(t, p.Aggregate(OpMax, "amount").IsNull())
	require.True(t, p.Aggregate(OpAvg, "amount").IsNull())
	// an all-null sum is the zero-fill value, not NULL
	require.True(t, p.Aggregate(OpSum, "amount").Equal(row.Int(0)))
}

func TestAggregate_StdDevSampleSemantics(t *testing.T) {
	// Sample stddev of {2, 4, 4, 4, 5, 5, 7, 9} is ~2.138.
	p := partitionOf("2", "4", "4", "4", "5", "5", "7", "9")
	got, ok := p.Aggregate(OpStdDev, "amount").Decimal()
	require.True(t, ok)
	f, _ := got.Float64()
	require.InDelta(t, 2.13809, f, 1e-4)
}

func TestAggregate_StdDevSingleRowIsNull(t *testing.T) {
	require.True(t, partitionOf("42").Aggregate(OpStdDev, "amount").IsNull())
	require.True(t, partitionOf().Aggregate(OpStdDev, "amount").IsNull())

	// two identical rows: defined, zero
	got := partitionOf("5", "5").Aggregate(OpStdDev, "amount")
	require.True(t, got.Equal(row.Int(0)))
}

func TestCountWhereAndCountDistinct(t *testing.T) {
	p := Partition{Records: []row.Record{
		{"v": row.Int(1), "flag": row.Bool(true)},
		{"v": row.Int(1), "flag": row.Bool(false)},
		{"v": row.Int(2), "flag": row.Bool(true)},
		{"v": row.Null(), "flag": row.Null()},
	}}

	require.True(t, p.CountDistinct("v").Equal(row.Int(2)))
	got := p.CountWhere(func(r row.Record) bool {
		b, ok := r.Get("flag").Bool()
		return ok && b
	})
	require.True(t, got.Equal(row.Int(2)))
}

func TestValidOperator(t *testing.T) {
	for _, op := range []string{OpCount, OpSum, OpAvg, OpMin, OpMax, OpStdDev} {
		require.True(t, ValidOperator(op))
	}
	require.False(t, ValidOperator("median"))
	require.False(t, ValidOperator(""))
}

func TestAggregate_DoesNotMutatePartition(t *testing.T) {
	p := partitionOf("1", "2", "3")
	before := p.Records[1].Get("amount")

	p.Aggregate(OpSum, "amount")
	p.Aggregate(OpStdDev, "amount")

	require.True(t, p.Records[1].Get("amount").Equal(before))
	require.Equal(t, 3, p.Len())
}
