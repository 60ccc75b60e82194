// Package report assembles the named business reports: it selects
// partitions by each report's group key, invokes aggregates and window
// values, applies derived metrics, and finishes with the declared ordering
// and row limit. All computation is pure over the row-source snapshot.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/metrika-lab/metrika/internal/core/metric"
	"github.com/metrika-lab/metrika/internal/core/row"
	"github.com/metrika-lab/metrika/internal/source"
	"golang.org/x/sync/errgroup"
)

// Ladders carries the classification ladders the reports use. Thresholds
// come from the built-ins unless a ladder repository overrides them.
type Ladders struct {
	CustomerSegment     metric.Ladder
	TurnoverRisk        metric.Ladder
	TenureBracket       metric.Ladder
	PerformanceCategory metric.Ladder
}

// DefaultLadders returns the built-in ladder set.
func DefaultLadders() Ladders {
	return Ladders{
		CustomerSegment:     metric.CustomerSegment,
		TurnoverRisk:        metric.TurnoverRisk,
		TenureBracket:       metric.TenureBracket,
		PerformanceCategory: metric.PerformanceCategory,
	}
}

// LaddersFrom resolves the report ladder set from a repository, picking up
// any YAML overrides.
func LaddersFrom(repo *metric.FileSystemLadderRepository) (Ladders, error) {
	var out Ladders
	for _, bind := range []struct {
		name string
		dst  *metric.Ladder
	}{
		{metric.CustomerSegment.Name, &out.CustomerSegment},
		{metric.TurnoverRisk.Name, &out.TurnoverRisk},
		{metric.TenureBracket.Name, &out.TenureBracket},
		{metric.PerformanceCategory.Name, &out.PerformanceCategory},
	} {
		ladder, err := repo.Get(bind.name)
		if err != nil {
			return Ladders{}, fmt.Errorf("resolving report ladders: %w", err)
		}
		*bind.dst = ladder
	}
	return out, nil
}

// Engine runs reports against a row source. Stateless between runs: every
// invocation recomputes from the source snapshot.
type Engine struct {
	src     source.Source
	ladders Ladders
	now     func() time.Time
}

// New builds an engine with the real clock.
func New(src source.Source, ladders Ladders) *Engine {
	return NewWithClock(src, ladders, time.Now)
}

// NewWithClock pins the clock, used by tests and by callers that want
// reproducible tenure/recency math for a fixed as-of date.
func NewWithClock(src source.Source, ladders Ladders, now func() time.Time) *Engine {
	return &Engine{src: src, ladders: ladders, now: now}
}

// Report names, in the order RunAll emits them.
const (
	NameMonthlyRevenueTrend    = "monthly_revenue_trend"
	NameTopProducts            = "top_products"
	NameCustomerLifetimeValue  = "customer_lifetime_value"
	NameCategoryPerformance    = "category_performance"
	NameCustomerRetention      = "customer_retention"
	NameSeasonalPattern        = "seasonal_pattern"
	NameGeographicDistribution = "geographic_distribution"
	NameDepartmentTurnover     = "department_turnover"
	NameSalaryStatistics       = "salary_statistics"
	NamePerformanceTrend       = "performance_trend"
	NameTrainingEffectiveness  = "training_effectiveness"
	NameManagerEffectiveness   = "manager_effectiveness"
	NameTenureDistribution     = "tenure_distribution"
	NameHiringTrends           = "hiring_trends"
	NameHighPerformers         = "high_performers"
)

type reportFunc func(context.Context) (Table, error)

func (e *Engine) reports() []struct {
	name string
	run  reportFunc
} {
	return []struct {
		name string
		run  reportFunc
	}{
		{NameMonthlyRevenueTrend, e.MonthlyRevenueTrend},
		{NameTopProducts, e.TopProducts},
		{NameCustomerLifetimeValue, e.CustomerLifetimeValue},
		{NameCategoryPerformance, e.CategoryPerformance},
		{NameCustomerRetention, e.CustomerRetention},
		{NameSeasonalPattern, e.SeasonalPattern},
		{NameGeographicDistribution, e.GeographicDistribution},
		{NameDepartmentTurnover, e.DepartmentTurnover},
		{NameSalaryStatistics, e.SalaryStatistics},
		{NamePerformanceTrend, e.PerformanceTrend},
		{NameTrainingEffectiveness, e.TrainingEffectiveness},
		{NameManagerEffectiveness, e.ManagerEffectiveness},
		{NameTenureDistribution, e.TenureDistribution},
		{NameHiringTrends, e.HiringTrends},
		{NameHighPerformers, e.HighPerformers},
	}
}

// Run executes a single report by name.
func (e *Engine) Run(ctx context.Context, name string) (Table, error) {
	for _, r := range e.reports() {
		if r.name == name {
			return r.run(ctx)
		}
	}
	return Table{}, fmt.Errorf("unknown report %q", name)
}

// Names lists every report in emission order.
func (e *Engine) Names() []string {
	rs := e.reports()
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.name
	}
	return out
}

// RunAll computes every report, fanned out one goroutine per report — each
// report reads only its own partitions, so the fan-out needs no locking.
// Tables come back in declared order. The first failing report fails the
// run.
func (e *Engine) RunAll(ctx context.Context) ([]Table, error) {
	rs := e.reports()
	tables := make([]Table, len(rs))

	g, ctx := errgroup.WithContext(ctx)
	for i, r := range rs {
		i, r := i, r
		g.Go(func() error {
			table, err := r.run(ctx)
			if err != nil {
				return fmt.Errorf("report %s: %w", r.name, err)
			}
			tables[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, t := range tables {
		if n := t.Diag.TotalSkipped(); n > 0 {
			slog.Warn("report skipped malformed records",
				"report", t.Name, "run_id", t.Diag.RunID, "skipped", n)
		}
	}
	return tables, nil
}

// rows fetches one entity's snapshot, wrapping failures as structural
// report errors.
func (e *Engine) rows(ctx context.Context, entity string) ([]row.Record, error) {
	records, err := e.src.Rows(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("row source %s: %w", entity, err)
	}
	return records, nil
}

// completedOrders fetches orders and keeps the completed ones; every sales
// report counts revenue over completed orders only.
func (e *Engine) completedOrders(ctx context.Context) ([]row.Record, error) {
	orders, err := e.rows(ctx, source.EntityOrders)
	if err != nil {
		return nil, err
	}
	return filterRecords(orders, func(r row.Record) bool {
		s, ok := r.Get("status").String()
		return ok && strings.EqualFold(s, "Completed")
	}), nil
}
