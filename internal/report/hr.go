package report

import (
	"context"
	"strings"

	"github.com/metrika-lab/metrika/internal/core/group"
	"github.com/metrika-lab/metrika/internal/core/metric"
	"github.com/metrika-lab/metrika/internal/core/row"
	"github.com/metrika-lab/metrika/internal/core/window"
	"github.com/metrika-lab/metrika/internal/source"
)

func statusIs(rec row.Record, status string) bool {
	s, ok := rec.Get("status").String()
	return ok && strings.EqualFold(s, status)
}

func isDeparted(rec row.Record) bool {
	if !rec.Get("termination_date").IsNull() {
		return true
	}
	return statusIs(rec, "Terminated")
}

func boolFieldTrue(field string) func(row.Record) bool {
	return func(rec row.Record) bool {
		b, ok := rec.Get(field).Bool()
		return ok && b
	}
}

// activeEmployees fetches employees and keeps the active ones.
func (e *Engine) activeEmployees(ctx context.Context) ([]row.Record, error) {
	employees, err := e.rows(ctx, source.EntityEmployees)
	if err != nil {
		return nil, err
	}
	return filterRecords(employees, func(r row.Record) bool {
		return statusIs(r, "Active")
	}), nil
}

// latestReviews resolves the latest performance review per employee —
// maximum review_date, last-ingested on ties — keyed by the canonical
// employee id. Employees with no reviews simply have no entry; callers
// substitute NULL for the dependent fields.
func (e *Engine) latestReviews(ctx context.Context, diag *Diagnostics) (map[string]row.Record, error) {
	reviews, err := e.rows(ctx, source.EntityPerformanceReviews)
	if err != nil {
		return nil, err
	}
	res := group.By(reviews, group.ByFields("employee_id"))
	diag.skip(source.EntityPerformanceReviews, res.Skipped)

	out := make(map[string]row.Record, len(res.Partitions))
	for _, p := range res.Partitions {
		if latest, ok := window.Latest(p.Records, "review_date"); ok {
			out[p.Values[0].Canonical()] = latest
		}
	}
	return out, nil
}

// DepartmentTurnover reports headcount, departures, and turnover rate per
// department. Every department appears, zero-filled when empty; the numeric
// rate and its display string are separate fields so ordering never touches
// a formatted value.
func (e *Engine) DepartmentTurnover(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameDepartmentTurnover)

	departments, err := e.rows(ctx, source.EntityDepartments)
	if err != nil {
		return Table{}, err
	}
	employees, err := e.rows(ctx, source.EntityEmployees)
	if err != nil {
		return Table{}, err
	}

	res := group.By(employees, group.ByFields("department_id"))
	diag.skip(source.EntityEmployees, res.Skipped)
	byDept := partitionIndex(res)

	rows := make([]row.Record, 0, len(departments))
	for _, dept := range departments {
		id := dept.Get("id")
		if id.IsNull() {
			diag.skip(source.EntityDepartments, 1)
			continue
		}

		p := byDept[id.Canonical()] // zero partition when department is empty
		active := p.CountWhere(func(r row.Record) bool { return statusIs(r, "Active") })
		departed := p.CountWhere(isDeparted)

		activeN, _ := active.Int64()
		departedN, _ := departed.Int64()
		rate := metric.RatioPct(departed, row.Int(activeN+departedN))

		rows = append(rows, row.Record{
			"department_name":       dept.Get("name"),
			"active_employees":      active,
			"departures":            departed,
			"turnover_rate":         metric.Round2(rate),
			"turnover_rate_display": metric.DisplayPct(rate),
			"turnover_risk":         row.Str(e.ladders.TurnoverRisk.Classify(rate)),
		})
	}

	sortRows(rows, desc("turnover_rate"), asc("department_name"))

	return Table{
		Name: NameDepartmentTurnover,
		Columns: []string{"department_name", "active_employees", "departures",
			"turnover_rate", "turnover_rate_display", "turnover_risk"},
		Rows: rows,
		Diag: diag,
	}, nil
}

// SalaryStatistics summarizes active-employee salaries per department.
// Single-employee departments carry a NULL stddev; empty departments are
// listed with NULL statistics.
func (e *Engine) SalaryStatistics(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameSalaryStatistics)

	departments, err := e.rows(ctx, source.EntityDepartments)
	if err != nil {
		return Table{}, err
	}
	active, err := e.activeEmployees(ctx)
	if err != nil {
		return Table{}, err
	}

	res := group.By(active, group.ByFields("department_id"))
	diag.skip(source.EntityEmployees, res.Skipped)
	byDept := partitionIndex(res)

	rows := make([]row.Record, 0, len(departments))
	for _, dept := range departments {
		id := dept.Get("id")
		if id.IsNull() {
			diag.skip(source.EntityDepartments, 1)
			continue
		}

		r := row.Record{
			"department_name": dept.Get("name"),
			"employees":       row.Int(0),
			"min_salary":      row.Null(),
			"max_salary":      row.Null(),
			"avg_salary":      row.Null(),
			"stddev_salary":   row.Null(),
			"total_payroll":   row.Null(),
		}
		if p, ok := byDept[id.Canonical()]; ok {
			r["employees"] = p.Count()
			r["min_salary"] = p.Aggregate(group.OpMin, "salary")
			r["max_salary"] = p.Aggregate(group.OpMax, "salary")
			r["avg_salary"] = metric.Round2(p.Aggregate(group.OpAvg, "salary"))
			r["stddev_salary"] = metric.Round2(p.Aggregate(group.OpStdDev, "salary"))
			r["total_payroll"] = metric.Round2(p.Aggregate(group.OpSum, "salary"))
		}
		rows = append(rows, r)
	}

	sortRows(rows, desc("avg_salary"), asc("department_name"))

	return Table{
		Name: NameSalaryStatistics,
		Columns: []string{"department_name", "employees", "min_salary", "max_salary",
			"avg_salary", "stddev_salary", "total_payroll"},
		Rows: rows,
		Diag: diag,
	}, nil
}

// PerformanceTrend buckets reviews by calendar month and tracks the average
// score's month-over-month movement.
func (e *Engine) PerformanceTrend(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NamePerformanceTrend)

	reviews, err := e.rows(ctx, source.EntityPerformanceReviews)
	if err != nil {
		return Table{}, err
	}

	res := group.By(withMonth(reviews, "review_date"), group.ByFields("month_start"))
	diag.skip(source.EntityPerformanceReviews, res.Skipped)

	rows := make([]row.Record, 0, len(res.Partitions))
	for _, p := range res.Partitions {
		rows = append(rows, row.Record{
			"month_start": p.Values[0],
			"month":       p.Records[0].Get("month"),
			"reviews":     p.Count(),
			"avg_score":   p.Aggregate(group.OpAvg, "score"),
		})
	}
	sortRows(rows, asc("month_start"))

	scores := window.Values(rows, "avg_score")
	previous := window.Lag(scores, 1)
	for i, r := range rows {
		r["score_change"] = metric.Round2(metric.GrowthDelta(scores[i], previous[i]))
		r["avg_score"] = metric.Round2(r["avg_score"])
	}

	return Table{
		Name:    NamePerformanceTrend,
		Columns: []string{"month", "reviews", "avg_score", "score_change"},
		Rows:    rows,
		Diag:    diag,
	}, nil
}

// TrainingEffectiveness reports enrollment, completion, and pass rate per
// training program. Programs nobody enrolled in are listed with zero
// participants and a NULL pass rate.
func (e *Engine) TrainingEffectiveness(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameTrainingEffectiveness)

	programs, err := e.rows(ctx, source.EntityTrainingPrograms)
	if err != nil {
		return Table{}, err
	}
	enrollments, err := e.rows(ctx, source.EntityEmployeeTraining)
	if err != nil {
		return Table{}, err
	}

	res := group.By(enrollments, group.ByFields("program_id"))
	diag.skip(source.EntityEmployeeTraining, res.Skipped)
	byProgram := partitionIndex(res)

	rows := make([]row.Record, 0, len(programs))
	for _, program := range programs {
		id := program.Get("id")
		if id.IsNull() {
			diag.skip(source.EntityTrainingPrograms, 1)
			continue
		}

		p := byProgram[id.Canonical()]
		participants := p.Count()
		completions := p.CountWhere(func(r row.Record) bool {
			return !r.Get("completed_date").IsNull()
		})
		passed := p.CountWhere(boolFieldTrue("passed"))

		rows = append(rows, row.Record{
			"program_name":  program.Get("name"),
			"participants":  participants,
			"completions":   completions,
			"passed":        passed,
			"pass_rate_pct": metric.Round2(metric.RatioPct(passed, participants)),
		})
	}

	sortRows(rows, desc("pass_rate_pct"), asc("program_name"))

	return Table{
		Name:    NameTrainingEffectiveness,
		Columns: []string{"program_name", "participants", "completions", "passed", "pass_rate_pct"},
		Rows:    rows,
		Diag:    diag,
	}, nil
}

// ManagerEffectiveness scores managers by their active team's latest
// reviews: average score, goals-met share, and promotion-ready count.
func (e *Engine) ManagerEffectiveness(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameManagerEffectiveness)

	employees, err := e.rows(ctx, source.EntityEmployees)
	if err != nil {
		return Table{}, err
	}
	latest, err := e.latestReviews(ctx, &diag)
	if err != nil {
		return Table{}, err
	}

	employeesByID := indexBy(employees, "id")
	reports := filterRecords(employees, func(r row.Record) bool {
		return statusIs(r, "Active") && !r.Get("manager_id").IsNull()
	})

	res := group.By(reports, group.ByFields("manager_id"))
	diag.skip(source.EntityEmployees, res.Skipped)

	rows := make([]row.Record, 0, len(res.Partitions))
	for _, p := range res.Partitions {
		managerName := row.Null()
		if manager, ok := employeesByID[p.Values[0].Canonical()]; ok {
			managerName = manager.Get("name")
		}

		var teamReviews []row.Record
		for _, member := range p.Records {
			if review, ok := latest[member.Get("id").Canonical()]; ok {
				teamReviews = append(teamReviews, review)
			}
		}
		team := group.Partition{Records: teamReviews}
		reviewed := team.Count()
		goalsMet := team.CountWhere(boolFieldTrue("goals_met"))

		rows = append(rows, row.Record{
			"manager_name":    managerName,
			"team_size":       p.Count(),
			"avg_team_score":  metric.Round2(team.Aggregate(group.OpAvg, "score")),
			"goals_met_pct":   metric.Round2(metric.RatioPct(goalsMet, reviewed)),
			"promotion_ready": team.CountWhere(boolFieldTrue("promotion_ready")),
		})
	}

	sortRows(rows, desc("avg_team_score"), asc("manager_name"))

	return Table{
		Name: NameManagerEffectiveness,
		Columns: []string{"manager_name", "team_size", "avg_team_score",
			"goals_met_pct", "promotion_ready"},
		Rows: rows,
		Diag: diag,
	}, nil
}

// TenureDistribution brackets active employees by elapsed days since hire,
// in the ladder's declared bracket order.
func (e *Engine) TenureDistribution(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameTenureDistribution)

	active, err := e.activeEmployees(ctx)
	if err != nil {
		return Table{}, err
	}

	now := e.now().UTC()
	enriched := make([]row.Record, 0, len(active))
	for _, emp := range active {
		hired, ok := emp.Get("hire_date").Date()
		if !ok {
			diag.skip(source.EntityEmployees, 1)
			continue
		}
		days := int64(now.Sub(hired).Hours() / 24)
		enriched = append(enriched, derive(emp, row.Record{
			"tenure_bracket": row.Str(e.ladders.TenureBracket.Classify(row.Int(days))),
		}))
	}

	res := group.By(enriched, group.ByFields("tenure_bracket"))
	byBracket := partitionIndex(res)
	workforce := row.Int(int64(len(enriched)))

	// Brackets come out in the ladder's declared order, default bucket last,
	// zero-filled when no employee lands in one.
	ladder := e.ladders.TenureBracket
	labels := make([]string, 0, len(ladder.Rungs)+1)
	for _, rung := range ladder.Rungs {
		labels = append(labels, rung.Label)
	}
	labels = append(labels, ladder.Default)

	rows := make([]row.Record, 0, len(labels))
	for _, label := range labels {
		r := row.Record{
			"tenure_bracket": row.Str(label),
			"employees":      row.Int(0),
			"avg_salary":     row.Null(),
			"workforce_pct":  row.Null(),
		}
		if p, ok := byBracket[row.Str(label).Canonical()]; ok {
			r["employees"] = p.Count()
			r["avg_salary"] = metric.Round2(p.Aggregate(group.OpAvg, "salary"))
			r["workforce_pct"] = metric.Round2(metric.RatioPct(p.Count(), workforce))
		}
		rows = append(rows, r)
	}

	return Table{
		Name:    NameTenureDistribution,
		Columns: []string{"tenure_bracket", "employees", "avg_salary", "workforce_pct"},
		Rows:    rows,
		Diag:    diag,
	}, nil
}

// HiringTrends buckets all hires by calendar month with month-over-month
// growth via a one-row lag.
func (e *Engine) HiringTrends(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameHiringTrends)

	employees, err := e.rows(ctx, source.EntityEmployees)
	if err != nil {
		return Table{}, err
	}

	res := group.By(withMonth(employees, "hire_date"), group.ByFields("month_start"))
	diag.skip(source.EntityEmployees, res.Skipped)

	rows := make([]row.Record, 0, len(res.Partitions))
	for _, p := range res.Partitions {
		rows = append(rows, row.Record{
			"month_start": p.Values[0],
			"month":       p.Records[0].Get("month"),
			"hires":       p.Count(),
		})
	}
	sortRows(rows, asc("month_start"))

	hires := window.Values(rows, "hires")
	previous := window.Lag(hires, 1)
	for i, r := range rows {
		r["hires_growth"] = metric.GrowthDelta(hires[i], previous[i])
		r["hires_growth_pct"] = metric.DisplayPct(metric.GrowthPct(hires[i], previous[i]))
	}

	return Table{
		Name:    NameHiringTrends,
		Columns: []string{"month", "hires", "hires_growth", "hires_growth_pct"},
		Rows:    rows,
		Diag:    diag,
	}, nil
}

// HighPerformers ranks active employees by their latest review score, top
// 10. Employees with no reviews keep NULL score and rank and classify into
// the ladder's default bucket rather than disappearing.
func (e *Engine) HighPerformers(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameHighPerformers)

	active, err := e.activeEmployees(ctx)
	if err != nil {
		return Table{}, err
	}
	departments, err := e.rows(ctx, source.EntityDepartments)
	if err != nil {
		return Table{}, err
	}
	latest, err := e.latestReviews(ctx, &diag)
	if err != nil {
		return Table{}, err
	}

	departmentsByID := indexBy(departments, "id")

	rows := make([]row.Record, 0, len(active))
	for _, emp := range active {
		r := row.Record{
			"employee_name":   emp.Get("name"),
			"department_name": row.Null(),
			"score_raw":       row.Null(),
			"latest_score":    row.Null(),
			"review_date":     row.Null(),
			"goals_met":       row.Null(),
			"rank":            row.Null(),
		}
		if dept, ok := departmentsByID[emp.Get("department_id").Canonical()]; ok {
			r["department_name"] = dept.Get("name")
		}
		if review, ok := latest[emp.Get("id").Canonical()]; ok {
			r["score_raw"] = review.Get("score")
			r["latest_score"] = metric.Round2(review.Get("score"))
			r["review_date"] = review.Get("review_date")
			r["goals_met"] = review.Get("goals_met")
		}
		r["performance_category"] = row.Str(e.ladders.PerformanceCategory.Classify(r["score_raw"]))
		rows = append(rows, r)
	}

	// NULL scores sort last under descending order; rank only the scored
	// prefix at full precision.
	sortRows(rows, desc("score_raw"), asc("employee_name"))
	scored := 0
	for scored < len(rows) && !rows[scored].Get("score_raw").IsNull() {
		scored++
	}
	for i, rank := range window.RankDesc(rows[:scored], "score_raw") {
		rows[i]["rank"] = row.Int(int64(rank))
	}

	return Table{
		Name: NameHighPerformers,
		Columns: []string{"rank", "employee_name", "department_name", "latest_score",
			"performance_category", "goals_met", "review_date"},
		Rows: limitRows(rows, 10),
		Diag: diag,
	}, nil
}
