package report

import (
	"context"
	"time"

	"github.com/metrika-lab/metrika/internal/core/group"
	"github.com/metrika-lab/metrika/internal/core/metric"
	"github.com/metrika-lab/metrika/internal/core/row"
	"github.com/metrika-lab/metrika/internal/core/window"
	"github.com/metrika-lab/metrika/internal/source"
	"github.com/shopspring/decimal"
)

// withMonth derives calendar-month bucket fields from a date field:
// month_start (sortable date) and month (the "2006-01" label). Records
// whose date is NULL or missing are passed through unchanged, so month
// grouping excludes and counts them.
func withMonth(records []row.Record, dateField string) []row.Record {
	out := make([]row.Record, 0, len(records))
	for _, rec := range records {
		t, ok := rec.Get(dateField).Date()
		if !ok {
			out = append(out, rec)
			continue
		}
		m := row.TruncMonth(t)
		out = append(out, derive(rec, row.Record{
			"month_start": row.Date(m),
			"month":       row.Str(row.MonthLabel(m)),
		}))
	}
	return out
}

// partitionIndex keys single-field partitions by their key value for
// outer-join-style lookups against a candidate entity.
func partitionIndex(res group.Result) map[string]group.Partition {
	out := make(map[string]group.Partition, len(res.Partitions))
	for _, p := range res.Partitions {
		out[p.Values[0].Canonical()] = p
	}
	return out
}

// MonthlyRevenueTrend buckets completed orders by calendar month and tracks
// month-over-month revenue movement via a one-row lag.
func (e *Engine) MonthlyRevenueTrend(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameMonthlyRevenueTrend)

	orders, err := e.completedOrders(ctx)
	if err != nil {
		return Table{}, err
	}

	res := group.By(withMonth(orders, "order_date"), group.ByFields("month_start"))
	diag.skip(source.EntityOrders, res.Skipped)

	rows := make([]row.Record, 0, len(res.Partitions))
	for _, p := range res.Partitions {
		rows = append(rows, row.Record{
			"month_start":     p.Values[0],
			"month":           p.Records[0].Get("month"),
			"total_orders":    p.Count(),
			"revenue":         p.Aggregate(group.OpSum, "total_amount"),
			"avg_order_value": p.Aggregate(group.OpAvg, "total_amount"),
		})
	}
	sortRows(rows, asc("month_start"))

	revenue := window.Values(rows, "revenue")
	previous := window.Lag(revenue, 1)
	for i, r := range rows {
		r["revenue_growth"] = metric.Round2(metric.GrowthDelta(revenue[i], previous[i]))
		r["revenue_growth_pct"] = metric.DisplayPct(metric.GrowthPct(revenue[i], previous[i]))
		r["revenue"] = metric.Round2(r["revenue"])
		r["avg_order_value"] = metric.Round2(r["avg_order_value"])
	}

	return Table{
		Name:    NameMonthlyRevenueTrend,
		Columns: []string{"month", "total_orders", "revenue", "avg_order_value", "revenue_growth", "revenue_growth_pct"},
		Rows:    rows,
		Diag:    diag,
	}, nil
}

// productLines joins order items to completed orders and products, deriving
// per-line revenue and cost. Items whose order is not completed are dropped;
// items referencing an unknown product keep NULL line values so sums skip
// them.
func (e *Engine) productLines(ctx context.Context, diag *Diagnostics) ([]row.Record, []row.Record, error) {
	items, err := e.rows(ctx, source.EntityOrderItems)
	if err != nil {
		return nil, nil, err
	}
	products, err := e.rows(ctx, source.EntityProducts)
	if err != nil {
		return nil, nil, err
	}
	orders, err := e.completedOrders(ctx)
	if err != nil {
		return nil, nil, err
	}

	ordersByID := indexBy(orders, "id")
	productsByID := indexBy(products, "id")

	var lines []row.Record
	for _, item := range items {
		orderID := item.Get("order_id")
		if orderID.IsNull() {
			diag.skip(source.EntityOrderItems, 1)
			continue
		}
		if _, ok := ordersByID[orderID.Canonical()]; !ok {
			continue // order missing or not completed
		}

		fields := row.Record{
			"line_revenue": row.Null(),
			"line_cost":    row.Null(),
		}
		qty, qok := item.Get("quantity").Decimal()
		price, pok := item.Get("unit_price").Decimal()
		if qok && pok {
			fields["line_revenue"] = row.Dec(qty.Mul(price))
		}
		if product, ok := productsByID[item.Get("product_id").Canonical()]; ok {
			fields["category"] = product.Get("category")
			fields["product_name"] = product.Get("name")
			if cost, cok := product.Get("cost").Decimal(); qok && cok {
				fields["line_cost"] = row.Dec(qty.Mul(cost))
			}
		}
		lines = append(lines, derive(item, fields))
	}
	return lines, products, nil
}

// TopProducts ranks products by completed-order revenue, RANK() semantics
// over the full-precision revenue, top 10.
func (e *Engine) TopProducts(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameTopProducts)

	lines, products, err := e.productLines(ctx, &diag)
	if err != nil {
		return Table{}, err
	}
	productsByID := indexBy(products, "id")

	res := group.By(lines, group.ByFields("product_id"))
	diag.skip(source.EntityOrderItems, res.Skipped)

	rows := make([]row.Record, 0, len(res.Partitions))
	for _, p := range res.Partitions {
		product, ok := productsByID[p.Values[0].Canonical()]
		if !ok {
			diag.skip(source.EntityProducts, p.Len())
			continue
		}
		revenue := p.Aggregate(group.OpSum, "line_revenue")
		cost := p.Aggregate(group.OpSum, "line_cost")
		rows = append(rows, row.Record{
			"product_name":      product.Get("name"),
			"category":          product.Get("category"),
			"units_sold":        p.Aggregate(group.OpSum, "quantity"),
			"revenue":           revenue,
			"profit":            metric.Round2(metric.Sub(revenue, cost)),
			"profit_margin_pct": metric.Round2(metric.MarginPct(revenue, cost)),
		})
	}

	sortRows(rows, desc("revenue"), asc("product_name"))
	for i, rank := range window.RankDesc(rows, "revenue") {
		rows[i]["rank"] = row.Int(int64(rank))
	}
	for _, r := range rows {
		r["revenue"] = metric.Round2(r["revenue"])
	}

	return Table{
		Name:    NameTopProducts,
		Columns: []string{"rank", "product_name", "category", "units_sold", "revenue", "profit", "profit_margin_pct"},
		Rows:    limitRows(rows, 10),
		Diag:    diag,
	}, nil
}

// CustomerLifetimeValue lists every customer — zero-order customers
// included with zero aggregates and the default segment — with order-count
// segmentation from the customer_segment ladder.
func (e *Engine) CustomerLifetimeValue(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameCustomerLifetimeValue)

	customers, err := e.rows(ctx, source.EntityCustomers)
	if err != nil {
		return Table{}, err
	}
	orders, err := e.completedOrders(ctx)
	if err != nil {
		return Table{}, err
	}

	res := group.By(orders, group.ByFields("customer_id"))
	diag.skip(source.EntityOrders, res.Skipped)
	byCustomer := partitionIndex(res)

	rows := make([]row.Record, 0, len(customers))
	for _, c := range customers {
		id := c.Get("id")
		if id.IsNull() {
			diag.skip(source.EntityCustomers, 1)
			continue
		}

		r := row.Record{
			"customer_name":    c.Get("name"),
			"email":            c.Get("email"),
			"total_orders":     row.Int(0),
			"lifetime_value":   row.Dec(decimal.Zero),
			"avg_order_value":  row.Null(),
			"first_order_date": row.Null(),
			"last_order_date":  row.Null(),
		}
		if p, ok := byCustomer[id.Canonical()]; ok {
			r["total_orders"] = p.Count()
			r["lifetime_value"] = metric.Round2(p.Aggregate(group.OpSum, "total_amount"))
			r["avg_order_value"] = metric.Round2(p.Aggregate(group.OpAvg, "total_amount"))
			byDate := window.SortByField(p.Records, "order_date", true)
			r["first_order_date"] = byDate[0].Get("order_date")
			if latest, ok := window.Latest(p.Records, "order_date"); ok {
				r["last_order_date"] = latest.Get("order_date")
			}
		}
		r["customer_segment"] = row.Str(e.ladders.CustomerSegment.Classify(r["total_orders"]))
		rows = append(rows, r)
	}

	sortRows(rows, desc("lifetime_value"), asc("customer_name"))

	return Table{
		Name: NameCustomerLifetimeValue,
		Columns: []string{"customer_name", "email", "total_orders", "lifetime_value",
			"avg_order_value", "first_order_date", "last_order_date", "customer_segment"},
		Rows: rows,
		Diag: diag,
	}, nil
}

// CategoryPerformance aggregates product lines per category. Categories
// with products but no completed sales still appear, zero-filled.
func (e *Engine) CategoryPerformance(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameCategoryPerformance)

	lines, products, err := e.productLines(ctx, &diag)
	if err != nil {
		return Table{}, err
	}

	catalog, err := group.ByField(products, "category")
	if err != nil {
		return Table{}, err
	}
	diag.skip(source.EntityProducts, catalog.Skipped)

	res := group.By(lines, group.ByFields("category"))
	diag.skip(source.EntityOrderItems, res.Skipped)
	byCategory := partitionIndex(res)

	total := decimal.Zero
	for _, p := range res.Partitions {
		if d, ok := p.Aggregate(group.OpSum, "line_revenue").Decimal(); ok {
			total = total.Add(d)
		}
	}
	totalRevenue := row.Dec(total)

	rows := make([]row.Record, 0, len(catalog.Partitions))
	for _, cat := range catalog.Partitions {
		r := row.Record{
			"category":          cat.Values[0],
			"products_count":    cat.Count(),
			"units_sold":        row.Int(0),
			"revenue":           row.Dec(decimal.Zero),
			"profit":            row.Null(),
			"profit_margin_pct": row.Null(),
			"revenue_share_pct": row.Null(),
		}
		if p, ok := byCategory[cat.Values[0].Canonical()]; ok {
			revenue := p.Aggregate(group.OpSum, "line_revenue")
			cost := p.Aggregate(group.OpSum, "line_cost")
			r["units_sold"] = p.Aggregate(group.OpSum, "quantity")
			r["revenue"] = revenue
			r["profit"] = metric.Round2(metric.Sub(revenue, cost))
			r["profit_margin_pct"] = metric.Round2(metric.MarginPct(revenue, cost))
			r["revenue_share_pct"] = metric.Round2(metric.RatioPct(revenue, totalRevenue))
		}
		rows = append(rows, r)
	}

	sortRows(rows, desc("revenue"), asc("category"))
	for i, rank := range window.RankDesc(rows, "revenue") {
		rows[i]["rank"] = row.Int(int64(rank))
	}
	for _, r := range rows {
		r["revenue"] = metric.Round2(r["revenue"])
	}

	return Table{
		Name: NameCategoryPerformance,
		Columns: []string{"rank", "category", "products_count", "units_sold", "revenue",
			"profit", "profit_margin_pct", "revenue_share_pct"},
		Rows: rows,
		Diag: diag,
	}, nil
}

// CustomerRetention counts how many customers reach their 1st through 5th
// completed order, as a share of the first-order base.
func (e *Engine) CustomerRetention(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameCustomerRetention)

	orders, err := e.completedOrders(ctx)
	if err != nil {
		return Table{}, err
	}

	res := group.By(orders, group.ByFields("customer_id"))
	diag.skip(source.EntityOrders, res.Skipped)

	const maxOrderNumber = 5
	reached := make([]int64, maxOrderNumber+1)
	for _, p := range res.Partitions {
		for _, n := range window.RowNumbers(p.Len()) {
			if n <= maxOrderNumber {
				reached[n]++
			}
		}
	}

	base := row.Int(reached[1])
	rows := make([]row.Record, 0, maxOrderNumber)
	for n := 1; n <= maxOrderNumber; n++ {
		customers := row.Int(reached[n])
		rows = append(rows, row.Record{
			"order_number":  row.Int(int64(n)),
			"customers":     customers,
			"retention_pct": metric.Round2(metric.RatioPct(customers, base)),
		})
	}

	return Table{
		Name:    NameCustomerRetention,
		Columns: []string{"order_number", "customers", "retention_pct"},
		Rows:    rows,
		Diag:    diag,
	}, nil
}

// SeasonalPattern folds completed orders onto the twelve calendar months
// across years. All twelve months are emitted, zero-filled when no order
// ever landed in one.
func (e *Engine) SeasonalPattern(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameSeasonalPattern)

	orders, err := e.completedOrders(ctx)
	if err != nil {
		return Table{}, err
	}

	enriched := make([]row.Record, 0, len(orders))
	for _, o := range orders {
		t, ok := o.Get("order_date").Date()
		if !ok {
			enriched = append(enriched, o)
			continue
		}
		enriched = append(enriched, derive(o, row.Record{
			"month_number": row.Int(int64(t.Month())),
		}))
	}

	res := group.By(enriched, group.ByFields("month_number"))
	diag.skip(source.EntityOrders, res.Skipped)
	byMonth := partitionIndex(res)

	rows := make([]row.Record, 0, 12)
	for m := time.January; m <= time.December; m++ {
		key := row.Int(int64(m))
		r := row.Record{
			"month_number":    key,
			"month_name":      row.Str(m.String()),
			"total_orders":    row.Int(0),
			"revenue":         row.Dec(decimal.Zero),
			"avg_order_value": row.Null(),
		}
		if p, ok := byMonth[key.Canonical()]; ok {
			r["total_orders"] = p.Count()
			r["revenue"] = metric.Round2(p.Aggregate(group.OpSum, "total_amount"))
			r["avg_order_value"] = metric.Round2(p.Aggregate(group.OpAvg, "total_amount"))
		}
		rows = append(rows, r)
	}

	return Table{
		Name:    NameSeasonalPattern,
		Columns: []string{"month_number", "month_name", "total_orders", "revenue", "avg_order_value"},
		Rows:    rows,
		Diag:    diag,
	}, nil
}

// GeographicDistribution aggregates customers and their completed-order
// revenue per country. Countries whose customers never ordered stay listed
// with zero aggregates.
func (e *Engine) GeographicDistribution(ctx context.Context) (Table, error) {
	diag := newDiagnostics(NameGeographicDistribution)

	customers, err := e.rows(ctx, source.EntityCustomers)
	if err != nil {
		return Table{}, err
	}
	orders, err := e.completedOrders(ctx)
	if err != nil {
		return Table{}, err
	}

	customerRes, err := group.ByField(customers, "country")
	if err != nil {
		return Table{}, err
	}
	diag.skip(source.EntityCustomers, customerRes.Skipped)

	customersByID := indexBy(customers, "id")
	enriched := make([]row.Record, 0, len(orders))
	for _, o := range orders {
		c, ok := customersByID[o.Get("customer_id").Canonical()]
		if !ok {
			enriched = append(enriched, o)
			continue // no country field: grouped out and counted
		}
		enriched = append(enriched, derive(o, row.Record{"country": c.Get("country")}))
	}

	orderRes := group.By(enriched, group.ByFields("country"))
	diag.skip(source.EntityOrders, orderRes.Skipped)
	byCountry := partitionIndex(orderRes)

	rows := make([]row.Record, 0, len(customerRes.Partitions))
	for _, cp := range customerRes.Partitions {
		r := row.Record{
			"country":         cp.Values[0],
			"customers":       cp.Count(),
			"total_orders":    row.Int(0),
			"revenue":         row.Dec(decimal.Zero),
			"avg_order_value": row.Null(),
		}
		if p, ok := byCountry[cp.Values[0].Canonical()]; ok {
			r["total_orders"] = p.Count()
			r["revenue"] = p.Aggregate(group.OpSum, "total_amount")
			r["avg_order_value"] = metric.Round2(p.Aggregate(group.OpAvg, "total_amount"))
		}
		rows = append(rows, r)
	}

	sortRows(rows, desc("revenue"), asc("country"))
	for i, rank := range window.RankDesc(rows, "revenue") {
		rows[i]["rank"] = row.Int(int64(rank))
	}
	for _, r := range rows {
		r["revenue"] = metric.Round2(r["revenue"])
	}

	return Table{
		Name:    NameGeographicDistribution,
		Columns: []string{"rank", "country", "customers", "total_orders", "revenue", "avg_order_value"},
		Rows:    rows,
		Diag:    diag,
	}, nil
}
