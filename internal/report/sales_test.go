package report

import (
	"context"
	"testing"
	"time"

	"github.com/metrika-lab/metrika/internal/core/row"
	"github.com/metrika-lab/metrika/internal/source"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) row.Value {
	return row.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func order(id, customerID int64, date row.Value, status, amount string) row.Record {
	return row.Record{
		"id":           row.Int(id),
		"customer_id":  row.Int(customerID),
		"order_date":   date,
		"status":       row.Str(status),
		"total_amount": row.DecFromString(amount),
	}
}

func customer(id int64, name, country string) row.Record {
	return row.Record{
		"id":      row.Int(id),
		"name":    row.Str(name),
		"email":   row.Str(name + "@example.com"),
		"country": row.Str(country),
		"city":    row.Str("Springfield"),
	}
}

func product(id int64, name, category, price, cost string) row.Record {
	return row.Record{
		"id":       row.Int(id),
		"name":     row.Str(name),
		"category": row.Str(category),
		"price":    row.DecFromString(price),
		"cost":     row.DecFromString(cost),
	}
}

func item(id, orderID, productID, qty int64, unitPrice string) row.Record {
	return row.Record{
		"id":         row.Int(id),
		"order_id":   row.Int(orderID),
		"product_id": row.Int(productID),
		"quantity":   row.Int(qty),
		"unit_price": row.DecFromString(unitPrice),
	}
}

func salesEngine(rows map[string][]row.Record) *Engine {
	return New(source.NewMemory(rows), DefaultLadders())
}

func TestMonthlyRevenueTrend_GrowthScenario(t *testing.T) {
	e := salesEngine(map[string][]row.Record{
		source.EntityOrders: {
			order(1, 1, day(2023, 1, 15), "Completed", "100"),
			order(2, 1, day(2023, 2, 10), "Completed", "150"),
			order(3, 1, day(2023, 3, 5), "Completed", "0"),
			order(4, 1, day(2023, 3, 6), "Pending", "999"), // not completed: excluded
		},
	})

	table, err := e.MonthlyRevenueTrend(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)

	months := []string{"2023-01", "2023-02", "2023-03"}
	revenue := []string{"100", "150", "0"}
	for i, r := range table.Rows {
		require.True(t, r.Get("month").Equal(row.Str(months[i])))
		require.True(t, r.Get("revenue").Equal(row.DecFromString(revenue[i])), "month %s", months[i])
		require.True(t, r.Get("total_orders").Equal(row.Int(1)))
	}

	// lag-based growth: first month NULL, then +50, then -150 / -100.00%
	require.True(t, table.Rows[0].Get("revenue_growth").IsNull())
	require.True(t, table.Rows[0].Get("revenue_growth_pct").IsNull())
	require.True(t, table.Rows[1].Get("revenue_growth").Equal(row.DecFromInt(50)))
	pct, _ := table.Rows[1].Get("revenue_growth_pct").String()
	require.Equal(t, "50.00%", pct)
	require.True(t, table.Rows[2].Get("revenue_growth").Equal(row.DecFromInt(-150)))
	pct, _ = table.Rows[2].Get("revenue_growth_pct").String()
	require.Equal(t, "-100.00%", pct)
}

func TestMonthlyRevenueTrend_NullOrderDateCountedNotFatal(t *testing.T) {
	e := salesEngine(map[string][]row.Record{
		source.EntityOrders: {
			order(1, 1, day(2023, 1, 15), "Completed", "100"),
			order(2, 1, row.Null(), "Completed", "50"),
		},
	})

	table, err := e.MonthlyRevenueTrend(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	require.Equal(t, 1, table.Diag.TotalSkipped())
}

func TestTopProducts_MarginAndRankScenario(t *testing.T) {
	e := salesEngine(map[string][]row.Record{
		source.EntityProducts: {
			product(1, "Widget A", "Widgets", "1000", "600"),
			product(2, "Widget B", "Widgets", "500", "500"),
		},
		source.EntityOrders: {
			order(1, 1, day(2024, 1, 10), "Completed", "1500"),
		},
		source.EntityOrderItems: {
			item(1, 1, 1, 1, "1000"),
			item(2, 1, 2, 1, "500"),
		},
	})

	table, err := e.TopProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	a, b := table.Rows[0], table.Rows[1]
	require.True(t, a.Get("product_name").Equal(row.Str("Widget A")))
	require.True(t, a.Get("rank").Equal(row.Int(1)))
	require.True(t, a.Get("profit_margin_pct").Equal(row.DecFromString("40.00")))
	require.True(t, a.Get("profit").Equal(row.DecFromInt(400)))

	require.True(t, b.Get("product_name").Equal(row.Str("Widget B")))
	require.True(t, b.Get("rank").Equal(row.Int(2)))
	require.True(t, b.Get("profit_margin_pct").Equal(row.Int(0)))
}

func TestTopProducts_RevenueTieSharesRank(t *testing.T) {
	e := salesEngine(map[string][]row.Record{
		source.EntityProducts: {
			product(1, "A", "X", "100", "50"),
			product(2, "B", "X", "100", "50"),
			product(3, "C", "X", "60", "30"),
		},
		source.EntityOrders: {order(1, 1, day(2024, 1, 10), "Completed", "260")},
		source.EntityOrderItems: {
			item(1, 1, 1, 1, "100"),
			item(2, 1, 2, 1, "100"),
			item(3, 1, 3, 1, "60"),
		},
	})

	table, err := e.TopProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)
	require.True(t, table.Rows[0].Get("rank").Equal(row.Int(1)))
	require.True(t, table.Rows[1].Get("rank").Equal(row.Int(1)))
	require.True(t, table.Rows[2].Get("rank").Equal(row.Int(3))) // gap after tie
}

func TestCustomerLifetimeValue_SegmentsAndZeroFill(t *testing.T) {
	orders := []row.Record{}
	id := int64(1)
	for i := 0; i < 10; i++ { // Vera: 10 completed orders → VIP
		orders = append(orders, order(id, 1, day(2024, 1, 1+i), "Completed", "100"))
		id++
	}
	orders = append(orders, order(id, 2, day(2024, 2, 1), "Completed", "40")) // Nick: 1 → New

	e := salesEngine(map[string][]row.Record{
		source.EntityCustomers: {
			customer(1, "Vera", "NL"),
			customer(2, "Nick", "NL"),
			customer(3, "Zoe", "DE"), // zero orders
		},
		source.EntityOrders: orders,
	})

	table, err := e.CustomerLifetimeValue(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)

	vera := table.Rows[0] // highest lifetime value first
	require.True(t, vera.Get("customer_name").Equal(row.Str("Vera")))
	require.True(t, vera.Get("total_orders").Equal(row.Int(10)))
	require.True(t, vera.Get("lifetime_value").Equal(row.DecFromInt(1000)))
	seg, _ := vera.Get("customer_segment").String()
	require.Equal(t, "VIP", seg)
	require.True(t, vera.Get("first_order_date").Equal(day(2024, 1, 1)))
	require.True(t, vera.Get("last_order_date").Equal(day(2024, 1, 10)))

	zoe := table.Rows[2]
	require.True(t, zoe.Get("customer_name").Equal(row.Str("Zoe")))
	require.True(t, zoe.Get("total_orders").Equal(row.Int(0)))
	require.True(t, zoe.Get("lifetime_value").Equal(row.Int(0)))
	require.True(t, zoe.Get("avg_order_value").IsNull())
	require.True(t, zoe.Get("first_order_date").IsNull())
	seg, _ = zoe.Get("customer_segment").String()
	require.Equal(t, "New", seg)
}

func TestCustomerRetention_FirstFiveOrderNumbers(t *testing.T) {
	var orders []row.Record
	id := int64(1)
	addOrders := func(customerID int64, n int) {
		for i := 0; i < n; i++ {
			orders = append(orders, order(id, customerID, day(2024, 1, 1+i), "Completed", "10"))
			id++
		}
	}
	addOrders(1, 1)
	addOrders(2, 3)
	addOrders(3, 6)

	e := salesEngine(map[string][]row.Record{source.EntityOrders: orders})

	table, err := e.CustomerRetention(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Rows, 5)

	wantCustomers := []int64{3, 2, 2, 1, 1}
	for i, r := range table.Rows {
		require.True(t, r.Get("order_number").Equal(row.Int(int64(i+1))))
		require.True(t, r.Get("customers").Equal(row.Int(wantCustomers[i])), "order_number %d", i+1)
	}
	require.True(t, table.Rows[0].Get("retention_pct").Equal(row.DecFromInt(100)))
	require.True(t, table.Rows[1].Get("retention_pct").Equal(row.DecFromString("66.67")))
}

func TestSeasonalPattern_AllTwelveMonthsZeroFilled(t *testing.T) {
	e := salesEngine(map[string][]row.Record{
		source.EntityOrders: {
			order(1, 1, day(2023, 6, 1), "Completed", "100"),
			order(2, 1, day(2024, 6, 15), "Completed", "200"), // same calendar month, next year
		},
	})

	table, err := e.SeasonalPattern(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Rows, 12)

	june := table.Rows[5]
	require.True(t, june.Get("month_name").Equal(row.Str("June")))
	require.True(t, june.Get("total_orders").Equal(row.Int(2)))
	require.True(t, june.Get("revenue").Equal(row.DecFromInt(300)))

	january := table.Rows[0]
	require.True(t, january.Get("total_orders").Equal(row.Int(0)))
	require.True(t, january.Get("revenue").Equal(row.Int(0)))
	require.True(t, january.Get("avg_order_value").IsNull())
}

func TestGeographicDistribution_ZeroOrderCountryListed(t *testing.T) {
	e := salesEngine(map[string][]row.Record{
		source.EntityCustomers: {
			customer(1, "Vera", "NL"),
			customer(2, "Nick", "NL"),
			customer(3, "Zoe", "DE"), // DE has customers but no orders
		},
		source.EntityOrders: {
			order(1, 1, day(2024, 1, 1), "Completed", "100"),
			order(2, 2, day(2024, 1, 2), "Completed", "50"),
		},
	})

	table, err := e.GeographicDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)

	nl := table.Rows[0]
	require.True(t, nl.Get("country").Equal(row.Str("NL")))
	require.True(t, nl.Get("customers").Equal(row.Int(2)))
	require.True(t, nl.Get("revenue").Equal(row.DecFromInt(150)))
	require.True(t, nl.Get("rank").Equal(row.Int(1)))

	de := table.Rows[1]
	require.True(t, de.Get("country").Equal(row.Str("DE")))
	require.True(t, de.Get("total_orders").Equal(row.Int(0)))
	require.True(t, de.Get("revenue").Equal(row.Int(0)))
	require.True(t, de.Get("avg_order_value").IsNull())
}

func TestCategoryPerformance_ShareAndZeroFill(t *testing.T) {
	e := salesEngine(map[string][]row.Record{
		source.EntityProducts: {
			product(1, "A", "Gadgets", "100", "60"),
			product(2, "B", "Gizmos", "50", "20"),
			product(3, "C", "Dusty", "10", "5"), // category with no sales
		},
		source.EntityOrders: {order(1, 1, day(2024, 3, 1), "Completed", "300")},
		source.EntityOrderItems: {
			item(1, 1, 1, 2, "100"),
			item(2, 1, 2, 2, "50"),
		},
	})

	table, err := e.CategoryPerformance(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Rows, 3)

	gadgets := table.Rows[0]
	require.True(t, gadgets.Get("category").Equal(row.Str("Gadgets")))
	require.True(t, gadgets.Get("revenue").Equal(row.DecFromInt(200)))
	require.True(t, gadgets.Get("revenue_share_pct").Equal(row.DecFromString("66.67")))
	require.True(t, gadgets.Get("rank").Equal(row.Int(1)))

	dusty := table.Rows[2]
	require.True(t, dusty.Get("category").Equal(row.Str("Dusty")))
	require.True(t, dusty.Get("products_count").Equal(row.Int(1)))
	require.True(t, dusty.Get("revenue").Equal(row.Int(0)))
	require.True(t, dusty.Get("profit_margin_pct").IsNull())
}
