package postgres

import "github.com/metrika-lab/metrika/internal/core/row"

// column pairs a result column with the scalar kind it scans into.
type column struct {
	name string
	kind row.Kind
}

// entityQuery is one read-only entity fetch. ORDER BY id (or the composite
// key) pins ingestion order so window tie-breaks stay deterministic across
// runs.
type entityQuery struct {
	query   string
	columns []column
}

var entityQueries = map[string]entityQuery{
	"customers": {
		query: `
			SELECT id, name, email, country, city, created_at
			FROM customers
			ORDER BY id
		`,
		columns: []column{
			{"id", row.KindInt},
			{"name", row.KindString},
			{"email", row.KindString},
			{"country", row.KindString},
			{"city", row.KindString},
			{"created_at", row.KindDate},
		},
	},
	"products": {
		query: `
			SELECT id, name, category, price, cost
			FROM products
			ORDER BY id
		`,
		columns: []column{
			{"id", row.KindInt},
			{"name", row.KindString},
			{"category", row.KindString},
			{"price", row.KindDecimal},
			{"cost", row.KindDecimal},
		},
	},
	"orders": {
		query: `
			SELECT id, customer_id, order_date, status, total_amount
			FROM orders
			ORDER BY id
		`,
		columns: []column{
			{"id", row.KindInt},
			{"customer_id", row.KindInt},
			{"order_date", row.KindDate},
			{"status", row.KindString},
			{"total_amount", row.KindDecimal},
		},
	},
	"order_items": {
		query: `
			SELECT id, order_id, product_id, quantity, unit_price
			FROM order_items
			ORDER BY id
		`,
		columns: []column{
			{"id", row.KindInt},
			{"order_id", row.KindInt},
			{"product_id", row.KindInt},
			{"quantity", row.KindInt},
			{"unit_price", row.KindDecimal},
		},
	},
	"departments": {
		query: `
			SELECT id, name
			FROM departments
			ORDER BY id
		`,
		columns: []column{
			{"id", row.KindInt},
			{"name", row.KindString},
		},
	},
	"employees": {
		query: `
			SELECT id, name, department_id, manager_id, hire_date,
			       termination_date, salary, status
			FROM employees
			ORDER BY id
		`,
		columns: []column{
			{"id", row.KindInt},
			{"name", row.KindString},
			{"department_id", row.KindInt},
			{"manager_id", row.KindInt},
			{"hire_date", row.KindDate},
			{"termination_date", row.KindDate},
			{"salary", row.KindDecimal},
			{"status", row.KindString},
		},
	},
	"performance_reviews": {
		query: `
			SELECT id, employee_id, review_date, score, goals_met, promotion_ready
			FROM performance_reviews
			ORDER BY id
		`,
		columns: []column{
			{"id", row.KindInt},
			{"employee_id", row.KindInt},
			{"review_date", row.KindDate},
			{"score", row.KindDecimal},
			{"goals_met", row.KindBool},
			{"promotion_ready", row.KindBool},
		},
	},
	"training_programs": {
		query: `
			SELECT id, name
			FROM training_programs
			ORDER BY id
		`,
		columns: []column{
			{"id", row.KindInt},
			{"name", row.KindString},
		},
	},
	"employee_training": {
		query: `
			SELECT employee_id, program_id, completed_date, passed
			FROM employee_training
			ORDER BY employee_id, program_id
		`,
		columns: []column{
			{"employee_id", row.KindInt},
			{"program_id", row.KindInt},
			{"completed_date", row.KindDate},
			{"passed", row.KindBool},
		},
	},
}
