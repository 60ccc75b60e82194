// Package source defines the row-source collaborator: whatever supplies the
// engine with finite, ordered sequences of typed records per entity.
// Persistence is the source's problem; the engine only reads.
package source

import (
	"context"
	"fmt"

	"github.com/metrika-lab/metrika/internal/core/row"
)

// Entity names of the two schemas the reports run over.
const (
	EntityCustomers          = "customers"
	EntityProducts           = "products"
	EntityOrders             = "orders"
	EntityOrderItems         = "order_items"
	EntityDepartments        = "departments"
	EntityEmployees          = "employees"
	EntityPerformanceReviews = "performance_reviews"
	EntityTrainingPrograms   = "training_programs"
	EntityEmployeeTraining   = "employee_training"
)

// Source delivers one entity's rows at a time. Rows returns the complete,
// ingestion-ordered sequence for the entity; an error here is structural
// and fails the whole report.
type Source interface {
	Rows(ctx context.Context, entity string) ([]row.Record, error)
}

// Memory is an in-process Source backed by a map, used by tests and
// fixtures. The zero value is empty; Put appends.
type Memory struct {
	rows map[string][]row.Record
}

// NewMemory builds a Memory source from entity → rows.
func NewMemory(rows map[string][]row.Record) *Memory {
	m := &Memory{rows: make(map[string][]row.Record, len(rows))}
	for entity, rs := range rows {
		m.rows[entity] = append(m.rows[entity], rs...)
	}
	return m
}

// Put appends rows to an entity, preserving insertion order.
func (m *Memory) Put(entity string, rs ...row.Record) {
	if m.rows == nil {
		m.rows = make(map[string][]row.Record)
	}
	m.rows[entity] = append(m.rows[entity], rs...)
}

// Rows returns the entity's rows. A known entity with no rows yields an
// empty sequence; an unknown entity is a structural error.
func (m *Memory) Rows(_ context.Context, entity string) ([]row.Record, error) {
	switch entity {
	case EntityCustomers, EntityProducts, EntityOrders, EntityOrderItems,
		EntityDepartments, EntityEmployees, EntityPerformanceReviews,
		EntityTrainingPrograms, EntityEmployeeTraining:
		return m.rows[entity], nil
	}
	return nil, fmt.Errorf("unknown entity %q", entity)
}
