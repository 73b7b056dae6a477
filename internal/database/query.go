package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Option narrows or shapes a store lookup.
type Option func(*Query)

// Query accumulates conditions, ordering and pagination for store lookups.
// Stores build one from options and apply it to a GORM session.
type Query struct {
	clauses []clause
	orders  []order
	limit   int
	offset  int
}

type clause struct {
	expr string
	args []any
}

type order struct {
	field     string
	ascending bool
}

// NewQuery builds a Query from options.
func NewQuery(options ...Option) Query {
	var q Query
	for _, opt := range options {
		opt(&q)
	}
	return q
}

// Apply translates the query onto a GORM session, including ordering and
// pagination.
func (q Query) Apply(db *gorm.DB) *gorm.DB {
	db = q.ApplyConditions(db)
	for _, o := range q.orders {
		dir := "ASC"
		if !o.ascending {
			dir = "DESC"
		}
		db = db.Order(fmt.Sprintf("%s %s", o.field, dir))
	}
	if q.limit > 0 {
		db = db.Limit(q.limit)
	}
	if q.offset > 0 {
		db = db.Offset(q.offset)
	}
	return db
}

// ApplyConditions translates only the WHERE clauses, for COUNT queries.
func (q Query) ApplyConditions(db *gorm.DB) *gorm.DB {
	for _, c := range q.clauses {
		db = db.Where(c.expr, c.args...)
	}
	return db
}

// Where adds a field = value condition.
func Where(field string, value any) Option {
	return func(q *Query) {
		q.clauses = append(q.clauses, clause{expr: field + " = ?", args: []any{value}})
	}
}

// WhereIn adds a field IN (values) condition.
func WhereIn(field string, values any) Option {
	return func(q *Query) {
		q.clauses = append(q.clauses, clause{expr: field + " IN ?", args: []any{values}})
	}
}

// WhereExpr adds a raw SQL condition with placeholders.
func WhereExpr(expr string, args ...any) Option {
	return func(q *Query) {
		q.clauses = append(q.clauses, clause{expr: expr, args: args})
	}
}

// OrderAsc sorts ascending on field.
func OrderAsc(field string) Option {
	return func(q *Query) {
		q.orders = append(q.orders, order{field: field, ascending: true})
	}
}

// OrderDesc sorts descending on field.
func OrderDesc(field string) Option {
	return func(q *Query) {
		q.orders = append(q.orders, order{field: field, ascending: false})
	}
}

// Limit caps the result count; zero means unlimited.
func Limit(n int) Option {
	return func(q *Query) { q.limit = n }
}

// Offset skips the first n results.
func Offset(n int) Option {
	return func(q *Query) { q.offset = n }
}
