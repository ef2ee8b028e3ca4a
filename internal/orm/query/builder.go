// Package query provides the query-builder capability shared by every document store.
// A Query is built fluently by the compiler and by named filters, then executed by a
// store; Apply evaluates it over materialized documents.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

// Direction is a sort direction
type Direction int

const (
	// Ascending sorts lowest first
	Ascending Direction = 1
	// Descending sorts highest first
	Descending Direction = -1
)

// SortField is one key of a sort specification
type SortField struct {
	Field     string
	Direction Direction
}

// Sort is an ordered sort specification. A field appears at most once.
type Sort []SortField

// Set adds a field, or overwrites the direction of a field already present
// while keeping its original position.
func (s Sort) Set(field string, dir Direction) Sort {
	for i := range s {
		if s[i].Field == field {
			s[i].Direction = dir
			return s
		}
	}
	return append(s, SortField{Field: field, Direction: dir})
}

// Fields returns the sort keys in order
func (s Sort) Fields() []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.Field
	}
	return out
}

// Direction returns the direction for a field
func (s Sort) Direction(field string) (Direction, bool) {
	for _, f := range s {
		if f.Field == field {
			return f.Direction, true
		}
	}
	return 0, false
}

// String renders the sort in query-string form, e.g. "name,-hobby"
func (s Sort) String() string {
	parts := make([]string, len(s))
	for i, f := range s {
		if f.Direction == Descending {
			parts[i] = "-" + f.Field
		} else {
			parts[i] = f.Field
		}
	}
	return strings.Join(parts, ",")
}

// Population asks the store to replace reference ids in Field with the
// referenced documents of Collection
type Population struct {
	Field      string
	Collection string
}

// Query is a fluent description of a find over one collection
type Query struct {
	collection  string
	conditions  []*Condition
	sort        Sort
	limit       *int
	skip        *int
	populations []Population
}

// New creates a new query over the named collection
func New(collection string) *Query {
	return &Query{
		collection:  collection,
		conditions:  make([]*Condition, 0),
		populations: make([]Population, 0),
	}
}

// Collection returns the collection the query targets
func (q *Query) Collection() string {
	return q.collection
}

// Where adds a condition on a field
func (q *Query) Where(field string, op Operator, value interface{}) *Query {
	q.conditions = append(q.conditions, &Condition{
		Field:    field,
		Operator: op,
		Value:    value,
	})
	return q
}

// WhereEq adds an equality condition. A nil value matches null or missing fields.
func (q *Query) WhereEq(field string, value interface{}) *Query {
	return q.Where(field, OpEqual, value)
}

// WhereNe adds an inequality condition
func (q *Query) WhereNe(field string, value interface{}) *Query {
	return q.Where(field, OpNotEqual, value)
}

// WhereGt adds a greater-than condition
func (q *Query) WhereGt(field string, value interface{}) *Query {
	return q.Where(field, OpGreaterThan, value)
}

// WhereGte adds a greater-than-or-equal condition
func (q *Query) WhereGte(field string, value interface{}) *Query {
	return q.Where(field, OpGreaterThanOrEqual, value)
}

// WhereLt adds a less-than condition
func (q *Query) WhereLt(field string, value interface{}) *Query {
	return q.Where(field, OpLessThan, value)
}

// WhereLte adds a less-than-or-equal condition
func (q *Query) WhereLte(field string, value interface{}) *Query {
	return q.Where(field, OpLessThanOrEqual, value)
}

// WhereIn adds an IN condition
func (q *Query) WhereIn(field string, values ...interface{}) *Query {
	return q.Where(field, OpIn, values)
}

// WhereNotIn adds a NOT IN condition
func (q *Query) WhereNotIn(field string, values ...interface{}) *Query {
	return q.Where(field, OpNotIn, values)
}

// WhereRegex adds a regular expression condition on a string field
func (q *Query) WhereRegex(field string, re *regexp.Regexp) *Query {
	return q.Where(field, OpRegex, re)
}

// WhereNull adds an IS NULL condition
func (q *Query) WhereNull(field string) *Query {
	return q.Where(field, OpIsNull, nil)
}

// WhereNotNull adds an IS NOT NULL condition
func (q *Query) WhereNotNull(field string) *Query {
	return q.Where(field, OpIsNotNull, nil)
}

// Conditions returns the conditions added so far
func (q *Query) Conditions() []*Condition {
	return q.conditions
}

// Sort merges a sort specification into the query
func (q *Query) Sort(s Sort) *Query {
	for _, f := range s {
		q.sort = q.sort.Set(f.Field, f.Direction)
	}
	return q
}

// OrderBy adds a single sort key
func (q *Query) OrderBy(field string, dir Direction) *Query {
	if dir != Descending {
		dir = Ascending
	}
	q.sort = q.sort.Set(field, dir)
	return q
}

// SortSpec returns the sort specification
func (q *Query) SortSpec() Sort {
	return q.sort
}

// Limit caps the number of returned documents. A limit of zero means no limit.
func (q *Query) Limit(n int) *Query {
	q.limit = &n
	return q
}

// Skip skips the first n matching documents
func (q *Query) Skip(n int) *Query {
	q.skip = &n
	return q
}

// LimitValue returns the limit, if set
func (q *Query) LimitValue() (int, bool) {
	if q.limit == nil {
		return 0, false
	}
	return *q.limit, true
}

// SkipValue returns the skip, if set
func (q *Query) SkipValue() (int, bool) {
	if q.skip == nil {
		return 0, false
	}
	return *q.skip, true
}

// Populate requests population of a reference field
func (q *Query) Populate(field, collection string) *Query {
	for _, p := range q.populations {
		if p.Field == field {
			return q
		}
	}
	q.populations = append(q.populations, Population{Field: field, Collection: collection})
	return q
}

// Populations returns the requested populations in order
func (q *Query) Populations() []Population {
	return q.populations
}

// String renders the query for logs
func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString("FIND ")
	sb.WriteString(q.collection)

	if len(q.conditions) > 0 {
		parts := make([]string, len(q.conditions))
		for i, c := range q.conditions {
			parts[i] = c.String()
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}
	if len(q.sort) > 0 {
		sb.WriteString(" SORT ")
		sb.WriteString(q.sort.String())
	}
	if q.skip != nil {
		sb.WriteString(fmt.Sprintf(" SKIP %d", *q.skip))
	}
	if q.limit != nil {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", *q.limit))
	}
	for _, p := range q.populations {
		sb.WriteString(fmt.Sprintf(" POPULATE %s FROM %s", p.Field, p.Collection))
	}
	return sb.String()
}
