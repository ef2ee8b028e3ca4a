package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/conduit-lang/restifier/internal/orm/query"
	"github.com/conduit-lang/restifier/internal/web/response"
	webquery "github.com/conduit-lang/restifier/internal/web/query"
)

// Compile applies the request's query parameters to q in a fixed order: limit,
// skip, sort, named filters, field equality, population. The first violation
// is returned as a *response.Error and later steps do not run.
func (m *Model) Compile(ctx context.Context, r *Request, q *query.Query) error {
	steps := []func(context.Context, *Request, *query.Query) error{
		m.compileLimit,
		m.compileSkip,
		m.compileSort,
		m.compileFilters,
		m.compileEquality,
		m.compilePopulate,
	}
	for _, step := range steps {
		if err := step(ctx, r, q); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) compileLimit(_ context.Context, r *Request, q *query.Query) error {
	n, present, err := parseCount("Limit", r.Query[webquery.ParamLimit])
	if err != nil {
		return err
	}
	if present {
		q.Limit(n)
	}
	return nil
}

func (m *Model) compileSkip(_ context.Context, r *Request, q *query.Query) error {
	n, present, err := parseCount("Skip", r.Query[webquery.ParamSkip])
	if err != nil {
		return err
	}
	if present {
		q.Skip(n)
	}
	return nil
}

// compileSort validates every key before any is applied
func (m *Model) compileSort(_ context.Context, r *Request, q *query.Query) error {
	spec := r.Query.Sort()
	if len(spec) == 0 {
		return nil
	}
	for _, f := range spec {
		if !m.schema.HasField(f.Field) {
			return response.BadRequest(`Field "%s" does not exist.`, f.Field)
		}
		if m.IsRestricted(f.Field) {
			return response.Unauthorized(`Cannot sort restricted field "%s".`, f.Field)
		}
	}
	q.Sort(spec)
	return nil
}

// compileFilters runs named filters left to right against the shared query
func (m *Model) compileFilters(ctx context.Context, r *Request, q *query.Query) error {
	raw, ok := r.Query[webquery.ParamFilter].(string)
	if !ok {
		return nil
	}
	for _, invocation := range webquery.ParseFilterString(raw) {
		if len(invocation) == 0 {
			continue
		}
		name := invocation[0]
		fn, exists := m.filters[name]
		if !exists {
			return response.BadRequest(`The filter "%s" does not exist.`, name)
		}
		if err := runFilter(ctx, fn, r, q, invocation[1:]); err != nil {
			return &response.Error{
				Status:  http.StatusBadRequest,
				Message: fmt.Sprintf(`Could not apply filter "%s" due to error: %s.`, name, strings.TrimSuffix(err.Error(), ".")),
				Err:     err,
			}
		}
	}
	return nil
}

// runFilter invokes a filter, turning a panic into an error
func runFilter(ctx context.Context, fn FilterFunc, r *Request, q *query.Query, args []string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if e, ok := p.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", p)
			}
		}
	}()
	return fn(ctx, r, q, args...)
}

// compileEquality turns every parameter naming a schema field into an equality
// condition. A nil value matches null or missing fields.
func (m *Model) compileEquality(_ context.Context, r *Request, q *query.Query) error {
	for _, field := range m.schema.Fields() {
		value, present := r.Query[field.Name]
		if !present || webquery.IsReserved(field.Name) {
			continue
		}
		if m.IsRestricted(field.Name) {
			return response.Unauthorized(`Cannot access restricted field "%s".`, field.Name)
		}
		cast, err := field.Cast(value)
		if err != nil {
			return &response.Error{
				Status:  http.StatusBadRequest,
				Message: fmt.Sprintf(`Invalid value for field "%s".`, field.Name),
				Err:     err,
			}
		}
		q.WhereEq(field.Name, cast)
	}
	return nil
}

// compilePopulate validates every requested field before any is applied
func (m *Model) compilePopulate(_ context.Context, r *Request, q *query.Query) error {
	fields := r.Query.Populate()
	if len(fields) == 0 {
		return nil
	}
	pops := make([]query.Population, 0, len(fields))
	for _, name := range fields {
		field, ok := m.schema.Field(name)
		if !ok {
			return response.BadRequest(`Field "%s" does not exist.`, name)
		}
		if !field.IsRelation() {
			return response.BadRequest(`Field "%s" does not support population.`, name)
		}
		if m.IsRestricted(name) {
			return response.Unauthorized(`Cannot populate restricted field "%s".`, name)
		}
		pops = append(pops, query.Population{Field: name, Collection: field.Ref})
	}
	for _, p := range pops {
		q.Populate(p.Field, p.Collection)
	}
	return nil
}

// parseCount reads a limit or skip value. Absent and null values are not
// present; anything that is not a non-negative number is a 400.
func parseCount(label string, value interface{}) (int, bool, error) {
	var f float64
	switch v := value.(type) {
	case nil:
		return 0, false, nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false, response.BadRequest("%s must be a number.", label)
		}
		f = parsed
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false, response.BadRequest("%s must be a number.", label)
		}
		f = parsed
	default:
		return 0, false, response.BadRequest("%s must be a number.", label)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, response.BadRequest("%s must be a number.", label)
	}
	if f < 0 {
		return 0, false, response.BadRequest("%s must not be negative.", label)
	}
	if f >= math.MaxInt {
		return math.MaxInt, true, nil
	}
	return int(f), true, nil
}
