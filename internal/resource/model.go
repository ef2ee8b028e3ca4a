// Package resource binds document collections to their REST exposure rules and
// runs the request pipeline: modifiers, query compilation, store execution and
// document transforms.
//
// A Model is configured during application setup through its declarative API.
// Configuration must finish before requests are served; the request path only
// reads a Model and is safe for concurrent use under that contract.
package resource

import (
	"context"
	"fmt"
	"sort"

	"github.com/conduit-lang/restifier/internal/orm/hooks"
	"github.com/conduit-lang/restifier/internal/orm/schema"
	"github.com/conduit-lang/restifier/internal/web/middleware"
	webquery "github.com/conduit-lang/restifier/internal/web/query"
)

// Route names accepted by Use
const (
	RouteAll     = "all"
	RouteQuery   = "query"
	RouteCreate  = "create"
	RouteGet     = "get"
	RouteUpdate  = "update"
	RouteDestroy = "destroy"
)

// Routes lists every route name in execution order for a request
var Routes = []string{RouteAll, RouteQuery, RouteCreate, RouteGet, RouteUpdate, RouteDestroy}

// builtinTransformers is the number of transformers every model starts with
const builtinTransformers = 2

// Submodel is a sub-resource served under an item of its parent
type Submodel struct {
	// Path is the URL segment after the parent item, e.g. "comments"
	Path string
	// Model serves the sub-resource
	Model *Model
}

// Model is the resource descriptor of one collection
type Model struct {
	schema     *schema.Schema
	registry   *Registry
	restricted map[string]bool
	identifier string
	limit      int

	modifiers    hooks.Modifiers[*Request]
	filters      map[string]FilterFunc
	transformers hooks.Transformers[*Request]
	middleware   map[string][]middleware.Middleware

	submodels     []Submodel
	parent        *Model
	correspondsTo string
}

// New creates the descriptor of a schema. Restricted fields and the identifier
// are taken from the field options.
func New(s *schema.Schema) *Model {
	m := &Model{
		schema:     s,
		restricted: make(map[string]bool),
		identifier: s.Identifier(),
		filters:    make(map[string]FilterFunc),
		middleware: make(map[string][]middleware.Middleware),
	}
	for _, name := range s.Restricted() {
		m.restricted[name] = true
	}
	m.transformers = hooks.Transformers[*Request]{stripRestricted, aliasIdentifier}
	return m
}

// Name returns the singular model name, e.g. "User"
func (m *Model) Name() string {
	return m.schema.Name
}

// Collection returns the backing collection name
func (m *Model) Collection() string {
	return m.schema.Collection
}

// Schema returns the field table
func (m *Model) Schema() *schema.Schema {
	return m.schema
}

// Identifier returns the field used to address single documents
func (m *Model) Identifier() string {
	return m.identifier
}

// SetIdentifier changes the field used to address single documents
func (m *Model) SetIdentifier(field string) *Model {
	if !m.schema.HasField(field) {
		panic(fmt.Sprintf("resource %s: identifier %q is not a declared field", m.Name(), field))
	}
	m.identifier = field
	return m
}

// Restrict marks additional fields as restricted
func (m *Model) Restrict(fields ...string) *Model {
	for _, f := range fields {
		m.restricted[f] = true
	}
	return m
}

// IsRestricted reports whether a field is hidden from every read path
func (m *Model) IsRestricted(field string) bool {
	return m.restricted[field]
}

// Restricted returns the restricted fields in lexical order
func (m *Model) Restricted() []string {
	names := make([]string, 0, len(m.restricted))
	for name := range m.restricted {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModifyParam appends a modifier for one query parameter. Modifiers run on
// the list route, in the order they were added, and see the parameter even
// when the request did not send it. Returning hooks.Delete removes the
// parameter. Returning nil keeps an explicit null filter when the parameter
// was sent, but leaves a parameter the request never sent absent rather than
// adding a null filter for it.
func (m *Model) ModifyParam(param string, fn ModifierFunc) *Model {
	m.modifiers = append(m.modifiers, hooks.Modifier[*Request]{Param: param, Fn: fn})
	return m
}

// Limit caps the number of documents a query returns. A caller-supplied limit
// below n is kept; a larger, missing or malformed one becomes n.
func (m *Model) Limit(n int) *Model {
	m.limit = n
	return m.ModifyParam(webquery.ParamLimit, func(_ context.Context, _ *Request, value interface{}) (interface{}, error) {
		supplied, present, err := parseCount("Limit", value)
		if err != nil || !present || supplied <= 0 || supplied > n {
			return n, nil
		}
		return supplied, nil
	})
}

// MaxLimit returns the limit set with Limit, or zero
func (m *Model) MaxLimit() int {
	return m.limit
}

// Filter registers a named filter, replacing any filter with the same name
func (m *Model) Filter(name string, fn FilterFunc) *Model {
	m.filters[name] = fn
	return m
}

// Filters returns the registered filter names in lexical order
func (m *Model) Filters() []string {
	names := make([]string, 0, len(m.filters))
	for name := range m.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Transform appends a transformer run on every outgoing document
func (m *Model) Transform(fn TransformFunc) *Model {
	m.transformers = append(m.transformers, fn)
	return m
}

// TransformPopulation appends a transformer run on the documents populated into field
func (m *Model) TransformPopulation(field string, fn TransformFunc) *Model {
	return m.Transform(hooks.Population(field, fn))
}

// Transformers returns the transform chain, built-ins first
func (m *Model) Transformers() hooks.Transformers[*Request] {
	return m.transformers
}

// Use appends middleware to a route. RouteAll middleware runs before the
// route-specific chain.
func (m *Model) Use(route string, mw ...middleware.Middleware) *Model {
	if !isRoute(route) {
		panic(fmt.Sprintf("resource %s: unknown route %q", m.Name(), route))
	}
	m.middleware[route] = append(m.middleware[route], mw...)
	return m
}

// Middleware returns the middleware of a route, RouteAll entries first
func (m *Model) Middleware(route string) []middleware.Middleware {
	chain := make([]middleware.Middleware, 0, len(m.middleware[RouteAll])+len(m.middleware[route]))
	chain = append(chain, m.middleware[RouteAll]...)
	if route != RouteAll {
		chain = append(chain, m.middleware[route]...)
	}
	return chain
}

// Submodel serves child under every item of m at /<collection>/:id/<path>.
// Documents of child point back to their parent through correspondsTo.
// Sub-resources are one level deep.
func (m *Model) Submodel(path string, child *Model, correspondsTo string) error {
	switch {
	case path == "":
		return fmt.Errorf("resource %s: sub-resource path is required", m.Name())
	case correspondsTo == "":
		return fmt.Errorf("resource %s: sub-resource %s needs a corresponding field", m.Name(), path)
	case m.parent != nil:
		return fmt.Errorf("resource %s is a sub-resource of %s and cannot hold sub-resources", m.Name(), m.parent.Name())
	case child == m:
		return fmt.Errorf("resource %s cannot be its own sub-resource", m.Name())
	case child.parent != nil:
		return fmt.Errorf("resource %s is already a sub-resource of %s", child.Name(), child.parent.Name())
	case len(child.submodels) > 0:
		return fmt.Errorf("resource %s holds sub-resources and cannot be nested", child.Name())
	case !child.schema.HasField(correspondsTo):
		return fmt.Errorf("resource %s: corresponding field %q is not declared", child.Name(), correspondsTo)
	}
	for _, sub := range m.submodels {
		if sub.Path == path {
			return fmt.Errorf("resource %s: sub-resource path %q is already used", m.Name(), path)
		}
	}

	child.parent = m
	child.correspondsTo = correspondsTo
	m.submodels = append(m.submodels, Submodel{Path: path, Model: child})
	return nil
}

// Submodels returns the sub-resources in declaration order
func (m *Model) Submodels() []Submodel {
	return m.submodels
}

// Parent returns the parent resource of a sub-resource
func (m *Model) Parent() *Model {
	return m.parent
}

// CorrespondsTo returns the field pointing at the parent document
func (m *Model) CorrespondsTo() string {
	return m.correspondsTo
}

func isRoute(route string) bool {
	for _, r := range Routes {
		if r == route {
			return true
		}
	}
	return false
}
