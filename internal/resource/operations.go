package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/conduit-lang/restifier/internal/orm/query"
	"github.com/conduit-lang/restifier/internal/orm/schema"
	"github.com/conduit-lang/restifier/internal/orm/store"
	"github.com/conduit-lang/restifier/internal/web/response"
	"go.uber.org/zap"
)

// ErrNotRegistered is returned by operations on a model that has no registry
var ErrNotRegistered = errors.New("resource is not registered")

func (m *Model) store() (store.Store, error) {
	if m.registry == nil {
		return nil, fmt.Errorf("%s: %w", m.Name(), ErrNotRegistered)
	}
	return m.registry.store, nil
}

func (m *Model) logger() *zap.Logger {
	if m.registry == nil {
		return zap.NewNop()
	}
	return m.registry.logger
}

// List runs the query route: modifiers, compilation, execution and transforms.
// Sub-resource requests are scoped to the parent document.
func (m *Model) List(ctx context.Context, r *Request) ([]store.Document, error) {
	s, err := m.store()
	if err != nil {
		return nil, response.Internal(err)
	}

	if err := m.modifiers.Apply(ctx, r, r.Query); err != nil {
		return nil, asResponseError(err)
	}

	q := m.scoped(r)
	if err := m.Compile(ctx, r, q); err != nil {
		return nil, err
	}
	m.logger().Debug("query compiled", zap.String("resource", m.Name()), zap.Stringer("query", q))

	docs, err := s.Find(ctx, q)
	if err != nil {
		return nil, response.Internal(err)
	}
	if err := m.applyTransforms(ctx, r, docs, q.Populations()); err != nil {
		return nil, response.Internal(err)
	}
	return docs, nil
}

// Get returns the document addressed by r.ID. The populate parameter is honoured.
func (m *Model) Get(ctx context.Context, r *Request) (store.Document, error) {
	q, err := m.itemQuery(r, r.ID)
	if err != nil {
		return nil, err
	}
	if err := m.compilePopulate(ctx, r, q); err != nil {
		return nil, err
	}

	doc, err := m.findOne(ctx, q, r.ID)
	if err != nil {
		return nil, err
	}
	if err := m.applyTransforms(ctx, r, []store.Document{doc}, q.Populations()); err != nil {
		return nil, response.Internal(err)
	}
	return doc, nil
}

// Create inserts a document built from r.Body. Fields the schema does not
// declare are dropped and a primary key is generated when absent.
func (m *Model) Create(ctx context.Context, r *Request) (store.Document, error) {
	s, err := m.store()
	if err != nil {
		return nil, response.Internal(err)
	}

	doc, err := m.fromBody(r.Body)
	if err != nil {
		return nil, err
	}
	if doc.ID() == nil {
		doc[schema.PrimaryKey] = m.registry.newID()
	}
	if r.Parent != nil {
		doc[m.correspondsTo] = r.Parent.ID()
	}

	if err := s.Insert(ctx, m.Collection(), doc); err != nil {
		return nil, m.writeError(err)
	}
	if err := m.applyTransforms(ctx, r, []store.Document{doc}, nil); err != nil {
		return nil, response.Internal(err)
	}
	return doc, nil
}

// Update merges r.Body into the addressed document and saves it. The primary
// key and, for sub-resources, the parent reference cannot change.
func (m *Model) Update(ctx context.Context, r *Request) (store.Document, error) {
	s, err := m.store()
	if err != nil {
		return nil, response.Internal(err)
	}

	q, err := m.itemQuery(r, r.ID)
	if err != nil {
		return nil, err
	}
	doc, err := m.findOne(ctx, q, r.ID)
	if err != nil {
		return nil, err
	}

	body, err := m.fromBody(r.Body)
	if err != nil {
		return nil, err
	}
	for key, value := range body {
		if key == schema.PrimaryKey || (m.parent != nil && key == m.correspondsTo) {
			continue
		}
		doc[key] = value
	}

	if err := s.Save(ctx, m.Collection(), doc); err != nil {
		return nil, m.writeError(err)
	}
	if err := m.applyTransforms(ctx, r, []store.Document{doc}, nil); err != nil {
		return nil, response.Internal(err)
	}
	return doc, nil
}

// Destroy removes the addressed document
func (m *Model) Destroy(ctx context.Context, r *Request) error {
	s, err := m.store()
	if err != nil {
		return response.Internal(err)
	}

	q, err := m.itemQuery(r, r.ID)
	if err != nil {
		return err
	}
	doc, err := m.findOne(ctx, q, r.ID)
	if err != nil {
		return err
	}

	if err := s.Remove(ctx, m.Collection(), doc.ID()); err != nil {
		if store.IsNotFound(err) {
			return m.notFound(r.ID)
		}
		return response.Internal(err)
	}
	return nil
}

// ResolveParent finds the parent document of a sub-resource request and stores
// it on r. Its absence is reported against the parent resource.
func (m *Model) ResolveParent(ctx context.Context, r *Request, parentID string) (store.Document, error) {
	if m.parent == nil {
		return nil, response.Internal(fmt.Errorf("resource %s has no parent", m.Name()))
	}
	parent := m.parent
	q, err := parent.itemQuery(&Request{Model: parent}, parentID)
	if err != nil {
		return nil, err
	}
	doc, err := parent.findOne(ctx, q, parentID)
	if err != nil {
		return nil, err
	}
	r.Parent = doc
	return doc, nil
}

// scoped starts a query over the collection, restricted to the parent document
// for sub-resource requests
func (m *Model) scoped(r *Request) *query.Query {
	q := query.New(m.Collection())
	if m.parent != nil && r.Parent != nil {
		q.WhereEq(m.correspondsTo, r.Parent.ID())
	}
	return q
}

// itemQuery addresses one document by identifier
func (m *Model) itemQuery(r *Request, id string) (*query.Query, error) {
	var value interface{} = id
	if field, ok := m.schema.Field(m.identifier); ok {
		cast, err := field.Cast(id)
		if err != nil {
			return nil, m.notFound(id)
		}
		value = cast
	}
	return m.scoped(r).WhereEq(m.identifier, value), nil
}

func (m *Model) findOne(ctx context.Context, q *query.Query, id string) (store.Document, error) {
	s, err := m.store()
	if err != nil {
		return nil, response.Internal(err)
	}
	doc, err := s.FindOne(ctx, q)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, m.notFound(id)
		}
		return nil, response.Internal(err)
	}
	return doc, nil
}

func (m *Model) notFound(id string) *response.Error {
	return response.NotFound(`%s "%s" not found in collection "%s".`, m.Name(), id, m.Collection())
}

func (m *Model) writeError(err error) error {
	if store.IsDuplicate(err) {
		return &response.Error{Status: http.StatusConflict, Message: fmt.Sprintf("%s already exists.", m.Name()), Err: err}
	}
	if store.IsNotFound(err) {
		return response.NotFound("%s not found.", m.Name())
	}
	return response.Internal(err)
}

// fromBody keeps the body properties the schema declares. Date fields are
// stored in the form equality filters are cast to.
func (m *Model) fromBody(body map[string]interface{}) (store.Document, error) {
	doc := make(store.Document, len(body))
	for key, value := range body {
		field, ok := m.schema.Field(key)
		if !ok {
			continue
		}
		if field.Type == schema.TypeDate {
			cast, err := field.Cast(value)
			if err != nil {
				return nil, response.BadRequest(`Invalid value for field "%s".`, key)
			}
			value = cast
		}
		doc[key] = value
	}
	return doc, nil
}

// asResponseError keeps the status of a *response.Error raised by a hook and
// reports anything else as 500
func asResponseError(err error) error {
	var e *response.Error
	if errors.As(err, &e) {
		return e
	}
	return response.Internal(err)
}
