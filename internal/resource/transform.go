package resource

import (
	"context"

	"github.com/conduit-lang/restifier/internal/orm/hooks"
	"github.com/conduit-lang/restifier/internal/orm/query"
	"github.com/conduit-lang/restifier/internal/orm/store"
)

// aliasKey is the canonical identifier property of outgoing documents
const aliasKey = "id"

// stripRestricted deletes every restricted field
func stripRestricted(_ context.Context, r *Request, doc store.Document) error {
	for field := range r.Model.restricted {
		delete(doc, field)
	}
	return nil
}

// aliasIdentifier copies the identifier field into "id"
func aliasIdentifier(_ context.Context, r *Request, doc store.Document) error {
	if v, ok := doc[r.Model.identifier]; ok {
		doc[aliasKey] = v
	}
	return nil
}

// chainFor returns the transform chain for documents fetched with pops. Each
// populated field runs the chain of the resource serving its collection, after
// the built-ins and before the user transformers.
func (m *Model) chainFor(pops []query.Population) hooks.Transformers[*Request] {
	chain := make(hooks.Transformers[*Request], 0, len(m.transformers)+len(pops))
	chain = append(chain, m.transformers[:builtinTransformers]...)
	for _, p := range pops {
		target, ok := m.lookup(p.Collection)
		if !ok {
			continue
		}
		chain = append(chain, hooks.Population(p.Field, target.asSubdocument()))
	}
	return append(chain, m.transformers[builtinTransformers:]...)
}

// asSubdocument runs m's transform chain on a populated document. Hooks see
// the request of the owning document with Model switched to m.
func (m *Model) asSubdocument() TransformFunc {
	return func(ctx context.Context, r *Request, doc store.Document) error {
		sub := *r
		sub.Model = m
		return m.transformers.Apply(ctx, &sub, doc)
	}
}

func (m *Model) lookup(collection string) (*Model, bool) {
	if m.registry == nil {
		if collection == m.Collection() {
			return m, true
		}
		return nil, false
	}
	return m.registry.Model(collection)
}

// applyTransforms transforms documents in place, concurrently per document
func (m *Model) applyTransforms(ctx context.Context, r *Request, docs []store.Document, pops []query.Population) error {
	concurrency := 0
	if m.registry != nil {
		concurrency = m.registry.concurrency
	}
	return m.chainFor(pops).ApplyEach(ctx, r, docs, concurrency)
}
