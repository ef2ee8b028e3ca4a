package hooks

import (
	"context"
	"fmt"

	"github.com/conduit-lang/restifier/internal/orm/store"
	"golang.org/x/sync/errgroup"
)

// Modifiers is an ordered modifier chain
type Modifiers[R any] []Modifier[R]

// Apply runs every modifier in registration order. Each one sees the value left
// by the modifiers before it. A modifier that returns nil for a parameter that
// was never supplied leaves it absent.
func (m Modifiers[R]) Apply(ctx context.Context, r R, params map[string]interface{}) error {
	for _, mod := range m {
		current, present := params[mod.Param]

		value, err := mod.Fn(ctx, r, current)
		if err != nil {
			return fmt.Errorf("modifier for %q failed: %w", mod.Param, err)
		}

		switch {
		case IsDelete(value):
			delete(params, mod.Param)
		case value == nil && !present:
		default:
			params[mod.Param] = value
		}
	}
	return nil
}

// Transformers is an ordered transform chain
type Transformers[R any] []TransformFunc[R]

// Apply runs the chain over one document, stopping at the first error
func (t Transformers[R]) Apply(ctx context.Context, r R, doc store.Document) error {
	for i, fn := range t {
		if err := fn(ctx, r, doc); err != nil {
			return fmt.Errorf("transformer %d failed: %w", i, err)
		}
	}
	return nil
}

// ApplyEach runs the chain over every document concurrently, at most limit at a
// time when limit is positive. Documents are transformed in place so the slice
// keeps its order.
func (t Transformers[R]) ApplyEach(ctx context.Context, r R, docs []store.Document, limit int) error {
	if len(t) == 0 || len(docs) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, doc := range docs {
		g.Go(func() error {
			return t.Apply(ctx, r, doc)
		})
	}
	return g.Wait()
}

// Population scopes fn to the documents populated into field. It does nothing
// when the field is absent or holds something other than populated documents.
func Population[R any](field string, fn TransformFunc[R]) TransformFunc[R] {
	return func(ctx context.Context, r R, doc store.Document) error {
		switch v := doc[field].(type) {
		case map[string]interface{}:
			return fn(ctx, r, store.Document(v))
		case store.Document:
			return fn(ctx, r, v)
		case []interface{}:
			for _, item := range v {
				sub, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				if err := fn(ctx, r, store.Document(sub)); err != nil {
					return err
				}
			}
		}
		return nil
	}
}
