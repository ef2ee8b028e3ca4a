// Package hooks implements the ordered extension chains run around a query:
// parameter modifiers before compilation and document transformers after
// execution. Chains are generic over the request type that flows through them.
package hooks

import (
	"context"

	"github.com/conduit-lang/restifier/internal/orm/store"
)

type deleted struct{}

// Delete is returned by a modifier to remove its parameter from the request.
// Returning nil instead keeps the parameter as an explicit null.
var Delete interface{} = deleted{}

// IsDelete reports whether a modifier result asks for deletion
func IsDelete(v interface{}) bool {
	_, ok := v.(deleted)
	return ok
}

// ModifierFunc rewrites the current value of one query parameter
type ModifierFunc[R any] func(ctx context.Context, r R, value interface{}) (interface{}, error)

// Modifier binds a ModifierFunc to the parameter it rewrites
type Modifier[R any] struct {
	Param string
	Fn    ModifierFunc[R]
}

// TransformFunc mutates an outgoing document in place
type TransformFunc[R any] func(ctx context.Context, r R, doc store.Document) error
