package resource

import (
	"context"
	"net/http"

	"github.com/conduit-lang/restifier/internal/orm/hooks"
	"github.com/conduit-lang/restifier/internal/orm/query"
	"github.com/conduit-lang/restifier/internal/orm/store"
	webquery "github.com/conduit-lang/restifier/internal/web/query"
)

// Request is the per-request state handed to every hook. It is owned by one
// request and never shared.
type Request struct {
	// HTTP is the incoming request; nil when operations are called directly
	HTTP *http.Request
	// Model is the resource serving the request
	Model *Model
	// Query holds the normalized query parameters
	Query webquery.Values
	// Body is the decoded JSON body of create and update requests
	Body map[string]interface{}
	// Parent is the resolved parent document of a sub-resource request
	Parent store.Document
	// ID is the identifier taken from the item path
	ID string
}

// NewRequest builds the request state for a model, normalizing the query string
func NewRequest(r *http.Request, m *Model) *Request {
	req := &Request{HTTP: r, Model: m, Query: webquery.Values{}}
	if r != nil {
		req.Query = webquery.Parse(r)
	}
	return req
}

// ModifierFunc rewrites one query parameter. Return hooks.Delete to remove it.
type ModifierFunc = hooks.ModifierFunc[*Request]

// TransformFunc mutates an outgoing document in place
type TransformFunc = hooks.TransformFunc[*Request]

// FilterFunc applies a named filter to the query being compiled
type FilterFunc func(ctx context.Context, r *Request, q *query.Query, args ...string) error
