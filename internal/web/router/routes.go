package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/conduit-lang/restifier/internal/orm/store"
	"github.com/conduit-lang/restifier/internal/resource"
	"github.com/conduit-lang/restifier/internal/web/middleware"
	"github.com/conduit-lang/restifier/internal/web/response"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds the JSON body of create and update requests
const maxBodyBytes = 1 << 20

// Mount registers the routes of a top-level resource and of its sub-resources:
//
//	GET, POST                 /<collection>
//	GET, PUT, PATCH, DELETE   /<collection>/{id}
//	GET, POST                 /<collection>/{id}/<path>
//	GET, PUT, PATCH, DELETE   /<collection>/{id}/<path>/{sid}
func (r *Router) Mount(m *resource.Model) error {
	if m.Parent() != nil {
		return fmt.Errorf("resource %s is a sub-resource of %s; mount the parent instead", m.Name(), m.Parent().Name())
	}

	base := r.prefix + "/" + m.Collection()
	r.mountModel(m, base, base+"/{"+ParamID+"}", ParamID)

	for _, sub := range m.Submodels() {
		collection := base + "/{" + ParamID + "}/" + sub.Path
		r.mountModel(sub.Model, collection, collection+"/{"+ParamSubID+"}", ParamSubID)
	}
	return nil
}

func (r *Router) mountModel(m *resource.Model, collection, item, idParam string) {
	wrap := func(route string, h http.HandlerFunc) http.Handler {
		return middleware.NewChain(m.Middleware(route)...).Then(h)
	}
	info := func(op string) RouteInfo {
		return RouteInfo{Resource: m.Name(), Operation: op}
	}

	r.add(http.MethodGet, collection, wrap(resource.RouteQuery, r.list(m)), info(resource.RouteQuery))
	r.add(http.MethodPost, collection, wrap(resource.RouteCreate, r.create(m)), info(resource.RouteCreate))
	r.add(http.MethodGet, item, wrap(resource.RouteGet, r.get(m, idParam)), info(resource.RouteGet))
	update := wrap(resource.RouteUpdate, r.update(m, idParam))
	r.add(http.MethodPut, item, update, info(resource.RouteUpdate))
	r.add(http.MethodPatch, item, update, info(resource.RouteUpdate))
	r.add(http.MethodDelete, item, wrap(resource.RouteDestroy, r.destroy(m, idParam)), info(resource.RouteDestroy))
}

func (r *Router) list(m *resource.Model) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		rr, ok := r.begin(w, req, m)
		if !ok {
			return
		}
		docs, err := m.List(req.Context(), rr)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		if docs == nil {
			docs = []store.Document{}
		}
		response.RenderJSON(w, http.StatusOK, docs)
	}
}

func (r *Router) create(m *resource.Model) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		rr, ok := r.begin(w, req, m)
		if !ok || !r.decodeBody(w, req, rr) {
			return
		}
		doc, err := m.Create(req.Context(), rr)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		response.RenderJSON(w, http.StatusOK, doc)
	}
}

func (r *Router) get(m *resource.Model, idParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		rr, ok := r.begin(w, req, m)
		if !ok {
			return
		}
		rr.ID = chi.URLParam(req, idParam)
		doc, err := m.Get(req.Context(), rr)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		response.RenderJSON(w, http.StatusOK, doc)
	}
}

func (r *Router) update(m *resource.Model, idParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		rr, ok := r.begin(w, req, m)
		if !ok || !r.decodeBody(w, req, rr) {
			return
		}
		rr.ID = chi.URLParam(req, idParam)
		doc, err := m.Update(req.Context(), rr)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		response.RenderJSON(w, http.StatusOK, doc)
	}
}

func (r *Router) destroy(m *resource.Model, idParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		rr, ok := r.begin(w, req, m)
		if !ok {
			return
		}
		rr.ID = chi.URLParam(req, idParam)
		if err := m.Destroy(req.Context(), rr); err != nil {
			r.fail(w, req, err)
			return
		}
		response.RenderJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// begin builds the request state and, for sub-resources, resolves the parent
// document. It reports false once an error response has been written.
func (r *Router) begin(w http.ResponseWriter, req *http.Request, m *resource.Model) (*resource.Request, bool) {
	rr := resource.NewRequest(req, m)
	if m.Parent() == nil {
		return rr, true
	}
	if _, err := m.ResolveParent(req.Context(), rr, chi.URLParam(req, ParamID)); err != nil {
		r.fail(w, req, err)
		return nil, false
	}
	return rr, true
}

// decodeBody reads a JSON object body. An empty body is an empty object.
func (r *Router) decodeBody(w http.ResponseWriter, req *http.Request, rr *resource.Request) bool {
	body := map[string]interface{}{}
	if req.Body != nil {
		err := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes)).Decode(&body)
		if err != nil && !errors.Is(err, io.EOF) {
			r.fail(w, req, &response.Error{
				Status:  http.StatusBadRequest,
				Message: "Request body must be a JSON object.",
				Err:     err,
			})
			return false
		}
	}
	rr.Body = body
	return true
}
