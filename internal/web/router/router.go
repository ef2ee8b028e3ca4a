// Package router dispatches HTTP requests to resources. Every resource gets a
// collection route and an item route, sub-resources nest under their parent's
// item route, and unmatched verbs and paths get uniform 405 and 404 answers.
package router

import (
	"net/http"
	"strings"

	"github.com/conduit-lang/restifier/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// URL parameters of item routes
const (
	ParamID    = "id"
	ParamSubID = "sid"
)

// RouteInfo describes one registered method and pattern
type RouteInfo struct {
	Method    string `json:"method" yaml:"method"`
	Pattern   string `json:"pattern" yaml:"pattern"`
	Resource  string `json:"resource,omitempty" yaml:"resource,omitempty"`
	Operation string `json:"operation,omitempty" yaml:"operation,omitempty"`
}

// Router is the chi-backed dispatcher
type Router struct {
	mux    chi.Router
	prefix string
	logger *zap.Logger
	routes []RouteInfo
}

// Option configures a Router
type Option func(*Router)

// WithPrefix mounts every route under prefix, e.g. "/api"
func WithPrefix(prefix string) Option {
	return func(r *Router) {
		r.prefix = "/" + strings.Trim(prefix, "/")
		if r.prefix == "/" {
			r.prefix = ""
		}
	}
}

// WithLogger sets the logger used for failed requests
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a router with the 404 and 405 fallbacks installed
func New(opts ...Option) *Router {
	r := &Router{
		mux:    chi.NewRouter(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.mux.NotFound(notFound)
	r.mux.MethodNotAllowed(methodNotAllowed)
	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use adds global middleware. It must be called before any route is added.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.mux.Use(m)
	}
}

// Handle registers a custom handler outside any resource. The prefix is not applied.
func (r *Router) Handle(method, pattern string, handler http.Handler) {
	r.mux.Method(method, pattern, handler)
	r.routes = append(r.routes, RouteInfo{Method: method, Pattern: pattern})
}

// HandleFunc registers a custom handler function
func (r *Router) HandleFunc(method, pattern string, fn http.HandlerFunc) {
	r.Handle(method, pattern, fn)
}

// Routes returns every registered route in registration order
func (r *Router) Routes() []RouteInfo {
	out := make([]RouteInfo, len(r.routes))
	copy(out, r.routes)
	return out
}

func (r *Router) add(method, pattern string, handler http.Handler, info RouteInfo) {
	r.mux.Method(method, pattern, handler)
	info.Method = method
	info.Pattern = pattern
	r.routes = append(r.routes, info)
}
