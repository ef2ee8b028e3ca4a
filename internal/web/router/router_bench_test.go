package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/conduit-lang/restifier/internal/resource/resourcetest"
	"github.com/conduit-lang/restifier/internal/web/middleware"
	"go.uber.org/zap"
)

func benchRouter(b *testing.B) *Router {
	b.Helper()
	f := resourcetest.New(b)
	f.Start(b)

	r := New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(zap.NewNop()),
		middleware.Recovery(zap.NewNop()),
	)
	if err := r.Mount(f.Users); err != nil {
		b.Fatal(err)
	}
	return r
}

func benchRoute(b *testing.B, target string) {
	r := benchRouter(b)
	req := httptest.NewRequest(http.MethodGet, target, nil)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			b.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
		}
	}
}

// BenchmarkListRoute measures a plain list query
func BenchmarkListRoute(b *testing.B) {
	benchRoute(b, "/users")
}

// BenchmarkListRouteWithQuery measures sorting, paging and equality
func BenchmarkListRouteWithQuery(b *testing.B) {
	benchRoute(b, "/users?sort=-name&skip=1&limit=3&enable=true")
}

// BenchmarkListRouteWithPopulate measures population and the transform chain
// of populated documents
func BenchmarkListRouteWithPopulate(b *testing.B) {
	benchRoute(b, "/users?populate=contacts,profile")
}

// BenchmarkItemRoute measures a lookup by identifier
func BenchmarkItemRoute(b *testing.B) {
	benchRoute(b, "/users/"+resourcetest.BobID)
}

// BenchmarkSubResourceRoute measures a scoped list under a parent document
func BenchmarkSubResourceRoute(b *testing.B) {
	benchRoute(b, "/users/"+resourcetest.BobID+"/comments")
}

// BenchmarkConcurrentRequests measures list queries from parallel clients
func BenchmarkConcurrentRequests(b *testing.B) {
	r := benchRouter(b)

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users?sort=name", nil))
		}
	})
}

// BenchmarkMiddlewareChain measures the global middleware stack alone
func BenchmarkMiddlewareChain(b *testing.B) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	chain := middleware.NewChain(
		middleware.RequestID(),
		middleware.Logging(zap.NewNop()),
		middleware.Recovery(zap.NewNop()),
	).Then(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		chain.ServeHTTP(httptest.NewRecorder(), req)
	}
}
