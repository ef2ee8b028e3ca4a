package middleware

import (
	"fmt"
	"net/http"

	"github.com/conduit-lang/restifier/internal/web/response"
	"go.uber.org/zap"
)

// Recovery turns a panic in a handler into a 500 JSON error. The stack is
// logged; it is never written to the response.
func Recovery(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				err := panicError(p)
				logger.Error("panic recovered",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err),
					zap.Stack("stack"),
				)
				response.RenderError(w, response.Internal(err))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func panicError(p interface{}) error {
	if err, ok := p.(error); ok {
		return err
	}
	return fmt.Errorf("%v", p)
}
