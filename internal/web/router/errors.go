package router

import (
	"net/http"

	"github.com/conduit-lang/restifier/internal/web/middleware"
	"github.com/conduit-lang/restifier/internal/web/response"
	"go.uber.org/zap"
)

func notFound(w http.ResponseWriter, r *http.Request) {
	response.RenderError(w, response.NotFound("Path not found."))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	response.RenderError(w, response.MethodNotAllowed(r.Method, r.URL.Path))
}

// fail renders err. Server errors are logged with their cause.
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	status := response.StatusOf(err)
	fields := []zap.Field{
		zap.String("request_id", middleware.GetRequestID(req.Context())),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		r.logger.Error("request failed", fields...)
	} else {
		r.logger.Debug("request rejected", fields...)
	}
	response.RenderError(w, err)
}
