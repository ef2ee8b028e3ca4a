package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func statusHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

func TestLoggingRecordsRequest(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewChain(RequestID(), Logging(zap.New(core))).Then(statusHandler(http.StatusCreated, "hello"))

	req := httptest.NewRequest(http.MethodPost, "/users", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "POST", fields["method"])
	assert.Equal(t, "/users", fields["path"])
	assert.EqualValues(t, http.StatusCreated, fields["status"])
	assert.EqualValues(t, 5, fields["bytes"])
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.DebugLevel},
		{http.StatusInternalServerError, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		core, logs := observer.New(zapcore.DebugLevel)
		Logging(zap.New(core))(statusHandler(tt.status, "")).
			ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, tt.level, logs.All()[0].Level, "status %d", tt.status)
	}
}

func TestLoggingSkipPaths(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := LoggingWithConfig(LoggingConfig{Logger: zap.New(core), SkipPaths: []string{"/metrics"}})(statusHandler(http.StatusOK, ""))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, 0, logs.Len())
}

func TestResponseWriterKeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := wrapResponseWriter(rec)
	rw.WriteHeader(http.StatusAccepted)
	rw.WriteHeader(http.StatusInternalServerError)
	n, err := rw.Write([]byte("ok"))
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, http.StatusAccepted, rw.status)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Same(t, rw, wrapResponseWriter(rw))
}
