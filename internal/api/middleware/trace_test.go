package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fable-app/fable-api/internal/api/shared"
	"github.com/fable-app/fable-api/internal/platform/logger"
)

func TestTraceMiddlewareStampsContext(t *testing.T) {
	var traceID, requestID string
	var ctxLogger bool

	handler := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		requestID = logger.RequestIDFromContext(r.Context())
		ctxLogger = logger.FromContext(r.Context()) != nil
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/task-1/status", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.NotEmpty(t, traceID, "every request gets a trace ID")
	assert.Len(t, traceID, 2*shared.TraceIDLength, "trace IDs are hex-encoded")
	assert.Equal(t, traceID, requestID,
		"the trace ID and the request correlation ID are the same value under one key")
	assert.True(t, ctxLogger, "a trace-scoped logger is stored for downstream code")
}

func TestTraceMiddlewareUniquePerRequest(t *testing.T) {
	seen := make(map[string]bool)

	handler := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[shared.GetTraceID(r.Context())] = true
	}))

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Len(t, seen, 10, "trace IDs must differ across requests")
}
