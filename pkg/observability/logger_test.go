package observability

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestMiddlewareAssignsID(t *testing.T) {
	logger := NewLogger(InfoLevel, io.Discard)

	var gotID string
	var gotLogger *Logger
	handler := logger.RequestMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetRequestID(r.Context())
		gotLogger = GetLogger(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.NotEmpty(t, gotID)
	assert.Equal(t, gotID, rec.Header().Get("X-Request-ID"))
	assert.Same(t, logger, gotLogger)
}

func TestRequestMiddlewareKeepsCallerID(t *testing.T) {
	logger := NewLogger(InfoLevel, io.Discard)
	handler := logger.RequestMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestFromContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithRequestID(context.Background(), "req-7")
	ctx = WithLogger(ctx, logger)
	FromContext(ctx).Info("hello")

	assert.Contains(t, buf.String(), `"request_id":"req-7"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestFromContextWithoutRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	FromContext(WithLogger(context.Background(), logger)).Info("plain")

	assert.NotContains(t, buf.String(), "request_id")
}
