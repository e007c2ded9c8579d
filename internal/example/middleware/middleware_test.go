package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toyz/mininest/pkg/nest"
	"github.com/toyz/mininest/pkg/nest/nesttest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTransport(handlers ...nest.MiddlewareHandler) *nesttest.Transport {
	transport := nesttest.NewTransport()
	for _, h := range handlers {
		transport.Use(func(next nest.HandlerFunc) nest.HandlerFunc {
			return func(ctx nest.RequestContext) error {
				return h(ctx, func() error { return next(ctx) })
			}
		})
	}
	transport.RegisterRoute("GET", "/ping", func(ctx nest.RequestContext) error {
		id, _ := ctx.Get(RequestIDKey).(string)
		return ctx.Response().String(http.StatusOK, "pong "+id)
	})
	transport.RegisterRoute("POST", "/echo", func(ctx nest.RequestContext) error {
		body, _ := ctx.Body()
		return ctx.Response().JSON(http.StatusCreated, body)
	})
	return transport
}

func TestRequestID(t *testing.T) {
	transport := newTransport(RequestID)

	rec := transport.Dispatch(context.Background(), nesttest.Request{Method: "GET", Route: "/ping"})
	id := rec.Header(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, "pong "+id, rec.Body())

	rec = transport.Dispatch(context.Background(), nesttest.Request{
		Method: "GET", Route: "/ping",
		Headers: map[string]string{RequestIDHeader: "abc-123"},
	})
	assert.Equal(t, "abc-123", rec.Header(RequestIDHeader))
	assert.Equal(t, "pong abc-123", rec.Body())
}

func TestAuthGuard(t *testing.T) {
	guard := NewAuthGuard("secret")
	guard.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	transport := newTransport(guard.Use)

	tests := []struct {
		name    string
		headers map[string]string
		code    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "guess"}, http.StatusUnauthorized},
		{"valid key", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := transport.Dispatch(context.Background(), nesttest.Request{
				Method: "GET", Route: "/ping", Headers: tt.headers,
			})
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusUnauthorized {
				assert.JSONEq(t, `{
					"statusCode": 401,
					"message": "Unauthorized",
					"timestamp": "2024-01-02T03:04:05Z",
					"path": "/ping"
				}`, rec.Body())
			}
		})
	}
}

func TestLoggerMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	transport := newTransport(RequestID, NewLoggerMiddleware(logger).Use)

	transport.Dispatch(context.Background(), nesttest.Request{
		Method: "GET", Route: "/ping",
		Headers: map[string]string{RequestIDHeader: "req-1"},
	})

	require.Equal(t, 1, logs.FilterMessage("request started").Len())
	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, 1)
	assert.Equal(t, "http", completed[0].LoggerName)
	fields := completed[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/ping", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "req-1", fields["request_id"])
}

func TestLoggerFunc_LogsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	transport := nesttest.NewTransport()
	transport.Use(func(next nest.HandlerFunc) nest.HandlerFunc {
		return func(ctx nest.RequestContext) error {
			return LoggerFunc(zap.New(core))(ctx, func() error { return next(ctx) })
		}
	})
	transport.RegisterRoute("GET", "/fail", func(nest.RequestContext) error {
		return nest.ErrBadRequest("nope")
	})

	rec := transport.Dispatch(context.Background(), nesttest.Request{Method: "GET", Route: "/fail"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "nope")
}

func TestLoggingInterceptor(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	transport := newTransport(NewLoggingInterceptor(zap.New(core)).Use)

	transport.Dispatch(context.Background(), nesttest.Request{
		Method: "POST", Route: "/echo",
		Body: map[string]any{"name": "Ann"},
	})
	transport.Dispatch(context.Background(), nesttest.Request{Method: "GET", Route: "/ping"})

	received := logs.FilterMessage("request received").All()
	require.Len(t, received, 2)
	assert.Equal(t, map[string]any{"name": "Ann"}, received[0].ContextMap()["body"])
	assert.NotContains(t, received[1].ContextMap(), "body")

	sent := logs.FilterMessage("response sent").All()
	require.Len(t, sent, 2)
	assert.Equal(t, int64(http.StatusCreated), sent[0].ContextMap()["status"])
	assert.Equal(t, "interceptor", sent[0].LoggerName)
}
