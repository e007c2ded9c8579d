package filters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toyz/mininest/pkg/nest"
	"github.com/toyz/mininest/pkg/nest/nesttest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type filterModule struct{}

type failingController struct{}

func (failingController) Fail(kind string) error {
	switch kind {
	case "http":
		return nest.NewHttpErrorWithDetails(http.StatusConflict, "email taken", map[string]any{"email": "a@b.c"})
	case "validation":
		return &nest.ValidationError{Field: "name", Message: "too short", Details: []string{"min=3"}}
	case "timeout":
		return &nest.TimeoutError{Stage: "handler", Cause: context.DeadlineExceeded}
	}
	return errors.New("database exploded")
}

func newFilterApp(t *testing.T) (*nesttest.Transport, *observer.ObservedLogs) {
	t.Helper()
	store := nest.NewMetadataStore()
	ct := nest.TypeOf[*failingController]()
	require.NoError(t, nest.DeclareController(store, ct, "fail", nest.Get(":kind", "Fail", nest.Param("kind"))))
	require.NoError(t, nest.DeclareModule(store, nest.TypeOf[filterModule](), nest.ModuleOptions{Controllers: []any{ct}}))

	core, logs := observer.New(zap.ErrorLevel)
	filter := NewExceptionFilter(zap.New(core))
	filter.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	_, transport := nesttest.NewApp(t, nest.TypeOf[filterModule](), func(app *nest.Application) {
		app.UseErrorHandler(filter.Catch)
	}, nest.WithMetadata(store))
	return transport, logs
}

func TestExceptionFilter_Catch(t *testing.T) {
	transport, logs := newFilterApp(t)

	tests := []struct {
		kind string
		want string
		code int
	}{
		{"http", `{"statusCode":409,"message":"email taken","details":{"email":"a@b.c"}}`, http.StatusConflict},
		{"validation", `{"statusCode":400,"message":"validation failed for name: too short","details":["min=3"]}`, http.StatusBadRequest},
		{"timeout", `{"statusCode":504,"message":"request deadline exceeded during handler"}`, http.StatusGatewayTimeout},
		{"other", `{"statusCode":500,"message":"Internal server error"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rec := transport.Dispatch(context.Background(), nesttest.Request{
				Method: "GET",
				Route:  "/fail/:kind",
				Path:   "/fail/" + tt.kind,
				Params: map[string]string{"kind": tt.kind},
			})
			assert.Equal(t, tt.code, rec.Code)

			var body map[string]any
			require.NoError(t, rec.DecodeJSON(&body))
			assert.Equal(t, "2024-05-01T12:00:00Z", body["timestamp"])
			assert.Equal(t, "/fail/"+tt.kind, body["path"])
			assert.Equal(t, "GET", body["method"])
			delete(body, "timestamp")
			delete(body, "path")
			delete(body, "method")

			var want map[string]any
			require.NoError(t, json.Unmarshal([]byte(tt.want), &want))
			assert.Equal(t, want, body)
		})
	}

	// 5xx only
	assert.Equal(t, 2, logs.FilterMessage("request failed").Len())
}

func TestExceptionFilter_SkipsWrittenResponse(t *testing.T) {
	transport := nesttest.NewTransport()
	filter := NewExceptionFilter(zap.NewNop())
	transport.SetErrorHandler(filter.Catch)
	transport.RegisterRoute("GET", "/partial", func(ctx nest.RequestContext) error {
		_ = ctx.Response().String(http.StatusAccepted, "partial")
		return errors.New("late failure")
	})

	rec := transport.Dispatch(context.Background(), nesttest.Request{Method: "GET", Route: "/partial"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "partial", rec.Body())
}
