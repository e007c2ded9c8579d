package adapters_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toyz/mininest/pkg/nest"
	"github.com/toyz/mininest/pkg/nest/adapters"
)

type widgetModule struct{}

type widget struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type widgetController struct{}

func (widgetController) Get(id int, verbose string) map[string]any {
	return map[string]any{"id": id, "verbose": verbose}
}

func (widgetController) Create(w widget, agent string) *nest.Response {
	return nest.Created(map[string]any{"name": w.Name, "color": w.Color, "agent": agent})
}

func (widgetController) Missing() error { return nest.ErrNotFound("widget not found") }

func (widgetController) Files(rest string) string { return rest }

func newApp(t *testing.T, transport nest.WebServerInterface, trace *[]string) http.Handler {
	t.Helper()
	store := nest.NewMetadataStore()
	ct := nest.TypeOf[*widgetController]()
	require.NoError(t, nest.DeclareController(store, ct, "widgets",
		nest.Get("missing", "Missing"),
		nest.Get("files/*", "Files", nest.Param("*")),
		nest.Get(":id", "Get", nest.Param("id"), nest.Query("verbose")),
		nest.Post("", "Create", nest.Body(), nest.Headers("X-Agent")),
	))
	require.NoError(t, nest.DeclareModule(store, nest.TypeOf[widgetModule](), nest.ModuleOptions{
		Controllers: []any{ct},
	}))

	app, err := nest.Create(nest.TypeOf[widgetModule](), transport, nest.WithMetadata(store))
	require.NoError(t, err)

	record := func(name string) nest.MiddlewareEntry {
		return nest.MiddlewareFn(func(ctx nest.RequestContext, next nest.NextFunc) error {
			*trace = append(*trace, name)
			err := next()
			if err != nil {
				*trace = append(*trace, name+"<-"+strconv.Itoa(nest.StatusCodeOf(err)))
			}
			return err
		})
	}
	require.NoError(t, app.Use(record("M1"), record("M2")))
	require.NoError(t, app.Init(context.Background()))
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return transport.Handler()
}

func transports() map[string]func() nest.WebServerInterface {
	return map[string]func() nest.WebServerInterface{
		"gin":   func() nest.WebServerInterface { return adapters.NewDefaultGinAdapter() },
		"echo":  func() nest.WebServerInterface { return adapters.NewDefaultEchoAdapter() },
		"fiber": func() nest.WebServerInterface { return adapters.NewDefaultFiberAdapter() },
	}
}

func serve(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAdapters(t *testing.T) {
	for name, newTransport := range transports() {
		t.Run(name, func(t *testing.T) {
			var trace []string
			transport := newTransport()
			h := newApp(t, transport, &trace)

			t.Run("path param and query", func(t *testing.T) {
				trace = nil
				rec := serve(h, http.MethodGet, "/widgets/42?verbose=yes", "", nil)
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.JSONEq(t, `{"id":42,"verbose":"yes"}`, rec.Body.String())
				assert.Equal(t, []string{"M1", "M2"}, trace)
			})

			t.Run("json body and header", func(t *testing.T) {
				rec := serve(h, http.MethodPost, "/widgets", `{"name":"gear","color":"red"}`, map[string]string{"X-Agent": "tests"})
				assert.Equal(t, http.StatusCreated, rec.Code)
				assert.JSONEq(t, `{"name":"gear","color":"red","agent":"tests"}`, rec.Body.String())
			})

			t.Run("malformed json", func(t *testing.T) {
				rec := serve(h, http.MethodPost, "/widgets", `{"name":`, nil)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			})

			t.Run("http error", func(t *testing.T) {
				trace = nil
				rec := serve(h, http.MethodGet, "/widgets/missing", "", nil)
				assert.Equal(t, http.StatusNotFound, rec.Code)
				assert.JSONEq(t, `{"statusCode":404,"message":"widget not found"}`, rec.Body.String())
				assert.Equal(t, []string{"M1", "M2", "M2<-404", "M1<-404"}, trace)
			})

			t.Run("bad numeric param", func(t *testing.T) {
				rec := serve(h, http.MethodGet, "/widgets/abc", "", nil)
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			})

			t.Run("wildcard", func(t *testing.T) {
				rec := serve(h, http.MethodGet, "/widgets/files/a/b.txt", "", nil)
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Contains(t, rec.Body.String(), "a/b.txt")
			})

			t.Run("unknown route", func(t *testing.T) {
				rec := serve(h, http.MethodGet, "/nowhere", "", nil)
				assert.Equal(t, http.StatusNotFound, rec.Code)
			})
		})
	}
}

func TestAdapterNames(t *testing.T) {
	assert.Equal(t, "Gin", adapters.NewDefaultGinAdapter().Name())
	assert.Equal(t, "Echo", adapters.NewDefaultEchoAdapter().Name())
	assert.Equal(t, "Fiber", adapters.NewDefaultFiberAdapter().Name())
}
