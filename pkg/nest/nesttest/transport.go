// Package nesttest provides an in-memory transport and helpers for testing
// applications built on package nest without opening sockets.
package nesttest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/toyz/mininest/pkg/nest"
)

type route struct {
	method  string
	path    string
	parts   []nest.PathPart
	handler nest.HandlerFunc
}

// Transport is an in-memory nest.WebServerInterface. Requests are
// dispatched synchronously through the registered middleware and routes.
type Transport struct {
	mu           sync.RWMutex
	routes       []route
	middleware   []nest.MiddlewareFunc
	errorHandler nest.ErrorHandlerFunc
	server       *http.Server
}

// NewTransport creates an empty transport
func NewTransport() *Transport {
	return &Transport{}
}

func (t *Transport) RegisterRoute(method, path string, handler nest.HandlerFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.routes = append(t.routes, route{
		method:  strings.ToUpper(method),
		path:    path,
		parts:   nest.RoutePath(path).Parts(),
		handler: handler,
	})
}

func (t *Transport) Use(middleware nest.MiddlewareFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.middleware = append(t.middleware, middleware)
}

func (t *Transport) SetErrorHandler(handler nest.ErrorHandlerFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.errorHandler = handler
}

// Serve exposes the transport over HTTP on ln
func (t *Transport) Serve(ln net.Listener) error {
	t.mu.Lock()
	t.server = &http.Server{Handler: t.Handler()}
	server := t.server
	t.mu.Unlock()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (t *Transport) Stop(ctx context.Context) error {
	t.mu.RLock()
	server := t.server
	t.mu.RUnlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (t *Transport) Name() string {
	return "Memory"
}

// Routes returns the registered method and path pairs in order
func (t *Transport) Routes() [][2]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([][2]string, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, [2]string{r.method, r.path})
	}
	return out
}

// Request describes a request dispatched directly to a route. Route names
// the registered path template, and Params are used verbatim, so values a
// real router would never match (such as an empty segment) can be tested.
type Request struct {
	Method  string
	Route   string
	Path    string
	Params  map[string]string
	Query   map[string][]string
	Headers map[string]string
	// Body is the already decoded body, as RequestContext.Body returns it
	Body any
}

// Dispatch runs req through the middleware chain and the matching route
func (t *Transport) Dispatch(ctx context.Context, req Request) *Recorder {
	rec := newRecorder()
	method := strings.ToUpper(req.Method)

	t.mu.RLock()
	var target *route
	for i := range t.routes {
		r := &t.routes[i]
		if r.path == req.Route && (r.method == method || r.method == nest.MethodAll) {
			target = r
			break
		}
	}
	t.mu.RUnlock()

	path := req.Path
	if path == "" {
		path = req.Route
	}
	headers := make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		headers[strings.ToLower(k)] = v
	}

	rc := &RequestContext{
		ctx:      ctx,
		method:   method,
		path:     path,
		params:   req.Params,
		query:    req.Query,
		headers:  headers,
		body:     req.Body,
		values:   make(map[string]any),
		recorder: rec,
	}
	t.run(rc, target)
	return rec
}

// Handler returns an http.Handler that matches request paths against the
// registered routes
func (t *Transport) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		rec := newRecorder()
		rc := &RequestContext{
			ctx:      r.Context(),
			method:   r.Method,
			path:     r.URL.Path,
			query:    r.URL.Query(),
			headers:  nest.LowerHeaders(r.Header),
			values:   make(map[string]any),
			recorder: rec,
		}
		rc.body, rc.bodyErr = nest.DecodeBody(r.Header.Get("Content-Type"), raw)
		rc.raw = raw
		rc.contentType = r.Header.Get("Content-Type")

		target, params := t.match(r.Method, r.URL.Path)
		rc.params = params
		t.run(rc, target)
		rec.WriteTo(w)
	})
}

func (t *Transport) match(method, path string) (*route, map[string]string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	segments := nest.RoutePath(path).Parts()
	for i := range t.routes {
		r := &t.routes[i]
		if r.method != strings.ToUpper(method) && r.method != nest.MethodAll {
			continue
		}
		if params, ok := matchParts(r.parts, segments); ok {
			return r, params
		}
	}
	return nil, nil
}

func matchParts(pattern, segments []nest.PathPart) (map[string]string, bool) {
	params := make(map[string]string)
	for i, p := range pattern {
		if p.Type == nest.WildcardPart {
			rest := make([]string, 0, max(len(segments)-i, 0))
			for _, s := range segments[min(i, len(segments)):] {
				rest = append(rest, s.Value)
			}
			params["*"] = strings.Join(rest, "/")
			return params, true
		}
		if i >= len(segments) {
			return nil, false
		}
		switch p.Type {
		case nest.ParameterPart:
			params[p.Value] = segments[i].Value
		default:
			if p.Value != segments[i].Value {
				return nil, false
			}
		}
	}
	return params, len(pattern) == len(segments)
}

func (t *Transport) run(rc *RequestContext, target *route) {
	t.mu.RLock()
	middleware := append([]nest.MiddlewareFunc(nil), t.middleware...)
	errorHandler := t.errorHandler
	t.mu.RUnlock()

	if errorHandler == nil {
		errorHandler = nest.DefaultErrorHandler
	}

	final := func(ctx nest.RequestContext) error {
		if target == nil {
			return nest.ErrNotFound("Cannot " + rc.method + " " + rc.path)
		}
		return target.handler(ctx)
	}
	var h nest.HandlerFunc = final
	for i := len(middleware) - 1; i >= 0; i-- {
		h = middleware[i](h)
	}
	if err := h(rc); err != nil {
		errorHandler(err, rc)
	}
}

// RequestContext implements nest.RequestContext over an in-memory request
type RequestContext struct {
	ctx         context.Context
	method      string
	path        string
	params      map[string]string
	query       map[string][]string
	headers     map[string]string
	body        any
	bodyErr     error
	raw         []byte
	contentType string
	values      map[string]any
	recorder    *Recorder
}

func (rc *RequestContext) Context() context.Context {
	if rc.ctx == nil {
		return context.Background()
	}
	return rc.ctx
}

func (rc *RequestContext) SetContext(ctx context.Context) { rc.ctx = ctx }
func (rc *RequestContext) Method() string                 { return rc.method }
func (rc *RequestContext) Path() string                   { return rc.path }
func (rc *RequestContext) Param(key string) string        { return rc.params[key] }

func (rc *RequestContext) Params() map[string]string {
	out := make(map[string]string, len(rc.params))
	for k, v := range rc.params {
		out[k] = v
	}
	return out
}

func (rc *RequestContext) QueryParam(key string) string {
	if values := rc.query[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func (rc *RequestContext) QueryParams() map[string][]string {
	if rc.query == nil {
		return map[string][]string{}
	}
	return rc.query
}

func (rc *RequestContext) Header(key string) string {
	return rc.headers[strings.ToLower(key)]
}

func (rc *RequestContext) Headers() map[string]string {
	out := make(map[string]string, len(rc.headers))
	for k, v := range rc.headers {
		out[k] = v
	}
	return out
}

func (rc *RequestContext) Body() (any, error) { return rc.body, rc.bodyErr }

func (rc *RequestContext) Bind(v any) error {
	if rc.raw != nil {
		return nest.BindBody(rc.contentType, rc.raw, v)
	}
	raw, err := json.Marshal(rc.body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (rc *RequestContext) Get(key string) any               { return rc.values[key] }
func (rc *RequestContext) Set(key string, val any)          { rc.values[key] = val }
func (rc *RequestContext) Response() nest.ResponseInterface { return rc.recorder }
func (rc *RequestContext) Native() any                      { return rc }
