package adapters

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/toyz/mininest/pkg/nest"
)

const ginContextKey = "mininest.request"

// GinAdapter implements nest.WebServerInterface for Gin framework
type GinAdapter struct {
	engine *gin.Engine

	mu           sync.Mutex
	server       *http.Server
	errorHandler nest.ErrorHandlerFunc
}

// NewGinAdapter creates a new Gin adapter
func NewGinAdapter(g *gin.Engine) *GinAdapter {
	return &GinAdapter{engine: g}
}

// NewDefaultGinAdapter creates a new Gin adapter with panic recovery
func NewDefaultGinAdapter() *GinAdapter {
	g := gin.New()
	g.Use(gin.Recovery())
	return NewGinAdapter(g)
}

// convertPathToGin names the catch-all segment, which Gin requires
func convertPathToGin(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "*" {
			parts[i] = "*path"
		}
	}
	return strings.Join(parts, "/")
}

// RegisterRoute registers a route with the Gin engine
func (ga *GinAdapter) RegisterRoute(method, path string, handler nest.HandlerFunc) {
	ginPath := convertPathToGin(path)
	h := ga.convertHandler(handler)
	if strings.EqualFold(method, nest.MethodAll) {
		ga.engine.Any(ginPath, h)
		return
	}
	ga.engine.Handle(strings.ToUpper(method), ginPath, h)
}

// Use registers a global middleware. Gin only attaches middleware to
// routes registered afterwards.
func (ga *GinAdapter) Use(middleware nest.MiddlewareFunc) {
	ga.engine.Use(ga.convertMiddleware(middleware))
}

// SetErrorHandler sets the handler for errors returned by routes and middleware
func (ga *GinAdapter) SetErrorHandler(handler nest.ErrorHandlerFunc) {
	ga.mu.Lock()
	defer ga.mu.Unlock()

	ga.errorHandler = handler
}

// Serve serves the engine on ln until Stop is called
func (ga *GinAdapter) Serve(ln net.Listener) error {
	ga.mu.Lock()
	ga.server = &http.Server{Handler: ga.engine, ReadHeaderTimeout: 10 * time.Second}
	server := ga.server
	ga.mu.Unlock()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down
func (ga *GinAdapter) Stop(ctx context.Context) error {
	ga.mu.Lock()
	server := ga.server
	ga.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// Name returns the adapter name
func (ga *GinAdapter) Name() string {
	return "Gin"
}

// Handler returns the engine as an http.Handler
func (ga *GinAdapter) Handler() http.Handler {
	return ga.engine
}

// GetEngine returns the underlying Gin engine
func (ga *GinAdapter) GetEngine() *gin.Engine {
	return ga.engine
}

func (ga *GinAdapter) handleError(err error, rc nest.RequestContext) {
	ga.mu.Lock()
	handler := ga.errorHandler
	ga.mu.Unlock()

	if handler == nil {
		handler = nest.DefaultErrorHandler
	}
	handler(err, rc)
}

// contextFor returns the request context shared by every middleware and
// the handler of one request
func (ga *GinAdapter) contextFor(c *gin.Context) *GinRequestContext {
	if v, ok := c.Get(ginContextKey); ok {
		if rc, ok := v.(*GinRequestContext); ok {
			return rc
		}
	}
	rc := &GinRequestContext{ctx: c}
	c.Set(ginContextKey, rc)
	return rc
}

// convertHandler converts nest.HandlerFunc to gin.HandlerFunc
func (ga *GinAdapter) convertHandler(handler nest.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := ga.contextFor(c)
		if err := handler(rc); err != nil {
			ga.raise(err, rc)
		}
	}
}

// convertMiddleware converts nest.MiddlewareFunc to gin.HandlerFunc. A
// middleware that returns without calling next ends the chain. Gin runs
// handlers from c.Next without return values, so an error raised further
// down is parked on the request context and returned from next.
func (ga *GinAdapter) convertMiddleware(middleware nest.MiddlewareFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		rc := ga.contextFor(c)

		calledNext := false
		next := func(nest.RequestContext) error {
			calledNext = true
			c.Next()
			err := rc.pending
			rc.pending = nil
			return err
		}

		rc.depth++
		err := middleware(next)(rc)
		rc.depth--

		if err != nil {
			c.Abort()
			ga.raise(err, rc)
			return
		}
		if !calledNext {
			c.Abort()
		}
	}
}

// raise hands err to the innermost enclosing middleware, or to the error
// handler when there is none
func (ga *GinAdapter) raise(err error, rc *GinRequestContext) {
	if rc.depth > 0 {
		rc.pending = err
		return
	}
	ga.handleError(err, rc)
}

// GinRequestContext implements nest.RequestContext for Gin
type GinRequestContext struct {
	ctx *gin.Context

	// active nest middleware and the error waiting for the innermost one
	depth   int
	pending error

	bodyOnce sync.Once
	raw      []byte
	body     any
	bodyErr  error
}

func (grc *GinRequestContext) Context() context.Context {
	return grc.ctx.Request.Context()
}

func (grc *GinRequestContext) SetContext(ctx context.Context) {
	grc.ctx.Request = grc.ctx.Request.WithContext(ctx)
}

// Method returns the HTTP method
func (grc *GinRequestContext) Method() string {
	return grc.ctx.Request.Method
}

// Path returns the request path
func (grc *GinRequestContext) Path() string {
	return grc.ctx.Request.URL.Path
}

// Param returns a path parameter
func (grc *GinRequestContext) Param(name string) string {
	if name == "*" {
		return strings.TrimPrefix(grc.ctx.Param("path"), "/")
	}
	return grc.ctx.Param(name)
}

// Params returns every path parameter. The catch-all is keyed "*".
func (grc *GinRequestContext) Params() map[string]string {
	params := make(map[string]string, len(grc.ctx.Params))
	for _, p := range grc.ctx.Params {
		if p.Key == "path" && strings.HasPrefix(p.Value, "/") {
			params["*"] = strings.TrimPrefix(p.Value, "/")
			continue
		}
		params[p.Key] = p.Value
	}
	return params
}

// QueryParam returns a query parameter
func (grc *GinRequestContext) QueryParam(name string) string {
	return grc.ctx.Query(name)
}

// QueryParams returns all query parameters
func (grc *GinRequestContext) QueryParams() map[string][]string {
	return grc.ctx.Request.URL.Query()
}

func (grc *GinRequestContext) Header(key string) string {
	return grc.ctx.GetHeader(key)
}

func (grc *GinRequestContext) Headers() map[string]string {
	return nest.LowerHeaders(grc.ctx.Request.Header)
}

func (grc *GinRequestContext) readBody() {
	grc.bodyOnce.Do(func() {
		if grc.ctx.Request.Body == nil {
			return
		}
		grc.raw, grc.bodyErr = io.ReadAll(grc.ctx.Request.Body)
		if grc.bodyErr == nil {
			grc.body, grc.bodyErr = nest.DecodeBody(grc.ctx.ContentType(), grc.raw)
		}
	})
}

// Body returns the decoded request body
func (grc *GinRequestContext) Body() (any, error) {
	grc.readBody()
	return grc.body, grc.bodyErr
}

// Bind binds request body to v
func (grc *GinRequestContext) Bind(v any) error {
	grc.readBody()
	if grc.bodyErr != nil {
		return grc.bodyErr
	}
	return nest.BindBody(grc.ctx.ContentType(), grc.raw, v)
}

// Get returns a value from context
func (grc *GinRequestContext) Get(key string) any {
	value, _ := grc.ctx.Get(key)
	return value
}

// Set sets a value in context
func (grc *GinRequestContext) Set(key string, val any) {
	grc.ctx.Set(key, val)
}

// Response returns the response interface
func (grc *GinRequestContext) Response() nest.ResponseInterface {
	return &GinResponseInterface{ctx: grc.ctx}
}

func (grc *GinRequestContext) Native() any {
	return grc.ctx
}

// GinResponseInterface implements nest.ResponseInterface for Gin
type GinResponseInterface struct {
	ctx *gin.Context
}

// Status returns the response status code
func (gri *GinResponseInterface) Status() int {
	return gri.ctx.Writer.Status()
}

// SetStatus sets the response status code
func (gri *GinResponseInterface) SetStatus(code int) {
	gri.ctx.Status(code)
}

// Header returns a response header
func (gri *GinResponseInterface) Header(key string) string {
	return gri.ctx.Writer.Header().Get(key)
}

// SetHeader sets a response header
func (gri *GinResponseInterface) SetHeader(key, value string) {
	gri.ctx.Header(key, value)
}

// JSON writes a JSON response
func (gri *GinResponseInterface) JSON(code int, v any) error {
	gri.ctx.JSON(code, v)
	return nil
}

// String writes a string response
func (gri *GinResponseInterface) String(code int, s string) error {
	gri.ctx.String(code, "%s", s)
	return nil
}

// Blob writes a blob response
func (gri *GinResponseInterface) Blob(code int, contentType string, b []byte) error {
	gri.ctx.Data(code, contentType, b)
	return nil
}

// NoContent writes the status with an empty body
func (gri *GinResponseInterface) NoContent(code int) error {
	gri.ctx.Status(code)
	gri.ctx.Writer.WriteHeaderNow()
	return nil
}

// Written returns whether the response has been written
func (gri *GinResponseInterface) Written() bool {
	return gri.ctx.Writer.Written()
}
