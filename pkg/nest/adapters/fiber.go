package adapters

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/toyz/mininest/pkg/nest"
)

const fiberContextKey = "mininest.request"

// FiberAdapter wraps a Fiber app to implement nest.WebServerInterface
type FiberAdapter struct {
	app *fiber.App

	mu           sync.Mutex
	errorHandler nest.ErrorHandlerFunc
}

// NewFiberAdapter creates a new Fiber adapter instance
func NewFiberAdapter() *FiberAdapter {
	fa := &FiberAdapter{}
	fa.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          fa.handleFiberError,
	})
	return fa
}

// NewDefaultFiberAdapter creates a new Fiber adapter with panic recovery
func NewDefaultFiberAdapter() *FiberAdapter {
	adapter := NewFiberAdapter()
	adapter.app.Use(recover.New())
	return adapter
}

// RegisterRoute registers a route with the Fiber app
func (fa *FiberAdapter) RegisterRoute(method, path string, handler nest.HandlerFunc) {
	h := fa.convertHandler(handler)
	if strings.EqualFold(method, nest.MethodAll) {
		fa.app.All(path, h)
		return
	}
	fa.app.Add(strings.ToUpper(method), path, h)
}

// Use adds middleware to the Fiber app. Like routes, Fiber middleware
// only sees requests for handlers registered after it.
func (fa *FiberAdapter) Use(middleware nest.MiddlewareFunc) {
	fa.app.Use(fa.convertMiddleware(middleware))
}

// SetErrorHandler sets the handler for errors returned by routes and middleware
func (fa *FiberAdapter) SetErrorHandler(handler nest.ErrorHandlerFunc) {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	fa.errorHandler = handler
}

// Serve serves on ln until Stop is called
func (fa *FiberAdapter) Serve(ln net.Listener) error {
	return fa.app.Listener(ln)
}

// Stop stops the Fiber server
func (fa *FiberAdapter) Stop(ctx context.Context) error {
	return fa.app.ShutdownWithContext(ctx)
}

// Name returns the adapter name
func (fa *FiberAdapter) Name() string {
	return "Fiber"
}

// Handler adapts the app to net/http
func (fa *FiberAdapter) Handler() http.Handler {
	return adaptor.FiberApp(fa.app)
}

// GetApp returns the underlying Fiber app
func (fa *FiberAdapter) GetApp() *fiber.App {
	return fa.app
}

func (fa *FiberAdapter) handleFiberError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		err = nest.NewHttpError(fe.Code, fe.Message)
	}

	fa.mu.Lock()
	handler := fa.errorHandler
	fa.mu.Unlock()

	if handler == nil {
		handler = nest.DefaultErrorHandler
	}
	handler(err, fa.contextFor(c))
	return nil
}

func (fa *FiberAdapter) contextFor(c *fiber.Ctx) *FiberRequestContext {
	if rc, ok := c.Locals(fiberContextKey).(*FiberRequestContext); ok {
		return rc
	}
	rc := &FiberRequestContext{ctx: c}
	c.Locals(fiberContextKey, rc)
	return rc
}

func (fa *FiberAdapter) convertHandler(handler nest.HandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return handler(fa.contextFor(c))
	}
}

func (fa *FiberAdapter) convertMiddleware(middleware nest.MiddlewareFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		next := func(nest.RequestContext) error {
			return c.Next()
		}
		return middleware(next)(fa.contextFor(c))
	}
}

// FiberRequestContext implements nest.RequestContext for Fiber. It is
// only valid for the lifetime of the request.
type FiberRequestContext struct {
	ctx *fiber.Ctx

	written  bool
	bodyOnce sync.Once
	raw      []byte
	body     any
	bodyErr  error
}

func (frc *FiberRequestContext) Context() context.Context {
	return frc.ctx.UserContext()
}

func (frc *FiberRequestContext) SetContext(ctx context.Context) {
	frc.ctx.SetUserContext(ctx)
}

func (frc *FiberRequestContext) Method() string {
	return frc.ctx.Method()
}

func (frc *FiberRequestContext) Path() string {
	return frc.ctx.Path()
}

func (frc *FiberRequestContext) Param(key string) string {
	if key == "*" {
		return frc.ctx.Params("*")
	}
	return frc.ctx.Params(key)
}

// Params returns every path parameter. The catch-all is keyed "*".
func (frc *FiberRequestContext) Params() map[string]string {
	all := frc.ctx.AllParams()
	params := make(map[string]string, len(all))
	for key, value := range all {
		if key == "*1" {
			key = "*"
		}
		params[key] = value
	}
	return params
}

func (frc *FiberRequestContext) QueryParam(key string) string {
	return frc.ctx.Query(key)
}

func (frc *FiberRequestContext) QueryParams() map[string][]string {
	values := make(map[string][]string)
	frc.ctx.Context().QueryArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		values[k] = append(values[k], string(value))
	})
	return values
}

func (frc *FiberRequestContext) Header(key string) string {
	return frc.ctx.Get(key)
}

func (frc *FiberRequestContext) Headers() map[string]string {
	return nest.LowerHeaders(frc.ctx.GetReqHeaders())
}

func (frc *FiberRequestContext) readBody() {
	frc.bodyOnce.Do(func() {
		// Fiber reuses the body buffer after the handler returns.
		frc.raw = append([]byte(nil), frc.ctx.Body()...)
		frc.body, frc.bodyErr = nest.DecodeBody(frc.ctx.Get(fiber.HeaderContentType), frc.raw)
	})
}

func (frc *FiberRequestContext) Body() (any, error) {
	frc.readBody()
	return frc.body, frc.bodyErr
}

func (frc *FiberRequestContext) Bind(v any) error {
	frc.readBody()
	if frc.bodyErr != nil {
		return frc.bodyErr
	}
	return nest.BindBody(frc.ctx.Get(fiber.HeaderContentType), frc.raw, v)
}

func (frc *FiberRequestContext) Get(key string) any {
	return frc.ctx.Locals(key)
}

func (frc *FiberRequestContext) Set(key string, val any) {
	frc.ctx.Locals(key, val)
}

func (frc *FiberRequestContext) Response() nest.ResponseInterface {
	return &FiberResponseInterface{rc: frc}
}

func (frc *FiberRequestContext) Native() any {
	return frc.ctx
}

// FiberResponseInterface implements nest.ResponseInterface for Fiber.
// Fiber sends the response after the handler chain returns, so writes are
// tracked here.
type FiberResponseInterface struct {
	rc *FiberRequestContext
}

func (fri *FiberResponseInterface) Status() int {
	return fri.rc.ctx.Response().StatusCode()
}

func (fri *FiberResponseInterface) SetStatus(code int) {
	fri.rc.ctx.Status(code)
}

func (fri *FiberResponseInterface) Header(key string) string {
	return string(fri.rc.ctx.Response().Header.Peek(key))
}

func (fri *FiberResponseInterface) SetHeader(key, value string) {
	fri.rc.ctx.Set(key, value)
}

func (fri *FiberResponseInterface) JSON(code int, v any) error {
	fri.rc.written = true
	return fri.rc.ctx.Status(code).JSON(v)
}

func (fri *FiberResponseInterface) String(code int, s string) error {
	fri.rc.written = true
	return fri.rc.ctx.Status(code).SendString(s)
}

func (fri *FiberResponseInterface) Blob(code int, contentType string, b []byte) error {
	fri.rc.written = true
	fri.rc.ctx.Set(fiber.HeaderContentType, contentType)
	return fri.rc.ctx.Status(code).Send(b)
}

func (fri *FiberResponseInterface) NoContent(code int) error {
	fri.rc.written = true
	fri.rc.ctx.Status(code)
	fri.rc.ctx.Response().ResetBody()
	return nil
}

func (fri *FiberResponseInterface) Written() bool {
	return fri.rc.written
}
