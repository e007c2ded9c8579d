package adapters

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/toyz/mininest/pkg/nest"
)

const echoContextKey = "mininest.request"

// EchoAdapter implements nest.WebServerInterface for Echo v4
type EchoAdapter struct {
	engine *echo.Echo

	mu           sync.Mutex
	errorHandler nest.ErrorHandlerFunc
}

// NewEchoAdapter creates a new Echo adapter. It takes over the engine's
// HTTPErrorHandler.
func NewEchoAdapter(e *echo.Echo) *EchoAdapter {
	ea := &EchoAdapter{engine: e}
	e.HTTPErrorHandler = ea.handleEchoError
	return ea
}

// NewDefaultEchoAdapter creates a new Echo adapter with default Echo instance
func NewDefaultEchoAdapter() *EchoAdapter {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return NewEchoAdapter(e)
}

// RegisterRoute registers a route with the Echo server
func (ea *EchoAdapter) RegisterRoute(method, path string, handler nest.HandlerFunc) {
	h := ea.convertHandler(handler)
	if strings.EqualFold(method, nest.MethodAll) {
		ea.engine.Any(path, h)
		return
	}
	ea.engine.Add(strings.ToUpper(method), path, h)
}

// Use adds global middleware
func (ea *EchoAdapter) Use(middleware nest.MiddlewareFunc) {
	ea.engine.Use(ea.convertMiddleware(middleware))
}

// SetErrorHandler sets the handler for errors returned by routes and middleware
func (ea *EchoAdapter) SetErrorHandler(handler nest.ErrorHandlerFunc) {
	ea.mu.Lock()
	defer ea.mu.Unlock()

	ea.errorHandler = handler
}

// Serve serves on ln until Stop is called
func (ea *EchoAdapter) Serve(ln net.Listener) error {
	ea.engine.Listener = ln
	if err := ea.engine.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the server
func (ea *EchoAdapter) Stop(ctx context.Context) error {
	return ea.engine.Shutdown(ctx)
}

// Name returns the adapter name
func (ea *EchoAdapter) Name() string {
	return "Echo"
}

// Handler returns the engine as an http.Handler
func (ea *EchoAdapter) Handler() http.Handler {
	return ea.engine
}

// GetEngine returns the underlying Echo instance
func (ea *EchoAdapter) GetEngine() *echo.Echo {
	return ea.engine
}

// handleEchoError routes every error, including Echo's own 404/405, to
// the registered error handler
func (ea *EchoAdapter) handleEchoError(err error, c echo.Context) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		err = nest.NewHttpError(he.Code, msg)
	}

	ea.mu.Lock()
	handler := ea.errorHandler
	ea.mu.Unlock()

	if handler == nil {
		handler = nest.DefaultErrorHandler
	}
	handler(err, ea.contextFor(c))
}

func (ea *EchoAdapter) contextFor(c echo.Context) *EchoRequestContext {
	if rc, ok := c.Get(echoContextKey).(*EchoRequestContext); ok {
		return rc
	}
	rc := &EchoRequestContext{context: c}
	c.Set(echoContextKey, rc)
	return rc
}

// convertHandler converts nest.HandlerFunc to echo.HandlerFunc
func (ea *EchoAdapter) convertHandler(handler nest.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handler(ea.contextFor(c))
	}
}

// convertMiddleware converts nest.MiddlewareFunc to echo.MiddlewareFunc
func (ea *EchoAdapter) convertMiddleware(middleware nest.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			nestNext := func(nest.RequestContext) error {
				return next(c)
			}
			return middleware(nestNext)(ea.contextFor(c))
		}
	}
}

// EchoRequestContext implements nest.RequestContext for Echo
type EchoRequestContext struct {
	context echo.Context

	bodyOnce sync.Once
	raw      []byte
	body     any
	bodyErr  error
}

func (erc *EchoRequestContext) Context() context.Context {
	return erc.context.Request().Context()
}

func (erc *EchoRequestContext) SetContext(ctx context.Context) {
	erc.context.SetRequest(erc.context.Request().WithContext(ctx))
}

func (erc *EchoRequestContext) Method() string {
	return erc.context.Request().Method
}

func (erc *EchoRequestContext) Path() string {
	return erc.context.Request().URL.Path
}

func (erc *EchoRequestContext) Param(key string) string {
	return erc.context.Param(key)
}

// Params returns every path parameter. The catch-all is keyed "*".
func (erc *EchoRequestContext) Params() map[string]string {
	names := erc.context.ParamNames()
	values := erc.context.ParamValues()
	params := make(map[string]string, len(names))
	for i, name := range names {
		if i < len(values) {
			params[name] = values[i]
		}
	}
	return params
}

func (erc *EchoRequestContext) QueryParam(key string) string {
	return erc.context.QueryParam(key)
}

func (erc *EchoRequestContext) QueryParams() map[string][]string {
	return erc.context.QueryParams()
}

func (erc *EchoRequestContext) Header(key string) string {
	return erc.context.Request().Header.Get(key)
}

func (erc *EchoRequestContext) Headers() map[string]string {
	return nest.LowerHeaders(erc.context.Request().Header)
}

func (erc *EchoRequestContext) contentType() string {
	return erc.context.Request().Header.Get(echo.HeaderContentType)
}

func (erc *EchoRequestContext) readBody() {
	erc.bodyOnce.Do(func() {
		req := erc.context.Request()
		if req.Body == nil {
			return
		}
		erc.raw, erc.bodyErr = io.ReadAll(req.Body)
		if erc.bodyErr == nil {
			erc.body, erc.bodyErr = nest.DecodeBody(erc.contentType(), erc.raw)
		}
	})
}

func (erc *EchoRequestContext) Body() (any, error) {
	erc.readBody()
	return erc.body, erc.bodyErr
}

func (erc *EchoRequestContext) Bind(v any) error {
	erc.readBody()
	if erc.bodyErr != nil {
		return erc.bodyErr
	}
	return nest.BindBody(erc.contentType(), erc.raw, v)
}

func (erc *EchoRequestContext) Get(key string) any {
	return erc.context.Get(key)
}

func (erc *EchoRequestContext) Set(key string, val any) {
	erc.context.Set(key, val)
}

func (erc *EchoRequestContext) Response() nest.ResponseInterface {
	return &EchoResponseInterface{context: erc.context}
}

func (erc *EchoRequestContext) Native() any {
	return erc.context
}

// EchoResponseInterface implements nest.ResponseInterface for Echo
type EchoResponseInterface struct {
	context echo.Context
}

func (eri *EchoResponseInterface) Status() int {
	return eri.context.Response().Status
}

func (eri *EchoResponseInterface) SetStatus(code int) {
	eri.context.Response().Status = code
}

func (eri *EchoResponseInterface) Header(key string) string {
	return eri.context.Response().Header().Get(key)
}

func (eri *EchoResponseInterface) SetHeader(key, value string) {
	eri.context.Response().Header().Set(key, value)
}

func (eri *EchoResponseInterface) JSON(code int, v any) error {
	return eri.context.JSON(code, v)
}

func (eri *EchoResponseInterface) String(code int, s string) error {
	return eri.context.String(code, s)
}

func (eri *EchoResponseInterface) Blob(code int, contentType string, b []byte) error {
	return eri.context.Blob(code, contentType, b)
}

func (eri *EchoResponseInterface) NoContent(code int) error {
	return eri.context.NoContent(code)
}

func (eri *EchoResponseInterface) Written() bool {
	return eri.context.Response().Committed
}
