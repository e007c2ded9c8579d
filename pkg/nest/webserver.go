package nest

import (
	"context"
	"net"
	"net/http"
)

// WebServerInterface defines the contract for HTTP transport implementations
type WebServerInterface interface {
	// Route registration. Method "ALL" matches every HTTP method.
	RegisterRoute(method, path string, handler HandlerFunc)

	// Global middleware, applied in registration order
	Use(middleware MiddlewareFunc)

	// SetErrorHandler receives every error a handler or middleware returns
	SetErrorHandler(handler ErrorHandlerFunc)

	// Server lifecycle
	Serve(ln net.Listener) error
	Stop(ctx context.Context) error

	// Server information
	Name() string

	// Handler exposes the transport as an http.Handler for in-process use
	Handler() http.Handler
}

// RequestContext provides a framework-agnostic view of one HTTP request
type RequestContext interface {
	// Context is cancelled when the request ends or its deadline passes
	Context() context.Context
	SetContext(ctx context.Context)

	Method() string
	Path() string

	Param(key string) string
	Params() map[string]string

	QueryParam(key string) string
	QueryParams() map[string][]string

	Header(key string) string
	// Headers returns the request headers with lower-cased names
	Headers() map[string]string

	// Body decodes the request body once: JSON objects become
	// map[string]any, form posts become map[string]any of strings.
	// An empty body yields nil.
	Body() (any, error)
	Bind(v any) error

	Get(key string) any
	Set(key string, val any)

	Response() ResponseInterface

	// Native returns the transport's own context object
	Native() any
}

// ResponseInterface provides response writing capabilities
type ResponseInterface interface {
	Status() int
	SetStatus(code int)

	Header(key string) string
	SetHeader(key, value string)

	JSON(code int, v any) error
	String(code int, s string) error
	Blob(code int, contentType string, b []byte) error
	NoContent(code int) error

	// Written reports whether a response has already been sent
	Written() bool
}

// HandlerFunc defines the signature for HTTP handlers
type HandlerFunc func(RequestContext) error

// MiddlewareFunc defines the signature for transport middleware
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// ErrorHandlerFunc renders an error that escaped the request pipeline
type ErrorHandlerFunc func(err error, ctx RequestContext)

// MethodAll is the pseudo method that registers a route for every verb
const MethodAll = "ALL"
