package nest

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// NextFunc continues the request pipeline
type NextFunc func() error

// Middleware is implemented by class-style middleware resolved through the
// container
type Middleware interface {
	Use(ctx RequestContext, next NextFunc) error
}

// MiddlewareHandler is function-style middleware. It either calls next or
// ends the request by writing a response or returning an error.
type MiddlewareHandler func(ctx RequestContext, next NextFunc) error

// MiddlewareEntry is a registered middleware: a function, an instance, or
// a type to resolve from the container
type MiddlewareEntry struct {
	fn       MiddlewareHandler
	instance Middleware
	class    reflect.Type
}

// MiddlewareFn wraps a function-style middleware
func MiddlewareFn(fn MiddlewareHandler) MiddlewareEntry {
	return MiddlewareEntry{fn: fn}
}

// MiddlewareInstance wraps an already built class-style middleware
func MiddlewareInstance(m Middleware) MiddlewareEntry {
	return MiddlewareEntry{instance: m}
}

// MiddlewareClass registers T, resolved from the container once when the
// middleware is applied
func MiddlewareClass[T Middleware]() MiddlewareEntry {
	return MiddlewareEntry{class: reflect.TypeFor[T]()}
}

// String names the entry for logging
func (e MiddlewareEntry) String() string {
	switch {
	case e.class != nil:
		return ProviderName(e.class)
	case e.instance != nil:
		return fmt.Sprintf("%T", e.instance)
	default:
		return "func"
	}
}

// MiddlewareRegistry collects global and path-scoped middleware and applies
// it to a transport
type MiddlewareRegistry struct {
	store     *MetadataStore
	container *Container
	logger    *zap.Logger

	mu     sync.Mutex
	global []MiddlewareEntry
	paths  []string
	byPath map[string][]MiddlewareEntry
	frozen bool
}

// NewMiddlewareRegistry creates an empty registry
func NewMiddlewareRegistry(store *MetadataStore, container *Container, logger *zap.Logger) *MiddlewareRegistry {
	if store == nil {
		store = DefaultMetadata
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MiddlewareRegistry{
		store:     store,
		container: container,
		logger:    logger,
		byPath:    make(map[string][]MiddlewareEntry),
	}
}

// AddGlobalMiddleware appends middleware applied to every request
func (r *MiddlewareRegistry) AddGlobalMiddleware(entries ...MiddlewareEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrFrozen
	}
	for _, e := range entries {
		r.mark(e, "*")
	}
	r.global = append(r.global, entries...)
	return nil
}

// AddPathMiddleware appends middleware applied to requests under path
func (r *MiddlewareRegistry) AddPathMiddleware(path string, entries ...MiddlewareEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrFrozen
	}
	path = NormalizePath("/" + path)
	if _, ok := r.byPath[path]; !ok {
		r.paths = append(r.paths, path)
	}
	for _, e := range entries {
		r.mark(e, path)
	}
	r.byPath[path] = append(r.byPath[path], entries...)
	return nil
}

func (r *MiddlewareRegistry) mark(e MiddlewareEntry, scope string) {
	if e.class != nil {
		r.store.Define(MiddlewareMetadata, scope, TypeSubject(e.class))
	}
}

// ApplyAll registers global middleware in order, then path middleware
// grouped by path in the order each path was first registered. The
// registry refuses further additions afterwards.
func (r *MiddlewareRegistry) ApplyAll(transport WebServerInterface) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.global {
		h, err := r.resolve(e)
		if err != nil {
			return err
		}
		transport.Use(wrapMiddleware(h, ""))
		r.logger.Debug("middleware applied", zap.String("middleware", e.String()))
	}

	for _, path := range r.paths {
		for _, e := range r.byPath[path] {
			h, err := r.resolve(e)
			if err != nil {
				return err
			}
			transport.Use(wrapMiddleware(h, path))
			r.logger.Debug("middleware applied",
				zap.String("middleware", e.String()),
				zap.String("path", path),
			)
		}
	}

	r.frozen = true
	return nil
}

func (r *MiddlewareRegistry) resolve(e MiddlewareEntry) (MiddlewareHandler, error) {
	switch {
	case e.fn != nil:
		return e.fn, nil
	case e.instance != nil:
		return e.instance.Use, nil
	case e.class != nil:
		if r.container == nil {
			return nil, fmt.Errorf("middleware %s: no container to resolve from", ProviderName(e.class))
		}
		v, err := r.container.Get(e.class)
		if err != nil {
			return nil, fmt.Errorf("middleware %s: %w", ProviderName(e.class), err)
		}
		m, ok := v.(Middleware)
		if !ok {
			return nil, fmt.Errorf("middleware %s does not implement Use", ProviderName(e.class))
		}
		return m.Use, nil
	}
	return nil, fmt.Errorf("empty middleware entry")
}

// wrapMiddleware adapts a handler to the transport's middleware shape.
// With a prefix, requests outside it skip the middleware.
func wrapMiddleware(h MiddlewareHandler, prefix string) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx RequestContext) error {
			if prefix != "" && !MatchPathPrefix(prefix, ctx.Path()) {
				return next(ctx)
			}
			return h(ctx, func() error { return next(ctx) })
		}
	}
}
