package nest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Lifecycle hooks. Any provider or controller instance implementing one of
// these is called at the matching stage, in construction order
// (shutdown runs in reverse).
type (
	// OnModuleInit runs once every route has been explored
	OnModuleInit interface {
		OnModuleInit(ctx context.Context) error
	}
	// OnApplicationBootstrap runs right before the transport starts serving
	OnApplicationBootstrap interface {
		OnApplicationBootstrap(ctx context.Context) error
	}
	// OnApplicationShutdown runs after the transport stopped
	OnApplicationShutdown interface {
		OnApplicationShutdown(ctx context.Context) error
	}
)

// Application wires the container, module loader, registries and router
// explorer around one transport
type Application struct {
	transport  WebServerInterface
	store      *MetadataStore
	container  *Container
	loader     *ModuleLoader
	middleware *MiddlewareRegistry
	pipes      *PipeRegistry
	explorer   *RouterExplorer
	logger     *zap.Logger
	config     Config

	mu           sync.Mutex
	initialized  bool
	bootstrapped bool
	closed       bool
	routes       RouteTable
	errorHandler ErrorHandlerFunc
	listener     net.Listener
	serveErr     chan error
}

// New creates an application serving through transport
func New(transport WebServerInterface, opts ...Option) *Application {
	s := settings{logger: zap.NewNop(), store: DefaultMetadata}
	for _, opt := range opts {
		opt(&s)
	}

	container := NewContainer(s.store)
	pipes := NewPipeRegistry(s.store, container)
	return &Application{
		transport:  transport,
		store:      s.store,
		container:  container,
		loader:     NewModuleLoader(s.store, container, s.logger),
		middleware: NewMiddlewareRegistry(s.store, container, s.logger),
		pipes:      pipes,
		explorer:   NewRouterExplorer(s.store, container, pipes, s.logger, s.config.RequestTimeout),
		logger:     s.logger,
		config:     s.config,
	}
}

// Create builds an application and loads the root module
func Create(module reflect.Type, transport WebServerInterface, opts ...Option) (*Application, error) {
	app := New(transport, opts...)
	if err := app.LoadModule(module); err != nil {
		return nil, err
	}
	return app, nil
}

// LoadModule loads a module and its imports into the container
func (a *Application) LoadModule(module reflect.Type) error {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()

	if closed {
		return ErrClosed
	}
	return a.loader.LoadModule(module)
}

// Use adds global middleware
func (a *Application) Use(entries ...MiddlewareEntry) error {
	return a.middleware.AddGlobalMiddleware(entries...)
}

// UseAt adds middleware for requests under path
func (a *Application) UseAt(path string, entries ...MiddlewareEntry) error {
	return a.middleware.AddPathMiddleware(path, entries...)
}

// UseGlobalPipes adds pipes run for every bound argument
func (a *Application) UseGlobalPipes(entries ...PipeEntry) error {
	return a.pipes.AddGlobalPipe(entries...)
}

// UseErrorHandler replaces the default error handler
func (a *Application) UseErrorHandler(handler ErrorHandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorHandler = handler
}

// Init applies middleware, binds every route and installs the error
// handler. It runs once; later calls are no-ops until Close, after which
// it returns ErrClosed.
func (a *Application) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.initialized {
		return nil
	}

	if err := a.middleware.ApplyAll(a.transport); err != nil {
		return fmt.Errorf("apply middleware: %w", err)
	}
	a.pipes.Freeze()

	routes, err := a.explorer.Explore(a.transport, a.loader.GetAllControllers())
	if err != nil {
		return fmt.Errorf("explore routes: %w", err)
	}
	a.routes = routes
	a.transport.SetErrorHandler(a.handleError)

	for _, instance := range a.container.Instances() {
		if hook, ok := instance.(OnModuleInit); ok {
			if err := hook.OnModuleInit(ctx); err != nil {
				return fmt.Errorf("%T.OnModuleInit: %w", instance, err)
			}
		}
	}

	a.initialized = true
	a.logger.Info("application initialized",
		zap.String("transport", a.transport.Name()),
		zap.Int("routes", len(routes)),
	)
	return nil
}

func (a *Application) bootstrap(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bootstrapped {
		return nil
	}
	for _, instance := range a.container.Instances() {
		if hook, ok := instance.(OnApplicationBootstrap); ok {
			if err := hook.OnApplicationBootstrap(ctx); err != nil {
				return fmt.Errorf("%T.OnApplicationBootstrap: %w", instance, err)
			}
		}
	}
	a.bootstrapped = true
	return nil
}

// Listen initializes the application, binds addr and serves in the
// background. It returns once the listener is bound.
func (a *Application) Listen(ctx context.Context, addr string) error {
	if err := a.bootstrap(ctx); err != nil {
		return err
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	a.mu.Lock()
	a.listener = ln
	a.serveErr = make(chan error, 1)
	serveErr := a.serveErr
	a.mu.Unlock()

	a.logger.Info("application listening", zap.String("addr", ln.Addr().String()))
	go func() {
		serveErr <- a.transport.Serve(ln)
	}()
	return nil
}

// Serve initializes the application and serves on ln until the transport
// stops
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.bootstrap(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()
	return a.transport.Serve(ln)
}

// Addr returns the bound address once Listen or Serve was called
func (a *Application) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Done delivers the result of the background Serve started by Listen
func (a *Application) Done() <-chan error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.serveErr
}

// GetRoutes returns the route table built by Init
func (a *Application) GetRoutes() RouteTable {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append(RouteTable(nil), a.routes...)
}

// GetControllers returns the controller instances of every loaded module
func (a *Application) GetControllers() ([]any, error) {
	types := a.loader.GetAllControllers()
	instances := make([]any, 0, len(types))
	for _, t := range types {
		instance, err := a.container.Get(t)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// GetHTTPAdapter returns the transport
func (a *Application) GetHTTPAdapter() WebServerInterface {
	return a.transport
}

// Container exposes the dependency container
func (a *Application) Container() *Container {
	return a.container
}

// Metadata returns the metadata store the application reads from
func (a *Application) Metadata() *MetadataStore {
	return a.store
}

// Close stops the transport, runs shutdown hooks and clears the container
// and module loader. The application cannot be initialized again; a
// second Close is a no-op.
func (a *Application) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	var errs []error
	if err := a.transport.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop %s: %w", a.transport.Name(), err))
	}

	instances := a.container.Instances()
	for i := len(instances) - 1; i >= 0; i-- {
		if hook, ok := instances[i].(OnApplicationShutdown); ok {
			if err := hook.OnApplicationShutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%T.OnApplicationShutdown: %w", instances[i], err))
			}
		}
	}

	a.container.Clear()
	a.loader.Clear()

	a.mu.Lock()
	a.initialized = false
	a.bootstrapped = false
	a.routes = nil
	a.mu.Unlock()

	a.logger.Info("application closed")
	return errors.Join(errs...)
}

func (a *Application) handleError(err error, ctx RequestContext) {
	a.mu.Lock()
	custom := a.errorHandler
	a.mu.Unlock()

	a.logger.Error("request failed",
		zap.String("method", ctx.Method()),
		zap.String("path", ctx.Path()),
		zap.Error(err),
	)

	if custom != nil {
		custom(err, ctx)
		return
	}
	DefaultErrorHandler(err, ctx)
}

// DefaultErrorHandler responds with {statusCode, message}. The status
// comes from StatusCodeOf.
func DefaultErrorHandler(err error, ctx RequestContext) {
	res := ctx.Response()
	if res.Written() {
		return
	}

	status := StatusCodeOf(err)
	message := err.Error()
	var (
		httpErr *HttpError
		valErr  *ValidationError
	)
	switch {
	case errors.As(err, &httpErr):
		message = httpErr.Message
	case errors.As(err, &valErr):
		message = valErr.Error()
	}
	if message == "" {
		message = http.StatusText(status)
	}
	_ = res.JSON(status, map[string]any{
		"statusCode": status,
		"message":    message,
	})
}
