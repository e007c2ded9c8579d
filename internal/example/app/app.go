// Package app assembles the example application: AppModule, its
// middleware, pipes and error filter, over a chosen transport.
package app

import (
	"context"
	"fmt"
	"net/http"
	"reflect"

	"github.com/redis/go-redis/v9"
	"github.com/toyz/mininest/internal/config"
	"github.com/toyz/mininest/internal/example/apidocs"
	"github.com/toyz/mininest/internal/example/filters"
	"github.com/toyz/mininest/internal/example/middleware"
	"github.com/toyz/mininest/internal/example/pipes"
	"github.com/toyz/mininest/internal/example/users"
	"github.com/toyz/mininest/pkg/nest"
	"github.com/toyz/mininest/pkg/nest/adapters"
	"go.uber.org/zap"
)

// AppModule is the root module
type AppModule struct{}

// DocsPath serves the generated API document
const DocsPath = "/api-docs"

// Declare records AppModule and its imports on store
func Declare(store *nest.MetadataStore, backing users.Store, logger *zap.Logger, key middleware.APIKey) (reflect.Type, error) {
	usersModule, err := users.Declare(store, backing)
	if err != nil {
		return nil, fmt.Errorf("declare users module: %w", err)
	}

	module := nest.TypeOf[AppModule]()
	err = nest.DeclareModule(store, module, nest.ModuleOptions{
		Imports: []reflect.Type{usersModule},
		Providers: []any{
			nest.Value(logger),
			nest.Value(key),
			middleware.NewLoggerMiddleware,
			middleware.NewLoggingInterceptor,
			middleware.NewAuthGuard,
			pipes.NewValidationPipe,
			filters.NewExceptionFilter,
		},
	})
	if err != nil {
		return nil, err
	}
	return module, nil
}

// NewTransport builds the transport named in the configuration
func NewTransport(name string) (nest.WebServerInterface, error) {
	switch name {
	case "gin":
		return adapters.NewDefaultGinAdapter(), nil
	case "echo":
		return adapters.NewDefaultEchoAdapter(), nil
	case "fiber":
		return adapters.NewDefaultFiberAdapter(), nil
	}
	return nil, fmt.Errorf("unknown transport %q", name)
}

// NewStore returns a redis store when an address is configured and an
// in-memory store otherwise. Both start with the seed users.
func NewStore(cfg config.RedisConfig) users.Store {
	if cfg.Addr == "" {
		return users.NewMemoryStore(users.Seed()...)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB})
	return users.NewRedisStore(client, "mininest:", users.Seed()...)
}

// New builds and initializes the example application on transport. Users
// are kept in backing, or in the configured store when backing is nil.
func New(ctx context.Context, cfg *config.Config, transport nest.WebServerInterface, logger *zap.Logger, backing users.Store) (*nest.Application, error) {
	if backing == nil {
		backing = NewStore(cfg.Redis)
	}

	store := nest.NewMetadataStore()
	module, err := Declare(store, backing, logger, middleware.APIKey(cfg.Auth.APIKey))
	if err != nil {
		return nil, err
	}

	application, err := nest.Create(module, transport,
		nest.WithLogger(logger),
		nest.WithMetadata(store),
		nest.WithRequestTimeout(cfg.Server.RequestTimeout),
	)
	if err != nil {
		return nil, err
	}

	err = application.Use(
		nest.MiddlewareClass[*middleware.LoggingInterceptor](),
		nest.MiddlewareFn(middleware.RequestID),
		nest.MiddlewareClass[*middleware.LoggerMiddleware](),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Auth.Enabled {
		if err := application.UseAt("/users", nest.MiddlewareClass[*middleware.AuthGuard]()); err != nil {
			return nil, err
		}
	}
	if err := application.UseGlobalPipes(nest.PipeClass[*pipes.ValidationPipe]()); err != nil {
		return nil, err
	}

	filter, err := nest.Resolve[*filters.ExceptionFilter](application.Container())
	if err != nil {
		return nil, err
	}
	application.UseErrorHandler(filter.Catch)

	if err := application.Init(ctx); err != nil {
		return nil, err
	}

	controllers, err := application.GetControllers()
	if err != nil {
		return nil, err
	}
	doc := apidocs.Generate(store, controllers, application.GetRoutes())
	transport.RegisterRoute(http.MethodGet, DocsPath, apidocs.Handler(doc))
	return application, nil
}
