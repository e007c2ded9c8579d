// Package middleware holds the example's cross-cutting request handlers:
// request logging, request ids, the API-key guard and the logging
// interceptor.
package middleware

import (
	"time"

	"github.com/toyz/mininest/pkg/nest"
	"go.uber.org/zap"
)

// LoggerMiddleware logs the start and the outcome of every request
type LoggerMiddleware struct {
	logger *zap.Logger
}

func NewLoggerMiddleware(logger *zap.Logger) *LoggerMiddleware {
	return &LoggerMiddleware{logger: logger.Named("http")}
}

func (m *LoggerMiddleware) Use(ctx nest.RequestContext, next nest.NextFunc) error {
	return logRequest(m.logger, ctx, next)
}

// LoggerFunc is LoggerMiddleware in function form
func LoggerFunc(logger *zap.Logger) nest.MiddlewareHandler {
	logger = logger.Named("http")
	return func(ctx nest.RequestContext, next nest.NextFunc) error {
		return logRequest(logger, ctx, next)
	}
}

func logRequest(logger *zap.Logger, ctx nest.RequestContext, next nest.NextFunc) error {
	start := time.Now()
	logger.Debug("request started",
		zap.String("method", ctx.Method()),
		zap.String("path", ctx.Path()),
	)

	err := next()

	fields := []zap.Field{
		zap.String("method", ctx.Method()),
		zap.String("path", ctx.Path()),
		zap.Int("status", ctx.Response().Status()),
		zap.Duration("duration", time.Since(start)),
	}
	if id, ok := ctx.Get(RequestIDKey).(string); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.Info("request completed", fields...)
	return err
}
