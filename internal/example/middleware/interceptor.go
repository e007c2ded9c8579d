package middleware

import (
	"time"

	"github.com/toyz/mininest/pkg/nest"
	"go.uber.org/zap"
)

// LoggingInterceptor wraps the rest of the pipeline, logging the request
// body on the way in and the status and duration on the way out
type LoggingInterceptor struct {
	logger *zap.Logger
}

func NewLoggingInterceptor(logger *zap.Logger) *LoggingInterceptor {
	return &LoggingInterceptor{logger: logger.Named("interceptor")}
}

func (i *LoggingInterceptor) Use(ctx nest.RequestContext, next nest.NextFunc) error {
	start := time.Now()
	fields := []zap.Field{
		zap.String("method", ctx.Method()),
		zap.String("path", ctx.Path()),
	}
	if body, err := ctx.Body(); err == nil && !empty(body) {
		fields = append(fields, zap.Any("body", body))
	}
	i.logger.Debug("request received", fields...)

	err := next()

	i.logger.Debug("response sent",
		zap.String("method", ctx.Method()),
		zap.String("path", ctx.Path()),
		zap.Int("status", ctx.Response().Status()),
		zap.Duration("duration", time.Since(start)),
	)
	return err
}

func empty(body any) bool {
	switch b := body.(type) {
	case nil:
		return true
	case map[string]any:
		return len(b) == 0
	case string:
		return b == ""
	}
	return false
}
