// Package filters holds the example's error handler
package filters

import (
	"errors"
	"net/http"
	"time"

	"github.com/toyz/mininest/pkg/nest"
	"go.uber.org/zap"
)

// ExceptionFilter renders every pipeline error as
// {statusCode, message, timestamp, path, method}
type ExceptionFilter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewExceptionFilter(logger *zap.Logger) *ExceptionFilter {
	return &ExceptionFilter{logger: logger.Named("exceptions"), now: time.Now}
}

// Catch is a nest.ErrorHandlerFunc
func (f *ExceptionFilter) Catch(err error, ctx nest.RequestContext) {
	status := nest.StatusCodeOf(err)
	body := map[string]any{
		"statusCode": status,
		"message":    message(err, status),
		"timestamp":  f.now().UTC().Format(time.RFC3339Nano),
		"path":       ctx.Path(),
		"method":     ctx.Method(),
	}

	var verr *nest.ValidationError
	if errors.As(err, &verr) && verr.Details != nil {
		body["details"] = verr.Details
	}
	var herr *nest.HttpError
	if errors.As(err, &herr) && herr.Details != nil {
		body["details"] = herr.Details
	}

	if status >= http.StatusInternalServerError {
		f.logger.Error("request failed",
			zap.String("method", ctx.Method()),
			zap.String("path", ctx.Path()),
			zap.Error(err),
		)
	}

	if ctx.Response().Written() {
		return
	}
	_ = ctx.Response().JSON(status, body)
}

func message(err error, status int) string {
	var herr *nest.HttpError
	if errors.As(err, &herr) && herr.Message != "" {
		return herr.Message
	}
	var verr *nest.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	if status >= http.StatusInternalServerError && !nest.IsTimeout(err) {
		return "Internal server error"
	}
	return err.Error()
}
