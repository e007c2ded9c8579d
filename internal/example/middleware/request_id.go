package middleware

import (
	"github.com/google/uuid"
	"github.com/toyz/mininest/pkg/nest"
)

const (
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the RequestContext value holding the id
	RequestIDKey = "requestId"
)

// RequestID reuses the caller's X-Request-ID or assigns a new uuid, stores
// it on the request and echoes it in the response
func RequestID(ctx nest.RequestContext, next nest.NextFunc) error {
	id := ctx.Header(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	ctx.Set(RequestIDKey, id)
	ctx.Response().SetHeader(RequestIDHeader, id)
	return next()
}
