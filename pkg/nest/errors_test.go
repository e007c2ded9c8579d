package nest_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/toyz/mininest/pkg/nest"
)

func TestStatusCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"http error", nest.ErrConflict("taken"), http.StatusConflict},
		{"wrapped http error", fmt.Errorf("create: %w", nest.ErrNotFound("gone")), http.StatusNotFound},
		{"validation", nest.NewValidationError("id", "bad"), http.StatusBadRequest},
		{"timeout", &nest.TimeoutError{Stage: "pipes", Cause: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"handler execution", &nest.HandlerExecutionError{Controller: "C", Method: "M", Cause: errors.New("x")}, http.StatusInternalServerError},
		{"plain", errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nest.StatusCodeOf(tt.err))
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, nest.InvalidModuleErrorCode, nest.CodeOf(&nest.InvalidModuleError{Module: "m"}))
	assert.Equal(t, nest.CircularDependencyErrorCode, nest.CodeOf(fmt.Errorf("load: %w", &nest.CircularDependencyError{Provider: "p"})))
	assert.Equal(t, nest.RouteDefinitionErrorCode, nest.CodeOf(&nest.RouteDefinitionError{}))
	assert.Equal(t, nest.UnknownErrorCode, nest.CodeOf(errors.New("other")))
	assert.Equal(t, "TimeoutError", nest.TimeoutErrorCode.String())
	assert.Equal(t, "UnknownError", nest.UnknownErrorCode.String())
}

func TestErrorMessages(t *testing.T) {
	assert.EqualError(t, &nest.CircularDependencyError{Provider: "A", Chain: []string{"A", "B", "A"}},
		"circular dependency detected for A: A -> B -> A")
	assert.EqualError(t, &nest.CircularDependencyError{Provider: "A", Chain: []string{"A"}},
		"circular dependency detected for A")
	assert.EqualError(t, &nest.ProviderNotFoundError{Provider: "Repo", RequiredBy: "Service"},
		"provider Repo not found (required by Service)")
	assert.EqualError(t, nest.NewValidationError("", "empty"), "validation failed: empty")
	assert.EqualError(t, nest.ErrBadRequest("nope"), "HTTP 400: nope")
}

func TestHandlerExecutionError_Unwraps(t *testing.T) {
	cause := errors.New("root")
	err := &nest.HandlerExecutionError{Controller: "C", Method: "M", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "handler C.M failed: root")
}

func TestResponseHelpers(t *testing.T) {
	assert.Equal(t, &nest.Response{StatusCode: http.StatusOK, Body: "x"}, nest.OK("x"))
	assert.Equal(t, http.StatusCreated, nest.Created(nil).StatusCode)
	assert.Nil(t, nest.NoContent().Body)

	nf := nest.NotFound("user not found")
	assert.Equal(t, http.StatusNotFound, nf.StatusCode)
	assert.Equal(t, map[string]any{"statusCode": http.StatusNotFound, "message": "user not found"}, nf.Body)
}
