package users_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toyz/mininest/internal/example/users"
	"github.com/toyz/mininest/pkg/nest"
	"github.com/toyz/mininest/pkg/nest/nesttest"
)

func newUsersApp(t *testing.T) *nesttest.Transport {
	t.Helper()
	store := nest.NewMetadataStore()
	module, err := users.Declare(store, users.NewMemoryStore(users.Seed()...))
	require.NoError(t, err)

	_, transport := nesttest.NewApp(t, module, nil, nest.WithMetadata(store))
	return transport
}

func TestUsersModule_Routes(t *testing.T) {
	transport := newUsersApp(t)
	assert.Equal(t, [][2]string{
		{"GET", "/users"},
		{"GET", "/users/search"},
		{"GET", "/users/:id"},
		{"POST", "/users"},
		{"PUT", "/users/:id"},
		{"DELETE", "/users/:id"},
	}, transport.Routes())
}

func TestUserController(t *testing.T) {
	transport := newUsersApp(t)
	ctx := context.Background()
	id := func(v string) map[string]string { return map[string]string{"id": v} }

	rec := transport.Dispatch(ctx, nesttest.Request{Method: "GET", Route: "/users"})
	assert.Equal(t, http.StatusOK, rec.Code)
	var list []users.User
	require.NoError(t, rec.DecodeJSON(&list))
	assert.Len(t, list, 3)

	rec = transport.Dispatch(ctx, nesttest.Request{Method: "GET", Route: "/users/:id", Params: id("1")})
	assert.JSONEq(t, `{"id":1,"name":"Zhang San","email":"zhangsan@example.com"}`, rec.Body())

	rec = transport.Dispatch(ctx, nesttest.Request{Method: "GET", Route: "/users/:id", Params: id("42")})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"statusCode":404,"message":"user not found"}`, rec.Body())

	rec = transport.Dispatch(ctx, nesttest.Request{
		Method: "GET", Route: "/users/search",
		Query: map[string][]string{"name": {"Wang"}},
	})
	assert.JSONEq(t, `[{"id":3,"name":"Wang Wu","email":"wangwu@example.com"}]`, rec.Body())

	rec = transport.Dispatch(ctx, nesttest.Request{
		Method: "POST", Route: "/users",
		Body: map[string]any{"name": "Zhao Liu", "email": "zhaoliu@example.com"},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":4,"name":"Zhao Liu","email":"zhaoliu@example.com"}`, rec.Body())

	rec = transport.Dispatch(ctx, nesttest.Request{
		Method: "PUT", Route: "/users/:id", Params: id("4"),
		Body: map[string]any{"name": "Liu"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":4,"name":"Liu","email":"zhaoliu@example.com"}`, rec.Body())

	rec = transport.Dispatch(ctx, nesttest.Request{Method: "DELETE", Route: "/users/:id", Params: id("4")})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"statusCode":200,"message":"user deleted"}`, rec.Body())

	rec = transport.Dispatch(ctx, nesttest.Request{Method: "DELETE", Route: "/users/:id", Params: id("4")})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
