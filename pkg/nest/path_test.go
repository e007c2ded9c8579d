package nest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/toyz/mininest/pkg/nest"
)

func TestNormalizePath_ControllerPrefixJoin(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
	}{
		{"users", ":id"},
		{"/users", ":id"},
		{"users/", "/:id"},
		{"/users/", "/:id"},
		{"//users//", "//:id"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix+"+"+tt.path, func(t *testing.T) {
			assert.Equal(t, "/users/:id", nest.NormalizePath("/"+tt.prefix+"/"+tt.path))
			assert.Equal(t, "/users/:id", nest.JoinRoutePath(tt.prefix, tt.path))
		})
	}
}

func TestNormalizePath_OnlyCollapses(t *testing.T) {
	assert.Equal(t, "/", nest.NormalizePath("//"))
	assert.Equal(t, "/users/", nest.NormalizePath("/users//"))
	assert.Equal(t, "users/:id", nest.NormalizePath("users/:id"))
}

func TestJoinRoutePath_EmptyParts(t *testing.T) {
	assert.Equal(t, "/", nest.JoinRoutePath("", ""))
	assert.Equal(t, "/users", nest.JoinRoutePath("users", ""))
	assert.Equal(t, "/users", nest.JoinRoutePath("users", "/"))
	assert.Equal(t, "/health", nest.JoinRoutePath("", "health"))
}

func TestRoutePath_Parts(t *testing.T) {
	parts := nest.RoutePath("/users/:id/files/*").Parts()

	assert.Equal(t, []nest.PathPart{
		{Type: nest.StaticPart, Value: "users"},
		{Type: nest.ParameterPart, Value: "id"},
		{Type: nest.StaticPart, Value: "files"},
		{Type: nest.WildcardPart, Value: ""},
	}, parts)
	assert.Equal(t, []string{"id", "postId"}, nest.RoutePath("/users/:id/posts/:postId").ParamNames())
	assert.Equal(t, []string{"id", "*"}, nest.RoutePath("/users/:id/files/*").ParamNames())
	assert.Empty(t, nest.RoutePath("/users").ParamNames())
}

func TestMatchPathPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   bool
	}{
		{"/users", "/users", true},
		{"/users", "/users/1", true},
		{"/users/*", "/users/1", true},
		{"users", "/users/1", true},
		{"/users", "/users-admin", false},
		{"/users", "/", false},
		{"/", "/anything", true},
		{"*", "/anything", true},
	}
	for _, tt := range tests {
		t.Run(tt.prefix+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, nest.MatchPathPrefix(tt.prefix, tt.path))
		})
	}
}
