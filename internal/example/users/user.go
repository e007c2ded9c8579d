// Package users is the example resource: a user store, the service on top
// of it, and the controller exposing it under /users.
package users

import (
	"context"
	"errors"
)

// User is a stored user
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateUserDto is the body of POST /users
type CreateUserDto struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// UpdateUserDto is the body of PUT /users/:id. Nil fields are kept.
type UpdateUserDto struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

func (d UpdateUserDto) apply(u User) User {
	if d.Name != nil {
		u.Name = *d.Name
	}
	if d.Email != nil {
		u.Email = *d.Email
	}
	return u
}

// ErrNotFound is returned by stores for an unknown id
var ErrNotFound = errors.New("user not found")

// Store persists users
type Store interface {
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int) (User, error)
	Create(ctx context.Context, dto CreateUserDto) (User, error)
	Update(ctx context.Context, id int, dto UpdateUserDto) (User, error)
	Delete(ctx context.Context, id int) error
}

// Seed is the initial content of a new store
func Seed() []User {
	return []User{
		{ID: 1, Name: "Zhang San", Email: "zhangsan@example.com"},
		{ID: 2, Name: "Li Si", Email: "lisi@example.com"},
		{ID: 3, Name: "Wang Wu", Email: "wangwu@example.com"},
	}
}
