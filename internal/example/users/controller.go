package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/toyz/mininest/pkg/nest"
)

// UserController serves /users
type UserController struct {
	users *UserService
}

func NewUserController(users *UserService) *UserController {
	return &UserController{users: users}
}

// UserNotFound is the message of 404 responses
const UserNotFound = "user not found"

func (c *UserController) FindAll(ctx context.Context) ([]User, error) {
	return c.users.FindAll(ctx)
}

func (c *UserController) Search(ctx context.Context, name string) ([]User, error) {
	return c.users.Search(ctx, name)
}

func (c *UserController) FindOne(ctx context.Context, id int) (any, error) {
	u, err := c.users.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nest.NotFound(UserNotFound), nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (c *UserController) Create(ctx context.Context, dto CreateUserDto) (*nest.Response, error) {
	u, err := c.users.Create(ctx, dto)
	if err != nil {
		return nil, err
	}
	return nest.Created(u), nil
}

func (c *UserController) Update(ctx context.Context, id int, dto UpdateUserDto) (any, error) {
	u, err := c.users.Update(ctx, id, dto)
	if errors.Is(err, ErrNotFound) {
		return nest.NotFound(UserNotFound), nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (c *UserController) Remove(ctx context.Context, id int) (*nest.Response, error) {
	err := c.users.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nest.NotFound(UserNotFound), nil
	}
	if err != nil {
		return nil, err
	}
	return nest.OK(map[string]any{
		"statusCode": http.StatusOK,
		"message":    "user deleted",
	}), nil
}
