package users

import (
	"context"
	"strings"
)

// UserService is the business layer over a Store
type UserService struct {
	store Store
}

func NewUserService(store Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) FindAll(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

func (s *UserService) FindByID(ctx context.Context, id int) (User, error) {
	return s.store.Get(ctx, id)
}

// Search returns users whose name contains name
func (s *UserService) Search(ctx context.Context, name string) ([]User, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	matches := []User{}
	for _, u := range all {
		if strings.Contains(u.Name, name) {
			matches = append(matches, u)
		}
	}
	return matches, nil
}

func (s *UserService) Create(ctx context.Context, dto CreateUserDto) (User, error) {
	return s.store.Create(ctx, dto)
}

func (s *UserService) Update(ctx context.Context, id int, dto UpdateUserDto) (User, error) {
	return s.store.Update(ctx, id, dto)
}

func (s *UserService) Delete(ctx context.Context, id int) error {
	return s.store.Delete(ctx, id)
}
