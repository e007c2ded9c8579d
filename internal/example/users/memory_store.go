package users

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps users in a slice
type MemoryStore struct {
	mu     sync.RWMutex
	users  []User
	nextID int
}

// NewMemoryStore creates a store holding users
func NewMemoryStore(users ...User) *MemoryStore {
	s := &MemoryStore{users: append([]User(nil), users...), nextID: 1}
	for _, u := range users {
		s.nextID = max(s.nextID, u.ID+1)
	}
	return s
}

func (s *MemoryStore) List(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]User{}, s.users...), nil
}

func (s *MemoryStore) Get(_ context.Context, id int) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.index(id); i >= 0 {
		return s.users[i], nil
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) Create(_ context.Context, dto CreateUserDto) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := User{ID: s.nextID, Name: dto.Name, Email: dto.Email}
	s.nextID++
	s.users = append(s.users, u)
	return u, nil
}

func (s *MemoryStore) Update(_ context.Context, id int, dto UpdateUserDto) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return User{}, ErrNotFound
	}
	s.users[i] = dto.apply(s.users[i])
	return s.users[i], nil
}

func (s *MemoryStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	s.users = slices.Delete(s.users, i, i+1)
	return nil
}

func (s *MemoryStore) index(id int) int {
	return slices.IndexFunc(s.users, func(u User) bool { return u.ID == id })
}
