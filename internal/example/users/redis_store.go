package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	usersKey = "users"
	seqKey   = "users:seq"
)

// RedisStore keeps users as JSON values in one redis hash keyed by id
type RedisStore struct {
	client *redis.Client
	prefix string
	seed   []User
}

// NewRedisStore creates a store on client. Keys are prefixed with prefix;
// seed is written by OnModuleInit when the hash is empty.
func NewRedisStore(client *redis.Client, prefix string, seed ...User) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, seed: seed}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

// OnModuleInit checks the connection and seeds an empty store
func (s *RedisStore) OnModuleInit(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	n, err := s.client.HLen(ctx, s.key(usersKey)).Result()
	if err != nil {
		return err
	}
	if n > 0 || len(s.seed) == 0 {
		return nil
	}

	maxID := 0
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, u := range s.seed {
			raw, err := json.Marshal(u)
			if err != nil {
				return err
			}
			pipe.HSet(ctx, s.key(usersKey), strconv.Itoa(u.ID), raw)
			maxID = max(maxID, u.ID)
		}
		pipe.Set(ctx, s.key(seqKey), maxID, 0)
		return nil
	})
	return err
}

// OnApplicationShutdown closes the client
func (s *RedisStore) OnApplicationShutdown(context.Context) error {
	return s.client.Close()
}

func (s *RedisStore) List(ctx context.Context) ([]User, error) {
	values, err := s.client.HVals(ctx, s.key(usersKey)).Result()
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(values))
	for _, raw := range values {
		var u User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b User) int { return a.ID - b.ID })
	return users, nil
}

func (s *RedisStore) Get(ctx context.Context, id int) (User, error) {
	raw, err := s.client.HGet(ctx, s.key(usersKey), strconv.Itoa(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return User{}, fmt.Errorf("decode user %d: %w", id, err)
	}
	return u, nil
}

func (s *RedisStore) Create(ctx context.Context, dto CreateUserDto) (User, error) {
	id, err := s.client.Incr(ctx, s.key(seqKey)).Result()
	if err != nil {
		return User{}, err
	}
	u := User{ID: int(id), Name: dto.Name, Email: dto.Email}
	if err := s.put(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *RedisStore) Update(ctx context.Context, id int, dto UpdateUserDto) (User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	u = dto.apply(u)
	if err := s.put(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *RedisStore) Delete(ctx context.Context, id int) error {
	n, err := s.client.HDel(ctx, s.key(usersKey), strconv.Itoa(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) put(ctx context.Context, u User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key(usersKey), strconv.Itoa(u.ID), raw).Err()
}
