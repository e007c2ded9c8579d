package users

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, seed ...User) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, "test:", seed...)
	require.NoError(t, store.OnModuleInit(context.Background()))
	t.Cleanup(func() { _ = store.OnApplicationShutdown(context.Background()) })
	return store, mr
}

func stores(t *testing.T) map[string]Store {
	redisStore, _ := newRedisStore(t, Seed()...)
	return map[string]Store{
		"memory": NewMemoryStore(Seed()...),
		"redis":  redisStore,
	}
}

func strPtr(s string) *string { return &s }

func TestStore_Contract(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			all, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, Seed(), all)

			u, err := store.Get(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, "Li Si", u.Name)

			_, err = store.Get(ctx, 99)
			assert.ErrorIs(t, err, ErrNotFound)

			created, err := store.Create(ctx, CreateUserDto{Name: "Zhao Liu", Email: "zhaoliu@example.com"})
			require.NoError(t, err)
			assert.Equal(t, 4, created.ID)

			updated, err := store.Update(ctx, 4, UpdateUserDto{Email: strPtr("liu@example.com")})
			require.NoError(t, err)
			assert.Equal(t, User{ID: 4, Name: "Zhao Liu", Email: "liu@example.com"}, updated)

			_, err = store.Update(ctx, 99, UpdateUserDto{Name: strPtr("x")})
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Delete(ctx, 1))
			assert.ErrorIs(t, store.Delete(ctx, 1), ErrNotFound)

			// ids are never reused after a delete
			require.NoError(t, store.Delete(ctx, 4))
			next, err := store.Create(ctx, CreateUserDto{Name: "Sun Qi", Email: "sunqi@example.com"})
			require.NoError(t, err)
			assert.Equal(t, 5, next.ID)

			all, err = store.List(ctx)
			require.NoError(t, err)
			ids := make([]int, 0, len(all))
			for _, u := range all {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, []int{2, 3, 5}, ids)
		})
	}
}

func TestMemoryStore_ListIsACopy(t *testing.T) {
	store := NewMemoryStore(Seed()...)
	all, err := store.List(context.Background())
	require.NoError(t, err)
	all[0].Name = "changed"

	u, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Zhang San", u.Name)
}

func TestMemoryStore_EmptyListIsNotNil(t *testing.T) {
	all, err := NewMemoryStore().List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestRedisStore_SeedsOnlyEmptyStore(t *testing.T) {
	store, mr := newRedisStore(t, Seed()...)
	ctx := context.Background()

	assert.True(t, mr.Exists("test:users"))
	seq, err := mr.Get("test:users:seq")
	require.NoError(t, err)
	assert.Equal(t, "3", seq)

	require.NoError(t, store.Delete(ctx, 1))
	require.NoError(t, store.OnModuleInit(ctx))

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRedisStore_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	err := NewRedisStore(client, "test:").OnModuleInit(context.Background())
	assert.ErrorContains(t, err, "redis ping")
}

func TestUserService_Search(t *testing.T) {
	svc := NewUserService(NewMemoryStore(Seed()...))
	ctx := context.Background()

	found, err := svc.Search(ctx, "Li")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 2, found[0].ID)

	none, err := svc.Search(ctx, "Nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	all, err := svc.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
