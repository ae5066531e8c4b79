package directory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	fail bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *goredis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return goredis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *goredis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return goredis.NewStatusResult("", errors.New("connection refused"))
	}
	f.data[key] = string(value.([]byte))
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return goredis.NewIntResult(0, errors.New("connection refused"))
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

// countingDirectory counts lookups that reach the backing store.
type countingDirectory struct {
	Directory
	loads int
}

func (c *countingDirectory) LoadByEmail(ctx context.Context, email string) (Account, error) {
	c.loads++
	return c.Directory.LoadByEmail(ctx, email)
}

func TestCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	backing := &countingDirectory{Directory: NewMemory()}
	rdb := newFakeRedis()
	cache := NewCache(backing, rdb, time.Minute)

	_, err := cache.Create(ctx, Account{Email: "alice@tecsup.edu.pe", FirstName: "Alice", Active: true})
	require.NoError(t, err)

	first, err := cache.LoadByEmail(ctx, "alice@tecsup.edu.pe")
	require.NoError(t, err)
	second, err := cache.LoadByEmail(ctx, "ALICE@tecsup.edu.pe")
	require.NoError(t, err)

	assert.Equal(t, 1, backing.loads)
	assert.Equal(t, first.ID, second.ID)
	assert.Contains(t, rdb.data, "account:alice@tecsup.edu.pe")
}

func TestCache_UpdateEvicts(t *testing.T) {
	ctx := context.Background()
	backing := &countingDirectory{Directory: NewMemory()}
	cache := NewCache(backing, newFakeRedis(), time.Minute)

	acc, err := cache.Create(ctx, Account{Email: "alice@tecsup.edu.pe", Active: true})
	require.NoError(t, err)
	_, err = cache.LoadByEmail(ctx, acc.Email)
	require.NoError(t, err)

	acc.Active = false
	_, err = cache.Update(ctx, acc)
	require.NoError(t, err)

	got, err := cache.LoadByEmail(ctx, acc.Email)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, 2, backing.loads)
}

func TestCache_NotFoundIsNotCached(t *testing.T) {
	rdb := newFakeRedis()
	cache := NewCache(NewMemory(), rdb, time.Minute)

	_, err := cache.LoadByEmail(context.Background(), "ghost@tecsup.edu.pe")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, rdb.data)
}

func TestCache_RedisDown(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	rdb.fail = true
	cache := NewCache(NewMemory(), rdb, time.Minute)

	_, err := cache.Create(ctx, Account{Email: "alice@tecsup.edu.pe"})
	require.NoError(t, err)

	got, err := cache.LoadByEmail(ctx, "alice@tecsup.edu.pe")
	require.NoError(t, err)
	assert.Equal(t, "alice@tecsup.edu.pe", got.Email)
}

func TestCache_KeepsPasswordHashOutOfRedis(t *testing.T) {
	ctx := context.Background()
	backing := NewMemory()
	rdb := newFakeRedis()
	cache := NewCache(backing, rdb, time.Minute)

	_, err := cache.Create(ctx, Account{Email: "alice@tecsup.edu.pe", PasswordHash: "$2a$10$secret", Active: true})
	require.NoError(t, err)

	miss, err := cache.LoadByEmail(ctx, "alice@tecsup.edu.pe")
	require.NoError(t, err)
	hit, err := cache.LoadByEmail(ctx, "alice@tecsup.edu.pe")
	require.NoError(t, err)

	assert.Empty(t, miss.PasswordHash)
	assert.Empty(t, hit.PasswordHash)
	require.Contains(t, rdb.data, "account:alice@tecsup.edu.pe")
	assert.NotContains(t, rdb.data["account:alice@tecsup.edu.pe"], "secret")

	// writing back an account read from the cache keeps the stored hash
	hit.FirstName = "Alice"
	_, err = cache.Update(ctx, hit)
	require.NoError(t, err)

	stored, err := Authoritative(cache).LoadByEmail(ctx, "alice@tecsup.edu.pe")
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$secret", stored.PasswordHash)
	assert.Equal(t, "Alice", stored.FirstName)
}

func TestAuthoritative(t *testing.T) {
	backing := NewMemory()
	cache := NewCache(backing, newFakeRedis(), time.Minute)

	assert.Same(t, backing, Authoritative(cache))
	assert.Same(t, backing, Authoritative(backing))
}
