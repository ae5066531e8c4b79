package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"tecbook-auth/internal/logger"
)

// cacheClient is the subset of the go-redis client used by Cache.
type cacheClient interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// Cache is a read-through Redis cache in front of another Directory.
// Writes go to the backing directory first and then drop the cached entry.
// Redis failures degrade to direct lookups. Accounts read through the cache
// never carry PasswordHash; use Authoritative for credential checks.
type Cache struct {
	next   Directory
	client cacheClient
	ttl    time.Duration
	prefix string
}

func NewCache(next Directory, client cacheClient, ttl time.Duration) *Cache {
	return &Cache{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: "account:",
	}
}

func (c *Cache) key(email string) string {
	return c.prefix + NormalizeEmail(email)
}

func (c *Cache) LoadByEmail(ctx context.Context, email string) (Account, error) {
	val, err := c.client.Get(ctx, c.key(email)).Result()
	switch {
	case err == nil:
		var acc Account
		if err := json.Unmarshal([]byte(val), &acc); err == nil {
			acc.PasswordHash = ""
			return acc, nil
		}
		logger.Warn("directory cache: corrupt entry", map[string]any{"email": email})
	case !errors.Is(err, goredis.Nil):
		logger.Warn("directory cache: get failed", map[string]any{"error": err.Error()})
	}

	acc, err := c.next.LoadByEmail(ctx, email)
	if err != nil {
		return Account{}, err
	}
	acc.PasswordHash = ""

	data, err := json.Marshal(acc)
	if err == nil {
		if err := c.client.Set(ctx, c.key(email), data, c.ttl).Err(); err != nil {
			logger.Warn("directory cache: set failed", map[string]any{"error": err.Error()})
		}
	}
	return acc, nil
}

// Unwrap returns the backing directory.
func (c *Cache) Unwrap() Directory {
	return c.next
}

func (c *Cache) Create(ctx context.Context, acc Account) (Account, error) {
	created, err := c.next.Create(ctx, acc)
	if err != nil {
		return Account{}, err
	}
	c.evict(ctx, created.Email)
	return created, nil
}

func (c *Cache) Update(ctx context.Context, acc Account) (Account, error) {
	updated, err := c.next.Update(ctx, acc)
	if err != nil {
		return Account{}, err
	}
	c.evict(ctx, updated.Email)
	return updated, nil
}

func (c *Cache) evict(ctx context.Context, email string) {
	if err := c.client.Del(ctx, c.key(email)).Err(); err != nil {
		logger.Warn("directory cache: evict failed", map[string]any{"error": err.Error()})
	}
}
