package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/katro/partyhub/internal/models"
)

// Cache is a short-TTL identity cache in front of the user store, so a
// reconnect storm does not turn into a query storm.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// Connect initializes the Redis client from environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
//   - IDENTITY_CACHE_TTL (optional Go duration, default 60s)
func Connect() (*Cache, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	ttl := 60 * time.Second
	if raw := os.Getenv("IDENTITY_CACHE_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			ttl = d
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &Cache{rdb: rdb, ttl: ttl}, nil
}

func identityKey(userID string) string { return "identity:" + userID }

// GetUser returns the cached identity for userID, if present.
func (c *Cache) GetUser(ctx context.Context, userID string) (*models.User, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, identityKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, false
	}
	return &u, true
}

// PutUser stores the identity with the configured TTL. Failures are ignored;
// the cache is best-effort.
func (c *Cache) PutUser(ctx context.Context, u *models.User) {
	if c == nil || u == nil {
		return
	}
	data, err := json.Marshal(u)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, identityKey(u.ID), data, c.ttl).Err()
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
