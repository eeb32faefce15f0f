package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oggyb/hwreports/internal/config"
	"github.com/redis/go-redis/v9"
)

// PopularGamesKey holds the cached popularity ranking.
const PopularGamesKey = "popular:games"

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// GetJSON decodes the value at key into dst. It reports false on a miss.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return false, nil // cache miss
	} else if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}

// KeyForMarker scopes an engagement marker to one client environment.
func (c *RedisCache) KeyForMarker(envID, name string) string {
	return fmt.Sprintf("markers:%s:%s", envID, name)
}

// HasMarker reports whether the environment already holds the marker.
func (c *RedisCache) HasMarker(ctx context.Context, envID, name string) (bool, error) {
	n, err := c.Client.Exists(ctx, c.KeyForMarker(envID, name)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetMarker persists the marker without expiry.
func (c *RedisCache) SetMarker(ctx context.Context, envID, name string) error {
	return c.Client.Set(ctx, c.KeyForMarker(envID, name), "1", 0).Err()
}

func (c *RedisCache) ClearMarker(ctx context.Context, envID, name string) error {
	return c.Client.Del(ctx, c.KeyForMarker(envID, name)).Err()
}

func (c *RedisCache) KeyForRevokedSession(jti string) string {
	return fmt.Sprintf("sessions:revoked:%s", jti)
}

// RevokeSession blacklists a token id until the token would have expired.
func (c *RedisCache) RevokeSession(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired
	}
	return c.Client.Set(ctx, c.KeyForRevokedSession(jti), "1", ttl).Err()
}

func (c *RedisCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.Client.Exists(ctx, c.KeyForRevokedSession(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisCache) KeyForOAuthState(state string) string {
	return fmt.Sprintf("oauth:state:%s", state)
}

// PutOAuthState stores the payload of a pending OAuth redirect under state.
func (c *RedisCache) PutOAuthState(ctx context.Context, state, payload string, ttl time.Duration) error {
	return c.Client.Set(ctx, c.KeyForOAuthState(state), payload, ttl).Err()
}

// TakeOAuthState returns the payload stored for state and forgets it, so a
// state can be redeemed once. An unknown state returns "".
func (c *RedisCache) TakeOAuthState(ctx context.Context, state string) (string, error) {
	payload, err := c.Client.GetDel(ctx, c.KeyForOAuthState(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return payload, err
}
