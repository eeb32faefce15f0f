package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := &RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = c.Client.Close() })
	return c, mr
}

func TestMarkers_ScopedPerEnvironment(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetMarker(ctx, "env-a", "report_like_1"))

	ok, err := c.HasMarker(ctx, "env-a", "report_like_1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.HasMarker(ctx, "env-b", "report_like_1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, time.Duration(0), mr.TTL("markers:env-a:report_like_1"))

	require.NoError(t, c.ClearMarker(ctx, "env-a", "report_like_1"))
	ok, err = c.HasMarker(ctx, "env-a", "report_like_1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJSON_RoundTripAndMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var got []string
	hit, err := c.GetJSON(ctx, PopularGamesKey, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetJSON(ctx, PopularGamesKey, []string{"A", "B"}, time.Minute))
	hit, err = c.GetJSON(ctx, PopularGamesKey, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"A", "B"}, got)

	mr.FastForward(2 * time.Minute)
	hit, err = c.GetJSON(ctx, PopularGamesKey, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestSetGet_RawValues(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, redis.Nil)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	require.NoError(t, c.Del(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestRevokeSession(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.RevokeSession(ctx, "jti-1", time.Hour))
	revoked, err := c.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, c.RevokeSession(ctx, "jti-2", 0))
	revoked, err = c.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(time.Hour + time.Second)
	revoked, err = c.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestOAuthState_SingleUse(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.PutOAuthState(ctx, "st", "github", time.Minute))

	provider, err := c.TakeOAuthState(ctx, "st")
	require.NoError(t, err)
	assert.Equal(t, "github", provider)

	provider, err = c.TakeOAuthState(ctx, "st")
	require.NoError(t, err)
	assert.Empty(t, provider)
}
