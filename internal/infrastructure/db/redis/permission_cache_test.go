package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

func newCache(t *testing.T, ttl time.Duration) (*PermissionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPermissionCache(client, ttl), mr
}

func TestPermissionCache_MissThenHit(t *testing.T) {
	cache, mr := newCache(t, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "STAFF")
	require.NoError(t, err)
	assert.False(t, ok)

	set := domain.NewPermissionSet("user:view_list", "fabric:create")
	fill(t, cache, "STAFF", set)

	got, ok, err := cache.Get(ctx, "STAFF")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(set))

	raw, err := mr.Get("rbac:perms:STAFF")
	require.NoError(t, err)
	assert.JSONEq(t, `["fabric:create","user:view_list"]`, raw)
	assert.Equal(t, time.Minute, mr.TTL("rbac:perms:STAFF"))
}

func TestPermissionCache_EmptySetIsAHit(t *testing.T) {
	cache, _ := newCache(t, time.Minute)
	ctx := context.Background()

	fill(t, cache, "GUEST", domain.NewPermissionSet())

	got, ok, err := cache.Get(ctx, "GUEST")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestPermissionCache_Expires(t *testing.T) {
	cache, mr := newCache(t, time.Second)
	ctx := context.Background()

	fill(t, cache, "USER", domain.NewPermissionSet("credit:create"))
	mr.FastForward(2 * time.Second)

	_, ok, err := cache.Get(ctx, "USER")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPermissionCache_Invalidate(t *testing.T) {
	cache, mr := newCache(t, time.Minute)
	ctx := context.Background()

	fill(t, cache, "OLD", domain.NewPermissionSet("role:view"))
	fill(t, cache, "KEEP", domain.NewPermissionSet("role:view"))

	require.NoError(t, cache.Invalidate(ctx, "OLD", "NEW"))
	require.NoError(t, cache.Invalidate(ctx))

	assert.False(t, mr.Exists("rbac:perms:OLD"))
	assert.True(t, mr.Exists("rbac:perms:KEEP"))

	gen, err := cache.Generation(ctx, "OLD")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	gen, err = cache.Generation(ctx, "KEEP")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)
}

func TestPermissionCache_StaleFillIsDropped(t *testing.T) {
	cache, mr := newCache(t, time.Minute)
	ctx := context.Background()

	gen, err := cache.Generation(ctx, "STAFF")
	require.NoError(t, err)

	// a revocation lands between the store read and the fill
	require.NoError(t, cache.Invalidate(ctx, "STAFF"))

	stored, err := cache.Set(ctx, "STAFF", gen, domain.NewPermissionSet("role:delete"))
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("rbac:perms:STAFF"))

	gen, err = cache.Generation(ctx, "STAFF")
	require.NoError(t, err)
	stored, err = cache.Set(ctx, "STAFF", gen, domain.NewPermissionSet())
	require.NoError(t, err)
	assert.True(t, stored)
}

func TestPermissionCache_ZeroTTLNeverExpires(t *testing.T) {
	cache, mr := newCache(t, 0)

	fill(t, cache, "ADMIN", domain.NewPermissionSet("role:view"))

	assert.True(t, mr.Exists("rbac:perms:ADMIN"))
	assert.Equal(t, time.Duration(0), mr.TTL("rbac:perms:ADMIN"))
}

// fill stores set at the role's current generation.
func fill(t *testing.T, cache *PermissionCache, role string, set domain.PermissionSet) {
	t.Helper()
	ctx := context.Background()
	gen, err := cache.Generation(ctx, role)
	require.NoError(t, err)
	stored, err := cache.Set(ctx, role, gen, set)
	require.NoError(t, err)
	require.True(t, stored)
}

func TestPermissionCache_DecodeError(t *testing.T) {
	cache, mr := newCache(t, time.Minute)
	require.NoError(t, mr.Set("rbac:perms:BAD", "not-json"))

	_, _, err := cache.Get(context.Background(), "BAD")
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	addr := mr.Addr()
	client, err := Connect(context.Background(), Config{Addr: addr})
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = Connect(context.Background(), Config{Addr: addr, Timeout: 200 * time.Millisecond})
	assert.Error(t, err)
}
