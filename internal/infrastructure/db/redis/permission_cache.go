package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// fillScript stores ARGV[2] under KEYS[1] only while the generation in
// KEYS[2] still equals ARGV[1]. ARGV[3] is the TTL in milliseconds, 0 for none.
var fillScript = redis.NewScript(`
if (redis.call('GET', KEYS[2]) or '0') ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// PermissionCache stores each role's effective keys as a JSON array.
// Key format: rbac:perms:<role>, generation counter rbac:perms:gen:<role>
type PermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPermissionCache creates a cache whose entries expire after ttl.
func NewPermissionCache(client *redis.Client, ttl time.Duration) *PermissionCache {
	return &PermissionCache{client: client, ttl: ttl}
}

// Get reports ok=false on a miss. An empty set is a hit.
func (c *PermissionCache) Get(ctx context.Context, role string) (domain.PermissionSet, bool, error) {
	raw, err := c.client.Get(ctx, c.key(role)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("permission cache get: %w", err)
	}

	var keys []domain.PermissionKey
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, false, fmt.Errorf("permission cache decode: %w", err)
	}
	return domain.NewPermissionSet(keys...), true, nil
}

// Generation returns the role's invalidation counter, 0 if never invalidated.
func (c *PermissionCache) Generation(ctx context.Context, role string) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(role)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("permission cache generation: %w", err)
	}
	return gen, nil
}

// Set stores the set if the role's generation is still gen. It reports
// false when an invalidation won the race and nothing was written.
func (c *PermissionCache) Set(ctx context.Context, role string, gen int64, set domain.PermissionSet) (bool, error) {
	raw, err := json.Marshal(set.Keys())
	if err != nil {
		return false, fmt.Errorf("permission cache encode: %w", err)
	}
	stored, err := fillScript.Run(ctx, c.client,
		[]string{c.key(role), c.genKey(role)},
		gen, raw, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("permission cache set: %w", err)
	}
	return stored == 1, nil
}

// Invalidate bumps the generation of every named role and drops its entry
// in one MULTI block.
func (c *PermissionCache) Invalidate(ctx context.Context, roles ...string) error {
	if len(roles) == 0 {
		return nil
	}
	keys := make([]string, len(roles))
	for i, r := range roles {
		keys[i] = c.key(r)
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, r := range roles {
			pipe.Incr(ctx, c.genKey(r))
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("permission cache invalidate: %w", err)
	}
	return nil
}

func (c *PermissionCache) key(role string) string {
	return "rbac:perms:" + role
}

func (c *PermissionCache) genKey(role string) string {
	return "rbac:perms:gen:" + role
}
