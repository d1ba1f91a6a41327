package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
	"github.com/fabricwh/rbac-api/internal/pkg/metrics"
)

// CachedPermissions serves role permission sets from a cache, falling back to
// the store. A nil cache turns it into a timed pass-through. Cache failures
// never fail a request.
type CachedPermissions struct {
	store ports.PermissionLookup
	cache ports.PermissionCache
	log   zerolog.Logger
}

func NewCachedPermissions(store ports.PermissionLookup, cache ports.PermissionCache, log zerolog.Logger) *CachedPermissions {
	return &CachedPermissions{store: store, cache: cache, log: log}
}

func (c *CachedPermissions) PermissionsOf(ctx context.Context, role string) (domain.PermissionSet, error) {
	fill := false
	var gen int64
	if c.cache != nil {
		start := time.Now()
		perms, ok, err := c.cache.Get(ctx, role)
		switch {
		case err != nil:
			metrics.PermissionCacheTotal.WithLabelValues("error").Inc()
			c.log.Warn().Err(err).Str("role", role).Msg("permission cache read failed, using store")
		case ok:
			metrics.PermissionCacheTotal.WithLabelValues("hit").Inc()
			metrics.PermissionLookupDuration.WithLabelValues("cache").Observe(time.Since(start).Seconds())
			return perms, nil
		default:
			metrics.PermissionCacheTotal.WithLabelValues("miss").Inc()
			// The generation must be read before the store so an invalidation
			// racing the store read makes the fill a no-op.
			if gen, err = c.cache.Generation(ctx, role); err != nil {
				c.log.Warn().Err(err).Str("role", role).Msg("permission cache generation read failed, skipping fill")
			} else {
				fill = true
			}
		}
	}

	start := time.Now()
	perms, err := c.store.PermissionsOf(ctx, role)
	if err != nil {
		return nil, err
	}
	metrics.PermissionLookupDuration.WithLabelValues("store").Observe(time.Since(start).Seconds())

	if fill {
		stored, err := c.cache.Set(ctx, role, gen, perms)
		switch {
		case err != nil:
			c.log.Warn().Err(err).Str("role", role).Msg("permission cache write failed")
		case !stored:
			c.log.Debug().Str("role", role).Msg("permission cache fill dropped after invalidation")
		}
	}
	return perms, nil
}

// Invalidate drops cached sets for roles. Safe with a nil cache.
func (c *CachedPermissions) Invalidate(ctx context.Context, roles ...string) {
	if c == nil || c.cache == nil || len(roles) == 0 {
		return
	}
	if err := c.cache.Invalidate(ctx, roles...); err != nil {
		c.log.Error().Err(err).Strs("roles", roles).Msg("permission cache invalidation failed")
	}
}
