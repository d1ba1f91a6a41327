package ports

import (
	"context"
	"time"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// TokenManager signs and verifies bearer tokens.
type TokenManager interface {
	Issue(u *domain.User) (token string, expiresAt time.Time, err error)
	// Verify fails with domain.ErrTokenExpired or domain.ErrTokenInvalid.
	Verify(token string) (*domain.TokenClaims, error)
}

// PasswordHasher is a one-way salted hash.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// PermissionCache stores role permission sets between requests.
//
// Every Invalidate bumps a per-role generation. A filler reads Generation
// before reading the store and passes it to Set, which stores nothing when
// an invalidation happened in between.
type PermissionCache interface {
	Get(ctx context.Context, role string) (domain.PermissionSet, bool, error)
	Generation(ctx context.Context, role string) (int64, error)
	Set(ctx context.Context, role string, gen int64, perms domain.PermissionSet) (bool, error)
	Invalidate(ctx context.Context, roles ...string) error
}
