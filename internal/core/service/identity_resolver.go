package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
)

// IdentityResolver turns a bearer token into the acting user and their
// effective permission set. It never writes.
type IdentityResolver struct {
	tokens ports.TokenManager
	users  ports.UserRepository
	perms  ports.PermissionLookup
	log    zerolog.Logger
}

func NewIdentityResolver(tokens ports.TokenManager, users ports.UserRepository, perms ports.PermissionLookup, log zerolog.Logger) *IdentityResolver {
	return &IdentityResolver{tokens: tokens, users: users, perms: perms, log: log}
}

// Resolve authenticates bearerToken.
func (r *IdentityResolver) Resolve(ctx context.Context, bearerToken string) (*domain.Identity, error) {
	if strings.TrimSpace(bearerToken) == "" {
		return nil, domain.NewAuthentication(domain.ReasonMissingToken, "authentication required")
	}

	// 1. Verify signature and expiry.
	claims, err := r.tokens.Verify(bearerToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	// 2. Extract the subject.
	if claims.UserID == "" {
		return nil, domain.ErrTokenInvalid
	}

	// 3. Load the user. DELETED users are invisible to the repository.
	user, err := r.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.NewAuthentication(domain.ReasonUserNotFound, "invalid token")
		}
		return nil, err
	}

	// 4. Only ACTIVE accounts may act.
	if user.Status != domain.StatusActive {
		r.log.Debug().Str("user_id", user.ID).Str("status", string(user.Status)).Msg("inactive user rejected")
		return nil, domain.NewAuthentication(domain.ReasonInactive, "account is not active")
	}

	// 5. One read for the role's permissions.
	perms, err := r.perms.PermissionsOf(ctx, user.Role)
	if err != nil {
		return nil, err
	}

	return domain.NewIdentity(user, perms), nil
}
