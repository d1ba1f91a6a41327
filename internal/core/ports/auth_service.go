package ports

import (
	"context"
	"time"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Username string
	Password string
	Email    string
	Profile  domain.Profile
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, login, password string) (*AuthResult, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

// IdentityResolver is the only translation from a bearer token to a permission set.
type IdentityResolver interface {
	Resolve(ctx context.Context, bearerToken string) (*domain.Identity, error)
}
