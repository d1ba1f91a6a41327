package ports

import (
	"context"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// UserRepository persists accounts. Every read excludes DELETED users.
type UserRepository interface {
	// Create inserts u. The role named by u.Role must exist; the check is
	// atomic with respect to role deletion. Duplicate username or email yields
	// a Conflict naming the field.
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByLogin matches either username or email.
	FindByLogin(ctx context.Context, login string) (*domain.User, error)
	List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error)
	UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error)
	UpdateStatus(ctx context.Context, id string, status domain.UserStatus) (*domain.User, error)
	// UpdateRole reassigns the user. Fails with ErrRoleNotFound when the role
	// does not exist, atomically with respect to role deletion.
	UpdateRole(ctx context.Context, id, role string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	// SoftDelete sets status to DELETED. Already deleted users are NotFound.
	SoftDelete(ctx context.Context, id string) error
}
