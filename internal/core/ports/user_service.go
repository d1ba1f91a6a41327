package ports

import (
	"context"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// CreateUserInput is the administrative account-creation payload.
type CreateUserInput struct {
	Username string
	Password string
	Email    string
	Role     string
	Status   domain.UserStatus
	Profile  domain.Profile
}

type UserService interface {
	List(ctx context.Context, filter domain.UserFilter) (*domain.Page[*domain.User], error)
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error)
	ChangeStatus(ctx context.Context, id string, status domain.UserStatus) (*domain.User, error)
	ChangeRole(ctx context.Context, id, role string) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}
