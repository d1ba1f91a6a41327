package ports

import (
	"context"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

type RoleService interface {
	List(ctx context.Context, filter domain.RoleFilter) (*domain.Page[*domain.Role], error)
	Create(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error)
	Get(ctx context.Context, name string) (*domain.Role, error)
	Rename(ctx context.Context, name, newName string) (*domain.Role, error)
	Delete(ctx context.Context, name string) error

	SetPermissions(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error)
	GrantPermissions(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error)
	RevokePermission(ctx context.Context, name string, key domain.PermissionKey) (*domain.Role, error)
	ListPermissions(ctx context.Context) ([]domain.Permission, error)
}

type AuditService interface {
	List(ctx context.Context, filter domain.AuditFilter) (*domain.Page[*domain.AuditEntry], error)
}

// AuditWriter persists one entry. The dispatcher's workers call it.
type AuditWriter interface {
	Write(ctx context.Context, entry domain.AuditEntry) error
}
