package ports

import (
	"context"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// PermissionLookup resolves a role name to its effective permission set in a
// single read. Unknown roles resolve to an empty set.
type PermissionLookup interface {
	PermissionsOf(ctx context.Context, role string) (domain.PermissionSet, error)
}

// RoleRepository persists roles and their permission assignments.
type RoleRepository interface {
	PermissionLookup

	// Create inserts the role and grants it keys in one transaction. It fails
	// with a Conflict on "name" when the role exists.
	Create(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error)
	// FindByName returns the role with its resolved permissions.
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context, filter domain.RoleFilter) ([]*domain.Role, int64, error)
	// Rename changes the role's name and carries its users and assignments along.
	Rename(ctx context.Context, name, newName string) (*domain.Role, error)
	// DeleteUnused removes the role and its assignments in one transaction,
	// unless a non-DELETED user holds it. In that case nothing is changed and
	// the blocking usernames are returned.
	DeleteUnused(ctx context.Context, name string) (blockers []string, err error)

	// SetPermissions replaces the role's assignments with keys.
	SetPermissions(ctx context.Context, name string, keys []domain.PermissionKey) error
	// GrantPermissions adds keys; existing pairs are left untouched.
	GrantPermissions(ctx context.Context, name string, keys []domain.PermissionKey) error
	// RevokePermission removes one assignment. A missing pair is NotFound.
	RevokePermission(ctx context.Context, name string, key domain.PermissionKey) error
}

// PermissionRepository persists the permission catalog.
type PermissionRepository interface {
	// Upsert inserts new keys and refreshes descriptions of existing ones.
	Upsert(ctx context.Context, perms []domain.Permission) error
	List(ctx context.Context) ([]domain.Permission, error)
	// FindByKeys returns the persisted subset of keys.
	FindByKeys(ctx context.Context, keys []domain.PermissionKey) ([]domain.Permission, error)
}
