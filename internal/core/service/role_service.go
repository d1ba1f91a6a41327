package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
	"github.com/fabricwh/rbac-api/internal/pkg/metrics"
)

// PermissionInvalidator is notified whenever a role's effective set changes.
type PermissionInvalidator interface {
	Invalidate(ctx context.Context, roles ...string)
}

// RoleService owns the role lifecycle, including the rule that a role held by
// a live user is never deleted.
type RoleService struct {
	roles       ports.RoleRepository
	permissions ports.PermissionRepository
	invalidator PermissionInvalidator
	audit       ports.AuditRecorder
	log         zerolog.Logger
}

func NewRoleService(
	roles ports.RoleRepository,
	permissions ports.PermissionRepository,
	invalidator PermissionInvalidator,
	audit ports.AuditRecorder,
	log zerolog.Logger,
) *RoleService {
	return &RoleService{
		roles:       roles,
		permissions: permissions,
		invalidator: invalidator,
		audit:       audit,
		log:         log,
	}
}

func (s *RoleService) List(ctx context.Context, filter domain.RoleFilter) (*domain.Page[*domain.Role], error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Page = domain.NewPageRequest(filter.Page.Page, filter.Page.Limit)

	items, total, err := s.roles.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &domain.Page[*domain.Role]{Items: items, Pagination: domain.NewPagination(filter.Page, total)}, nil
}

// Create makes a role and grants it keys atomically. A failed grant leaves no role behind.
func (s *RoleService) Create(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error) {
	name = domain.NormalizeRoleName(name)
	if err := domain.ValidateRoleName("name", name); err != nil {
		return nil, err
	}
	if err := s.checkKeys(ctx, keys); err != nil {
		return nil, err
	}

	_, err := s.roles.Create(ctx, name, keys)
	s.countMutation("create", err)
	if err != nil {
		return nil, err
	}

	s.record(ctx, domain.AuditRoleCreated, name, map[string]string{"permissions": joinKeys(keys)})
	s.log.Info().Str("role", name).Int("permissions", len(keys)).Msg("role created")

	return s.roles.FindByName(ctx, name)
}

func (s *RoleService) Get(ctx context.Context, name string) (*domain.Role, error) {
	return s.roles.FindByName(ctx, domain.NormalizeRoleName(name))
}

// Rename moves users and assignments to newName. Renaming to the current name
// is a no-op.
func (s *RoleService) Rename(ctx context.Context, name, newName string) (*domain.Role, error) {
	name = domain.NormalizeRoleName(name)
	newName = domain.NormalizeRoleName(newName)
	if err := domain.ValidateRoleName("name", newName); err != nil {
		return nil, err
	}
	if name == newName {
		return s.roles.FindByName(ctx, name)
	}

	role, err := s.roles.Rename(ctx, name, newName)
	s.countMutation("rename", err)
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, name, newName)
	s.record(ctx, domain.AuditRoleRenamed, newName, map[string]string{"from": name})
	s.log.Info().Str("role", name).Str("new_name", newName).Msg("role renamed")

	return role, nil
}

// Delete removes a role that no live user holds. When users hold it the call
// fails with a Validation error naming them and nothing changes.
func (s *RoleService) Delete(ctx context.Context, name string) error {
	name = domain.NormalizeRoleName(name)

	// 1. Check-and-delete happens inside one store transaction.
	blockers, err := s.roles.DeleteUnused(ctx, name)
	if err != nil {
		s.countMutation("delete", err)
		return err
	}

	// 2. Refused: report who holds it.
	if len(blockers) > 0 {
		metrics.RoleMutationsTotal.WithLabelValues("delete", "refused").Inc()
		s.record(ctx, domain.AuditRoleDeleteRefused, name, map[string]string{"users": strings.Join(blockers, ",")})
		s.log.Info().Str("role", name).Strs("users", blockers).Msg("role deletion refused, role in use")
		return domain.RoleInUseError(name, blockers)
	}

	// 3. Deleted: drop any cached set.
	metrics.RoleMutationsTotal.WithLabelValues("delete", "ok").Inc()
	s.invalidator.Invalidate(ctx, name)
	s.record(ctx, domain.AuditRoleDeleted, name, nil)
	s.log.Info().Str("role", name).Msg("role deleted")

	return nil
}

// SetPermissions replaces the role's grants with keys.
func (s *RoleService) SetPermissions(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error) {
	name = domain.NormalizeRoleName(name)
	if err := s.checkKeys(ctx, keys); err != nil {
		return nil, err
	}

	err := s.roles.SetPermissions(ctx, name, keys)
	s.countMutation("set_permissions", err)
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, name)
	s.record(ctx, domain.AuditRolePermissionsSet, name, map[string]string{"permissions": joinKeys(keys)})
	return s.roles.FindByName(ctx, name)
}

func (s *RoleService) GrantPermissions(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error) {
	name = domain.NormalizeRoleName(name)
	if len(keys) == 0 {
		return nil, domain.NewFieldValidation("permissions", "at least one permission is required")
	}
	if err := s.checkKeys(ctx, keys); err != nil {
		return nil, err
	}

	err := s.roles.GrantPermissions(ctx, name, keys)
	s.countMutation("grant", err)
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, name)
	s.record(ctx, domain.AuditPermissionGranted, name, map[string]string{"permissions": joinKeys(keys)})
	return s.roles.FindByName(ctx, name)
}

func (s *RoleService) RevokePermission(ctx context.Context, name string, key domain.PermissionKey) (*domain.Role, error) {
	name = domain.NormalizeRoleName(name)
	if !key.Valid() {
		return nil, domain.NewFieldValidation("key", "malformed permission key")
	}

	err := s.roles.RevokePermission(ctx, name, key)
	s.countMutation("revoke", err)
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, name)
	s.record(ctx, domain.AuditPermissionRevoked, name, map[string]string{"permission": string(key)})
	return s.roles.FindByName(ctx, name)
}

// ListPermissions returns every persisted permission.
func (s *RoleService) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	return s.permissions.List(ctx)
}

// checkKeys rejects malformed keys and keys that are not persisted.
func (s *RoleService) checkKeys(ctx context.Context, keys []domain.PermissionKey) error {
	if len(keys) == 0 {
		return nil
	}

	var fields []domain.FieldError
	for _, k := range keys {
		if !k.Valid() {
			fields = append(fields, domain.FieldError{Field: "permissions", Message: fmt.Sprintf("malformed permission key %q", k)})
		}
	}
	if len(fields) > 0 {
		return domain.NewValidation("invalid permissions", fields...)
	}

	found, err := s.permissions.FindByKeys(ctx, keys)
	if err != nil {
		return err
	}
	known := domain.PermissionSetOf(found)
	for _, k := range keys {
		if !known.Has(k) {
			fields = append(fields, domain.FieldError{Field: "permissions", Message: fmt.Sprintf("unknown permission %q", k)})
		}
	}
	if len(fields) > 0 {
		return domain.NewValidation("invalid permissions", fields...)
	}
	return nil
}

func (s *RoleService) countMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.RoleMutationsTotal.WithLabelValues(op, result).Inc()
}

func (s *RoleService) record(ctx context.Context, action domain.AuditAction, target string, details map[string]string) {
	recordAudit(ctx, s.audit, action, target, details)
}

func joinKeys(keys []domain.PermissionKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}
