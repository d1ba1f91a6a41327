package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fabricwh/rbac-api/internal/core/catalog"
	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
)

// BootstrapAdmin describes the optional first administrator. A blank Username
// disables it.
type BootstrapAdmin struct {
	Username string
	Email    string
	Password string
}

// CatalogSync seeds the store from the code-defined catalog at startup.
type CatalogSync struct {
	permissions ports.PermissionRepository
	roles       ports.RoleRepository
	users       ports.UserRepository
	hasher      ports.PasswordHasher
	invalidator PermissionInvalidator
	admin       BootstrapAdmin
	log         zerolog.Logger
}

func NewCatalogSync(
	permissions ports.PermissionRepository,
	roles ports.RoleRepository,
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	invalidator PermissionInvalidator,
	admin BootstrapAdmin,
	log zerolog.Logger,
) *CatalogSync {
	return &CatalogSync{
		permissions: permissions,
		roles:       roles,
		users:       users,
		hasher:      hasher,
		invalidator: invalidator,
		admin:       admin,
		log:         log,
	}
}

// Run is idempotent. It upserts every catalog permission, creates missing
// template roles, grants ADMIN every catalog key and seeds STAFF and USER only
// when this run created them, so administrator edits to those roles survive
// restarts.
func (s *CatalogSync) Run(ctx context.Context) error {
	// 1. Permissions: insert new keys, refresh descriptions.
	all := catalog.All()
	if err := s.permissions.Upsert(ctx, all); err != nil {
		return fmt.Errorf("sync permissions: %w", err)
	}

	// 2. Template roles.
	touched := make([]string, 0, len(catalog.Templates()))
	for _, tpl := range catalog.Templates() {
		created, err := s.ensureRole(ctx, tpl.Role)
		if err != nil {
			return fmt.Errorf("sync role %s: %w", tpl.Role, err)
		}
		if tpl.Role != catalog.RoleAdmin && !created {
			continue
		}
		if err := s.roles.GrantPermissions(ctx, tpl.Role, tpl.Permissions); err != nil {
			return fmt.Errorf("grant %s: %w", tpl.Role, err)
		}
		touched = append(touched, tpl.Role)
	}
	s.invalidator.Invalidate(ctx, touched...)

	// 3. Optional first administrator.
	if err := s.ensureAdmin(ctx); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	s.log.Info().Int("permissions", len(all)).Strs("roles_seeded", touched).Msg("catalog synced")
	return nil
}

func (s *CatalogSync) ensureRole(ctx context.Context, name string) (created bool, err error) {
	_, err = s.roles.Create(ctx, name, nil)
	switch {
	case err == nil:
		return true, nil
	case domain.KindOf(err) == domain.KindConflict:
		return false, nil
	default:
		return false, err
	}
}

func (s *CatalogSync) ensureAdmin(ctx context.Context) error {
	if s.admin.Username == "" {
		return nil
	}

	_, err := s.users.FindByLogin(ctx, s.admin.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}

	hash, err := s.hasher.Hash(s.admin.Password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Username:     s.admin.Username,
		Email:        s.admin.Email,
		PasswordHash: hash,
		Role:         catalog.RoleAdmin,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if domain.KindOf(err) == domain.KindConflict {
		return nil
	}
	if err != nil {
		return err
	}

	s.log.Info().Str("username", s.admin.Username).Msg("bootstrap admin created")
	return nil
}
