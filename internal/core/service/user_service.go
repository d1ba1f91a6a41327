package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
)

// UserService implements account administration.
type UserService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	audit  ports.AuditRecorder
	// defaultRole is used when an administrator creates a user without a role.
	defaultRole string
	log         zerolog.Logger
}

func NewUserService(users ports.UserRepository, hasher ports.PasswordHasher, audit ports.AuditRecorder, defaultRole string, log zerolog.Logger) *UserService {
	return &UserService{users: users, hasher: hasher, audit: audit, defaultRole: defaultRole, log: log}
}

func (s *UserService) List(ctx context.Context, filter domain.UserFilter) (*domain.Page[*domain.User], error) {
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Page = domain.NewPageRequest(filter.Page.Page, filter.Page.Limit)
	if filter.Status == domain.StatusDeleted {
		return nil, domain.NewFieldValidation("status", "deleted users cannot be listed")
	}

	items, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &domain.Page[*domain.User]{Items: items, Pagination: domain.NewPagination(filter.Page, total)}, nil
}

// Create adds an account on behalf of an administrator. The role must exist.
func (s *UserService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	role := domain.NormalizeRoleName(in.Role)
	if role == "" {
		role = s.defaultRole
	}
	status := in.Status
	if status == "" {
		status = domain.StatusActive
	}
	if !status.Assignable() {
		return nil, domain.NewFieldValidation("status", "status must be ACTIVE, INACTIVE or SUSPENDED")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.NewInternal(err)
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Role:         role,
		Status:       status,
		Profile:      in.Profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, domain.AuditUserCreated, created.ID, map[string]string{"username": created.Username, "role": role})
	s.log.Info().Str("user_id", created.ID).Str("role", role).Msg("user created")
	return created, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

// Update edits another user's profile fields.
func (s *UserService) Update(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	if upd.Empty() {
		return nil, domain.NewValidation("no profile fields to update")
	}
	return s.users.UpdateProfile(ctx, id, upd)
}

func (s *UserService) ChangeStatus(ctx context.Context, id string, status domain.UserStatus) (*domain.User, error) {
	if !status.Assignable() {
		return nil, domain.NewFieldValidation("status", "status must be ACTIVE, INACTIVE or SUSPENDED")
	}

	user, err := s.users.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, domain.AuditUserStatusChanged, id, map[string]string{"status": string(status)})
	s.log.Info().Str("user_id", id).Str("status", string(status)).Msg("user status changed")
	return user, nil
}

// ChangeRole reassigns the user. The existence check on the role and the write
// are atomic in the store, so a concurrent delete cannot strand the user.
func (s *UserService) ChangeRole(ctx context.Context, id, role string) (*domain.User, error) {
	role = domain.NormalizeRoleName(role)
	if err := domain.ValidateRoleName("role", role); err != nil {
		return nil, err
	}

	user, err := s.users.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, err
	}

	recordAudit(ctx, s.audit, domain.AuditUserRoleChanged, id, map[string]string{"role": role})
	s.log.Info().Str("user_id", id).Str("role", role).Msg("user role changed")
	return user, nil
}

// Delete soft-deletes the user. Deleting twice is NotFound.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.SoftDelete(ctx, id); err != nil {
		return err
	}

	recordAudit(ctx, s.audit, domain.AuditUserDeleted, id, nil)
	s.log.Info().Str("user_id", id).Msg("user deleted")
	return nil
}
