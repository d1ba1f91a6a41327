package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
	"github.com/fabricwh/rbac-api/internal/pkg/metrics"
)

// AuthService implements registration, login and self-service profile management.
type AuthService struct {
	users       ports.UserRepository
	tokens      ports.TokenManager
	hasher      ports.PasswordHasher
	audit       ports.AuditRecorder
	defaultRole string
	log         zerolog.Logger

	// dummyHash is verified against on unknown logins so they cost the same
	// hashing work as a wrong password.
	dummyHash string
}

func NewAuthService(
	users ports.UserRepository,
	tokens ports.TokenManager,
	hasher ports.PasswordHasher,
	audit ports.AuditRecorder,
	defaultRole string,
	log zerolog.Logger,
) *AuthService {
	s := &AuthService{
		users:       users,
		tokens:      tokens,
		hasher:      hasher,
		audit:       audit,
		defaultRole: defaultRole,
		log:         log,
	}
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		log.Warn().Err(err).Msg("login timing hash unavailable")
	}
	s.dummyHash = dummy
	return s
}

// Register creates an ACTIVE account holding the default role and signs a token for it.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Password == "" || in.Email == "" {
		return nil, domain.NewValidation("username, email and password are required")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.NewInternal(err)
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         s.defaultRole,
		Status:       domain.StatusActive,
		Profile:      in.Profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	token, exp, err := s.tokens.Issue(created)
	if err != nil {
		return nil, domain.NewInternal(err)
	}

	recordAudit(ctx, s.audit, domain.AuditUserRegistered, created.ID, map[string]string{"username": created.Username})
	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")

	return &ports.AuthResult{Token: token, ExpiresAt: exp, User: created}, nil
}

// Login accepts a username or an email. Unknown logins and wrong passwords are
// indistinguishable to the caller, in message and in hashing time. The status
// check runs only after the password verified.
func (s *AuthService) Login(ctx context.Context, login, password string) (*ports.AuthResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		metrics.AuthenticationsTotal.WithLabelValues(string(domain.ReasonBadCredentials)).Inc()
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			metrics.AuthenticationsTotal.WithLabelValues(string(domain.ReasonBadCredentials)).Inc()
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		metrics.AuthenticationsTotal.WithLabelValues(string(domain.ReasonBadCredentials)).Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if user.Status != domain.StatusActive {
		metrics.AuthenticationsTotal.WithLabelValues(string(domain.ReasonInactive)).Inc()
		return nil, domain.NewAuthentication(domain.ReasonInactive, "account is not active")
	}

	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		return nil, domain.NewInternal(err)
	}

	metrics.AuthenticationsTotal.WithLabelValues("ok").Inc()
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")

	return &ports.AuthResult{Token: token, ExpiresAt: exp, User: user}, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.User, error) {
	if upd.Empty() {
		return nil, domain.NewValidation("no profile fields to update")
	}
	if upd.Email != nil {
		trimmed := strings.TrimSpace(*upd.Email)
		upd.Email = &trimmed
	}
	return s.users.UpdateProfile(ctx, userID, upd)
}

// ChangePassword requires the current password and a different new one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(current, user.PasswordHash) {
		return domain.NewFieldValidation("currentPassword", "current password is incorrect")
	}
	if s.hasher.Verify(next, user.PasswordHash) {
		return domain.NewFieldValidation("newPassword", "new password must differ from the current one")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return domain.NewInternal(err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	recordAudit(ctx, s.audit, domain.AuditPasswordChanged, userID, nil)
	s.log.Info().Str("user_id", userID).Msg("password changed")
	return nil
}
