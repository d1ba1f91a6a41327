package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
)

type stubAuthService struct {
	registerFn       func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error)
	loginFn          func(ctx context.Context, login, password string) (*ports.AuthResult, error)
	profileFn        func(ctx context.Context, userID string) (*domain.User, error)
	updateProfileFn  func(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.User, error)
	changePasswordFn func(ctx context.Context, userID, current, next string) error
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, login, password string) (*ports.AuthResult, error) {
	return s.loginFn(ctx, login, password)
}

func (s *stubAuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.profileFn(ctx, userID)
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.User, error) {
	return s.updateProfileFn(ctx, userID, upd)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	return s.changePasswordFn(ctx, userID, current, next)
}

type stubUserService struct {
	listFn         func(ctx context.Context, filter domain.UserFilter) (*domain.Page[*domain.User], error)
	createFn       func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error)
	getFn          func(ctx context.Context, id string) (*domain.User, error)
	updateFn       func(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error)
	changeStatusFn func(ctx context.Context, id string, status domain.UserStatus) (*domain.User, error)
	changeRoleFn   func(ctx context.Context, id, role string) (*domain.User, error)
	deleteFn       func(ctx context.Context, id string) error
}

func (s *stubUserService) List(ctx context.Context, filter domain.UserFilter) (*domain.Page[*domain.User], error) {
	return s.listFn(ctx, filter)
}

func (s *stubUserService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	return s.createFn(ctx, in)
}

func (s *stubUserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

func (s *stubUserService) Update(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	return s.updateFn(ctx, id, upd)
}

func (s *stubUserService) ChangeStatus(ctx context.Context, id string, status domain.UserStatus) (*domain.User, error) {
	return s.changeStatusFn(ctx, id, status)
}

func (s *stubUserService) ChangeRole(ctx context.Context, id, role string) (*domain.User, error) {
	return s.changeRoleFn(ctx, id, role)
}

func (s *stubUserService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

type stubRoleService struct {
	listFn            func(ctx context.Context, filter domain.RoleFilter) (*domain.Page[*domain.Role], error)
	createFn          func(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error)
	getFn             func(ctx context.Context, name string) (*domain.Role, error)
	renameFn          func(ctx context.Context, name, newName string) (*domain.Role, error)
	deleteFn          func(ctx context.Context, name string) error
	setFn             func(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error)
	grantFn           func(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error)
	revokeFn          func(ctx context.Context, name string, key domain.PermissionKey) (*domain.Role, error)
	listPermissionsFn func(ctx context.Context) ([]domain.Permission, error)
}

func (s *stubRoleService) List(ctx context.Context, filter domain.RoleFilter) (*domain.Page[*domain.Role], error) {
	return s.listFn(ctx, filter)
}

func (s *stubRoleService) Create(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error) {
	return s.createFn(ctx, name, keys)
}

func (s *stubRoleService) Get(ctx context.Context, name string) (*domain.Role, error) {
	return s.getFn(ctx, name)
}

func (s *stubRoleService) Rename(ctx context.Context, name, newName string) (*domain.Role, error) {
	return s.renameFn(ctx, name, newName)
}

func (s *stubRoleService) Delete(ctx context.Context, name string) error {
	return s.deleteFn(ctx, name)
}

func (s *stubRoleService) SetPermissions(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error) {
	return s.setFn(ctx, name, keys)
}

func (s *stubRoleService) GrantPermissions(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error) {
	return s.grantFn(ctx, name, keys)
}

func (s *stubRoleService) RevokePermission(ctx context.Context, name string, key domain.PermissionKey) (*domain.Role, error) {
	return s.revokeFn(ctx, name, key)
}

func (s *stubRoleService) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	return s.listPermissionsFn(ctx)
}

type stubAuditService struct {
	listFn func(ctx context.Context, filter domain.AuditFilter) (*domain.Page[*domain.AuditEntry], error)
}

func (s *stubAuditService) List(ctx context.Context, filter domain.AuditFilter) (*domain.Page[*domain.AuditEntry], error) {
	return s.listFn(ctx, filter)
}

// newTestContext builds an Echo context with the validator installed and a
// JSON body when body is non-nil.
func newTestContext(method, target string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// withIdentity attaches id to the request context the way Authenticate does.
func withIdentity(c echo.Context, id *domain.Identity) {
	req := c.Request()
	c.SetRequest(req.WithContext(domain.ContextWithIdentity(req.Context(), id)))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func expectKind(t *testing.T, err error, kind domain.Kind) *domain.Error {
	t.Helper()
	de, ok := domain.AsError(err)
	if !ok || de.Kind != kind {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
	return de
}
