package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
)

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			if in.Username != "alice" || in.Email != "alice@example.com" {
				t.Fatalf("unexpected input: %+v", in)
			}
			if in.Profile.DOB == nil || in.Profile.DOB.Format(dateLayout) != "1990-05-01" {
				t.Fatalf("dob not parsed: %+v", in.Profile.DOB)
			}
			if in.Profile.Fullname != "Alice Doe" {
				t.Fatalf("fullname not trimmed: %q", in.Profile.Fullname)
			}
			return &ports.AuthResult{
				Token:     "signed.jwt",
				ExpiresAt: time.Now().Add(time.Hour),
				User:      &domain.User{ID: "u-1", Username: in.Username, Email: in.Email, Role: "USER", Status: domain.StatusActive, Profile: in.Profile},
			}, nil
		},
	}
	h := NewAuthHandler(stub)

	body := `{"username":"alice","password":"secret1","email":"alice@example.com","fullname":"  Alice Doe ","dob":"1990-05-01"}`
	c, rec := newTestContext(http.MethodPost, "/auth/register", strings.NewReader(body))

	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	resp := decode(t, rec)
	if resp["token"] != "signed.jwt" {
		t.Fatalf("expected token in response, got %v", resp["token"])
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["username"] != "alice" || user["role"] != "USER" || user["dob"] != "1990-05-01" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatalf("password hash must not be rendered")
	}
}

func TestAuthHandler_Register_ValidationListsFields(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})
	c, _ := newTestContext(http.MethodPost, "/auth/register", strings.NewReader(`{"username":"a!","email":"nope"}`))

	de := expectKind(t, h.Register(c), domain.KindValidation)

	got := map[string]bool{}
	for _, f := range de.Fields {
		got[f.Field] = true
	}
	for _, want := range []string{"username", "password", "email"} {
		if !got[want] {
			t.Fatalf("expected field error for %s, got %+v", want, de.Fields)
		}
	}
}

func TestAuthHandler_Register_FutureDOB(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})
	future := time.Now().AddDate(1, 0, 0).Format(dateLayout)
	body := `{"username":"alice","password":"secret1","email":"alice@example.com","dob":"` + future + `"}`
	c, _ := newTestContext(http.MethodPost, "/auth/register", strings.NewReader(body))

	de := expectKind(t, h.Register(c), domain.KindValidation)
	if de.Field != "dob" {
		t.Fatalf("expected dob field, got %q", de.Field)
	}
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			return nil, domain.NewConflict("username", "username already exists")
		},
	}
	h := NewAuthHandler(stub)
	c, _ := newTestContext(http.MethodPost, "/auth/register", strings.NewReader(`{"username":"bob","password":"secret1","email":"bob@example.com"}`))

	expectKind(t, h.Register(c), domain.KindConflict)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, login, password string) (*ports.AuthResult, error) {
			if login != "alice@example.com" || password != "secret1" {
				t.Fatalf("unexpected credentials: %s %s", login, password)
			}
			return &ports.AuthResult{Token: "tok", User: &domain.User{ID: "u-1", Username: "alice"}}, nil
		},
	}
	h := NewAuthHandler(stub)
	c, rec := newTestContext(http.MethodPost, "/auth/login", strings.NewReader(`{"usernameOrEmail":"alice@example.com","password":"secret1"}`))

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp := decode(t, rec); resp["token"] != "tok" {
		t.Fatalf("unexpected token: %v", resp["token"])
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, login, password string) (*ports.AuthResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub)
	c, _ := newTestContext(http.MethodPost, "/auth/login", strings.NewReader(`{"usernameOrEmail":"alice","password":"wrong"}`))

	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Profile_IncludesPermissions(t *testing.T) {
	stub := &stubAuthService{
		profileFn: func(ctx context.Context, userID string) (*domain.User, error) {
			if userID != "u-1" {
				t.Fatalf("unexpected user id %q", userID)
			}
			return &domain.User{ID: "u-1", Username: "alice", Role: "STAFF"}, nil
		},
	}
	h := NewAuthHandler(stub)
	c, rec := newTestContext(http.MethodGet, "/auth/profile", nil)
	withIdentity(c, &domain.Identity{
		ID:          "u-1",
		Permissions: domain.NewPermissionSet("user:view_own_profile", "fabric:view_list"),
	})

	if err := h.Profile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	user := decode(t, rec)["user"].(map[string]any)
	perms, ok := user["permissions"].([]any)
	if !ok || len(perms) != 2 {
		t.Fatalf("expected two permissions, got %v", user["permissions"])
	}
	if perms[0] != "fabric:view_list" || perms[1] != "user:view_own_profile" {
		t.Fatalf("permissions must be sorted, got %v", perms)
	}
}

func TestAuthHandler_Profile_WithoutIdentity(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})
	c, _ := newTestContext(http.MethodGet, "/auth/profile", nil)

	de := expectKind(t, h.Profile(c), domain.KindAuthentication)
	if de.Reason != domain.ReasonMissingToken {
		t.Fatalf("expected missing_token, got %s", de.Reason)
	}
}

func TestAuthHandler_UpdateProfile_OnlySetFields(t *testing.T) {
	stub := &stubAuthService{
		updateProfileFn: func(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.User, error) {
			if upd.Fullname == nil || *upd.Fullname != "Alice B" {
				t.Fatalf("fullname not forwarded: %+v", upd)
			}
			if upd.Email != nil || upd.Phone != nil || upd.DOB != nil {
				t.Fatalf("unset fields must stay nil: %+v", upd)
			}
			return &domain.User{ID: userID, Profile: domain.Profile{Fullname: *upd.Fullname}}, nil
		},
	}
	h := NewAuthHandler(stub)
	c, rec := newTestContext(http.MethodPut, "/auth/profile", strings.NewReader(`{"fullname":"Alice B"}`))
	withIdentity(c, &domain.Identity{ID: "u-1"})

	if err := h.UpdateProfile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_ChangePassword_ShortPassword(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})
	c, _ := newTestContext(http.MethodPut, "/auth/change-password", strings.NewReader(`{"currentPassword":"secret1","newPassword":"abc"}`))
	withIdentity(c, &domain.Identity{ID: "u-1"})

	de := expectKind(t, h.ChangePassword(c), domain.KindValidation)
	if len(de.Fields) != 1 || de.Fields[0].Field != "newPassword" {
		t.Fatalf("expected newPassword field error, got %+v", de.Fields)
	}
}

func TestAuthHandler_ChangePassword_Success(t *testing.T) {
	var called bool
	stub := &stubAuthService{
		changePasswordFn: func(ctx context.Context, userID, current, next string) error {
			called = userID == "u-1" && current == "secret1" && next == "secret2"
			return nil
		},
	}
	h := NewAuthHandler(stub)
	c, rec := newTestContext(http.MethodPut, "/auth/change-password", strings.NewReader(`{"currentPassword":"secret1","newPassword":"secret2"}`))
	withIdentity(c, &domain.Identity{ID: "u-1"})

	if err := h.ChangePassword(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("service not called with expected arguments")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
