package service

import (
	"testing"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

func staffIdentity() *domain.Identity {
	return &domain.Identity{
		ID:          "u-staff",
		Username:    "xavier",
		Role:        "STAFF",
		Permissions: domain.NewPermissionSet("user:view_list", "fabric:create"),
	}
}

func expectKind(t *testing.T, err error, want domain.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := domain.KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}

func TestRequireOne(t *testing.T) {
	id := staffIdentity()

	if err := RequireOne(id, "fabric:create"); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}

	err := RequireOne(id, "role:delete")
	expectKind(t, err, domain.KindAuthorization)

	de, _ := domain.AsError(err)
	if de.Requirement == nil || de.Requirement.Mode != domain.RequireOne || de.Requirement.Keys[0] != "role:delete" {
		t.Fatalf("unexpected requirement: %+v", de.Requirement)
	}
	if de.Message != "access forbidden" {
		t.Fatalf("denial message must not name the key, got %q", de.Message)
	}
}

func TestRequireAnyAll_AgreeWithRequireOne(t *testing.T) {
	id := staffIdentity()
	keys := []domain.PermissionKey{"user:view_list", "fabric:create", "role:delete", "user:delete"}

	for _, a := range keys {
		for _, b := range keys {
			oneA := RequireOne(id, a) == nil
			oneB := RequireOne(id, b) == nil

			if got := RequireAll(id, a, b) == nil; got != (oneA && oneB) {
				t.Fatalf("RequireAll(%s,%s)=%v disagrees with RequireOne", a, b, got)
			}
			if got := RequireAny(id, a, b) == nil; got != (oneA || oneB) {
				t.Fatalf("RequireAny(%s,%s)=%v disagrees with RequireOne", a, b, got)
			}
		}
	}
}

func TestRequireOwnershipOr(t *testing.T) {
	id := &domain.Identity{ID: "u-self", Permissions: domain.NewPermissionSet("user:view_own_profile")}

	if err := RequireOwnershipOr(id, "user:view_detail", "u-self"); err != nil {
		t.Fatalf("owner must be allowed, got %v", err)
	}
	expectKind(t, RequireOwnershipOr(id, "user:view_detail", "u-other"), domain.KindAuthorization)
	expectKind(t, RequireOwnershipOr(id, "user:view_detail", ""), domain.KindAuthorization)

	admin := &domain.Identity{ID: "u-admin", Permissions: domain.NewPermissionSet("user:view_detail")}
	if err := RequireOwnershipOr(admin, "user:view_detail", "u-other"); err != nil {
		t.Fatalf("permission holder must be allowed, got %v", err)
	}
}

func TestGate_NilIdentityIsAuthentication(t *testing.T) {
	expectKind(t, RequireOne(nil, "user:view_list"), domain.KindAuthentication)
	expectKind(t, RequireAny(nil, "user:view_list"), domain.KindAuthentication)
	expectKind(t, RequireAll(nil, "user:view_list"), domain.KindAuthentication)
	expectKind(t, RequireOwnershipOr(nil, "user:view_list", "x"), domain.KindAuthentication)
}
