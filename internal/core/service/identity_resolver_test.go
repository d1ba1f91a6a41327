package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

func newResolverFixture() (*memStore, *stubTokens, *IdentityResolver) {
	store := newMemStore()
	tokens := newStubTokens()
	r := NewIdentityResolver(tokens, stubUserRepo{store}, stubRoleRepo{store}, zerolog.Nop())
	return store, tokens, r
}

func issue(t *testing.T, tokens *stubTokens, store *memStore, id string) string {
	t.Helper()
	store.mu.Lock()
	u := cloneUser(store.users[id])
	store.mu.Unlock()
	token, _, err := tokens.Issue(u)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func authReason(t *testing.T, err error) domain.AuthReason {
	t.Helper()
	de, ok := domain.AsError(err)
	if !ok || de.Kind != domain.KindAuthentication {
		t.Fatalf("expected authentication error, got %v", err)
	}
	return de.Reason
}

func TestIdentityResolver_Resolve_Success(t *testing.T) {
	store, tokens, r := newResolverFixture()
	store.seed("STAFF", "user:view_list", "fabric:create")
	store.addUser("u1", "xavier", "STAFF", domain.StatusActive)

	id, err := r.Resolve(context.Background(), issue(t, tokens, store, "u1"))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if id.ID != "u1" || id.Username != "xavier" || id.Role != "STAFF" {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if !id.Permissions.Equal(domain.NewPermissionSet("user:view_list", "fabric:create")) {
		t.Fatalf("unexpected permissions: %v", id.PermissionKeys())
	}
	if store.lookups != 1 {
		t.Fatalf("expected a single permission lookup, got %d", store.lookups)
	}
}

func TestIdentityResolver_Resolve_TokenFailures(t *testing.T) {
	_, _, r := newResolverFixture()
	ctx := context.Background()

	cases := map[string]domain.AuthReason{
		"":        domain.ReasonMissingToken,
		"expired": domain.ReasonExpiredToken,
		"garbage": domain.ReasonInvalidToken,
		"unknown": domain.ReasonInvalidToken,
	}
	for token, want := range cases {
		_, err := r.Resolve(ctx, token)
		if got := authReason(t, err); got != want {
			t.Fatalf("token %q: expected reason %s, got %s", token, want, got)
		}
	}
}

func TestIdentityResolver_Resolve_DeletedUser(t *testing.T) {
	store, tokens, r := newResolverFixture()
	store.seed("USER")
	store.addUser("u1", "gone", "USER", domain.StatusActive)
	token := issue(t, tokens, store, "u1")

	store.users["u1"].Status = domain.StatusDeleted

	_, err := r.Resolve(context.Background(), token)
	if got := authReason(t, err); got != domain.ReasonUserNotFound {
		t.Fatalf("expected user_not_found, got %s", got)
	}
}

func TestIdentityResolver_Resolve_SuspendedUser(t *testing.T) {
	store, tokens, r := newResolverFixture()
	store.seed("ADMIN", "role:delete", "user:delete")
	store.addUser("u1", "yolanda", "ADMIN", domain.StatusSuspended)

	_, err := r.Resolve(context.Background(), issue(t, tokens, store, "u1"))
	if got := authReason(t, err); got != domain.ReasonInactive {
		t.Fatalf("expected inactive, got %s", got)
	}
	if store.lookups != 0 {
		t.Fatalf("permissions must not be loaded for inactive users")
	}
}

func TestIdentityResolver_Resolve_TracksRoleChanges(t *testing.T) {
	store, tokens, r := newResolverFixture()
	store.seed("STAFF", "fabric:create")
	store.addUser("u1", "xavier", "STAFF", domain.StatusActive)
	token := issue(t, tokens, store, "u1")

	store.grants["STAFF"] = domain.NewPermissionSet("fabric:view_list")

	id, err := r.Resolve(context.Background(), token)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if id.Permissions.Has("fabric:create") || !id.Permissions.Has("fabric:view_list") {
		t.Fatalf("expected the current grant set, got %v", id.PermissionKeys())
	}
}
