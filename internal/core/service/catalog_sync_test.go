package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fabricwh/rbac-api/internal/core/catalog"
	"github.com/fabricwh/rbac-api/internal/core/domain"
)

func newSyncFixture(admin BootstrapAdmin) (*memStore, *stubPermissionRepo, *CatalogSync) {
	store := newMemStore()
	perms := &stubPermissionRepo{s: store}
	sync := NewCatalogSync(perms, stubRoleRepo{store}, stubUserRepo{store}, stubHasher{}, &stubInvalidator{}, admin, zerolog.Nop())
	return store, perms, sync
}

func TestCatalogSync_Run_SeedsEverything(t *testing.T) {
	store, _, sync := newSyncFixture(BootstrapAdmin{Username: "root", Email: "root@example.com", Password: "changeme"})

	if err := sync.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(store.permissions) != len(catalog.All()) {
		t.Fatalf("expected %d permissions, got %d", len(catalog.All()), len(store.permissions))
	}
	for _, tpl := range catalog.Templates() {
		if !store.grants[tpl.Role].Equal(domain.NewPermissionSet(tpl.Permissions...)) {
			t.Fatalf("role %s not seeded from its template", tpl.Role)
		}
	}

	admin, err := stubUserRepo{store}.FindByLogin(context.Background(), "root")
	if err != nil {
		t.Fatalf("bootstrap admin missing: %v", err)
	}
	if admin.Role != catalog.RoleAdmin || admin.PasswordHash != "hashed:changeme" {
		t.Fatalf("unexpected admin: %+v", admin)
	}
}

func TestCatalogSync_Run_Idempotent(t *testing.T) {
	store, perms, sync := newSyncFixture(BootstrapAdmin{Username: "root", Email: "root@example.com", Password: "changeme"})
	ctx := context.Background()

	if err := sync.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// An administrator trims STAFF and strips a key from ADMIN between restarts.
	delete(store.grants[catalog.RoleStaff], catalog.FabricDelete)
	delete(store.grants[catalog.RoleAdmin], catalog.RoleDelete)

	if err := sync.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if perms.upserts != 2 || len(store.permissions) != len(catalog.All()) {
		t.Fatalf("upsert must not duplicate permissions")
	}
	if store.grants[catalog.RoleStaff].Has(catalog.FabricDelete) {
		t.Fatalf("existing STAFF role must not be re-seeded")
	}
	if !store.grants[catalog.RoleAdmin].Has(catalog.RoleDelete) {
		t.Fatalf("ADMIN must regain every catalog key")
	}
	if len(store.users) != 1 {
		t.Fatalf("bootstrap admin must be created once, got %d users", len(store.users))
	}
}

func TestCatalogSync_Run_WithoutAdmin(t *testing.T) {
	store, _, sync := newSyncFixture(BootstrapAdmin{})
	if err := sync.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(store.users) != 0 {
		t.Fatalf("expected no users, got %d", len(store.users))
	}
}
