package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
)

func newUserFixture() (*memStore, *stubRecorder, *UserService) {
	store := newMemStore()
	store.seed("USER")
	store.seed("STAFF")
	rec := &stubRecorder{}
	return store, rec, NewUserService(stubUserRepo{store}, stubHasher{}, rec, "USER", zerolog.Nop())
}

func TestUserService_Create(t *testing.T) {
	_, rec, svc := newUserFixture()
	ctx := context.Background()

	u, err := svc.Create(ctx, ports.CreateUserInput{Username: "erin", Password: "pw1234", Email: "erin@example.com"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if u.Role != "USER" || u.Status != domain.StatusActive || u.ID == "" {
		t.Fatalf("unexpected user: %+v", u)
	}

	_, err = svc.Create(ctx, ports.CreateUserInput{Username: "frank", Password: "pw1234", Email: "f@example.com", Role: "GHOST"})
	expectKind(t, err, domain.KindNotFound)

	_, err = svc.Create(ctx, ports.CreateUserInput{Username: "gail", Password: "pw1234", Email: "g@example.com", Status: domain.StatusDeleted})
	expectKind(t, err, domain.KindValidation)

	if acts := rec.actions(); len(acts) != 1 || acts[0] != domain.AuditUserCreated {
		t.Fatalf("unexpected audit: %v", acts)
	}
}

func TestUserService_ChangeStatus(t *testing.T) {
	store, _, svc := newUserFixture()
	store.addUser("u1", "erin", "USER", domain.StatusActive)
	ctx := context.Background()

	u, err := svc.ChangeStatus(ctx, "u1", domain.StatusSuspended)
	if err != nil {
		t.Fatalf("ChangeStatus returned error: %v", err)
	}
	if u.Status != domain.StatusSuspended {
		t.Fatalf("expected SUSPENDED, got %s", u.Status)
	}

	_, err = svc.ChangeStatus(ctx, "u1", domain.StatusDeleted)
	expectKind(t, err, domain.KindValidation)
}

func TestUserService_ChangeRole(t *testing.T) {
	store, _, svc := newUserFixture()
	store.addUser("u1", "erin", "USER", domain.StatusActive)
	ctx := context.Background()

	u, err := svc.ChangeRole(ctx, "u1", " STAFF ")
	if err != nil {
		t.Fatalf("ChangeRole returned error: %v", err)
	}
	if u.Role != "STAFF" {
		t.Fatalf("expected STAFF, got %s", u.Role)
	}

	_, err = svc.ChangeRole(ctx, "u1", "GHOST")
	expectKind(t, err, domain.KindNotFound)

	_, err = svc.ChangeRole(ctx, "u1", "")
	expectKind(t, err, domain.KindValidation)
}

func TestUserService_Delete(t *testing.T) {
	store, _, svc := newUserFixture()
	store.addUser("u1", "erin", "USER", domain.StatusActive)
	ctx := context.Background()

	if err := svc.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if store.users["u1"].Status != domain.StatusDeleted {
		t.Fatalf("expected soft delete")
	}

	expectKind(t, svc.Delete(ctx, "u1"), domain.KindNotFound)
	expectKind(t, firstErr(svc.Get(ctx, "u1")), domain.KindNotFound)
}

func TestUserService_List(t *testing.T) {
	store, _, svc := newUserFixture()
	store.addUser("u1", "erin", "USER", domain.StatusActive)
	store.addUser("u2", "eric", "STAFF", domain.StatusActive)
	store.addUser("u3", "ernie", "USER", domain.StatusDeleted)
	ctx := context.Background()

	page, err := svc.List(ctx, domain.UserFilter{Search: "er", Page: domain.PageRequest{Page: 1, Limit: 1}})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if page.Pagination.Total != 2 || len(page.Items) != 1 || !page.Pagination.HasNext {
		t.Fatalf("unexpected page: %+v (%d items)", page.Pagination, len(page.Items))
	}

	_, err = svc.List(ctx, domain.UserFilter{Status: domain.StatusDeleted})
	expectKind(t, err, domain.KindValidation)
}
