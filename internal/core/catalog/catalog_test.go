package catalog

import (
	"testing"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

func TestAll_KeysAreUniqueAndWellFormed(t *testing.T) {
	all := All()
	if len(all) != 33 {
		t.Fatalf("expected 33 permissions, got %d", len(all))
	}

	seen := make(map[domain.PermissionKey]bool, len(all))
	for _, p := range all {
		if !p.Key.Valid() {
			t.Fatalf("malformed key %q", p.Key)
		}
		if p.Description == "" {
			t.Fatalf("key %q has no description", p.Key)
		}
		if seen[p.Key] {
			t.Fatalf("duplicate key %q", p.Key)
		}
		seen[p.Key] = true
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	a := All()
	a[0].Description = "mutated"
	if All()[0].Description == "mutated" {
		t.Fatalf("All must not expose internal storage")
	}
}

func TestGroup(t *testing.T) {
	roles := Group(GroupRoles)
	want := []domain.PermissionKey{RoleView, RoleCreate, RoleUpdate, RoleDelete}
	if len(roles) != len(want) {
		t.Fatalf("expected %d role keys, got %d", len(want), len(roles))
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], roles[i])
		}
	}

	if Group("NOPE") != nil {
		t.Fatalf("expected nil for unknown group")
	}
}

func TestTemplates(t *testing.T) {
	byName := map[string]domain.PermissionSet{}
	for _, tpl := range Templates() {
		for _, k := range tpl.Permissions {
			if !Contains(k) {
				t.Fatalf("template %s references unknown key %s", tpl.Role, k)
			}
		}
		byName[tpl.Role] = domain.NewPermissionSet(tpl.Permissions...)
	}

	if !byName[RoleAdmin].Equal(domain.NewPermissionSet(Keys()...)) {
		t.Fatalf("ADMIN must hold every catalog key")
	}

	staff := byName[RoleStaff]
	if staff.HasAny(UserDelete, UserManageRoles, CreditDelete, RoleDelete) {
		t.Fatalf("STAFF must not hold administrative keys")
	}
	if !staff.HasAll(Group(GroupFabrics)...) {
		t.Fatalf("STAFF must hold every fabric key")
	}

	user := byName[RoleUser]
	if len(user) != 6 {
		t.Fatalf("expected 6 USER keys, got %d", len(user))
	}
	if user.Has(UserViewList) {
		t.Fatalf("USER must not list users")
	}
}
