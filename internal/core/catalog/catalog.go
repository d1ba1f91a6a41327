// Package catalog is the code-defined registry of every permission the
// application knows about, plus the default role templates seeded at startup.
package catalog

import "github.com/fabricwh/rbac-api/internal/core/domain"

// Group names.
const (
	GroupUsers   = "USERS"
	GroupFabrics = "FABRICS"
	GroupCredits = "CREDITS"
	GroupRoles   = "ROLES"
	GroupSystem  = "SYSTEM"
)

// Template role names.
const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
	RoleUser  = "USER"
)

const (
	UserViewList         domain.PermissionKey = "user:view_list"
	UserViewDetail       domain.PermissionKey = "user:view_detail"
	UserCreate           domain.PermissionKey = "user:create"
	UserUpdate           domain.PermissionKey = "user:update"
	UserDelete           domain.PermissionKey = "user:delete"
	UserManageRoles      domain.PermissionKey = "user:manage_roles"
	UserChangeStatus     domain.PermissionKey = "user:change_status"
	UserViewOwnProfile   domain.PermissionKey = "user:view_own_profile"
	UserUpdateOwnProfile domain.PermissionKey = "user:update_own_profile"

	FabricViewList         domain.PermissionKey = "fabric:view_list"
	FabricViewDetail       domain.PermissionKey = "fabric:view_detail"
	FabricCreate           domain.PermissionKey = "fabric:create"
	FabricUpdate           domain.PermissionKey = "fabric:update"
	FabricDelete           domain.PermissionKey = "fabric:delete"
	FabricManageCategories domain.PermissionKey = "fabric:manage_categories"
	FabricManageColors     domain.PermissionKey = "fabric:manage_colors"
	FabricManageGloss      domain.PermissionKey = "fabric:manage_gloss"

	CreditViewList   domain.PermissionKey = "credit:view_list"
	CreditViewDetail domain.PermissionKey = "credit:view_detail"
	CreditCreate     domain.PermissionKey = "credit:create"
	CreditUpdate     domain.PermissionKey = "credit:update"
	CreditDelete     domain.PermissionKey = "credit:delete"
	CreditApprove    domain.PermissionKey = "credit:approve"
	CreditReject     domain.PermissionKey = "credit:reject"
	CreditViewOwn    domain.PermissionKey = "credit:view_own"

	RoleView   domain.PermissionKey = "role:view"
	RoleCreate domain.PermissionKey = "role:create"
	RoleUpdate domain.PermissionKey = "role:update"
	RoleDelete domain.PermissionKey = "role:delete"

	SystemViewAuditLogs     domain.PermissionKey = "system:view_audit_logs"
	SystemManagePermissions domain.PermissionKey = "system:manage_permissions"
	SystemManageRoles       domain.PermissionKey = "system:manage_roles"
	SystemConfig            domain.PermissionKey = "system:config"
)

type group struct {
	name  string
	perms []domain.Permission
}

// groups keeps declaration order so All and Keys are deterministic.
var groups = []group{
	{GroupUsers, []domain.Permission{
		{Key: UserViewList, Description: "View the user list"},
		{Key: UserViewDetail, Description: "View user details"},
		{Key: UserCreate, Description: "Create users"},
		{Key: UserUpdate, Description: "Update user information"},
		{Key: UserDelete, Description: "Delete users"},
		{Key: UserManageRoles, Description: "Assign roles to users"},
		{Key: UserChangeStatus, Description: "Change user status"},
		{Key: UserViewOwnProfile, Description: "View own profile"},
		{Key: UserUpdateOwnProfile, Description: "Update own profile"},
	}},
	{GroupFabrics, []domain.Permission{
		{Key: FabricViewList, Description: "View the fabric list"},
		{Key: FabricViewDetail, Description: "View fabric details"},
		{Key: FabricCreate, Description: "Create fabrics"},
		{Key: FabricUpdate, Description: "Update fabric information"},
		{Key: FabricDelete, Description: "Delete fabrics"},
		{Key: FabricManageCategories, Description: "Manage fabric categories"},
		{Key: FabricManageColors, Description: "Manage fabric colors"},
		{Key: FabricManageGloss, Description: "Manage fabric gloss levels"},
	}},
	{GroupCredits, []domain.Permission{
		{Key: CreditViewList, Description: "View the credit registration list"},
		{Key: CreditViewDetail, Description: "View credit registration details"},
		{Key: CreditCreate, Description: "Create credit registrations"},
		{Key: CreditUpdate, Description: "Update credit registrations"},
		{Key: CreditDelete, Description: "Delete credit registrations"},
		{Key: CreditApprove, Description: "Approve credit registrations"},
		{Key: CreditReject, Description: "Reject credit registrations"},
		{Key: CreditViewOwn, Description: "View own credit registrations"},
	}},
	{GroupRoles, []domain.Permission{
		{Key: RoleView, Description: "View roles"},
		{Key: RoleCreate, Description: "Create roles"},
		{Key: RoleUpdate, Description: "Update roles"},
		{Key: RoleDelete, Description: "Delete roles"},
	}},
	{GroupSystem, []domain.Permission{
		{Key: SystemViewAuditLogs, Description: "View system audit logs"},
		{Key: SystemManagePermissions, Description: "Manage system permissions"},
		{Key: SystemManageRoles, Description: "Manage system roles"},
		{Key: SystemConfig, Description: "Configure the system"},
	}},
}

// All returns every catalog permission in declaration order. The slice is a copy.
func All() []domain.Permission {
	var out []domain.Permission
	for _, g := range groups {
		out = append(out, g.perms...)
	}
	return out
}

// Keys returns every catalog key in declaration order.
func Keys() []domain.PermissionKey {
	all := All()
	out := make([]domain.PermissionKey, len(all))
	for i, p := range all {
		out[i] = p.Key
	}
	return out
}

// Group returns the keys belonging to name, or nil for an unknown group.
func Group(name string) []domain.PermissionKey {
	for _, g := range groups {
		if g.name != name {
			continue
		}
		out := make([]domain.PermissionKey, len(g.perms))
		for i, p := range g.perms {
			out[i] = p.Key
		}
		return out
	}
	return nil
}

// Contains reports whether k is a catalog key.
func Contains(k domain.PermissionKey) bool {
	for _, g := range groups {
		for _, p := range g.perms {
			if p.Key == k {
				return true
			}
		}
	}
	return false
}

// Template is a default role and its initial grants.
type Template struct {
	Role        string
	Permissions []domain.PermissionKey
}

// Templates returns the seeded roles: ADMIN holds every key, STAFF has broad
// operational access and USER is limited to self-service and read-only keys.
func Templates() []Template {
	staff := []domain.PermissionKey{
		UserViewList, UserViewDetail, UserCreate, UserUpdate,
		UserViewOwnProfile, UserUpdateOwnProfile,
	}
	staff = append(staff, Group(GroupFabrics)...)
	staff = append(staff,
		CreditViewList, CreditViewDetail, CreditCreate, CreditUpdate,
		CreditApprove, CreditReject, CreditViewOwn,
	)

	return []Template{
		{Role: RoleAdmin, Permissions: Keys()},
		{Role: RoleStaff, Permissions: staff},
		{Role: RoleUser, Permissions: []domain.PermissionKey{
			UserViewOwnProfile, UserUpdateOwnProfile,
			FabricViewList, FabricViewDetail,
			CreditViewOwn, CreditCreate,
		}},
	}
}
