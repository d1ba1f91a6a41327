package domain

import (
	"strings"
	"time"
)

// MaxRoleNameLength bounds Role.Name.
const MaxRoleNameLength = 50

// Role is a named bundle of permissions. Name is the natural key users reference.
type Role struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
}

// PermissionSet returns the role's keys as a set.
func (r *Role) PermissionSet() PermissionSet {
	return PermissionSetOf(r.Permissions)
}

// NormalizeRoleName trims the name. Role names are case-sensitive.
func NormalizeRoleName(name string) string {
	return strings.TrimSpace(name)
}

// ValidateRoleName checks a normalized role name, reporting problems against field.
func ValidateRoleName(field, name string) error {
	if name == "" {
		return NewFieldValidation(field, "role name is required")
	}
	if len(name) > MaxRoleNameLength {
		return NewFieldValidation(field, "role name must be at most 50 characters")
	}
	return nil
}

// RoleInUseError is returned when deletion is refused because live users hold the role.
func RoleInUseError(name string, usernames []string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: "cannot delete role '" + name + "': in use by users: " + strings.Join(usernames, ", "),
		Field:   "role",
		Fields:  []FieldError{{Field: "role", Message: "role is in use"}},
	}
}

// RoleFilter shapes role listings.
type RoleFilter struct {
	Search string
	Page   PageRequest
	Sort   []SortField
}
