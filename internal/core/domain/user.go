package domain

import "time"

// UserStatus is the account lifecycle state. DELETED is terminal.
type UserStatus string

const (
	StatusActive    UserStatus = "ACTIVE"
	StatusInactive  UserStatus = "INACTIVE"
	StatusSuspended UserStatus = "SUSPENDED"
	StatusDeleted   UserStatus = "DELETED"
)

// Assignable reports whether an administrator may set the status directly.
// DELETED is only reachable through soft deletion.
func (s UserStatus) Assignable() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Profile holds the free-form attributes a user can edit about themselves.
type Profile struct {
	Fullname string     `json:"fullname,omitempty"`
	Phone    string     `json:"phone,omitempty"`
	Gender   Gender     `json:"gender,omitempty"`
	Address  string     `json:"address,omitempty"`
	DOB      *time.Time `json:"dob,omitempty"`
}

// User models an account. The credential hash never leaves the service layer
// through JSON.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Status       UserStatus `json:"status"`
	Profile
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity is the resolved acting user attached to a request. It has no
// credential field at all.
type Identity struct {
	ID          string        `json:"id"`
	Username    string        `json:"username"`
	Email       string        `json:"email"`
	Role        string        `json:"role"`
	Status      UserStatus    `json:"status"`
	Profile
	Permissions PermissionSet `json:"-"`
}

// PermissionKeys is the sorted view used in responses.
func (i *Identity) PermissionKeys() []PermissionKey {
	return i.Permissions.Keys()
}

// NewIdentity copies the public fields of u.
func NewIdentity(u *User, perms PermissionSet) *Identity {
	if perms == nil {
		perms = PermissionSet{}
	}
	return &Identity{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		Status:      u.Status,
		Profile:     u.Profile,
		Permissions: perms,
	}
}

// UserFilter shapes user listings. DELETED users are never returned.
type UserFilter struct {
	Search      string
	Status      UserStatus
	Role        string
	Gender      Gender
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Page        PageRequest
	Sort        []SortField
}

// ProfileUpdate carries optional profile changes. Nil means unchanged.
type ProfileUpdate struct {
	Email    *string
	Fullname *string
	Phone    *string
	Gender   *Gender
	Address  *string
	DOB      *time.Time
}

// Apply writes the set fields onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Fullname != nil {
		u.Fullname = *p.Fullname
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.DOB != nil {
		dob := *p.DOB
		u.DOB = &dob
	}
}

// Empty reports whether no field is set.
func (p ProfileUpdate) Empty() bool {
	return p.Email == nil && p.Fullname == nil && p.Phone == nil &&
		p.Gender == nil && p.Address == nil && p.DOB == nil
}
