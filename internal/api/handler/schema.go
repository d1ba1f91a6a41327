package handler

import (
	"time"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

const dateLayout = "2006-01-02"

// --- Request types ---

type profileRequest struct {
	Fullname string `json:"fullname" validate:"omitempty,max=100"`
	Phone    string `json:"phone"    validate:"omitempty,min=10,max=15,phone"`
	Gender   string `json:"gender"   validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Address  string `json:"address"  validate:"omitempty,max=255"`
	DOB      string `json:"dob"      validate:"omitempty,datetime=2006-01-02"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=255"`
	Email    string `json:"email"    validate:"required,email,max=100"`
	profileRequest
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required"`
	Password        string `json:"password"        validate:"required"`
}

// profileUpdateRequest uses pointers so omitted fields stay unchanged.
type profileUpdateRequest struct {
	Email    *string `json:"email"    validate:"omitempty,email,max=100"`
	Fullname *string `json:"fullname" validate:"omitempty,max=100"`
	Phone    *string `json:"phone"    validate:"omitempty,min=10,max=15,phone"`
	Gender   *string `json:"gender"   validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Address  *string `json:"address"  validate:"omitempty,max=255"`
	DOB      *string `json:"dob"      validate:"omitempty,datetime=2006-01-02"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=6,max=255"`
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=255"`
	Email    string `json:"email"    validate:"required,email,max=100"`
	Role     string `json:"role"     validate:"omitempty,max=50"`
	Status   string `json:"status"   validate:"omitempty,oneof=ACTIVE INACTIVE SUSPENDED"`
	profileRequest
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE SUSPENDED"`
}

type roleAssignmentRequest struct {
	Role string `json:"role" validate:"required,max=50"`
}

type createRoleRequest struct {
	Name        string   `json:"name"        validate:"required,max=50"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

type renameRoleRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

type permissionsRequest struct {
	Permissions []string `json:"permissions" validate:"dive,required"`
}

// --- Response types ---
// Owned by the transport layer so the JSON contract is not coupled to
// internal types.

// errorResponse documents the envelope rendered by the HTTP error handler.
type errorResponse struct {
	Error  string              `json:"error"`
	Reason string              `json:"reason,omitempty"`
	Errors []domain.FieldError `json:"errors,omitempty"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Fullname  string    `json:"fullname,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	Address   string    `json:"address,omitempty"`
	DOB       string    `json:"dob,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type identityResponse struct {
	userResponse
	Permissions []domain.PermissionKey `json:"permissions"`
}

type permissionResponse struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

type roleResponse struct {
	Name        string               `json:"name"`
	Permissions []permissionResponse `json:"permissions"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

type auditEntryResponse struct {
	ID        string            `json:"id"`
	Action    string            `json:"action"`
	ActorID   string            `json:"actorId,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Target    string            `json:"target"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type authResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      userResponse `json:"user"`
}

type userEnvelope struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type profileEnvelope struct {
	Message string           `json:"message"`
	User    identityResponse `json:"user"`
}

type roleEnvelope struct {
	Message string       `json:"message"`
	Role    roleResponse `json:"role"`
}

type listResponse[T any] struct {
	Message    string            `json:"message"`
	Data       []T               `json:"data"`
	Pagination domain.Pagination `json:"pagination"`
}

type permissionListResponse struct {
	Message string               `json:"message"`
	Data    []permissionResponse `json:"data"`
}
