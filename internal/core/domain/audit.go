package domain

import "time"

// AuditAction names an administrative mutation recorded in the audit log.
type AuditAction string

const (
	AuditRoleCreated        AuditAction = "role.created"
	AuditRoleRenamed        AuditAction = "role.renamed"
	AuditRoleDeleted        AuditAction = "role.deleted"
	AuditRoleDeleteRefused  AuditAction = "role.delete_refused"
	AuditRolePermissionsSet AuditAction = "role.permissions_set"
	AuditPermissionGranted  AuditAction = "role.permission_granted"
	AuditPermissionRevoked  AuditAction = "role.permission_revoked"
	AuditUserRegistered     AuditAction = "user.registered"
	AuditUserCreated        AuditAction = "user.created"
	AuditUserStatusChanged  AuditAction = "user.status_changed"
	AuditUserRoleChanged    AuditAction = "user.role_changed"
	AuditUserDeleted        AuditAction = "user.deleted"
	AuditPasswordChanged    AuditAction = "user.password_changed"
)

// AuditEntry is one row of the audit trail.
type AuditEntry struct {
	ID        string            `json:"id"`
	Action    AuditAction       `json:"action"`
	ActorID   string            `json:"actor_id,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Target    string            `json:"target"`
	Details   map[string]string `json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// AuditFilter shapes audit-log listings. Results are newest first.
type AuditFilter struct {
	Action  AuditAction
	ActorID string
	Page    PageRequest
}
