package ports

import (
	"context"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// AuditRepository persists the audit trail.
type AuditRepository interface {
	Insert(ctx context.Context, entry *domain.AuditEntry) error
	// List returns entries newest first and the total count.
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, int64, error)
}

// AuditRecorder accepts entries without blocking the caller.
type AuditRecorder interface {
	Record(entry domain.AuditEntry)
}
