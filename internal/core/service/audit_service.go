package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fabricwh/rbac-api/internal/core/domain"
	"github.com/fabricwh/rbac-api/internal/core/ports"
)

type AuditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns the audit writer used by the dispatcher workers and
// the read side behind GET /v1/audit-logs.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) *AuditService {
	return &AuditService{repo: repo, log: log}
}

// Write stamps and persists a single entry.
func (s *AuditService) Write(ctx context.Context, entry domain.AuditEntry) error {
	// 1. Stamp identity and time when the producer did not.
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	// 2. Persist.
	if err := s.repo.Insert(ctx, &entry); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}

	s.log.Debug().
		Str("action", string(entry.Action)).
		Str("target", entry.Target).
		Str("actor", entry.Actor).
		Msg("audit entry written")

	return nil
}

func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) (*domain.Page[*domain.AuditEntry], error) {
	filter.Page = domain.NewPageRequest(filter.Page.Page, filter.Page.Limit)

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &domain.Page[*domain.AuditEntry]{Items: items, Pagination: domain.NewPagination(filter.Page, total)}, nil
}

// recordAudit hands an entry to rec, attributing it to the identity on ctx.
// A nil recorder disables auditing.
func recordAudit(ctx context.Context, rec ports.AuditRecorder, action domain.AuditAction, target string, details map[string]string) {
	if rec == nil {
		return
	}
	entry := domain.AuditEntry{
		Action:    action,
		Target:    target,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if id, ok := domain.IdentityFromContext(ctx); ok {
		entry.ActorID = id.ID
		entry.Actor = id.Username
	}
	rec.Record(entry)
}
