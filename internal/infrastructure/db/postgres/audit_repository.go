package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// AuditRepository implements ports.AuditRepository using PostgreSQL.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEntry) error {
	var details []byte
	if len(e.Details) > 0 {
		var err error
		if details, err = json.Marshal(e.Details); err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, action, actor_id, actor, target, details, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, string(e.Action), e.ActorID, e.Actor, e.Target, details, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// List returns entries newest first together with the total count.
func (r *AuditRepository) List(ctx context.Context, f domain.AuditFilter) ([]*domain.AuditEntry, int64, error) {
	var (
		a     args
		conds []string
	)
	if f.Action != "" {
		conds = append(conds, "action = "+a.add(string(f.Action)))
	}
	if f.ActorID != "" {
		conds = append(conds, "actor_id = "+a.add(f.ActorID))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var (
		entries []*domain.AuditEntry
		total   int64
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		page := append(args{}, a...)
		query := `SELECT id, action, actor_id, actor, target, details, created_at FROM audit_logs` + where +
			` ORDER BY created_at DESC, id DESC LIMIT ` + page.add(f.Page.Limit) + ` OFFSET ` + page.add(f.Page.Offset())

		rows, err := r.db.QueryContext(gctx, query, page...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				e       domain.AuditEntry
				action  string
				details []byte
			)
			if err := rows.Scan(&e.ID, &action, &e.ActorID, &e.Actor, &e.Target, &details, &e.CreatedAt); err != nil {
				return err
			}
			e.Action = domain.AuditAction(action)
			e.CreatedAt = e.CreatedAt.UTC()
			if len(details) > 0 {
				if err := json.Unmarshal(details, &e.Details); err != nil {
					return fmt.Errorf("decode audit details: %w", err)
				}
			}
			entries = append(entries, &e)
		}
		return rows.Err()
	})

	g.Go(func() error {
		return r.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM audit_logs`+where, a...).Scan(&total)
	})

	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	if entries == nil {
		entries = []*domain.AuditEntry{}
	}
	return entries, total, nil
}
