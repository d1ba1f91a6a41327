package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

// PermissionRepository implements ports.PermissionRepository using PostgreSQL.
type PermissionRepository struct {
	db *sql.DB
}

func NewPermissionRepository(db *sql.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Upsert inserts new keys and refreshes the description of existing ones.
func (r *PermissionRepository) Upsert(ctx context.Context, perms []domain.Permission) error {
	if len(perms) == 0 {
		return nil
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, p := range perms {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO permissions (key, description) VALUES ($1, $2)
				ON CONFLICT (key) DO UPDATE SET description = EXCLUDED.description, updated_at = now()`,
				string(p.Key), p.Description)
			if err != nil {
				return fmt.Errorf("upsert permission %s: %w", p.Key, err)
			}
		}
		return nil
	})
}

func (r *PermissionRepository) List(ctx context.Context) ([]domain.Permission, error) {
	return r.query(ctx, `SELECT key, description FROM permissions ORDER BY key`)
}

func (r *PermissionRepository) FindByKeys(ctx context.Context, keys []domain.PermissionKey) ([]domain.Permission, error) {
	if len(keys) == 0 {
		return []domain.Permission{}, nil
	}
	a := make([]any, len(keys))
	for i, k := range keys {
		a[i] = string(k)
	}
	return r.query(ctx, `SELECT key, description FROM permissions WHERE key IN (`+placeholders(1, len(a))+`) ORDER BY key`, a...)
}

func (r *PermissionRepository) query(ctx context.Context, query string, a ...any) ([]domain.Permission, error) {
	rows, err := r.db.QueryContext(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	out := []domain.Permission{}
	for rows.Next() {
		var (
			p   domain.Permission
			key string
		)
		if err := rows.Scan(&key, &p.Description); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		p.Key = domain.PermissionKey(key)
		out = append(out, p)
	}
	return out, rows.Err()
}
