package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

var roleSortColumns = map[string]string{
	"name":       "r.name",
	"created_at": "r.created_at",
	"updated_at": "r.updated_at",
}

var errNotAssigned = domain.NewNotFound("permission not assigned to role")

// RoleRepository implements ports.RoleRepository using PostgreSQL. Assignments
// reference the role by id, so a rename leaves them in place.
type RoleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// PermissionsOf resolves the role's keys with one join.
func (r *RoleRepository) PermissionsOf(ctx context.Context, role string) (domain.PermissionSet, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.key
		FROM role_permissions rp
		JOIN roles r ON r.id = rp.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE r.name = $1`, role)
	if err != nil {
		return nil, fmt.Errorf("find role permissions: %w", err)
	}
	defer rows.Close()

	set := domain.NewPermissionSet()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan role permission: %w", err)
		}
		set[domain.PermissionKey(key)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find role permissions: %w", err)
	}
	return set, nil
}

// Create inserts the role and its initial grants in one transaction.
func (r *RoleRepository) Create(ctx context.Context, name string, keys []domain.PermissionKey) (*domain.Role, error) {
	role := &domain.Role{Name: name, Permissions: []domain.Permission{}}
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO roles (name) VALUES ($1) RETURNING id, created_at, updated_at`, name,
		).Scan(&id, &role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			return conflictOr(err, "insert role")
		}
		return grant(ctx, tx, id, keys)
	})
	if err != nil {
		return nil, err
	}
	role.CreatedAt = role.CreatedAt.UTC()
	role.UpdatedAt = role.UpdatedAt.UTC()
	return role, nil
}

type roleRow struct {
	id   int64
	role *domain.Role
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	var row roleRow
	row.role = &domain.Role{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM roles WHERE name = $1`, name,
	).Scan(&row.id, &row.role.Name, &row.role.CreatedAt, &row.role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}

	if err := r.attachPermissions(ctx, []roleRow{row}); err != nil {
		return nil, err
	}
	return row.role, nil
}

func (r *RoleRepository) List(ctx context.Context, f domain.RoleFilter) ([]*domain.Role, int64, error) {
	var a args
	where := ""
	if f.Search != "" {
		where = " WHERE r.name ILIKE " + a.add(likePattern(f.Search))
	}

	var (
		rows  []roleRow
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		page := append(args{}, a...)
		query := `SELECT r.id, r.name, r.created_at, r.updated_at FROM roles r` + where +
			orderBy(f.Sort, roleSortColumns, "r.id") +
			` LIMIT ` + page.add(f.Page.Limit) + ` OFFSET ` + page.add(f.Page.Offset())

		res, err := r.db.QueryContext(gctx, query, page...)
		if err != nil {
			return err
		}
		defer res.Close()
		for res.Next() {
			row := roleRow{role: &domain.Role{}}
			if err := res.Scan(&row.id, &row.role.Name, &row.role.CreatedAt, &row.role.UpdatedAt); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return res.Err()
	})

	g.Go(func() error {
		return r.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM roles r`+where, a...).Scan(&total)
	})

	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}
	if err := r.attachPermissions(ctx, rows); err != nil {
		return nil, 0, err
	}

	out := make([]*domain.Role, len(rows))
	for i := range rows {
		out[i] = rows[i].role
	}
	return out, total, nil
}

// attachPermissions loads the assignments of every row in one query, sorted by key.
func (r *RoleRepository) attachPermissions(ctx context.Context, rows []roleRow) error {
	if len(rows) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Role, len(rows))
	ids := make([]any, len(rows))
	for i, row := range rows {
		row.role.CreatedAt = row.role.CreatedAt.UTC()
		row.role.UpdatedAt = row.role.UpdatedAt.UTC()
		row.role.Permissions = []domain.Permission{}
		byID[row.id] = row.role
		ids[i] = row.id
	}

	res, err := r.db.QueryContext(ctx, `
		SELECT rp.role_id, p.key, p.description
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id IN (`+placeholders(1, len(ids))+`)
		ORDER BY p.key`, ids...)
	if err != nil {
		return fmt.Errorf("find role permissions: %w", err)
	}
	defer res.Close()

	for res.Next() {
		var (
			roleID int64
			p      domain.Permission
			key    string
		)
		if err := res.Scan(&roleID, &key, &p.Description); err != nil {
			return fmt.Errorf("scan role permission: %w", err)
		}
		p.Key = domain.PermissionKey(key)
		if role, ok := byID[roleID]; ok {
			role.Permissions = append(role.Permissions, p)
		}
	}
	return res.Err()
}

// Rename updates the role row and moves its users in one transaction.
func (r *RoleRepository) Rename(ctx context.Context, name, newName string) (*domain.Role, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE roles SET name = $2, updated_at = now() WHERE name = $1`, name, newName)
		if err != nil {
			return conflictOr(err, "rename role")
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("rename role: %w", err)
		} else if n == 0 {
			return domain.ErrRoleNotFound
		}

		if _, err := tx.ExecContext(ctx, `UPDATE users SET role = $2, updated_at = now() WHERE role = $1`, name, newName); err != nil {
			return fmt.Errorf("move role users: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.FindByName(ctx, newName)
}

// DeleteUnused locks the role row FOR UPDATE, so user creation and
// reassignment to this role wait for the decision.
func (r *RoleRepository) DeleteUnused(ctx context.Context, name string) ([]string, error) {
	var blockers []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		id, err := lockRole(ctx, tx, name)
		if err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT username FROM users WHERE role = $1 AND status <> 'DELETED' ORDER BY username`, name)
		if err != nil {
			return fmt.Errorf("find role holders: %w", err)
		}
		for rows.Next() {
			var username string
			if err := rows.Scan(&username); err != nil {
				rows.Close()
				return fmt.Errorf("scan role holder: %w", err)
			}
			blockers = append(blockers, username)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("find role holders: %w", err)
		}
		if len(blockers) > 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return fmt.Errorf("delete role permissions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blockers, nil
}

func (r *RoleRepository) SetPermissions(ctx context.Context, name string, keys []domain.PermissionKey) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		id, err := lockRole(ctx, tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return fmt.Errorf("clear role permissions: %w", err)
		}
		return grant(ctx, tx, id, keys)
	})
}

func (r *RoleRepository) GrantPermissions(ctx context.Context, name string, keys []domain.PermissionKey) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		id, err := lockRole(ctx, tx, name)
		if err != nil {
			return err
		}
		return grant(ctx, tx, id, keys)
	})
}

func (r *RoleRepository) RevokePermission(ctx context.Context, name string, key domain.PermissionKey) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		id, err := lockRole(ctx, tx, name)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM role_permissions rp
			USING permissions p
			WHERE rp.role_id = $1 AND rp.permission_id = p.id AND p.key = $2`, id, string(key))
		if err != nil {
			return fmt.Errorf("revoke role permission: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("revoke role permission: %w", err)
		}
		if n == 0 {
			return errNotAssigned
		}
		return nil
	})
}

func grant(ctx context.Context, tx *sql.Tx, roleID int64, keys []domain.PermissionKey) error {
	for _, k := range keys {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT $1, id FROM permissions WHERE key = $2
			ON CONFLICT DO NOTHING`, roleID, string(k))
		if err != nil {
			return conflictOr(err, "grant role permission")
		}
	}
	return nil
}

// lockRole takes a FOR UPDATE lock on the role row and returns its id.
func lockRole(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM roles WHERE name = $1 FOR UPDATE`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrRoleNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock role: %w", err)
	}
	return id, nil
}
