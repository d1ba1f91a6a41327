package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

const userColumns = `id, username, email, password_hash, role, status, fullname, phone, gender, address, dob, created_at, updated_at`

var userSortColumns = map[string]string{
	"username":   "username",
	"email":      "email",
	"fullname":   "fullname",
	"status":     "status",
	"role":       "role",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// UserRepository implements ports.UserRepository using PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u      domain.User
		status string
		gender string
		dob    sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &status,
		&u.Fullname, &u.Phone, &gender, &u.Address, &dob, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Status = domain.UserStatus(status)
	u.Gender = domain.Gender(gender)
	if dob.Valid {
		t := dob.Time.UTC()
		u.DOB = &t
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Create inserts the user while holding a share lock on its role row, so a
// concurrent role deletion either waits or makes the insert fail.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := shareRole(ctx, tx, u.Role); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			u.ID, u.Username, u.Email, u.PasswordHash, u.Role, string(u.Status),
			u.Fullname, u.Phone, string(u.Gender), u.Address, nullTime(u.DOB), u.CreatedAt.UTC(), u.UpdatedAt.UTC())
		if err != nil {
			return conflictOr(err, "insert user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND status <> 'DELETED'`, id)
}

// FindByLogin matches either the username or the email.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE (username = $1 OR email = $1) AND status <> 'DELETED'`, login)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// userWhere renders the listing predicate. DELETED users are always excluded.
func userWhere(f domain.UserFilter) (string, args) {
	var a args
	conds := []string{"status <> 'DELETED'"}

	if f.Search != "" {
		p := a.add(likePattern(f.Search))
		conds = append(conds, fmt.Sprintf("(username ILIKE %[1]s OR email ILIKE %[1]s OR fullname ILIKE %[1]s OR phone ILIKE %[1]s)", p))
	}
	if f.Status != "" {
		conds = append(conds, "status = "+a.add(string(f.Status)))
	}
	if f.Role != "" {
		conds = append(conds, "role = "+a.add(f.Role))
	}
	if f.Gender != "" {
		conds = append(conds, "gender = "+a.add(string(f.Gender)))
	}
	if f.CreatedFrom != nil {
		conds = append(conds, "created_at >= "+a.add(f.CreatedFrom.UTC()))
	}
	if f.CreatedTo != nil {
		conds = append(conds, "created_at <= "+a.add(f.CreatedTo.UTC()))
	}
	return " WHERE " + strings.Join(conds, " AND "), a
}

// List runs the page query and the count concurrently.
func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter) ([]*domain.User, int64, error) {
	where, a := userWhere(filter)

	var (
		users []*domain.User
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		page := append(args{}, a...)
		query := `SELECT ` + userColumns + ` FROM users` + where +
			orderBy(filter.Sort, userSortColumns, "id") +
			` LIMIT ` + page.add(filter.Page.Limit) + ` OFFSET ` + page.add(filter.Page.Offset())

		rows, err := r.db.QueryContext(gctx, query, page...)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return fmt.Errorf("scan user: %w", err)
			}
			users = append(users, u)
		}
		return rows.Err()
	})

	g.Go(func() error {
		if err := r.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM users`+where, a...).Scan(&total); err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return users, total, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	var (
		a    args
		sets []string
	)
	if upd.Email != nil {
		sets = append(sets, "email = "+a.add(*upd.Email))
	}
	if upd.Fullname != nil {
		sets = append(sets, "fullname = "+a.add(*upd.Fullname))
	}
	if upd.Phone != nil {
		sets = append(sets, "phone = "+a.add(*upd.Phone))
	}
	if upd.Gender != nil {
		sets = append(sets, "gender = "+a.add(string(*upd.Gender)))
	}
	if upd.Address != nil {
		sets = append(sets, "address = "+a.add(*upd.Address))
	}
	if upd.DOB != nil {
		sets = append(sets, "dob = "+a.add(upd.DOB.UTC()))
	}
	return r.update(ctx, r.db, id, sets, a)
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) (*domain.User, error) {
	var a args
	return r.update(ctx, r.db, id, []string{"status = " + a.add(string(status))}, a)
}

// UpdateRole reassigns the user while holding a share lock on the target role
// row, which conflicts with DeleteUnused's exclusive lock.
func (r *UserRepository) UpdateRole(ctx context.Context, id, role string) (*domain.User, error) {
	var updated *domain.User
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := shareRole(ctx, tx, role); err != nil {
			return err
		}
		var a args
		u, err := r.update(ctx, tx, id, []string{"role = " + a.add(role)}, a)
		if err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	var a args
	_, err := r.update(ctx, r.db, id, []string{"password_hash = " + a.add(hash)}, a)
	return err
}

// SoftDelete marks the user DELETED. Deleting an already deleted user is NotFound.
func (r *UserRepository) SoftDelete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = 'DELETED', updated_at = now() WHERE id = $1 AND status <> 'DELETED'`, id)
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *UserRepository) update(ctx context.Context, q queryRower, id string, sets []string, a args) (*domain.User, error) {
	sets = append(sets, "updated_at = now()")
	query := `UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE id = ` + a.add(id) + ` AND status <> 'DELETED' RETURNING ` + userColumns

	u, err := scanUser(q.QueryRowContext(ctx, query, a...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, conflictOr(err, "update user")
	}
	return u, nil
}

// shareRole takes a FOR SHARE lock on the role row or reports it missing.
func shareRole(ctx context.Context, tx *sql.Tx, name string) error {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM roles WHERE name = $1 FOR SHARE`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrRoleNotFound
	}
	if err != nil {
		return fmt.Errorf("lock role: %w", err)
	}
	return nil
}
