package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fabricwh/rbac-api/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

//go:embed schema.sql
var schema string

// Config captures the settings required to open the relational store.
type Config struct {
	DSN          string
	MaxOpenConns int
	Timeout      time.Duration
}

// Open returns a pooled handle backed by the pgx driver and verifies it with a ping.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}

// Migrate creates the tables and indexes when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// withTx runs fn inside a READ COMMITTED transaction. Row locks taken by fn
// serialize the role lifecycle operations.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var constraintFields = map[string]string{
	"users_username_key":    "username",
	"users_email_key":       "email",
	"roles_name_key":        "name",
	"permissions_key_key":   "key",
	"role_permissions_pkey": "permission",
}

// conflictOr converts unique violations into a domain Conflict naming the
// field and wraps everything else with op.
func conflictOr(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		field, ok := constraintFields[pgErr.ConstraintName]
		if !ok {
			field = "unknown"
		}
		return domain.NewConflict(field, field+" already exists")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// placeholders renders "$from, $from+1, ..." for n arguments.
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "$" + strconv.Itoa(from+i)
	}
	return strings.Join(parts, ", ")
}

// orderBy renders an ORDER BY clause. Fields outside allowed are skipped and
// tie is always appended so pages are stable.
func orderBy(fields []domain.SortField, allowed map[string]string, tie string) string {
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		col, ok := allowed[f.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, tie+" ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

// likePattern escapes LIKE metacharacters and wraps s for a substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// args accumulates positional parameters while a query is built.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}
