package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"schemashift/internal/generate"
)

var (
	ErrMigrationNotFound  = errors.New("migration not found")
	ErrMigrationExists    = errors.New("migration name already exists")
	ErrMigrationNameEmpty = errors.New("migration name required")
)

// EnsureSchema creates the catalog table this service stores generated
// migrations in. This is the service's own bookkeeping database, not a
// migration target.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS migrations (
  id UUID PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  version TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  dialect TEXT NOT NULL,
  steps JSONB NOT NULL,
  breaking_changes JSONB,
  status TEXT NOT NULL,
  checksum TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  applied_at TIMESTAMPTZ,
  applied_by TEXT
)
`)
	return err
}

// CreateMigration persists a freshly generated migration.
func CreateMigration(ctx context.Context, pool *pgxpool.Pool, m *generate.Migration) error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrMigrationNameEmpty
	}
	steps, err := json.Marshal(m.Steps)
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	var breakingJSON []byte
	if len(m.BreakingChanges) > 0 {
		if breakingJSON, err = json.Marshal(m.BreakingChanges); err != nil {
			return fmt.Errorf("encode breaking changes: %w", err)
		}
	}

	_, err = pool.Exec(ctx, `
INSERT INTO migrations (id, name, version, description, dialect, steps, breaking_changes, status, checksum, created_at, applied_at, applied_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`, m.ID, m.Name, m.Version, m.Description, string(m.Dialect), steps, breakingJSON, string(m.Status), m.Checksum, m.CreatedAt, m.AppliedAt, nullIfEmpty(m.AppliedBy))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrMigrationExists, m.Name)
		}
		return err
	}
	return nil
}

// GetMigration loads a migration by id.
func GetMigration(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) (*generate.Migration, error) {
	row := pool.QueryRow(ctx, `
SELECT id, name, version, description, dialect, steps, breaking_changes, status, checksum, created_at, applied_at, applied_by
FROM migrations
WHERE id = $1
`, id)
	return scanMigration(row)
}

// GetMigrationByName loads a migration by its unique name.
func GetMigrationByName(ctx context.Context, pool *pgxpool.Pool, name string) (*generate.Migration, error) {
	row := pool.QueryRow(ctx, `
SELECT id, name, version, description, dialect, steps, breaking_changes, status, checksum, created_at, applied_at, applied_by
FROM migrations
WHERE name = $1
`, name)
	return scanMigration(row)
}

// ListMigrations returns migrations newest first, optionally filtered by
// status.
func ListMigrations(ctx context.Context, pool *pgxpool.Pool, status string) ([]*generate.Migration, error) {
	var rows pgx.Rows
	var err error
	if status != "" {
		rows, err = pool.Query(ctx, `
SELECT id, name, version, description, dialect, steps, breaking_changes, status, checksum, created_at, applied_at, applied_by
FROM migrations
WHERE status = $1
ORDER BY created_at DESC
`, status)
	} else {
		rows, err = pool.Query(ctx, `
SELECT id, name, version, description, dialect, steps, breaking_changes, status, checksum, created_at, applied_at, applied_by
FROM migrations
ORDER BY created_at DESC
`)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*generate.Migration
	for rows.Next() {
		m, err := scanMigration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// UpdateStatus records an executor-owned status transition.
func UpdateStatus(ctx context.Context, pool *pgxpool.Pool, m *generate.Migration) error {
	tag, err := pool.Exec(ctx, `
UPDATE migrations
SET status = $1, applied_at = $2, applied_by = $3
WHERE id = $4
`, string(m.Status), m.AppliedAt, nullIfEmpty(m.AppliedBy), m.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMigrationNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMigration(row rowScanner) (*generate.Migration, error) {
	var m generate.Migration
	var dialect, status string
	var steps []byte
	var breakingJSON []byte
	var appliedAt *time.Time
	var appliedBy *string
	if err := row.Scan(&m.ID, &m.Name, &m.Version, &m.Description, &dialect, &steps, &breakingJSON, &status, &m.Checksum, &m.CreatedAt, &appliedAt, &appliedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMigrationNotFound
		}
		return nil, err
	}
	m.Dialect = generate.Dialect(dialect)
	m.Status = generate.Status(status)
	m.AppliedAt = appliedAt
	if appliedBy != nil {
		m.AppliedBy = *appliedBy
	}
	if err := json.Unmarshal(steps, &m.Steps); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	if len(breakingJSON) > 0 {
		if err := json.Unmarshal(breakingJSON, &m.BreakingChanges); err != nil {
			return nil, fmt.Errorf("decode breaking changes: %w", err)
		}
	}
	return &m, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
