package dbconn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"schemashift/internal/generate"
)

// ErrAlreadyApplied means the target's ledger already holds this migration
// with the same checksum.
var ErrAlreadyApplied = errors.New("migration already applied")

// AppliedMigration is one row of the target-side ledger.
type AppliedMigration struct {
	Name         string
	Version      string
	Checksum     string
	Dialect      string
	AppliedAt    time.Time
	AppliedBy    string
	RolledBackAt *time.Time
}

const ledgerTable = "schemashift_migrations"

// EnsureLedger creates the applied-migrations bookkeeping table on the
// target if it does not exist.
func (d *DB) EnsureLedger(ctx context.Context) error {
	var ddl string
	switch d.driver {
	case DriverPostgres:
		ddl = `
CREATE TABLE IF NOT EXISTS ` + ledgerTable + ` (
  migration_name TEXT PRIMARY KEY,
  version TEXT NOT NULL,
  checksum TEXT NOT NULL,
  dialect TEXT NOT NULL,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  applied_by TEXT,
  rolled_back_at TIMESTAMPTZ
)`
	case DriverMySQL:
		ddl = `
CREATE TABLE IF NOT EXISTS ` + ledgerTable + ` (
  migration_name VARCHAR(255) PRIMARY KEY,
  version VARCHAR(64) NOT NULL,
  checksum VARCHAR(64) NOT NULL,
  dialect VARCHAR(32) NOT NULL,
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  applied_by VARCHAR(255),
  rolled_back_at DATETIME
)`
	case DriverSQLServer:
		ddl = `
IF OBJECT_ID('` + ledgerTable + `', 'U') IS NULL
CREATE TABLE ` + ledgerTable + ` (
  migration_name NVARCHAR(255) PRIMARY KEY,
  version NVARCHAR(64) NOT NULL,
  checksum NVARCHAR(64) NOT NULL,
  dialect NVARCHAR(32) NOT NULL,
  applied_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME(),
  applied_by NVARCHAR(255),
  rolled_back_at DATETIME2
)`
	case DriverSQLite:
		ddl = `
CREATE TABLE IF NOT EXISTS ` + ledgerTable + ` (
  migration_name TEXT PRIMARY KEY,
  version TEXT NOT NULL,
  checksum TEXT NOT NULL,
  dialect TEXT NOT NULL,
  applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  applied_by TEXT,
  rolled_back_at TIMESTAMP
)`
	default:
		return fmt.Errorf("unsupported driver %q", d.driver)
	}
	_, err := d.db.ExecContext(ctx, ddl)
	return err
}

// CheckNotApplied returns ErrAlreadyApplied when the ledger holds the
// migration with an identical checksum, and a distinct error when the
// checksums differ.
func (d *DB) CheckNotApplied(ctx context.Context, m *generate.Migration) error {
	var checksum string
	var rolledBackAt *time.Time
	query := d.rebind(`SELECT checksum, rolled_back_at FROM ` + ledgerTable + ` WHERE migration_name = ?`)
	err := d.db.QueryRowContext(ctx, query, m.Name).Scan(&checksum, &rolledBackAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if rolledBackAt != nil {
		return nil
	}
	if checksum == m.Checksum {
		return fmt.Errorf("%w: %s", ErrAlreadyApplied, m.Name)
	}
	return fmt.Errorf("migration %s already applied with different checksum %s", m.Name, checksum)
}

// RecordApplied upserts the ledger row after a successful run.
func (d *DB) RecordApplied(ctx context.Context, m *generate.Migration) error {
	var query string
	switch d.driver {
	case DriverPostgres:
		query = `
INSERT INTO ` + ledgerTable + ` (migration_name, version, checksum, dialect, applied_at, applied_by, rolled_back_at)
VALUES ($1, $2, $3, $4, $5, $6, NULL)
ON CONFLICT (migration_name) DO UPDATE
SET version = EXCLUDED.version, checksum = EXCLUDED.checksum, dialect = EXCLUDED.dialect,
    applied_at = EXCLUDED.applied_at, applied_by = EXCLUDED.applied_by, rolled_back_at = NULL`
	case DriverMySQL:
		query = `
INSERT INTO ` + ledgerTable + ` (migration_name, version, checksum, dialect, applied_at, applied_by, rolled_back_at)
VALUES (?, ?, ?, ?, ?, ?, NULL)
ON DUPLICATE KEY UPDATE version = VALUES(version), checksum = VALUES(checksum),
    dialect = VALUES(dialect), applied_at = VALUES(applied_at), applied_by = VALUES(applied_by), rolled_back_at = NULL`
	case DriverSQLServer:
		query = `
MERGE ` + ledgerTable + ` AS target
USING (SELECT @p1 AS migration_name) AS src ON target.migration_name = src.migration_name
WHEN MATCHED THEN UPDATE SET version = @p2, checksum = @p3, dialect = @p4, applied_at = @p5, applied_by = @p6, rolled_back_at = NULL
WHEN NOT MATCHED THEN INSERT (migration_name, version, checksum, dialect, applied_at, applied_by, rolled_back_at)
VALUES (@p1, @p2, @p3, @p4, @p5, @p6, NULL);`
	case DriverSQLite:
		query = `
INSERT INTO ` + ledgerTable + ` (migration_name, version, checksum, dialect, applied_at, applied_by, rolled_back_at)
VALUES (?, ?, ?, ?, ?, ?, NULL)
ON CONFLICT (migration_name) DO UPDATE
SET version = excluded.version, checksum = excluded.checksum, dialect = excluded.dialect,
    applied_at = excluded.applied_at, applied_by = excluded.applied_by, rolled_back_at = NULL`
	default:
		return fmt.Errorf("unsupported driver %q", d.driver)
	}

	appliedAt := time.Now().UTC()
	if m.AppliedAt != nil {
		appliedAt = *m.AppliedAt
	}
	_, err := d.db.ExecContext(ctx, query, m.Name, m.Version, m.Checksum, string(m.Dialect), appliedAt, m.AppliedBy)
	return err
}

// RecordRolledBack stamps the ledger row after a rollback.
func (d *DB) RecordRolledBack(ctx context.Context, m *generate.Migration) error {
	query := d.rebind(`UPDATE ` + ledgerTable + ` SET rolled_back_at = ? WHERE migration_name = ?`)
	_, err := d.db.ExecContext(ctx, query, time.Now().UTC(), m.Name)
	return err
}

// ListApplied returns the ledger newest first.
func (d *DB) ListApplied(ctx context.Context, limit int) ([]AppliedMigration, error) {
	query := `SELECT migration_name, version, checksum, dialect, applied_at, applied_by, rolled_back_at
FROM ` + ledgerTable + ` ORDER BY applied_at DESC`
	if d.driver == DriverSQLServer {
		query = fmt.Sprintf(`SELECT TOP %d migration_name, version, checksum, dialect, applied_at, applied_by, rolled_back_at
FROM %s ORDER BY applied_at DESC`, limit, ledgerTable)
	} else {
		query = fmt.Sprintf("%s LIMIT %d", query, limit)
	}

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AppliedMigration
	for rows.Next() {
		var m AppliedMigration
		var appliedBy sql.NullString
		if err := rows.Scan(&m.Name, &m.Version, &m.Checksum, &m.Dialect, &m.AppliedAt, &appliedBy, &m.RolledBackAt); err != nil {
			return nil, err
		}
		m.AppliedBy = appliedBy.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// rebind rewrites ? placeholders into the driver's positional style.
func (d *DB) rebind(query string) string {
	switch d.driver {
	case DriverPostgres:
		return numberPlaceholders(query, "$")
	case DriverSQLServer:
		return numberPlaceholders(query, "@p")
	default:
		return query
	}
}

func numberPlaceholders(query, prefix string) string {
	var out []byte
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, prefix...)
			out = append(out, []byte(fmt.Sprintf("%d", n))...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}
