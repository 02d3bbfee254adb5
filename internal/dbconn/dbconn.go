package dbconn

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"schemashift/internal/execute"
)

// Driver names accepted by Open.
const (
	DriverPostgres  = "postgres"
	DriverMySQL     = "mysql"
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite"
)

// DB wraps a database/sql pool with the driver it was opened for and adapts
// it to the executor's connection interface.
type DB struct {
	db     *sql.DB
	driver string
}

// Open connects to a target database. The driver decides both the
// underlying sql driver and the lock/ledger SQL used against the target.
func Open(driver, dsn string) (*DB, error) {
	switch strings.ToLower(driver) {
	case DriverPostgres:
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		return configure(db, DriverPostgres), nil
	case DriverMySQL:
		// validate the DSN early for actionable errors
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, err
		}
		return configure(db, DriverMySQL), nil
	case DriverSQLServer:
		db, err := sql.Open("sqlserver", dsn)
		if err != nil {
			return nil, err
		}
		return configure(db, DriverSQLServer), nil
	case DriverSQLite:
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		return configure(db, DriverSQLite), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

func configure(db *sql.DB, driver string) *DB {
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetMaxOpenConns(5)
	return &DB{db: db, driver: driver}
}

func (d *DB) Driver() string { return d.driver }

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// Exec runs a statement in autocommit mode.
func (d *DB) Exec(ctx context.Context, query string) error {
	_, err := d.db.ExecContext(ctx, query)
	return err
}

// Begin starts a transaction satisfying the executor's Tx interface.
func (d *DB) Begin(ctx context.Context) (execute.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Exec(ctx context.Context, query string) error {
	_, err := t.tx.ExecContext(ctx, query)
	return err
}

func (t *sqlTx) Commit(context.Context) error   { return t.tx.Commit() }
func (t *sqlTx) Rollback(context.Context) error { return t.tx.Rollback() }
