package dbconn

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// AcquireLock takes a session-scoped exclusive lock identifying a migration
// target, so two runs against the same target serialize. Must be paired with
// ReleaseLock on the same DB. SQLite targets are single-writer already and
// the lock is a no-op there.
func (d *DB) AcquireLock(ctx context.Context, target uuid.UUID) error {
	switch d.driver {
	case DriverPostgres:
		_, err := d.db.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, advisoryKey(target))
		if err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}
		return nil
	case DriverMySQL:
		var got int
		if err := d.db.QueryRowContext(ctx, `SELECT GET_LOCK(?, 10)`, lockName(target)).Scan(&got); err != nil {
			return fmt.Errorf("get lock: %w", err)
		}
		if got != 1 {
			return errors.New("could not acquire lock")
		}
		return nil
	case DriverSQLServer:
		var status int
		if err := d.db.QueryRowContext(ctx, sqlserverAcquireLock, lockName(target)).Scan(&status); err != nil {
			return fmt.Errorf("applock: %w", err)
		}
		return appLockErr(status)
	case DriverSQLite:
		return nil
	default:
		return fmt.Errorf("unsupported driver %q", d.driver)
	}
}

// ReleaseLock releases the session lock taken by AcquireLock.
func (d *DB) ReleaseLock(ctx context.Context, target uuid.UUID) error {
	switch d.driver {
	case DriverPostgres:
		_, err := d.db.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, advisoryKey(target))
		return err
	case DriverMySQL:
		_, err := d.db.ExecContext(ctx, `SELECT RELEASE_LOCK(?)`, lockName(target))
		return err
	case DriverSQLServer:
		_, err := d.db.ExecContext(ctx,
			`EXEC sp_releaseapplock @Resource = @p1, @LockOwner = 'Session'`, lockName(target))
		return err
	case DriverSQLite:
		return nil
	default:
		return fmt.Errorf("unsupported driver %q", d.driver)
	}
}

// sqlserverAcquireLock surfaces sp_getapplock's return status as a result
// set. The status must be checked: lock timeouts come back as a negative
// value, not as an error.
const sqlserverAcquireLock = `DECLARE @r int;
EXEC @r = sp_getapplock @Resource = @p1, @LockMode = 'Exclusive', @LockOwner = 'Session', @LockTimeout = 10000;
SELECT @r`

// appLockErr maps sp_getapplock's return status: 0 granted, 1 granted after
// waiting, negative values mean timeout, cancellation or failure.
func appLockErr(status int) error {
	if status >= 0 {
		return nil
	}
	return fmt.Errorf("could not acquire lock: sp_getapplock returned %d", status)
}

func lockName(target uuid.UUID) string {
	return "schemashift:" + target.String()
}

// advisoryKey folds the first 8 bytes of the uuid into the int64 key space
// postgres advisory locks use.
func advisoryKey(id uuid.UUID) int64 {
	return int64(binary.BigEndian.Uint64(id[:8]))
}
