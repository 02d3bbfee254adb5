package execute

import "context"

// Conn is the minimal connection surface the executor needs. All dialect
// decisions are made upstream by the generator; the executor only runs the
// statements it is handed.
type Conn interface {
	Exec(ctx context.Context, sql string) error
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a single transaction on a Conn.
type Tx interface {
	Exec(ctx context.Context, sql string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
