package execute

import (
	"context"
	"fmt"
	"time"

	"schemashift/internal/generate"
)

// Logger is the narrow logging surface the executor needs.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options tunes a single execute or rollback run.
type Options struct {
	// DryRun reports the plan and its warnings without touching the target.
	DryRun bool
	// StepTimeout bounds each statement; zero means no per-step timeout.
	StepTimeout time.Duration
	// Force skips checksum verification.
	Force bool
	// AppliedBy is recorded on the migration when it is applied.
	AppliedBy string
}

// Executor applies migrations over a Conn, one step at a time, strictly in
// order. The caller must serialize runs against the same target; at most one
// run per target connection may be active.
type Executor struct {
	logger Logger
}

func New(logger Logger) *Executor {
	return &Executor{logger: logger}
}

// Execute runs the migration's steps in ascending order. Each transactional
// step gets its own transaction. On failure at step N the steps executed so
// far are rolled back in reverse order; if one of them has no rollback SQL
// the run halts irrecoverably and says so.
func (e *Executor) Execute(ctx context.Context, m *generate.Migration, conn Conn, opts Options) (*Result, error) {
	if m.Status != generate.StatusPending {
		return nil, fmt.Errorf("%w: cannot execute migration in status %q", ErrWrongStatus, m.Status)
	}
	if !opts.Force {
		if got := generate.Checksum(m.Steps); got != m.Checksum {
			return nil, fmt.Errorf("%w: recorded %s, recomputed %s", ErrChecksumMismatch, m.Checksum, got)
		}
	}

	res := &Result{
		MigrationID: m.ID,
		Status:      m.Status,
		DryRun:      opts.DryRun,
		TotalSteps:  len(m.Steps),
		StartedAt:   time.Now().UTC(),
	}
	for _, s := range m.Steps {
		if !s.Reversible() {
			res.Warnings = append(res.Warnings, fmt.Sprintf("step %d (%s) is not reversible", s.Order, s.Description))
		}
	}

	if opts.DryRun {
		e.logger.Info("dry run", "migration", m.Name, "steps", len(m.Steps), "warnings", len(res.Warnings))
		res.FinishedAt = time.Now().UTC()
		return res, nil
	}

	for i, step := range m.Steps {
		e.logger.Info("executing step", "migration", m.Name, "step", step.Order, "description", step.Description)
		if err := e.runStatement(ctx, conn, step.ForwardSQL, step.Transactional, opts.StepTimeout); err != nil {
			stepErr := &StepError{Step: step.Order, Description: step.Description, Err: err}
			e.logger.Error("step failed", "migration", m.Name, "step", step.Order, "error", err)

			res.Status = generate.StatusFailed
			res.ErrorStep = step.Order
			res.StepsExecuted = i
			res.Err = stepErr
			res.FinishedAt = time.Now().UTC()

			e.unwind(ctx, m, conn, i, opts, res)
			m.Status = generate.StatusFailed
			return res, nil
		}
	}

	now := time.Now().UTC()
	m.Status = generate.StatusApplied
	m.AppliedAt = &now
	m.AppliedBy = opts.AppliedBy
	res.Status = generate.StatusApplied
	res.StepsExecuted = len(m.Steps)
	res.FinishedAt = now
	e.logger.Info("migration applied", "migration", m.Name, "steps", len(m.Steps))
	return res, nil
}

// unwind rolls back the first n steps in reverse order after a failure.
// Cancellation of the surrounding context must not abort the unwind, so it
// runs detached from the caller's deadline.
func (e *Executor) unwind(ctx context.Context, m *generate.Migration, conn Conn, n int, opts Options, res *Result) {
	for i := n - 1; i >= 0; i-- {
		if m.Steps[i].RollbackSQL == nil {
			res.RollbackErr = fmt.Errorf("%w: step %d (%s): manual intervention required",
				ErrIrreversibleStep, m.Steps[i].Order, m.Steps[i].Description)
			e.logger.Error("automatic rollback halted", "migration", m.Name, "step", m.Steps[i].Order)
			return
		}
	}

	detached := context.WithoutCancel(ctx)
	for i := n - 1; i >= 0; i-- {
		step := m.Steps[i]
		e.logger.Info("rolling back step", "migration", m.Name, "step", step.Order)
		if err := e.runStatement(detached, conn, *step.RollbackSQL, step.Transactional, opts.StepTimeout); err != nil {
			res.RollbackErr = &StepError{Step: step.Order, Description: step.Description, Err: err}
			e.logger.Error("automatic rollback failed", "migration", m.Name, "step", step.Order, "error", err)
			return
		}
	}
	res.RolledBack = true
}

// Rollback undoes an applied migration by running every step's rollback SQL
// in reverse order. It fails fast if any step lacks one.
func (e *Executor) Rollback(ctx context.Context, m *generate.Migration, conn Conn, opts Options) (*Result, error) {
	if m.Status != generate.StatusApplied {
		return nil, fmt.Errorf("%w: cannot roll back migration in status %q", ErrWrongStatus, m.Status)
	}
	if !opts.Force {
		if got := generate.Checksum(m.Steps); got != m.Checksum {
			return nil, fmt.Errorf("%w: recorded %s, recomputed %s", ErrChecksumMismatch, m.Checksum, got)
		}
	}
	for _, s := range m.Steps {
		if !s.Reversible() {
			return nil, fmt.Errorf("%w: step %d (%s)", ErrIrreversibleStep, s.Order, s.Description)
		}
	}

	res := &Result{
		MigrationID: m.ID,
		Status:      m.Status,
		DryRun:      opts.DryRun,
		TotalSteps:  len(m.Steps),
		StartedAt:   time.Now().UTC(),
	}
	if opts.DryRun {
		res.FinishedAt = time.Now().UTC()
		return res, nil
	}

	for i := len(m.Steps) - 1; i >= 0; i-- {
		step := m.Steps[i]
		e.logger.Info("rolling back step", "migration", m.Name, "step", step.Order, "description", step.Description)
		if err := e.runStatement(ctx, conn, *step.RollbackSQL, step.Transactional, opts.StepTimeout); err != nil {
			res.Status = generate.StatusFailed
			res.ErrorStep = step.Order
			res.Err = &StepError{Step: step.Order, Description: step.Description, Err: err}
			res.FinishedAt = time.Now().UTC()
			e.logger.Error("rollback failed", "migration", m.Name, "step", step.Order, "error", err)
			return res, nil
		}
		res.StepsExecuted++
	}

	m.Status = generate.StatusRolledBack
	res.Status = generate.StatusRolledBack
	res.FinishedAt = time.Now().UTC()
	e.logger.Info("migration rolled back", "migration", m.Name, "steps", len(m.Steps))
	return res, nil
}

func (e *Executor) runStatement(ctx context.Context, conn Conn, sql string, transactional bool, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if !transactional {
		return conn.Exec(ctx, sql)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := tx.Exec(ctx, sql); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
