package execute

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"schemashift/internal/generate"
)

var (
	// ErrChecksumMismatch means the migration's recorded checksum no longer
	// matches its steps, typically after a manual edit.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")

	// ErrIrreversibleStep means a rollback was required for a step that has
	// no rollback SQL.
	ErrIrreversibleStep = errors.New("step has no rollback")

	// ErrWrongStatus means the migration is not in a status that permits the
	// requested operation.
	ErrWrongStatus = errors.New("migration status does not permit operation")
)

// StepError wraps a driver failure with the step that caused it.
type StepError struct {
	Step        int
	Description string
	Err         error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Description, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Result describes exactly what an execute or rollback run did: how many
// steps succeeded, which step failed, and whether automatic rollback of
// prior steps completed.
type Result struct {
	MigrationID   uuid.UUID
	Status        generate.Status
	DryRun        bool
	TotalSteps    int
	StepsExecuted int
	ErrorStep     int
	Err           error
	RolledBack    bool
	RollbackErr   error
	Warnings      []string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Failed reports whether the run ended in failure.
func (r *Result) Failed() bool { return r.Status == generate.StatusFailed }
