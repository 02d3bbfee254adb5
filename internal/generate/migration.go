package generate

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"schemashift/internal/breaking"
)

// Dialect selects the SQL syntax variant for generated DDL. All dialect
// branching happens in this package; downstream consumers are dialect
// agnostic.
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectSQLServer Dialect = "sqlserver"
	DialectMySQL     Dialect = "mysql"
)

// Status tracks a migration through its lifecycle. Transitions are owned by
// the executor: Pending -> Applied | Failed, Applied -> RolledBack.
type Status string

const (
	StatusPending    Status = "pending"
	StatusApplied    Status = "applied"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
)

// MigrationStep is one DDL statement with its synthesized inverse. A nil
// RollbackSQL marks the step as non-reversible.
type MigrationStep struct {
	Order               int     `json:"order"`
	Description         string  `json:"description"`
	ForwardSQL          string  `json:"forwardSql"`
	RollbackSQL         *string `json:"rollbackSql,omitempty"`
	Transactional       bool    `json:"transactional"`
	RequiresLock        bool    `json:"requiresLock"`
	EstimatedDurationMS int64   `json:"estimatedDurationMs"`
}

// Reversible reports whether the step has a rollback statement.
func (s MigrationStep) Reversible() bool { return s.RollbackSQL != nil }

// Migration is the ordered, checksummed plan produced from a schema diff.
// Once applied it is immutable except for the executor-owned status fields.
type Migration struct {
	ID              uuid.UUID                 `json:"id"`
	Name            string                    `json:"name"`
	Version         string                    `json:"version"`
	Description     string                    `json:"description,omitempty"`
	Dialect         Dialect                   `json:"dialect"`
	Steps           []MigrationStep           `json:"steps"`
	BreakingChanges []breaking.BreakingChange `json:"breakingChanges,omitempty"`
	Dependencies    []string                  `json:"dependencies,omitempty"`
	Status          Status                    `json:"status"`
	Checksum        string                    `json:"checksum"`
	CreatedAt       time.Time                 `json:"createdAt"`
	AppliedAt       *time.Time                `json:"appliedAt,omitempty"`
	AppliedBy       string                    `json:"appliedBy,omitempty"`
}

// HasBreakingChanges reports whether any change was flagged by the
// classifier.
func (m *Migration) HasBreakingChanges() bool { return len(m.BreakingChanges) > 0 }

// RequiresDowntime reports whether applying the migration needs a
// maintenance window: any critical verdict or any lock-taking step.
func (m *Migration) RequiresDowntime() bool {
	if breaking.HasCritical(m.BreakingChanges) {
		return true
	}
	for _, s := range m.Steps {
		if s.RequiresLock {
			return true
		}
	}
	return false
}

// IrreversibleSteps returns the steps lacking rollback SQL, in order.
func (m *Migration) IrreversibleSteps() []MigrationStep {
	var out []MigrationStep
	for _, s := range m.Steps {
		if !s.Reversible() {
			out = append(out, s)
		}
	}
	return out
}

// Checksum hashes the ordered concatenation of forward SQL. It is a pure
// function of the steps: identical plans always hash identically. The digest
// is truncated to 32 hex characters for readability.
func Checksum(steps []MigrationStep) string {
	h := sha256.New()
	for _, s := range steps {
		h.Write([]byte(s.ForwardSQL))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
