package generate

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"schemashift/internal/breaking"
	"schemashift/internal/diff"
)

// ErrNoChanges is returned when a migration is requested from an empty diff.
var ErrNoChanges = errors.New("no schema changes to migrate")

// Rough per-operation duration estimates in milliseconds, used for plan
// display only.
const (
	durMetadata   = 50
	durDropColumn = 100
	durAlterType  = 2000
	durNullable   = 1000
	durPrimaryKey = 1500
	durIndexBuild = 5000
	durIndexDrop  = 200
	durForeignKey = 500
	durDefinition = 100
)

type draftStep struct {
	sortKey      string
	description  string
	forwardSQL   string
	rollbackSQL  *string
	requiresLock bool
	durationMS   int64
}

// FromDiff turns a diff and its classifications into an ordered migration.
//
// Steps are assigned to dependency buckets, buckets are emitted in a fixed
// order, and items within a bucket are sorted by object name, so identical
// inputs always produce the identical plan and checksum:
//
//	1. drop triggers, foreign keys and changed routine/view definitions
//	2. drop indexes
//	3. table structure (creates, then per-table adds before drops, then table drops)
//	4. create indexes and foreign keys
//	5. create views, procedures, functions, triggers
func FromDiff(d diff.SchemaDiff, classifications []breaking.BreakingChange, name, version, description string, dialect Dialect) (*Migration, error) {
	if !d.HasChanges() {
		return nil, ErrNoChanges
	}
	r, err := rendererFor(dialect)
	if err != nil {
		return nil, err
	}

	buckets := [5][]draftStep{}
	add := func(bucket int, s draftStep) {
		if s.forwardSQL == "" {
			return
		}
		buckets[bucket-1] = append(buckets[bucket-1], s)
	}

	for _, c := range d.Changes {
		switch c.Type {
		case diff.ObjectTable:
			generateTableSteps(c, r, add)
		case diff.ObjectView:
			generateDefinitionSteps(c, r.DropView(c.Name), add)
		case diff.ObjectProcedure:
			generateDefinitionSteps(c, r.DropProcedure(c.Name), add)
		case diff.ObjectFunction:
			generateDefinitionSteps(c, r.DropFunction(c.Name), add)
		case diff.ObjectTrigger:
			generateTriggerSteps(c, r, add)
		}
	}

	var steps []MigrationStep
	order := 0
	for _, bucket := range buckets {
		sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].sortKey < bucket[j].sortKey })
		for _, ds := range bucket {
			order++
			steps = append(steps, MigrationStep{
				Order:               order,
				Description:         ds.description,
				ForwardSQL:          ds.forwardSQL,
				RollbackSQL:         ds.rollbackSQL,
				Transactional:       r.Transactional(),
				RequiresLock:        ds.requiresLock,
				EstimatedDurationMS: ds.durationMS,
			})
		}
	}

	return &Migration{
		ID:              uuid.New(),
		Name:            name,
		Version:         version,
		Description:     description,
		Dialect:         dialect,
		Steps:           steps,
		BreakingChanges: classifications,
		Status:          StatusPending,
		Checksum:        Checksum(steps),
		CreatedAt:       time.Now().UTC(),
	}, nil
}

func generateTableSteps(c diff.ObjectChange, r renderer, add func(int, draftStep)) {
	switch c.Kind {
	case diff.Added:
		t := *c.NewTable
		add(3, draftStep{
			sortKey:     "0:" + c.Name,
			description: "create table " + c.Name,
			forwardSQL:  r.CreateTable(t),
			rollbackSQL: strPtr(r.DropTable(t)),
			durationMS:  durDefinition,
		})
		for _, idx := range t.Indexes {
			add(4, draftStep{
				sortKey:     c.Name + ":" + idx.Name,
				description: fmt.Sprintf("create index %s on %s", idx.Name, c.Name),
				forwardSQL:  r.CreateIndex(t, idx),
				rollbackSQL: strPtr(r.DropIndex(t, idx)),
				durationMS:  durIndexBuild,
			})
		}
		for _, fk := range t.ForeignKeys {
			add(4, draftStep{
				sortKey:     c.Name + ":" + fk.Name,
				description: fmt.Sprintf("add foreign key %s on %s", fk.Name, c.Name),
				forwardSQL:  r.AddForeignKey(t, fk),
				rollbackSQL: strPtr(r.DropForeignKey(t, fk.Name)),
				durationMS:  durForeignKey,
			})
		}

	case diff.Removed:
		add(3, draftStep{
			sortKey:     "2:" + c.Name,
			description: "drop table " + c.Name,
			forwardSQL:  r.DropTable(*c.OldTable),
			durationMS:  durDropColumn,
		})

	case diff.Modified:
		generateTableModifications(c, r, add)
	}
}

// generateTableModifications expands a modified table's details. Column adds
// come before column drops so a drop never races a dependent add, and index
// and constraint work lands in the drop-first/create-last buckets.
func generateTableModifications(c diff.ObjectChange, r renderer, add func(int, draftStep)) {
	oldT, newT := *c.OldTable, *c.NewTable

	// sub-orders keep adds before alters before drops within one table
	for _, det := range c.Details {
		switch det := det.(type) {
		case diff.ColumnAdded:
			add(3, draftStep{
				sortKey:     "1:" + c.Name + ":0:" + det.Column.Name,
				description: fmt.Sprintf("add column %s.%s", c.Name, det.Column.Name),
				forwardSQL:  r.AddColumn(newT, det.Column),
				rollbackSQL: strPtr(r.DropColumn(newT, det.Column.Name)),
				durationMS:  durMetadata,
			})

		case diff.ColumnRemoved:
			add(3, draftStep{
				sortKey:     "1:" + c.Name + ":2:" + det.Column.Name,
				description: fmt.Sprintf("drop column %s.%s", c.Name, det.Column.Name),
				forwardSQL:  r.DropColumn(newT, det.Column.Name),
				durationMS:  durDropColumn,
			})

		case diff.TypeChanged:
			add(3, draftStep{
				sortKey:      "1:" + c.Name + ":1:" + det.Column + ":type",
				description:  fmt.Sprintf("alter column %s.%s type %s", c.Name, det.Column, det.New.TypeSpec()),
				forwardSQL:   r.AlterColumnType(newT, det.Old, det.New),
				rollbackSQL:  strPtr(r.AlterColumnType(oldT, det.New, det.Old)),
				requiresLock: true,
				durationMS:   durAlterType,
			})

		case diff.NullabilityChanged:
			col, _ := newT.Column(det.Column)
			oldCol, _ := oldT.Column(det.Column)
			add(3, draftStep{
				sortKey:      "1:" + c.Name + ":1:" + det.Column + ":null",
				description:  fmt.Sprintf("alter column %s.%s to %s", c.Name, det.Column, nullClause(det.NewNullable)),
				forwardSQL:   r.AlterNullability(newT, col, det.NewNullable),
				rollbackSQL:  strPtr(r.AlterNullability(oldT, oldCol, det.OldNullable)),
				requiresLock: !det.NewNullable,
				durationMS:   durNullable,
			})

		case diff.IdentityChanged:
			col, _ := newT.Column(det.Column)
			oldCol, _ := oldT.Column(det.Column)
			forward := r.AlterIdentity(newT, col, det.NewIdentity)
			var rollback *string
			if rb := r.AlterIdentity(oldT, oldCol, det.OldIdentity); rb != "" {
				rollback = &rb
			}
			add(3, draftStep{
				sortKey:     "1:" + c.Name + ":1:" + det.Column + ":identity",
				description: fmt.Sprintf("alter column %s.%s identity", c.Name, det.Column),
				forwardSQL:  forward,
				rollbackSQL: rollback,
				durationMS:  durNullable,
			})

		case diff.DefaultChanged:
			col, _ := newT.Column(det.Column)
			oldCol, _ := oldT.Column(det.Column)
			add(3, draftStep{
				sortKey:     "1:" + c.Name + ":1:" + det.Column + ":default",
				description: fmt.Sprintf("alter column %s.%s default", c.Name, det.Column),
				forwardSQL:  r.AlterDefault(newT, col, det.New),
				rollbackSQL: strPtr(r.AlterDefault(oldT, oldCol, det.Old)),
				durationMS:  durMetadata,
			})

		case diff.PrimaryKeyChanged:
			if len(det.Old) > 0 {
				add(3, draftStep{
					sortKey:      "1:" + c.Name + ":1:~pk:drop",
					description:  "drop primary key on " + c.Name,
					forwardSQL:   r.DropPrimaryKey(oldT),
					rollbackSQL:  strPtr(r.AddPrimaryKey(oldT, det.Old)),
					requiresLock: true,
					durationMS:   durPrimaryKey,
				})
			}
			if len(det.New) > 0 {
				add(3, draftStep{
					sortKey:      "1:" + c.Name + ":1:~pk:add",
					description:  "add primary key on " + c.Name,
					forwardSQL:   r.AddPrimaryKey(newT, det.New),
					rollbackSQL:  strPtr(r.DropPrimaryKey(newT)),
					requiresLock: true,
					durationMS:   durPrimaryKey,
				})
			}

		case diff.IndexRemoved:
			add(2, draftStep{
				sortKey:     c.Name + ":" + det.Index.Name,
				description: fmt.Sprintf("drop index %s on %s", det.Index.Name, c.Name),
				forwardSQL:  r.DropIndex(oldT, det.Index),
				rollbackSQL: strPtr(r.CreateIndex(oldT, det.Index)),
				durationMS:  durIndexDrop,
			})

		case diff.IndexAdded:
			add(4, draftStep{
				sortKey:     c.Name + ":" + det.Index.Name,
				description: fmt.Sprintf("create index %s on %s", det.Index.Name, c.Name),
				forwardSQL:  r.CreateIndex(newT, det.Index),
				rollbackSQL: strPtr(r.DropIndex(newT, det.Index)),
				durationMS:  durIndexBuild,
			})

		case diff.ForeignKeyRemoved:
			add(1, draftStep{
				sortKey:     c.Name + ":" + det.ForeignKey.Name,
				description: fmt.Sprintf("drop foreign key %s on %s", det.ForeignKey.Name, c.Name),
				forwardSQL:  r.DropForeignKey(oldT, det.ForeignKey.Name),
				rollbackSQL: strPtr(r.AddForeignKey(oldT, det.ForeignKey)),
				durationMS:  durForeignKey,
			})

		case diff.ForeignKeyAdded:
			add(4, draftStep{
				sortKey:     c.Name + ":" + det.ForeignKey.Name,
				description: fmt.Sprintf("add foreign key %s on %s", det.ForeignKey.Name, c.Name),
				forwardSQL:  r.AddForeignKey(newT, det.ForeignKey),
				rollbackSQL: strPtr(r.DropForeignKey(newT, det.ForeignKey.Name)),
				durationMS:  durForeignKey,
			})
		}
	}
}

// generateDefinitionSteps handles views, procedures and functions, which are
// recreated wholesale from their captured definitions. A modified object is
// dropped first and recreated last so its body can reference finalized
// tables.
func generateDefinitionSteps(c diff.ObjectChange, dropSQL string, add func(int, draftStep)) {
	kind := string(c.Type)
	switch c.Kind {
	case diff.Added:
		add(5, draftStep{
			sortKey:     c.Name,
			description: fmt.Sprintf("create %s %s", kind, c.Name),
			forwardSQL:  strings.TrimSpace(c.NewDefinition),
			rollbackSQL: strPtr(dropSQL),
			durationMS:  durDefinition,
		})
	case diff.Removed:
		add(1, draftStep{
			sortKey:     c.Name,
			description: fmt.Sprintf("drop %s %s", kind, c.Name),
			forwardSQL:  dropSQL,
			rollbackSQL: strPtr(strings.TrimSpace(c.OldDefinition)),
			durationMS:  durDefinition,
		})
	case diff.Modified:
		add(1, draftStep{
			sortKey:     c.Name,
			description: fmt.Sprintf("drop %s %s for recreate", kind, c.Name),
			forwardSQL:  dropSQL,
			rollbackSQL: strPtr(strings.TrimSpace(c.OldDefinition)),
			durationMS:  durDefinition,
		})
		add(5, draftStep{
			sortKey:     c.Name,
			description: fmt.Sprintf("recreate %s %s", kind, c.Name),
			forwardSQL:  strings.TrimSpace(c.NewDefinition),
			rollbackSQL: strPtr(dropSQL),
			durationMS:  durDefinition,
		})
	}
}

func generateTriggerSteps(c diff.ObjectChange, r renderer, add func(int, draftStep)) {
	switch c.Kind {
	case diff.Added:
		add(5, draftStep{
			sortKey:     c.Name,
			description: "create trigger " + c.Name,
			forwardSQL:  strings.TrimSpace(c.NewDefinition),
			rollbackSQL: strPtr(r.DropTrigger(*c.NewTrigger)),
			durationMS:  durDefinition,
		})
	case diff.Removed:
		add(1, draftStep{
			sortKey:     c.Name,
			description: "drop trigger " + c.Name,
			forwardSQL:  r.DropTrigger(*c.OldTrigger),
			rollbackSQL: strPtr(strings.TrimSpace(c.OldDefinition)),
			durationMS:  durDefinition,
		})
	case diff.Modified:
		add(1, draftStep{
			sortKey:     c.Name,
			description: "drop trigger " + c.Name + " for recreate",
			forwardSQL:  r.DropTrigger(*c.OldTrigger),
			rollbackSQL: strPtr(strings.TrimSpace(c.OldDefinition)),
			durationMS:  durDefinition,
		})
		add(5, draftStep{
			sortKey:     c.Name,
			description: "recreate trigger " + c.Name,
			forwardSQL:  strings.TrimSpace(c.NewDefinition),
			rollbackSQL: strPtr(r.DropTrigger(*c.NewTrigger)),
			durationMS:  durDefinition,
		})
	}
}

func strPtr(s string) *string { return &s }
