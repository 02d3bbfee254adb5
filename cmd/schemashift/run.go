package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"schemashift/internal/config"
	"schemashift/internal/dbconn"
	"schemashift/internal/execute"
	"schemashift/internal/generate"
	"schemashift/internal/store"
)

func newApplyCmd() *cobra.Command {
	var oldPath, newPath, name, version, description, targetName string
	var dryRun, approve, force bool
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Generate a migration from two snapshots and run it against a target",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := config.LoadTargets(cfg.TargetsFile)
			if err != nil {
				return err
			}
			target, err := targets.Target(targetName)
			if err != nil {
				return err
			}

			m, err := generateMigration(oldPath, newPath, name, version, description, target.Dialect)
			if err != nil {
				return err
			}
			printPlan(m)

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()

			db, err := dbconn.Open(target.Driver, target.DSN)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Ping(ctx); err != nil {
				return fmt.Errorf("connect target %s: %w", targetName, err)
			}

			exec := execute.New(logger)
			opts := execute.Options{
				DryRun:      dryRun,
				StepTimeout: cfg.StepTimeout,
				Force:       force,
				AppliedBy:   cfg.AppliedBy,
			}

			// dry runs never touch the target: no lock, no ledger bootstrap
			if dryRun {
				res, err := exec.Execute(ctx, m, db, opts)
				if err != nil {
					return err
				}
				printResult(res)
				return nil
			}

			if err := db.AcquireLock(ctx, target.LockID()); err != nil {
				return err
			}
			defer db.ReleaseLock(context.WithoutCancel(ctx), target.LockID()) // nolint:errcheck

			if err := db.EnsureLedger(ctx); err != nil {
				return err
			}
			if err := db.CheckNotApplied(ctx, m); err != nil {
				if errors.Is(err, dbconn.ErrAlreadyApplied) {
					fmt.Println("already applied, nothing to do")
					return nil
				}
				return err
			}

			if !approve {
				fmt.Printf("About to apply %s to target %s\n", m.Name, targetName)
				if ok, err := promptYes("Type YES to proceed: "); err != nil {
					return err
				} else if !ok {
					return fmt.Errorf("aborted by user")
				}
			}

			res, err := exec.Execute(ctx, m, db, opts)
			if err != nil {
				return err
			}
			printResult(res)

			if res.Status == generate.StatusApplied {
				if err := db.RecordApplied(ctx, m); err != nil {
					return fmt.Errorf("record in target ledger: %w", err)
				}
			}
			if cfg.CatalogDSN != "" {
				if err := persistToCatalog(ctx, m); err != nil {
					return fmt.Errorf("persist to catalog: %w", err)
				}
			}
			if res.Failed() {
				return fmt.Errorf("migration failed at step %d: %w", res.ErrorStep, res.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&oldPath, "old", "", "path to the current schema JSON")
	cmd.Flags().StringVar(&newPath, "new", "", "path to the desired schema JSON")
	cmd.Flags().StringVar(&name, "name", "", "migration name")
	cmd.Flags().StringVar(&version, "version", "1", "migration version")
	cmd.Flags().StringVar(&description, "description", "", "migration description")
	cmd.Flags().StringVar(&targetName, "target", "", "target name from the targets file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the plan without executing")
	cmd.Flags().BoolVar(&approve, "approve", false, "skip the approval prompt")
	cmd.Flags().BoolVar(&force, "force", false, "skip checksum verification")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newRollbackCmd() *cobra.Command {
	var name, targetName string
	var approve, force bool
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back an applied migration stored in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.CatalogDSN == "" {
				return fmt.Errorf("rollback needs SCHEMASHIFT_CATALOG_DSN to locate the applied migration")
			}
			targets, err := config.LoadTargets(cfg.TargetsFile)
			if err != nil {
				return err
			}
			target, err := targets.Target(targetName)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()

			pool, err := store.Connect(ctx, cfg.CatalogDSN)
			if err != nil {
				return err
			}
			defer pool.Close()

			m, err := store.GetMigrationByName(ctx, pool, name)
			if err != nil {
				return err
			}

			if !approve {
				fmt.Printf("About to roll back %s (%d steps) on target %s\n", m.Name, len(m.Steps), targetName)
				if ok, err := promptYes("Type YES to proceed: "); err != nil {
					return err
				} else if !ok {
					return fmt.Errorf("aborted by user")
				}
			}

			db, err := dbconn.Open(target.Driver, target.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.AcquireLock(ctx, target.LockID()); err != nil {
				return err
			}
			defer db.ReleaseLock(context.WithoutCancel(ctx), target.LockID()) // nolint:errcheck

			exec := execute.New(logger)
			res, err := exec.Rollback(ctx, m, db, execute.Options{
				StepTimeout: cfg.StepTimeout,
				Force:       force,
			})
			if err != nil {
				return err
			}
			printResult(res)

			if res.Status == generate.StatusRolledBack {
				if err := db.RecordRolledBack(ctx, m); err != nil {
					return fmt.Errorf("record in target ledger: %w", err)
				}
				if err := store.UpdateStatus(ctx, pool, m); err != nil {
					return fmt.Errorf("update catalog: %w", err)
				}
			}
			if res.Failed() {
				return fmt.Errorf("rollback failed at step %d: %w", res.ErrorStep, res.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "migration name in the catalog")
	cmd.Flags().StringVar(&targetName, "target", "", "target name from the targets file")
	cmd.Flags().BoolVar(&approve, "approve", false, "skip the approval prompt")
	cmd.Flags().BoolVar(&force, "force", false, "skip checksum verification")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var targetName string
	var limit int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the migrations applied to a target",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := config.LoadTargets(cfg.TargetsFile)
			if err != nil {
				return err
			}
			target, err := targets.Target(targetName)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := dbconn.Open(target.Driver, target.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.EnsureLedger(ctx); err != nil {
				return err
			}
			applied, err := db.ListApplied(ctx, limit)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Println("no migrations applied yet")
				return nil
			}
			for _, m := range applied {
				state := "applied"
				if m.RolledBackAt != nil {
					state = "rolled back " + m.RolledBackAt.Format(time.RFC3339)
				}
				fmt.Printf("%s v%s checksum=%s %s at %s by %s\n",
					m.Name, m.Version, m.Checksum, state, m.AppliedAt.Format(time.RFC3339), m.AppliedBy)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&targetName, "target", "", "target name from the targets file")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of rows to show")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func persistToCatalog(ctx context.Context, m *generate.Migration) error {
	pool, err := store.Connect(ctx, cfg.CatalogDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := store.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	if err := store.CreateMigration(ctx, pool, m); err != nil {
		if errors.Is(err, store.ErrMigrationExists) {
			// re-run of a known migration; carry the stored row's id forward
			existing, lookupErr := store.GetMigrationByName(ctx, pool, m.Name)
			if lookupErr != nil {
				return lookupErr
			}
			m.ID = existing.ID
			return store.UpdateStatus(ctx, pool, m)
		}
		return err
	}
	return nil
}

func printResult(res *execute.Result) {
	switch {
	case res.DryRun:
		fmt.Printf("dry run: %d step(s) would execute\n", res.TotalSteps)
		for _, w := range res.Warnings {
			fmt.Println("  warning:", w)
		}
	case res.Status == generate.StatusApplied:
		fmt.Printf("applied %d/%d step(s) in %s\n", res.StepsExecuted, res.TotalSteps, res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	case res.Status == generate.StatusRolledBack:
		fmt.Printf("rolled back %d step(s)\n", res.StepsExecuted)
	default:
		fmt.Printf("failed at step %d after %d successful step(s)\n", res.ErrorStep, res.StepsExecuted)
		if res.RolledBack {
			fmt.Println("prior steps were rolled back automatically")
		} else if res.RollbackErr != nil {
			fmt.Println("AUTOMATIC ROLLBACK INCOMPLETE:", res.RollbackErr)
		}
	}
}
