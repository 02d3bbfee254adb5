package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"schemashift/internal/breaking"
	"schemashift/internal/config"
	"schemashift/internal/diff"
	"schemashift/internal/generate"
	"schemashift/internal/logging"
	"schemashift/internal/schema"
)

var (
	cfg    config.Config
	logger = logging.Discard()
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "schemashift",
		Short:         "Generate and run schema migrations from extracted database snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			logger = logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}

	root.AddCommand(
		newValidateCmd(),
		newPlanCmd(),
		newScriptCmd(),
		newApplyCmd(),
		newRollbackCmd(),
		newStatusCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newValidateCmd() *cobra.Command {
	var path, rewrite string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an extracted schema snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.ReadFile(path)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d tables, %d views, %d procedures, %d functions, %d triggers\n",
				s.Name, len(s.Tables), len(s.Views), len(s.Procedures), len(s.Functions), len(s.Triggers))
			if rewrite != "" {
				if err := schema.WriteFile(rewrite, s); err != nil {
					return err
				}
				fmt.Println("normalized snapshot written to", rewrite)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "schema", "", "path to schema JSON")
	cmd.Flags().StringVar(&rewrite, "rewrite", "", "write the validated snapshot back out as normalized JSON")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func newPlanCmd() *cobra.Command {
	var oldPath, newPath string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Diff two snapshots and report changes with breaking-change verdicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDiff(oldPath, newPath)
			if err != nil {
				return err
			}
			fmt.Println(diff.Describe(*d))
			if !d.HasChanges() {
				return nil
			}
			verdicts := breaking.Classify(*d)
			if len(verdicts) == 0 {
				fmt.Println("\nno breaking changes")
				return nil
			}
			fmt.Printf("\n%d breaking change(s):\n", len(verdicts))
			for _, bc := range verdicts {
				risk := ""
				if bc.DataLossRisk {
					risk = " [data loss]"
				}
				fmt.Printf("  %-8s %s: %s%s\n", bc.Severity, bc.ObjectName, bc.Description, risk)
				if bc.Remediation != "" {
					fmt.Printf("           remediation: %s\n", bc.Remediation)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&oldPath, "old", "", "path to the current schema JSON")
	cmd.Flags().StringVar(&newPath, "new", "", "path to the desired schema JSON")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}

func newScriptCmd() *cobra.Command {
	var oldPath, newPath, name, version, description, dialect string
	var outForward, outRollback string
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Generate forward and rollback SQL scripts from two snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := generateMigration(oldPath, newPath, name, version, description, dialect)
			if err != nil {
				return err
			}
			printPlan(m)

			if err := os.WriteFile(outForward, []byte(generate.ForwardScript(m)), 0o644); err != nil {
				return err
			}
			fmt.Println("forward script written to", outForward)
			if outRollback != "" {
				if err := os.WriteFile(outRollback, []byte(generate.RollbackScript(m)), 0o644); err != nil {
					return err
				}
				fmt.Println("rollback script written to", outRollback)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&oldPath, "old", "", "path to the current schema JSON")
	cmd.Flags().StringVar(&newPath, "new", "", "path to the desired schema JSON")
	cmd.Flags().StringVar(&name, "name", "", "migration name")
	cmd.Flags().StringVar(&version, "version", "1", "migration version")
	cmd.Flags().StringVar(&description, "description", "", "migration description")
	cmd.Flags().StringVar(&dialect, "dialect", "", "target dialect: postgres, sqlserver or mysql")
	cmd.Flags().StringVar(&outForward, "out", "forward.sql", "forward script path")
	cmd.Flags().StringVar(&outRollback, "out-rollback", "rollback.sql", "rollback script path")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("dialect")
	return cmd
}

func loadDiff(oldPath, newPath string) (*diff.SchemaDiff, error) {
	oldSchema, err := schema.ReadFile(oldPath)
	if err != nil {
		return nil, err
	}
	newSchema, err := schema.ReadFile(newPath)
	if err != nil {
		return nil, err
	}
	d := diff.Compare(oldSchema, newSchema)
	return &d, nil
}

func generateMigration(oldPath, newPath, name, version, description, dialect string) (*generate.Migration, error) {
	d, err := loadDiff(oldPath, newPath)
	if err != nil {
		return nil, err
	}
	verdicts := breaking.Classify(*d)
	return generate.FromDiff(*d, verdicts, name, version, description, generate.Dialect(strings.ToLower(dialect)))
}

func printPlan(m *generate.Migration) {
	fmt.Printf("migration %s version %s (%s), checksum %s\n", m.Name, m.Version, m.Dialect, m.Checksum)
	if m.RequiresDowntime() {
		fmt.Println("NOTE: this migration requires a maintenance window")
	}
	for _, s := range m.Steps {
		marker := " "
		if !s.Reversible() {
			marker = "!"
		}
		fmt.Printf("  %s %3d. %s (~%dms)\n", marker, s.Order, s.Description, s.EstimatedDurationMS)
	}
	if irr := m.IrreversibleSteps(); len(irr) > 0 {
		fmt.Printf("  ! %d step(s) cannot be rolled back automatically\n", len(irr))
	}
	for _, bc := range m.BreakingChanges {
		fmt.Printf("  breaking [%s] %s: %s\n", bc.Severity, bc.ObjectName, bc.Description)
	}
}

func promptYes(prompt string) (bool, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "YES"), nil
}
