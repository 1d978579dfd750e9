package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/importer"
	"github.com/dbsmedya/legacymigrate/internal/logger"
	"github.com/dbsmedya/legacymigrate/internal/target"
)

var validateFilters unitFilters

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and run preflight checks",
	Long: `Validate checks the configuration file and runs preflight checks
against the legacy database and the target API.

Checks performed:
  - Configuration syntax and required fields
  - Unit selection (--only, --start-at, --stop-at)
  - Legacy database connectivity
  - Existence of every legacy table the selected units read
  - Target API reachability (when a target is configured)

Example:
  legacymigrate validate --config legacymigrate.yaml`,
	RunE: runValidate,
}

func init() {
	validateFilters.register(validateCmd)
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(validateFilters)
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	log.Info("Starting validation checks...")

	fmt.Fprintf(outputWriter, "\n=== Configuration Validation ===\n")
	fmt.Fprintf(outputWriter, "Config file: %s\n", GetConfigFile())
	fmt.Fprintf(outputWriter, "Mode: %s\n\n", cfg.Migration.Mode)

	plan, err := importer.BuildPlan(importer.Registrations(), importer.PlanOptions{
		Only:    cfg.Migration.Only,
		StartAt: cfg.Migration.StartAt,
		StopAt:  cfg.Migration.StopAt,
	})
	if err != nil {
		fmt.Fprintf(outputWriter, "%s Unit selection: %v\n", errorStyle.Sprint("✗"), err)
		return fmt.Errorf("validation failed")
	}
	fmt.Fprintf(outputWriter, "%s Unit selection: %d unit(s)\n", okStyle.Sprint("✓"), len(plan.Units))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbManager := database.NewManager(&cfg.Source)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to legacy database: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("legacy database connection failed: %w", err)
	}
	fmt.Fprintf(outputWriter, "%s Legacy database: %s:%d\n", okStyle.Sprint("✓"), cfg.Source.Host, cfg.Source.Port)

	hasErrors := false

	checker, err := importer.NewPreflightChecker(dbManager.Source(), log)
	if err != nil {
		return fmt.Errorf("failed to create preflight checker: %w", err)
	}
	report, err := checker.RunAllChecks(ctx, plan)
	if report != nil {
		for _, name := range report.MissingOptional {
			fmt.Fprintf(outputWriter, "%s Optional table missing: %s\n", warnStyle.Sprint("!"), name)
		}
	}
	if err != nil {
		fmt.Fprintf(outputWriter, "%s Preflight checks failed: %v\n", errorStyle.Sprint("✗"), err)
		hasErrors = true
	} else {
		fmt.Fprintf(outputWriter, "%s Legacy tables: %d checked\n", okStyle.Sprint("✓"), report.Checked)
	}

	if cfg.Target.BaseURL != "" {
		client, err := target.NewClient(cfg.Target, log)
		if err != nil {
			return fmt.Errorf("failed to create target client: %w", err)
		}
		if _, found, err := client.DefaultContext(ctx); err != nil {
			fmt.Fprintf(outputWriter, "%s Target API: %v\n", errorStyle.Sprint("✗"), err)
			hasErrors = true
		} else {
			note := "default context present"
			if !found {
				note = "no default context yet"
			}
			fmt.Fprintf(outputWriter, "%s Target API: %s (%s)\n", okStyle.Sprint("✓"), cfg.Target.BaseURL, note)
		}
	}

	if hasErrors {
		return fmt.Errorf("validation failed")
	}

	fmt.Fprintln(outputWriter, "\n=== Validation Complete ===")
	return nil
}
