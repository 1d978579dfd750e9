package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/legacymigrate/internal/config"
	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/importer"
	"github.com/dbsmedya/legacymigrate/internal/logger"
)

var (
	planFilters  unitFilters
	planEstimate bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the execution plan",
	Long: `Plan resolves the unit selection and displays the order units will
run in, grouped by phase.

The plan shows:
  - Run order with each unit's phase and dependencies
  - Dependencies outside the selection, read back from the target
  - Legacy row counts per unit (--estimate, needs the legacy database)

Example:
  legacymigrate plan --config legacymigrate.yaml
  legacymigrate plan --start-at thg_gallery --estimate`,
	RunE: runPlan,
}

func init() {
	planFilters.register(planCmd)
	planCmd.Flags().BoolVar(&planEstimate, "estimate", false,
		"Count the legacy rows each unit reads")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(planFilters)
	if err != nil {
		return err
	}

	plan, err := importer.BuildPlan(importer.Registrations(), importer.PlanOptions{
		Only:    cfg.Migration.Only,
		StartAt: cfg.Migration.StartAt,
		StopAt:  cfg.Migration.StopAt,
	})
	if err != nil {
		return err
	}

	var estimate *importer.EstimateResult
	if planEstimate {
		if estimate, err = estimatePlan(cmd.Context(), cfg, plan); err != nil {
			return err
		}
	}

	printPlan(cfg, plan, estimate)
	return nil
}

func estimatePlan(ctx context.Context, cfg *config.Config, plan *importer.Plan) (*importer.EstimateResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	dbManager := database.NewManager(&cfg.Source)
	if err := dbManager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to legacy database: %w", err)
	}
	defer dbManager.Close()

	return importer.NewEstimator(dbManager.Source(), log).Estimate(ctx, plan)
}

func printPlan(cfg *config.Config, plan *importer.Plan, estimate *importer.EstimateResult) {
	rows := make(map[string]int64)
	if estimate != nil {
		for _, u := range estimate.Units {
			rows[u.Unit] = u.Rows
		}
	}

	printHeader("Execution Plan")
	fmt.Fprintln(outputWriter)
	printSection("Overview")
	fmt.Fprintf(outputWriter, "  Mode:   %s\n", cfg.Migration.Mode)
	fmt.Fprintf(outputWriter, "  Units:  %d\n", len(plan.Units))
	if cfg.Target.BaseURL != "" {
		fmt.Fprintf(outputWriter, "  Target: %s\n", cfg.Target.BaseURL)
	}
	if cfg.Samples.Enabled {
		fmt.Fprintf(outputWriter, "  Samples: %s\n", cfg.Samples.DBPath)
	}

	fmt.Fprintln(outputWriter)
	printSection("Run Order")
	header := []string{"#", "PHASE", "UNIT", "DEPENDS ON"}
	if estimate != nil {
		header = append(header, "ROWS")
	}
	t := &table{header: header}
	for i, u := range plan.Units {
		deps := "-"
		if len(u.DependsOn) > 0 {
			deps = strings.Join(u.DependsOn, ", ")
		}
		cells := []string{fmt.Sprint(i + 1), fmt.Sprint(u.Phase), u.Key, deps}
		if estimate != nil {
			cells = append(cells, fmt.Sprint(rows[u.Key]))
		}
		t.add(cells...)
	}
	t.render(outputWriter, "  ")

	external := make(map[string]bool)
	for _, u := range plan.Units {
		for _, dep := range plan.External(u.Key) {
			external[dep] = true
		}
	}
	if len(external) > 0 {
		fmt.Fprintln(outputWriter)
		printSection("Read From Target")
		for _, reg := range importer.Registrations() {
			if external[reg.Key] {
				fmt.Fprintf(outputWriter, "  • %s\n", dimStyle.Sprint(reg.Key))
			}
		}
	}

	if estimate != nil {
		fmt.Fprintln(outputWriter)
		fmt.Fprintf(outputWriter, "  Total legacy rows: %d\n", estimate.TotalRows)
	}
}

// printUnits lists every registered unit in run order.
func printUnits() error {
	plan, err := importer.BuildPlan(importer.Registrations(), importer.PlanOptions{})
	if err != nil {
		return err
	}
	t := &table{header: []string{"PHASE", "UNIT", "LEGACY TABLES"}}
	for _, u := range plan.Units {
		tables := make([]string, 0, len(u.Tables))
		for _, tr := range u.Tables {
			name := tr.Schema + "." + tr.Table
			if tr.Optional {
				name += " (optional)"
			}
			tables = append(tables, name)
		}
		if len(tables) == 0 {
			tables = append(tables, "-")
		}
		t.add(fmt.Sprint(u.Phase), u.Key, strings.Join(tables, ", "))
	}
	t.render(outputWriter, "")
	fmt.Fprintf(outputWriter, "\nTotal: %d unit(s)\n", len(plan.Units))
	return nil
}
