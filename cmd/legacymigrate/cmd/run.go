package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/legacymigrate/internal/config"
	"github.com/dbsmedya/legacymigrate/internal/database"
	"github.com/dbsmedya/legacymigrate/internal/importer"
	"github.com/dbsmedya/legacymigrate/internal/lock"
	"github.com/dbsmedya/legacymigrate/internal/logger"
	"github.com/dbsmedya/legacymigrate/internal/rehydrate"
	"github.com/dbsmedya/legacymigrate/internal/samples"
	"github.com/dbsmedya/legacymigrate/internal/target"
	"github.com/dbsmedya/legacymigrate/internal/tracker"
)

var (
	runFilters   unitFilters
	runForce     bool
	runListUnits bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the migration",
	Long: `Run executes the planned importer units in phase order against the
legacy source and the target API.

The run follows these steps:
  1. Build the plan from --only, --start-at and --stop-at
  2. Take the advisory run lock on the legacy server (normal mode)
  3. For each unit, rehydrate target state it needs that this process
     has not produced, then import its legacy record family
  4. Print a per-unit summary

Records already present in the target are skipped, so a run can be
repeated or resumed from any unit.

Example:
  legacymigrate run --config legacymigrate.yaml
  legacymigrate run --start-at object_picture
  legacymigrate run --only thg_gallery,thg_theme --mode dry-run`,
	RunE: runMigrate,
}

func init() {
	runFilters.register(runCmd)
	runCmd.Flags().BoolVar(&runForce, "force", false,
		"Run even if the run lock cannot be acquired (use with caution)")
	runCmd.Flags().BoolVar(&runListUnits, "list", false,
		"List the available units and exit")

	rootCmd.AddCommand(runCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if runListUnits {
		return printUnits()
	}

	cfg, err := loadConfig(runFilters)
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	mode, err := importer.ParseMode(cfg.Migration.Mode)
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

	log.Infow("Starting migration",
		"config", GetConfigFile(),
		"mode", string(mode),
		"units", len(plan.Units),
	)

	ctx, cancel := database.SetupSignalHandler(context.Background(), func(sig os.Signal) {
		log.Warnw("Received shutdown signal - finishing current record...", "signal", sig.String())
	})
	defer cancel()

	dbManager := database.NewManager(&cfg.Source)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to legacy database: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("legacy database connection failed: %w", err)
	}

	// Acquire advisory lock so only one process writes into a target
	if mode.Writes() && !runForce {
		runLock := lock.NewRunLock(dbManager.DB, lockTarget(cfg))
		if err := runLock.AcquireOrFail(ctx, cfg.Migration.LockTimeout); err != nil {
			if errors.Is(err, lock.ErrLockTimeout) {
				return fmt.Errorf("a migration into %s is already running (use --force to override)", lockTarget(cfg))
			}
			return fmt.Errorf("failed to acquire run lock: %w", err)
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, _ = runLock.ReleaseLock(releaseCtx)
		}()
		log.Infow("Acquired run lock", "lock", runLock.LockName())
	} else if mode.Writes() {
		log.Warn("Skipping run lock acquisition (--force flag used)")
	}

	ic := &importer.Context{
		Legacy:            dbManager.Source(),
		Mode:              mode,
		Log:               log,
		ErrorDisplayLimit: cfg.Migration.ErrorDisplayLimit,
	}

	var rehydrator *rehydrate.Rehydrator
	if cfg.Target.BaseURL != "" {
		client, err := target.NewClient(cfg.Target, log)
		if err != nil {
			return fmt.Errorf("failed to create target client: %w", err)
		}
		ic.Tracker = tracker.New(client, cfg.Migration.MissCacheTTL)
		ic.Target = client
		rehydrator = rehydrate.New(client, ic.Tracker, cfg.Target.PageSize, log)
	} else {
		log.Warn("No target configured, resolving references from this run only")
		ic.Tracker = tracker.New(nil, 0)
	}

	if cfg.Samples.Enabled {
		store, err := samples.Open(cfg.Samples.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open sample store: %w", err)
		}
		ic.Samples = samples.NewCollector(store, cfg.Samples, log)
		defer ic.Samples.Close()
		log.Infow("Collecting samples", "path", store.Path())
	}

	orch, err := importer.NewOrchestrator(ic, rehydrator)
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	result, runErr := orch.Run(ctx, plan)
	if result != nil {
		printRunResult(result, cfg.Migration.ErrorDisplayLimit)
		printTracked(ic.Tracker)
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			log.Warn("Migration cancelled by user")
			return nil
		}
		return fmt.Errorf("migration stopped: %w", runErr)
	}
	if !result.Success {
		return fmt.Errorf("migration completed with errors")
	}
	return nil
}

// lockTarget names the run lock after the target host, so runs into
// different targets from one legacy server do not block each other.
func lockTarget(cfg *config.Config) string {
	if u, err := url.Parse(cfg.Target.BaseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return "default"
}
