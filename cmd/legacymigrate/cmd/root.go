package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/legacymigrate/internal/config"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile       string
	logLevel      string
	logFormat     string
	logFile       string
	migrationMode string
	samplesDB     string
	collect       bool
)

var rootCmd = &cobra.Command{
	Use:   "legacymigrate",
	Short: "Legacy museum database to inventory API migration",
	Long: `Migrates the legacy MWNF MySQL databases into the inventory management
API, one importer unit at a time in dependency order.

Features:
  - Idempotent re-runs keyed on backward-compatibility references
  - Resumable from any unit; earlier output is rehydrated from the target
  - Dry-run and sample-only modes that never write to the target
  - Sample mining of representative legacy rows into a local SQLite store`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Sprint("Error: ")+err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "legacymigrate.yaml",
		"Path to configuration file (a .env next to it is loaded first)")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"Append a debug-level JSON log to this file")

	rootCmd.PersistentFlags().StringVar(&migrationMode, "mode", "",
		"Override migration mode (normal, dry-run, sample-only)")

	// Samples
	rootCmd.PersistentFlags().StringVar(&samplesDB, "samples-db", "",
		"Override the sample store path")
	rootCmd.PersistentFlags().BoolVar(&collect, "collect-samples", false,
		"Collect samples during the run")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() config.CLIOverrides {
	return config.CLIOverrides{
		LogLevel:  logLevel,
		LogFormat: logFormat,
		LogFile:   logFile,
		Mode:      migrationMode,
		SamplesDB: samplesDB,
		Samples:   collect,
	}
}

// loadConfig reads the config file, applies flag overrides and validates.
func loadConfig(filters unitFilters) (*config.Config, error) {
	configFile := GetConfigFile()
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	overrides.Only = filters.only
	overrides.StartAt = filters.startAt
	overrides.StopAt = filters.stopAt
	cfg.ApplyOverrides(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
