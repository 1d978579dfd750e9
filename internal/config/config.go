// Package config provides configuration structures and loading for legacymigrate.
package config

import "time"

// Config represents the complete application configuration.
type Config struct {
	Source    DatabaseConfig  `yaml:"source" mapstructure:"source"`
	Target    TargetConfig    `yaml:"target" mapstructure:"target"`
	Samples   SamplesConfig   `yaml:"samples" mapstructure:"samples"`
	Migration MigrationConfig `yaml:"migration" mapstructure:"migration"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// DatabaseConfig represents the legacy MySQL connection. The legacy data is
// spread over several schemas on one server; queries always qualify tables
// with their schema, so Database only selects the default schema.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// TargetConfig represents the target write API.
type TargetConfig struct {
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	Token             string        `yaml:"token" mapstructure:"token"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	PageSize          int           `yaml:"page_size" mapstructure:"page_size"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 0 disables throttling
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"` // retries on 429/5xx, 0 disables
	RetryBackoff      time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// SamplesConfig controls fixture mining.
type SamplesConfig struct {
	Enabled         bool     `yaml:"enabled" mapstructure:"enabled"`
	DBPath          string   `yaml:"db_path" mapstructure:"db_path"`
	SampleSize      int      `yaml:"sample_size" mapstructure:"sample_size"`   // per-category cap for success samples
	SuccessRate     float64  `yaml:"success_rate" mapstructure:"success_rate"` // probability of keeping a success sample
	FoundationTypes []string `yaml:"foundation_types" mapstructure:"foundation_types"`
	SourceDB        string   `yaml:"source_db" mapstructure:"source_db"`
}

// MigrationConfig controls which units run and how.
type MigrationConfig struct {
	Mode              string        `yaml:"mode" mapstructure:"mode"` // normal, dry-run, sample-only
	Only              []string      `yaml:"only" mapstructure:"only"`
	StartAt           string        `yaml:"start_at" mapstructure:"start_at"`
	StopAt            string        `yaml:"stop_at" mapstructure:"stop_at"`
	ErrorDisplayLimit int           `yaml:"error_display_limit" mapstructure:"error_display_limit"`
	LockTimeout       int           `yaml:"lock_timeout" mapstructure:"lock_timeout"` // seconds
	MissCacheTTL      time.Duration `yaml:"miss_cache_ttl" mapstructure:"miss_cache_ttl"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout or stderr
	File   string `yaml:"file" mapstructure:"file"`     // persistent debug log, optional
}

// Migration modes.
const (
	ModeNormal     = "normal"
	ModeDryRun     = "dry-run"
	ModeSampleOnly = "sample-only"
)

// DefaultFoundationTypes are always sampled in full.
var DefaultFoundationTypes = []string{"language", "language_translation", "country", "country_translation"}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Source: DatabaseConfig{
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Target: TargetConfig{
			Timeout:      30 * time.Second,
			PageSize:     100,
			Burst:        1,
			MaxRetries:   0,
			RetryBackoff: time.Second,
		},
		Samples: SamplesConfig{
			Enabled:         false,
			DBPath:          "legacy_samples.db",
			SampleSize:      20,
			SuccessRate:     0.2,
			FoundationTypes: append([]string(nil), DefaultFoundationTypes...),
			SourceDB:        "mwnf3",
		},
		Migration: MigrationConfig{
			Mode:              ModeNormal,
			ErrorDisplayLimit: 5,
			LockTimeout:       1,
			MissCacheTTL:      5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// DryRun reports whether no target writes may happen.
func (m MigrationConfig) DryRun() bool {
	return m.Mode == ModeDryRun || m.Mode == ModeSampleOnly
}
