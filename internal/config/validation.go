package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateDatabase("source", &c.Source)...)
	errors = append(errors, c.validateTarget()...)
	errors = append(errors, c.validateSamples()...)
	errors = append(errors, c.validateMigration()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateTarget() ValidationErrors {
	var errors ValidationErrors
	t := c.Target

	// a dry run never talks to the target
	if !c.Migration.DryRun() {
		if t.BaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "target.base_url",
				Message: "base_url is required unless mode is dry-run or sample-only",
			})
		} else if u, err := url.Parse(t.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "target.base_url",
				Message: "base_url must be an absolute http(s) URL",
			})
		}
	}

	if t.Timeout < 0 {
		errors = append(errors, ValidationError{Field: "target.timeout", Message: "timeout cannot be negative"})
	}
	if t.PageSize <= 0 {
		errors = append(errors, ValidationError{Field: "target.page_size", Message: "page_size must be positive"})
	}
	if t.RequestsPerSecond < 0 {
		errors = append(errors, ValidationError{Field: "target.requests_per_second", Message: "requests_per_second cannot be negative"})
	}
	if t.RequestsPerSecond > 0 && t.Burst <= 0 {
		errors = append(errors, ValidationError{Field: "target.burst", Message: "burst must be positive when throttling is enabled"})
	}
	if t.MaxRetries < 0 {
		errors = append(errors, ValidationError{Field: "target.max_retries", Message: "max_retries cannot be negative"})
	}
	if t.RetryBackoff < 0 {
		errors = append(errors, ValidationError{Field: "target.retry_backoff", Message: "retry_backoff cannot be negative"})
	}

	return errors
}

func (c *Config) validateSamples() ValidationErrors {
	var errors ValidationErrors
	s := c.Samples

	if s.Enabled && s.DBPath == "" {
		errors = append(errors, ValidationError{Field: "samples.db_path", Message: "db_path is required when samples are enabled"})
	}
	if s.SampleSize < 0 {
		errors = append(errors, ValidationError{Field: "samples.sample_size", Message: "sample_size cannot be negative"})
	}
	if s.SuccessRate < 0 || s.SuccessRate > 1 {
		errors = append(errors, ValidationError{Field: "samples.success_rate", Message: "success_rate must be between 0 and 1"})
	}

	return errors
}

func (c *Config) validateMigration() ValidationErrors {
	var errors ValidationErrors
	m := c.Migration

	validModes := map[string]bool{ModeNormal: true, ModeDryRun: true, ModeSampleOnly: true, "": true}
	if !validModes[m.Mode] {
		errors = append(errors, ValidationError{
			Field:   "migration.mode",
			Message: "mode must be 'normal', 'dry-run', or 'sample-only'",
		})
	}
	if m.ErrorDisplayLimit < 0 {
		errors = append(errors, ValidationError{Field: "migration.error_display_limit", Message: "error_display_limit cannot be negative"})
	}
	if m.LockTimeout < -1 {
		errors = append(errors, ValidationError{Field: "migration.lock_timeout", Message: "lock_timeout must be -1 (wait forever) or greater"})
	}
	if m.MissCacheTTL < 0 {
		errors = append(errors, ValidationError{Field: "migration.miss_cache_ttl", Message: "miss_cache_ttl cannot be negative"})
	}
	if len(m.Only) > 0 && (m.StartAt != "" || m.StopAt != "") {
		errors = append(errors, ValidationError{Field: "migration.only", Message: "only cannot be combined with start_at or stop_at"})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	validOutputs := map[string]bool{"stdout": true, "stderr": true, "": true}
	if !validOutputs[c.Logging.Output] {
		errors = append(errors, ValidationError{
			Field:   "logging.output",
			Message: "output must be 'stdout' or 'stderr'; use logging.file for a persistent log",
		})
	}

	return errors
}
