package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// A .env file next to the config (if any) is loaded first so that
// ${VAR} references can point at secrets kept out of the YAML.
func Load(configPath string) (*Config, error) {
	if err := LoadDotEnv(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := substituteEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from a dotenv file without overriding values
// already present in the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) error {
	cfg.Source.Host = expandEnvVar(cfg.Source.Host)
	cfg.Source.User = expandEnvVar(cfg.Source.User)
	cfg.Source.Password = expandEnvVar(cfg.Source.Password)
	cfg.Source.Database = expandEnvVar(cfg.Source.Database)

	cfg.Target.BaseURL = expandEnvVar(cfg.Target.BaseURL)
	cfg.Target.Token = expandEnvVar(cfg.Target.Token)

	cfg.Samples.DBPath = expandEnvVar(cfg.Samples.DBPath)

	cfg.Logging.File = expandEnvVar(cfg.Logging.File)

	if strings.Contains(cfg.Target.Token, "${") {
		return fmt.Errorf("target.token references an unset variable: %s", cfg.Target.Token)
	}
	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// CLIOverrides carries flag values that take precedence over the file.
type CLIOverrides struct {
	LogLevel  string
	LogFormat string
	LogFile   string
	Mode      string
	Only      []string
	StartAt   string
	StopAt    string
	SamplesDB string
	Samples   bool
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(o CLIOverrides) {
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}
	if o.LogFile != "" {
		c.Logging.File = o.LogFile
	}
	if o.Mode != "" {
		c.Migration.Mode = o.Mode
	}
	if len(o.Only) > 0 {
		c.Migration.Only = o.Only
	}
	if o.StartAt != "" {
		c.Migration.StartAt = o.StartAt
	}
	if o.StopAt != "" {
		c.Migration.StopAt = o.StopAt
	}
	if o.SamplesDB != "" {
		c.Samples.DBPath = o.SamplesDB
	}
	if o.Samples {
		c.Samples.Enabled = true
	}
	// sample-only without a store makes no sense
	if c.Migration.Mode == ModeSampleOnly {
		c.Samples.Enabled = true
	}
}
