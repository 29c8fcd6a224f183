// Package config loads sqlsentry.toml and resolves per-environment
// connection settings, with .env files layered on top.
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// EnvironmentConfig describes a single named environment from sqlsentry.toml.
type EnvironmentConfig struct {
	DatabaseURL string `toml:"database_url"`
	Dialect     string `toml:"dialect"`
}

// Config is the parsed sqlsentry.toml.
type Config struct {
	MigrationsDir      string                       `toml:"migrations_dir"`
	Dialect            string                       `toml:"dialect"`
	DatabaseURL        string                       `toml:"database_url"`
	DefaultEnvironment string                       `toml:"default_environment"`
	LargeTableRows     int64                        `toml:"large_table_rows"`
	LockTimeoutSeconds int                          `toml:"lock_timeout_seconds"`
	EnabledModules     []string                     `toml:"enabled_modules"`
	Environments       map[string]EnvironmentConfig `toml:"environments"`
	ConfigFilePath     string                       `toml:"-"`
}

// LoadConfig walks up from the working directory looking for sqlsentry.toml,
// stopping at a project root marker. A missing file is not an error; the
// zero Config means "defaults everywhere".
func LoadConfig() (*Config, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	dir := startDir
	for {
		configPath := filepath.Join(dir, "sqlsentry.toml")
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, err
			}

			var config Config
			if err := toml.Unmarshal(data, &config); err != nil {
				return nil, err
			}

			config.ConfigFilePath = configPath
			return &config, nil
		}

		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return &Config{}, nil
}

// ConfigDir returns the directory holding the loaded config file, or empty
// when no file was found.
func (c *Config) ConfigDir() string {
	if c == nil || c.ConfigFilePath == "" {
		return ""
	}
	return filepath.Dir(c.ConfigFilePath)
}

// isProjectRoot checks if the directory is a project root based on common markers
func isProjectRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil {
		return true
	}
	return false
}
