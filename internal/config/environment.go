package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

const defaultEnvironmentName = "local"

// ResolvedEnvironment represents a fully-resolved environment with concrete values.
type ResolvedEnvironment struct {
	Name          string
	DatabaseURL   string
	Dialect       sqlparse.Dialect
	MigrationsDir string
	DotenvPath    string
	FromConfig    bool
	FromDotenv    bool
}

// ResolveEnvironment resolves a named environment into a connection string
// and dialect. Resolution order: sqlsentry.toml top-level values, the named
// [environments.<name>] block, then a .env.<name> file next to the config.
func ResolveEnvironment(config *Config, name string) (*ResolvedEnvironment, error) {
	envName := strings.TrimSpace(name)
	if envName == "" {
		if config != nil && config.DefaultEnvironment != "" {
			envName = config.DefaultEnvironment
		} else {
			envName = defaultEnvironmentName
		}
	}

	var (
		envConfig EnvironmentConfig
		envExists bool
	)
	if config != nil && config.Environments != nil {
		if cfg, ok := config.Environments[envName]; ok {
			envConfig = cfg
			envExists = true
		}
	}

	resolved := &ResolvedEnvironment{Name: envName, FromConfig: envExists}

	if config != nil {
		resolved.MigrationsDir = config.MigrationsDir
		if config.DatabaseURL != "" && envConfig.DatabaseURL == "" {
			envConfig.DatabaseURL = config.DatabaseURL
		}
		if config.Dialect != "" && envConfig.Dialect == "" {
			envConfig.Dialect = config.Dialect
		}
	}

	resolved.DatabaseURL = envConfig.DatabaseURL
	resolved.Dialect = parseDialect(envConfig.Dialect)

	baseDir := ""
	if config != nil {
		baseDir = config.ConfigDir()
	}
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = cwd
		}
	}
	resolved.DotenvPath = filepath.Join(baseDir, ".env."+envName)

	if info, err := os.Stat(resolved.DotenvPath); err == nil && !info.IsDir() {
		values, err := godotenv.Read(resolved.DotenvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolved.DotenvPath, err)
		}
		resolved.FromDotenv = true

		if value := values["DATABASE_URL"]; value != "" {
			resolved.DatabaseURL = value
		}
		if resolved.DatabaseURL == "" {
			if value := values["POSTGRES_URL"]; value != "" {
				resolved.DatabaseURL = value
			}
		}
		if resolved.DatabaseURL == "" {
			if value := values["SQLITE_DB_PATH"]; value != "" {
				resolved.DatabaseURL = value
			}
		}
		if resolved.DatabaseURL == "" {
			if value := values["LIBSQL_URL"]; value != "" {
				if authToken := values["LIBSQL_AUTH_TOKEN"]; authToken != "" {
					resolved.DatabaseURL = fmt.Sprintf("%s?authToken=%s", value, authToken)
				} else {
					resolved.DatabaseURL = value
				}
			}
		}

		if value := values["MIGRATIONS_DIR"]; value != "" {
			resolved.MigrationsDir = value
		}
		if envConfig.Dialect == "" {
			if value := values["SQL_DIALECT"]; value != "" {
				resolved.Dialect = parseDialect(value)
			}
		}
	}

	if resolved.MigrationsDir == "" {
		resolved.MigrationsDir = "migrations"
	}

	if config != nil && len(config.Environments) > 0 && !envExists && !resolved.FromDotenv {
		return nil, fmt.Errorf("environment %q not defined in sqlsentry.toml and %s not found", envName, resolved.DotenvPath)
	}

	return resolved, nil
}

// parseDialect maps config strings to a dialect, defaulting to postgres.
func parseDialect(s string) sqlparse.Dialect {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql", "mariadb":
		return sqlparse.DialectMySQL
	case "sqlite", "sqlite3", "libsql":
		return sqlparse.DialectSQLite
	default:
		return sqlparse.DialectPostgres
	}
}
