package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sqlsentry/sqlsentry/internal/config"
	"github.com/sqlsentry/sqlsentry/internal/dbmeta"
	"github.com/sqlsentry/sqlsentry/internal/engine"
	"github.com/sqlsentry/sqlsentry/internal/migration"
	"github.com/sqlsentry/sqlsentry/internal/modules"
	"github.com/sqlsentry/sqlsentry/internal/sqlparse"
)

// resolveEnvironment loads sqlsentry.toml and resolves the environment named
// by --env, letting --dialect override the configured dialect.
func resolveEnvironment() *config.ResolvedEnvironment {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	env, err := config.ResolveEnvironment(cfg, flagEnv)
	if err != nil {
		log.Fatalf("Failed to resolve environment: %v", err)
	}
	if flagDialect != "" {
		env.Dialect = parseDialectFlag(flagDialect)
	}
	return env
}

func parseDialectFlag(s string) sqlparse.Dialect {
	switch s {
	case "mysql":
		return sqlparse.DialectMySQL
	case "sqlite":
		return sqlparse.DialectSQLite
	case "postgresql", "postgres":
		return sqlparse.DialectPostgres
	default:
		log.Fatalf("Unknown dialect %q (expected postgresql, mysql, or sqlite)", s)
		return sqlparse.DialectPostgres
	}
}

// buildEngine constructs the engine for an environment, introspecting the
// database when a connection string is available. Introspection failures are
// not fatal; analysis degrades to running without table statistics.
func buildEngine(env *config.ResolvedEnvironment) *engine.Engine {
	opts := []engine.Option{
		engine.WithDialect(env.Dialect),
		engine.WithRegistry(engine.NewRegistry(modules.Defaults()...)),
	}

	if env.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		db, driver, err := dbmeta.Open(ctx, env.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not connect to database, analyzing without table statistics: %v\n", err)
		} else {
			defer func() { _ = db.Close() }()
			tables, err := dbmeta.Introspect(ctx, db, driver)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: introspection failed, analyzing without table statistics: %v\n", err)
			} else {
				opts = append(opts, engine.WithTableMetadata(tables))
			}
		}
	}

	return engine.New(opts...)
}

// loadMigrations reads the migration file or directory at path.
func loadMigrations(path string, dialect sqlparse.Dialect) []migration.File {
	info, err := os.Stat(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}

	if info.IsDir() {
		files, err := migration.Load(path, dialect)
		if err != nil {
			log.Fatalf("Failed to load migrations: %v", err)
		}
		if len(files) == 0 {
			log.Fatalf("No migration files found in %s", path)
		}
		return files
	}

	file, err := migration.Parse(path, dialect)
	if err != nil {
		log.Fatalf("Failed to parse migration: %v", err)
	}
	return []migration.File{file}
}
