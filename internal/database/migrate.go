package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres migrate driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file migration source
)

// DefaultMigrationsPath is the file source for schema migrations.
const DefaultMigrationsPath = "file://migrations"

// MigrateURL constructs the PostgreSQL URL golang-migrate expects.
func MigrateURL(cfg *Config) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)
}

// MigrateUp applies all pending migrations. ErrNoChange is not an error.
func MigrateUp(cfg *Config, sourcePath string) error {
	return runMigration(cfg, sourcePath, func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateDown rolls back all migrations. ErrNoChange is not an error.
func MigrateDown(cfg *Config, sourcePath string) error {
	return runMigration(cfg, sourcePath, func(m *migrate.Migrate) error { return m.Down() })
}

func runMigration(cfg *Config, sourcePath string, fn func(*migrate.Migrate) error) error {
	if sourcePath == "" {
		sourcePath = DefaultMigrationsPath
	}

	m, newErr := migrate.New(sourcePath, MigrateURL(cfg))
	if newErr != nil {
		return fmt.Errorf("create migrate instance: %w", newErr)
	}
	defer func() { _, _ = m.Close() }()

	if runErr := fn(m); runErr != nil && !errors.Is(runErr, migrate.ErrNoChange) {
		return fmt.Errorf("run migration: %w", runErr)
	}

	return nil
}
