package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/allisson/envoy-gateway/internal/config"
)

// RunMigrations applies the boot store schema for the SQL boot store drivers. Driver must
// be "postgres" or "mysql"; the docstore driver needs no schema.
func RunMigrations(logger *slog.Logger, driver, connectionString string) error {
	logger.Info("running database migrations", slog.String("driver", driver))

	var migrationsPath string
	switch driver {
	case config.BootStorePostgres:
		migrationsPath = "file://migrations/postgresql"
	case config.BootStoreMySQL:
		migrationsPath = "file://migrations/mysql"
		connectionString = "mysql://" + connectionString
	default:
		return fmt.Errorf("failed to create migrate instance: boot store driver %q has no migrations", driver)
	}

	m, err := migrate.New(migrationsPath, connectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}
