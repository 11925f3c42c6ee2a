package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/report_approval_app/migrations"
	migrate "github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// RunMigrations applies every pending "up" migration for driverName to db.
// The caller owns db and closes it.
func RunMigrations(db *sql.DB, driverName string, logger *slog.Logger) error {
	src, err := iofs.New(migrations.FS, driverName)
	if err != nil {
		return fmt.Errorf("could not load %s migrations: %w", driverName, err)
	}

	var dbDriver migratedb.Driver
	switch driverName {
	case DriverPostgres:
		dbDriver, err = postgres.WithInstance(db, &postgres.Config{})
	case DriverSQLite:
		dbDriver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return fmt.Errorf("unsupported database driver %q", driverName)
	}
	if err != nil {
		return fmt.Errorf("could not create %s driver instance for migrations: %w", driverName, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, dbDriver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	// Closing the sqlite driver closes db, which would drop an in-memory
	// database, so only the postgres instance is closed here.
	if driverName == DriverPostgres {
		defer func() {
			sourceErr, dbErr := m.Close()
			if sourceErr != nil {
				logger.Error("Migration source error", slog.String("error", sourceErr.Error()))
			}
			if dbErr != nil {
				logger.Error("Migration database error", slog.String("error", dbErr.Error()))
			}
		}()
	} else {
		defer src.Close()
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.", slog.String("driver", driverName))
	} else {
		logger.Info("Database migrations applied successfully.", slog.String("driver", driverName))
	}
	return nil
}
