package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// InMemorySQLite is the path that selects a private in-memory database.
const InMemorySQLite = ":memory:"

// sqliteParams enables foreign keys (for ON DELETE CASCADE), waits on a busy
// database instead of failing, and makes every transaction take the write
// lock on BEGIN so a locked read cannot be upgraded into a deadlock.
const sqliteParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

// OpenSQLite opens a SQLite database at path using the pure-Go driver.
// The in-memory database lives on a single connection, so it is limited to
// one open connection that is never recycled.
func OpenSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	inMemory := path == InMemorySQLite
	dsn := InMemorySQLite + "?" + sqliteParams
	if !inMemory {
		dsn = filepath.Clean(path) + "?" + sqliteParams + "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if inMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	slog.Info("Opened SQLite database.", slog.String("path", path))
	return db, nil
}
