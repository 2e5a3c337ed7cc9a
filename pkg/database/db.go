package database

import (
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options selects and configures the relational store.
type Options struct {
	Driver     string
	DSN        string
	SQLitePath string
	LogLevel   logger.LogLevel
}

// Open connects to the configured store. A failure here is fatal for the caller:
// no request can be served without a database handle.
func Open(opts Options) (*gorm.DB, error) {
	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}

	cfg := &gorm.Config{
		TranslateError: true,
		Logger: logger.New(
			stdlog.New(os.Stdout, "", stdlog.LstdFlags),
			logger.Config{
				SlowThreshold:             1500 * time.Millisecond,
				LogLevel:                  level,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	}

	switch opts.Driver {
	case DriverSQLite:
		return openSQLite(opts.SQLitePath, cfg)
	case DriverPostgres, "":
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres dsn is empty")
		}
		db, err := gorm.Open(postgres.Open(opts.DSN), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

func openSQLite(path string, cfg *gorm.Config) (*gorm.DB, error) {
	if path == "" {
		path = "library.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", path)
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite serializes writers; a single connection keeps transactions from
	// tripping over SQLITE_BUSY.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// PostgresDSN builds a key/value DSN from discrete settings.
func PostgresDSN(host, user, password, name, port, sslMode string) string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host, user, password, name, port, sslMode,
	)
}

// ForUpdate adds a row lock on dialects that support it. SQLite already
// serializes writers, so the clause is skipped there.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == DriverPostgres {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
