// Package sqlstore is a RecordStore on PostgreSQL or SQLite. Records live in
// one table as JSON with a side table of per-field values for filtering.
package sqlstore

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"receiptai/internal/config"
)

//go:embed migrations
var migrationsFS embed.FS

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the configured database. Driver "postgres" uses pgx and
// "sqlite" uses the pure Go SQLite driver.
func Open(cfg *config.DBConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := sqlx.Connect("pgx", cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		db.SetMaxOpenConns(cfg.MaxOpen)
		db.SetMaxIdleConns(cfg.MaxIdle)
		return db, nil
	case "sqlite":
		db, err := sqlx.Connect("sqlite", cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("opening sqlite %q: %w", cfg.Path, err)
		}
		// SQLite serializes writers, and every connection to an in-memory
		// database sees a different database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
}

// NewMigrator returns a migrate instance over the embedded migrations for
// the dialect of db. Closing it closes db.
func NewMigrator(db *sqlx.DB) (*migrate.Migrate, error) {
	dialect := Dialect(db)
	src, err := iofs.New(migrationsFS, "migrations/"+dialect)
	if err != nil {
		return nil, fmt.Errorf("loading %s migrations: %w", dialect, err)
	}

	var drv database.Driver
	switch dialect {
	case "postgres":
		drv, err = postgres.WithInstance(db.DB, &postgres.Config{})
	case "sqlite":
		drv, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s migration driver: %w", dialect, err)
	}
	return migrate.NewWithInstance("iofs", src, dialect, drv)
}

// Migrate applies all pending migrations and leaves db open.
func Migrate(db *sqlx.DB) error {
	m, err := NewMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Dialect maps the driver name of db to a migrations directory.
func Dialect(db *sqlx.DB) string {
	if strings.HasPrefix(db.DriverName(), "sqlite") {
		return "sqlite"
	}
	return "postgres"
}
