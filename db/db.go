package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/atrium-app/atrium/domain"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Repository provides a centralized structure for local store operations, embedding the
// database connection. It acts as a receiver for methods that implement the various
// repository interfaces defined in the domain package.
type Repository struct {
	dbConn *sqlx.DB // dbConn is the active database connection pool.
}

// NewStoreRepo initializes a new Repository with the given sqlx.DB database connection.
func NewStoreRepo(db *sqlx.DB) *Repository {
	return &Repository{
		dbConn: db,
	}
}

// Close terminates the database connection.
// It is critical to call this to free up database resources.
func (repo *Repository) Close() error {
	err := repo.dbConn.Close()
	if err != nil {
		return fmt.Errorf("closing repo : %w", err)
	}
	return nil
}

// New establishes a new connection to a SQLite database file and applies all pending
// migrations, creating or upgrading the schema as needed. Opening is idempotent: an
// already-migrated database passes through unchanged.
//
// The `name` parameter should be the file path for the SQLite database.
//
// Any failure to open or migrate wraps domain.ErrStorageUnavailable so callers can
// degrade to network-only operation: the store is best-effort, never system-of-record.
func New(name string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", fmt.Sprintf("%s?_journal=WAL&_timeout=5000&_fk=true", name))
	if err != nil {
		return nil, fmt.Errorf("connecting to db : %w", errors.Join(domain.ErrStorageUnavailable, err))
	}

	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", errors.Join(domain.ErrStorageUnavailable, err))
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting dialect for migrations : %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migration : %w", errors.Join(domain.ErrStorageUnavailable, err))
	}
	return db, nil
}
