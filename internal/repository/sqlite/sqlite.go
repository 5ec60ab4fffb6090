// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so no C toolchain is
// needed. Use ":memory:" as the path for a throwaway database (tests do).
//
// The pattern is always:
//  1. sql.Open(driverName, dataSourceName) → creates a pool
//  2. db.QueryContext / db.ExecContext     → runs queries
//  3. rows.Scan(&field1, &field2)          → reads results into Go variables
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/travel-tracker/internal/repository"
	"github.com/sakif/travel-tracker/internal/repository/seed"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath, creates the schema and loads the
// country reference data.
//
// dbPath examples:
//   - "data/travel.db" → file-based database (persistent)
//   - ":memory:"       → in-memory database, gone on Close
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite serialises writers anyway. A single connection also keeps a
	// ":memory:" database from being split across pool connections.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	if err := db.seedCountries(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: seeding countries: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			name  TEXT NOT NULL UNIQUE CHECK (length(name) <= 15),
			color TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS countries (
			country_code TEXT PRIMARY KEY,
			country_name TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating countries table: %w", err)
	}

	// UNIQUE (user_id, country_code) is the conflict target of AddVisit.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS visited_countries (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			country_code TEXT NOT NULL REFERENCES countries(country_code),
			user_id      INTEGER NOT NULL REFERENCES users(id),
			UNIQUE (user_id, country_code)
		);
		CREATE INDEX IF NOT EXISTS idx_visited_countries_user_id ON visited_countries(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating visited_countries table: %w", err)
	}

	return nil
}

// seedCountries inserts the reference list; existing codes are left alone.
func (db *DB) seedCountries(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO countries (country_code, country_name) VALUES (?, ?)
		 ON CONFLICT (country_code) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range seed.Countries {
		if _, err := stmt.ExecContext(ctx, c.Code, c.Name); err != nil {
			return fmt.Errorf("inserting country %s: %w", c.Code, err)
		}
	}

	return tx.Commit()
}

// isUniqueViolation reports whether err is SQLite rejecting a duplicate value
// for a UNIQUE column.
func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	// Without extended result codes only the primary code is reported.
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(sqliteErr.Error(), "UNIQUE")
}
