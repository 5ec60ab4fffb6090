// Package postgres implements the repository interfaces on PostgreSQL using a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sakif/travel-tracker/internal/repository"
	"github.com/sakif/travel-tracker/internal/repository/seed"
)

// uniqueViolation is the SQLSTATE Postgres reports for a duplicate key.
const uniqueViolation = "23505"

var _ repository.Store = (*DB)(nil)

// DB implements repository.Store on a pgxpool.Pool.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to the database at dsn, creates the schema and loads the
// country reference data.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{pool: pool}

	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	if err := db.seedCountries(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: seeding countries: %w", err)
	}

	return db, nil
}

// Close releases every pooled connection.
func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id    SERIAL PRIMARY KEY,
		name  VARCHAR(15) NOT NULL UNIQUE,
		color VARCHAR(32) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS countries (
		country_code CHAR(2) PRIMARY KEY,
		country_name VARCHAR(100) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS visited_countries (
		id           SERIAL PRIMARY KEY,
		country_code CHAR(2) NOT NULL REFERENCES countries(country_code),
		user_id      INTEGER NOT NULL REFERENCES users(id),
		UNIQUE (user_id, country_code)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visited_countries_user_id ON visited_countries(user_id)`,
}

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// seedCountries sends the whole reference list as one batch.
func (db *DB) seedCountries(ctx context.Context) error {
	batch := &pgx.Batch{}
	for _, c := range seed.Countries {
		batch.Queue(
			`INSERT INTO countries (country_code, country_name) VALUES ($1, $2)
			 ON CONFLICT (country_code) DO NOTHING`,
			c.Code, c.Name,
		)
	}
	return db.pool.SendBatch(ctx, batch).Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
