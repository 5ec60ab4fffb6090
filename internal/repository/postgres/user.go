package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/travel-tracker/internal/apperror"
	"github.com/sakif/travel-tracker/internal/model"
)

// ListUsers returns all users ordered by id.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, name, color FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.User, error) {
		var u model.User
		err := row.Scan(&u.ID, &u.Name, &u.Color)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning users: %w", err)
	}
	return users, nil
}

// CreateUser inserts a user and returns the generated id.
func (db *DB) CreateUser(ctx context.Context, name, color string) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx,
		`INSERT INTO users (name, color) VALUES ($1, $2) RETURNING id`,
		name, color,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperror.Conflict("user", "name", name)
		}
		return 0, fmt.Errorf("postgres: inserting user %q: %w", name, err)
	}
	return id, nil
}

// DeleteUser removes a user's visits and then the user in one transaction.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM visited_countries WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("deleting visits: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return fmt.Errorf("deleting user row: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("postgres: deleting user %d: %w", id, err)
	}
	return nil
}
