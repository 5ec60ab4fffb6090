package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/travel-tracker/internal/apperror"
	"github.com/sakif/travel-tracker/internal/model"
)

// ListUsers returns all users ordered by id.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, color FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Color); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// CreateUser inserts a user and returns the generated id.
// A taken name comes back as apperror.Conflict.
func (db *DB) CreateUser(ctx context.Context, name, color string) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (name, color) VALUES (?, ?)`,
		name, color,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperror.Conflict("user", "name", name)
		}
		return 0, fmt.Errorf("sqlite: inserting user %q: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	return id, nil
}

// DeleteUser removes a user and their visits in one transaction, so a
// failure never leaves the user without visits or the visits without a user.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete of user %d: %w", id, err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM visited_countries WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting visits of user %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete of user %d: %w", id, err)
	}
	return nil
}
