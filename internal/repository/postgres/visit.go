package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sakif/travel-tracker/internal/model"
	"github.com/sakif/travel-tracker/internal/repository"
)

// ListVisited returns the user's visits joined with the country names.
func (db *DB) ListVisited(ctx context.Context, userID int64) ([]model.VisitedCountry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT vc.id, vc.country_code, c.country_name
		 FROM visited_countries vc
		 JOIN countries c ON vc.country_code = c.country_code
		 WHERE vc.user_id = $1
		 ORDER BY vc.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing visits of user %d: %w", userID, err)
	}

	visits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.VisitedCountry, error) {
		var v model.VisitedCountry
		err := row.Scan(&v.ID, &v.CountryCode, &v.CountryName)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning visits: %w", err)
	}
	return visits, nil
}

// FindCountryCodes returns codes of countries whose name contains fragment,
// ignoring case. Matches come back in table order.
func (db *DB) FindCountryCodes(ctx context.Context, fragment string) ([]string, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT country_code FROM countries
		 WHERE LOWER(country_name) LIKE $1 ESCAPE '\'`,
		repository.ContainsPattern(fragment),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: searching countries for %q: %w", fragment, err)
	}

	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: scanning country codes: %w", err)
	}
	return codes, nil
}

// AddVisit records that userID visited countryCode. A repeat is ignored.
func (db *DB) AddVisit(ctx context.Context, countryCode string, userID int64) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO visited_countries (country_code, user_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		countryCode, userID,
	)
	if err != nil {
		return fmt.Errorf("postgres: adding visit %s for user %d: %w", countryCode, userID, err)
	}
	return nil
}

// DeleteVisit removes visit id when it is owned by userID.
func (db *DB) DeleteVisit(ctx context.Context, id, userID int64) error {
	_, err := db.pool.Exec(ctx,
		`DELETE FROM visited_countries WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("postgres: deleting visit %d of user %d: %w", id, userID, err)
	}
	return nil
}
