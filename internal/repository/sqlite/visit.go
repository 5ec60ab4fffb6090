package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/travel-tracker/internal/model"
	"github.com/sakif/travel-tracker/internal/repository"
)

// ListVisited returns the user's visits joined with the country names,
// in visit insertion order.
func (db *DB) ListVisited(ctx context.Context, userID int64) ([]model.VisitedCountry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT vc.id, vc.country_code, c.country_name
		 FROM visited_countries vc
		 JOIN countries c ON vc.country_code = c.country_code
		 WHERE vc.user_id = ?
		 ORDER BY vc.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing visits of user %d: %w", userID, err)
	}
	defer rows.Close()

	visits := []model.VisitedCountry{}
	for rows.Next() {
		var v model.VisitedCountry
		if err := rows.Scan(&v.ID, &v.CountryCode, &v.CountryName); err != nil {
			return nil, fmt.Errorf("sqlite: scanning visit row: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating visits: %w", err)
	}

	return visits, nil
}

// FindCountryCodes returns codes of countries whose name contains fragment,
// ignoring case. fragment is expected in lower case.
func (db *DB) FindCountryCodes(ctx context.Context, fragment string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT country_code FROM countries
		 WHERE LOWER(country_name) LIKE ? ESCAPE '\'
		 ORDER BY rowid`,
		repository.ContainsPattern(fragment),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching countries for %q: %w", fragment, err)
	}
	defer rows.Close()

	codes := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("sqlite: scanning country code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating countries: %w", err)
	}

	return codes, nil
}

// AddVisit records that userID visited countryCode. A repeat is ignored.
func (db *DB) AddVisit(ctx context.Context, countryCode string, userID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO visited_countries (country_code, user_id) VALUES (?, ?)
		 ON CONFLICT (user_id, country_code) DO NOTHING`,
		countryCode, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding visit %s for user %d: %w", countryCode, userID, err)
	}
	return nil
}

// DeleteVisit removes visit id when it is owned by userID. Any other id is
// left untouched and no error is reported.
func (db *DB) DeleteVisit(ctx context.Context, id, userID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM visited_countries WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting visit %d of user %d: %w", id, userID, err)
	}
	return nil
}
