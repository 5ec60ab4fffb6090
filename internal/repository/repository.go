// Package repository declares the storage contracts the service layer depends
// on. Implementations live in the sqlite and postgres subpackages; both must
// behave identically for every method below.
package repository

import (
	"context"

	"github.com/sakif/travel-tracker/internal/model"
)

// UserRepository reads and writes family members.
type UserRepository interface {
	// ListUsers returns every user ordered by id ascending.
	ListUsers(ctx context.Context) ([]model.User, error)

	// CreateUser inserts a user and returns the new id. A name that already
	// exists yields an error wrapping apperror.ErrConflict.
	CreateUser(ctx context.Context, name, color string) (int64, error)

	// DeleteUser removes the user's visits and then the user, atomically.
	// Deleting a missing id is not an error.
	DeleteUser(ctx context.Context, id int64) error
}

// VisitRepository reads country reference data and per-user visits.
type VisitRepository interface {
	// ListVisited returns the visits owned by userID joined with the country
	// names. An unknown userID yields an empty slice.
	ListVisited(ctx context.Context, userID int64) ([]model.VisitedCountry, error)

	// FindCountryCodes returns the codes of countries whose lowercased name
	// contains fragment. The fragment must already be lowercased.
	FindCountryCodes(ctx context.Context, fragment string) ([]string, error)

	// AddVisit records a visit. Recording the same pair twice is a no-op.
	AddVisit(ctx context.Context, countryCode string, userID int64) error

	// DeleteVisit removes visit id only when it belongs to userID.
	DeleteVisit(ctx context.Context, id, userID int64) error
}

// Store is a complete storage backend as opened by the server.
type Store interface {
	UserRepository
	VisitRepository
	Ping(ctx context.Context) error
	Close() error
}
