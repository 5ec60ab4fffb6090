// Package service contains the business logic of the travel tracker.
//
//	Handler (HTTP layer)     → parses forms, renders pages, redirects
//	Service (business layer) → validates input, orchestrates repositories
//	Repository (data layer)  → reads/writes the database
//
// Services take plain values (ids, strings) and return domain errors from
// internal/apperror; they never see an *http.Request.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/travel-tracker/internal/apperror"
	"github.com/sakif/travel-tracker/internal/model"
	"github.com/sakif/travel-tracker/internal/repository"
	"github.com/sakif/travel-tracker/internal/session"
)

// PageState is everything the index page shows.
type PageState struct {
	Users       []model.User
	CurrentUser *model.User // nil when no user is selected or the id is stale
	Visited     []model.VisitedCountry
	Total       int
	Countries   string // comma-joined country codes
	Color       string
}

// TrackerService handles visited countries for the current user.
type TrackerService struct {
	users  repository.UserRepository
	visits repository.VisitRepository
	logger *slog.Logger
}

// NewTrackerService creates a TrackerService.
func NewTrackerService(users repository.UserRepository, visits repository.VisitRepository, logger *slog.Logger) *TrackerService {
	return &TrackerService{
		users:  users,
		visits: visits,
		logger: logger,
	}
}

// PageState assembles the index page for the current user.
//
// With no current user the visit query is skipped. A stale id, one whose user
// no longer exists, matches no visits. Either way the page shows zero visits
// in the default color.
func (s *TrackerService) PageState(ctx context.Context, current session.State) (*PageState, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	state := &PageState{
		Users:   users,
		Visited: []model.VisitedCountry{},
		Color:   model.DefaultColor,
	}

	if !current.Valid {
		return state, nil
	}

	for i := range users {
		if users[i].ID == current.UserID {
			state.CurrentUser = &users[i]
			state.Color = users[i].Color
			break
		}
	}

	visited, err := s.visits.ListVisited(ctx, current.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing visited countries: %w", err)
	}
	state.Visited = visited
	state.Total = len(visited)
	state.Countries = model.JoinCodes(visited)

	return state, nil
}

// AddCountry looks up the first country whose name contains input, ignoring
// case, and records it as visited by userID. It returns the country code.
//
// Unknown names yield apperror.ErrNotFound. Adding a country twice is not an
// error.
func (s *TrackerService) AddCountry(ctx context.Context, userID int64, input string) (string, error) {
	fragment := strings.ToLower(strings.TrimSpace(input))
	if fragment == "" {
		return "", apperror.ValidationFailed("country", "country name is required")
	}

	codes, err := s.visits.FindCountryCodes(ctx, fragment)
	if err != nil {
		return "", fmt.Errorf("finding country %q: %w", fragment, err)
	}
	if len(codes) == 0 {
		return "", apperror.NotFound("country", input)
	}

	code := codes[0]
	if err := s.visits.AddVisit(ctx, code, userID); err != nil {
		s.logger.Error("failed to add visit",
			slog.String("country", code),
			slog.Int64("userID", userID),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("adding visit: %w", err)
	}

	s.logger.Info("country added",
		slog.String("country", code),
		slog.Int64("userID", userID),
	)
	return code, nil
}

// DeleteCountry removes visit visitID if userID owns it.
func (s *TrackerService) DeleteCountry(ctx context.Context, visitID, userID int64) error {
	if err := s.visits.DeleteVisit(ctx, visitID, userID); err != nil {
		return fmt.Errorf("deleting visit: %w", err)
	}
	return nil
}
