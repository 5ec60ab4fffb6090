package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/travel-tracker/internal/apperror"
	"github.com/sakif/travel-tracker/internal/model"
	"github.com/sakif/travel-tracker/internal/repository"
)

// UserService creates, lists and deletes family members.
type UserService struct {
	repo   repository.UserRepository
	logger *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(repo repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger,
	}
}

// List returns all users ordered by id.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Create validates and stores a new user, returning its id.
//
// The name is trimmed and must be 1 to model.MaxUserNameLength characters;
// the color must be non-empty. A taken name yields apperror.ErrConflict.
func (s *UserService) Create(ctx context.Context, name, color string) (int64, error) {
	name = strings.TrimSpace(name)

	if name == "" || utf8.RuneCountInString(name) > model.MaxUserNameLength {
		return 0, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be 1 to %d characters", model.MaxUserNameLength))
	}
	if color == "" {
		return 0, apperror.ValidationFailed("color", "color is required")
	}

	id, err := s.repo.CreateUser(ctx, name, color)
	if err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create user",
				slog.String("name", name),
				slog.String("error", err.Error()),
			)
		}
		return 0, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created",
		slog.Int64("id", id),
		slog.String("name", name),
	)
	return id, nil
}

// Delete removes the user and their visits, then returns the users left.
func (s *UserService) Delete(ctx context.Context, id int64) ([]model.User, error) {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return nil, fmt.Errorf("deleting user %d: %w", id, err)
	}
	s.logger.Info("user deleted", slog.Int64("id", id))

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing remaining users: %w", err)
	}
	return users, nil
}
