// Package users отдает список пользователей и публичные профили.
package users

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/jukebox/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Repository чтение пользователей.
type Repository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, f models.UserFilter) ([]*models.User, error)
}

// Service сервис списка пользователей.
type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// List возвращает публичные профили с учетом фильтра.
func (s *Service) List(ctx context.Context, f models.UserFilter) ([]models.PublicUser, error) {
	const op = "services.users.List"

	if f.Role != "" && !f.Role.Valid() {
		return nil, fmt.Errorf("%s: role %q: %w", op, f.Role, models.ErrInvalidInput)
	}
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	list, err := s.repo.ListUsers(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]models.PublicUser, 0, len(list))
	for _, u := range list {
		out = append(out, u.Public())
	}
	return out, nil
}

// Get возвращает публичный профиль пользователя.
func (s *Service) Get(ctx context.Context, id string) (*models.PublicUser, error) {
	const op = "services.users.Get"
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p := u.Public()
	return &p, nil
}
