// Package cleanup удаляет данные пользователя после события user.deleted.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/jukebox/internal/events"
)

// Queue очередь, из которой читаются события удаления.
const Queue = "jukebox.user-cleanup"

// Repository удаление содержимого пользователя.
type Repository interface {
	DeleteUserContent(ctx context.Context, userID string) (int64, error)
}

// Service обработчик событий удаления пользователей.
type Service struct {
	log  *slog.Logger
	repo Repository
}

func New(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

// Keys ключи маршрутизации, на которые подписывается сервис.
func (s *Service) Keys() []string {
	return []string{events.UserDeleted}
}

// Handle удаляет плейлисты пользователя. Остальные события пропускаются.
func (s *Service) Handle(ctx context.Context, e events.Event) error {
	const op = "services.cleanup.Handle"
	if e.Type != events.UserDeleted || e.UserID == "" {
		return nil
	}

	n, err := s.repo.DeleteUserContent(ctx, e.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user content removed",
		slog.String("op", op),
		slog.String("user_id", e.UserID),
		slog.Int64("playlists", n),
	)
	return nil
}
