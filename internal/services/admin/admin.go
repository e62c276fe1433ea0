// Package admin модерация пользователей: блокировка, смена роли, удаление.
// Каждое действие публикует событие в брокер.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/jukebox/internal/events"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/models"
)

// Repository операции модерации над пользователями.
type Repository interface {
	SetBlocked(ctx context.Context, id string, blocked bool) error
	SetRole(ctx context.Context, id string, role models.Role) error
	DeleteUser(ctx context.Context, id string) error
}

// Service сервис администратора.
type Service struct {
	log    *slog.Logger
	repo   Repository
	events events.Publisher
	now    func() time.Time
}

func New(log *slog.Logger, repo Repository, pub events.Publisher) *Service {
	return &Service{
		log:    log,
		repo:   repo,
		events: pub,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Block блокирует пользователя. Администратор не может заблокировать себя.
func (s *Service) Block(ctx context.Context, actorID, userID string) error {
	const op = "services.admin.Block"
	if err := notSelf(op, actorID, userID); err != nil {
		return err
	}
	if err := s.repo.SetBlocked(ctx, userID, true); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.publish(ctx, events.UserBlocked, actorID, userID, nil)
	return nil
}

// Unblock снимает блокировку.
func (s *Service) Unblock(ctx context.Context, actorID, userID string) error {
	const op = "services.admin.Unblock"
	if err := s.repo.SetBlocked(ctx, userID, false); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.publish(ctx, events.UserUnblocked, actorID, userID, nil)
	return nil
}

// SetRole назначает роль. Допустимы только user и admin.
func (s *Service) SetRole(ctx context.Context, actorID, userID, role string) error {
	const op = "services.admin.SetRole"
	r, err := models.ParseRole(role)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if r != models.RoleAdmin {
		if err := notSelf(op, actorID, userID); err != nil {
			return err
		}
	}
	if err := s.repo.SetRole(ctx, userID, r); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.publish(ctx, events.UserRoleChanged, actorID, userID, map[string]string{"role": string(r)})
	return nil
}

// Delete удаляет пользователя.
func (s *Service) Delete(ctx context.Context, actorID, userID string) error {
	const op = "services.admin.Delete"
	if err := notSelf(op, actorID, userID); err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.publish(ctx, events.UserDeleted, actorID, userID, nil)
	return nil
}

func notSelf(op, actorID, userID string) error {
	if actorID == userID {
		return fmt.Errorf("%s: admin cannot apply this action to own account: %w", op, models.ErrForbidden)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, typ, actorID, userID string, data map[string]string) {
	s.log.Info("admin action",
		slog.String("type", typ),
		slog.String("actor_id", actorID),
		slog.String("user_id", userID),
	)
	if s.events == nil {
		return
	}
	e := events.Event{Type: typ, UserID: userID, ActorID: actorID, At: s.now(), Data: data}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Error("failed to publish event", slog.String("type", typ), sl.Err(err))
	}
}
