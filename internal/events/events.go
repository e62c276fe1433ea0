// Package events публикует события жизненного цикла пользователей в RabbitMQ.
//
// Если брокер не настроен или недоступен при старте, используется Noop:
// события только пишутся в лог.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/jukebox/internal/config"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
)

// Типы событий, они же ключи маршрутизации.
const (
	UserRegistered  = "user.registered"
	UserBlocked     = "user.blocked"
	UserUnblocked   = "user.unblocked"
	UserRoleChanged = "user.role_changed"
	UserDeleted     = "user.deleted"
)

// Event событие над пользователем.
type Event struct {
	Type    string            `json:"type"`
	UserID  string            `json:"userId"`
	ActorID string            `json:"actorId,omitempty"`
	At      time.Time         `json:"at"`
	Data    map[string]string `json:"data,omitempty"`
}

// Publisher отправляет события.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop публикатор, который только логирует события.
type Noop struct {
	log *slog.Logger
}

func NewNoop(log *slog.Logger) *Noop {
	return &Noop{log: log}
}

func (n *Noop) Publish(_ context.Context, e Event) error {
	if n.log != nil {
		n.log.Debug("event dropped, broker disabled", slog.String("type", e.Type), slog.String("user_id", e.UserID))
	}
	return nil
}

func (n *Noop) Close() error { return nil }

// New подключается к брокеру по cfg. При пустом URL или ошибке подключения
// возвращает Noop, ошибка только логируется.
func New(cfg config.RabbitMQ, log *slog.Logger) Publisher {
	const op = "events.New"
	log = log.With(sl.Op(op))

	if cfg.URL == "" {
		log.Info("rabbitmq url is empty, events are disabled")
		return NewNoop(log)
	}

	conn, err := Connect(cfg.URL, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		log.Error("rabbitmq connection error, events are disabled", sl.Err(err))
		return NewNoop(log)
	}

	pub, err := NewAMQPPublisher(conn, cfg.Exchange)
	if err != nil {
		log.Error("failed to set up rabbitmq channel, events are disabled", sl.Err(err))
		_ = conn.Close()
		return NewNoop(log)
	}
	log.Info("connected to rabbitmq", slog.String("exchange", cfg.Exchange))
	return pub
}
