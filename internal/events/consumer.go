package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
)

const (
	// maxInFlight число событий, обрабатываемых одновременно одним потребителем.
	maxInFlight = 10
	// retryDelay пауза перед возвратом сообщения в очередь после ошибки обработчика.
	retryDelay = 5 * time.Second
	// deadSuffix суффикс очереди для отброшенных сообщений.
	deadSuffix = ".dead"
)

// Handler обработчик события из очереди. Ошибка возвращает сообщение в очередь.
type Handler func(ctx context.Context, e Event) error

// Subscriber подписка на события. Реализуется только AMQPPublisher:
// без брокера подписываться не на что.
type Subscriber interface {
	Subscribe(ctx context.Context, log *slog.Logger, queue string, keys []string, h Handler) error
}

// Subscribe объявляет долговечную очередь, привязывает ее к ключам
// маршрутизации и обрабатывает сообщения до отмены ctx. Отброшенные
// сообщения попадают в очередь <queue>.dead.
func (p *AMQPPublisher) Subscribe(ctx context.Context, log *slog.Logger, queue string, keys []string, h Handler) error {
	const op = "events.Subscribe"

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(maxInFlight, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := ch.QueueDeclare(queue+deadSuffix, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queue + deadSuffix,
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		_ = ch.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, key := range keys {
		if err := ch.QueueBind(queue, key, p.exchange, false, nil); err != nil {
			_ = ch.Close()
			return fmt.Errorf("%s: bind %q: %w", op, key, err)
		}
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(sl.Op(op), slog.String("queue", queue))
	go func() {
		defer ch.Close()
		consume(ctx, log, deliveries, h, retryDelay)
	}()
	return nil
}

func consume(ctx context.Context, log *slog.Logger, deliveries <-chan amqp.Delivery, h Handler, delay time.Duration) {
	sem := make(chan struct{}, maxInFlight)
	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				handleDelivery(ctx, log, d, h, delay)
			}(d)
		case <-ctx.Done():
			return
		}
	}
}

// handleDelivery подтверждает обработанное сообщение. Нечитаемое сообщение
// уходит в dead-очередь. После ошибки обработчика сообщение возвращается
// в очередь не раньше чем через delay, занимая на это время слот обработки.
func handleDelivery(ctx context.Context, log *slog.Logger, d amqp.Delivery, h Handler, delay time.Duration) {
	var e Event
	if err := json.Unmarshal(d.Body, &e); err != nil {
		log.Error("malformed event dropped", sl.Err(err))
		if err := d.Nack(false, false); err != nil {
			log.Error("failed to nack message", sl.Err(err))
		}
		return
	}

	if err := h(ctx, e); err != nil {
		log.Error("event handler failed, retrying later",
			slog.String("type", e.Type),
			slog.String("user_id", e.UserID),
			slog.Duration("delay", delay),
			sl.Err(err),
		)
		wait(ctx, delay)
		if err := d.Nack(false, true); err != nil {
			log.Error("failed to nack message", sl.Err(err))
		}
		return
	}
	if err := d.Ack(false); err != nil {
		log.Error("failed to ack message", sl.Err(err))
	}
}

// wait ждет d или отмены ctx.
func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
