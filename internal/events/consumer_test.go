package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAcknowledger запоминает ответ потребителя на сообщение.
type fakeAcknowledger struct {
	mu      sync.Mutex
	acked   int
	nacked  int
	requeue bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked++
	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked++
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(uint64, bool) error { return nil }

func TestHandleDelivery(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		handlerErr  error
		wantAcked   int
		wantNacked  int
		wantRequeue bool
	}{
		{
			name:      "событие обработано",
			body:      `{"type":"user.deleted","userId":"u1"}`,
			wantAcked: 1,
		},
		{
			name:        "ошибка обработчика",
			body:        `{"type":"user.deleted","userId":"u1"}`,
			handlerErr:  errors.New("db down"),
			wantNacked:  1,
			wantRequeue: true,
		},
		{
			name:       "нечитаемое сообщение",
			body:       `not json`,
			wantNacked: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			d := amqp.Delivery{Acknowledger: ack, Body: []byte(tt.body)}

			handleDelivery(context.Background(), newNoopLogger(), d, func(_ context.Context, e Event) error {
				assert.Equal(t, UserDeleted, e.Type)
				return tt.handlerErr
			}, 0)

			assert.Equal(t, tt.wantAcked, ack.acked)
			assert.Equal(t, tt.wantNacked, ack.nacked)
			assert.Equal(t, tt.wantRequeue, ack.requeue)
		})
	}
}

func TestHandleDelivery_RequeueIsDelayed(t *testing.T) {
	ack := &fakeAcknowledger{}
	d := amqp.Delivery{Acknowledger: ack, Body: []byte(`{"type":"user.deleted","userId":"u1"}`)}
	failing := func(context.Context, Event) error { return errors.New("db down") }

	start := time.Now()
	handleDelivery(context.Background(), newNoopLogger(), d, failing, 100*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeue)

	// при остановке сообщение возвращается без ожидания
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ack = &fakeAcknowledger{}
	d.Acknowledger = ack
	start = time.Now()
	handleDelivery(ctx, newNoopLogger(), d, failing, time.Hour)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeue)
}

func TestConsume_StopsWhenChannelClosed(t *testing.T) {
	deliveries := make(chan amqp.Delivery, 2)
	ack := &fakeAcknowledger{}
	var mu sync.Mutex
	var got []string

	for _, id := range []string{"u1", "u2"} {
		deliveries <- amqp.Delivery{Acknowledger: ack, Body: []byte(`{"type":"user.deleted","userId":"` + id + `"}`)}
	}
	close(deliveries)

	done := make(chan struct{})
	go func() {
		consume(context.Background(), newNoopLogger(), deliveries, func(_ context.Context, e Event) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, e.UserID)
			return nil
		}, 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consume did not return after channel close")
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"u1", "u2"}, got)
}
