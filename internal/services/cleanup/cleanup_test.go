package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/jukebox/internal/events"
)

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) DeleteUserContent(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func newService(repo Repository) *Service {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), repo)
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name      string
		event     events.Event
		setupMock func(*RepoMock)
		wantErr   bool
	}{
		{
			name:  "удаление пользователя",
			event: events.Event{Type: events.UserDeleted, UserID: "u1"},
			setupMock: func(m *RepoMock) {
				m.On("DeleteUserContent", mock.Anything, "u1").Return(int64(3), nil)
			},
		},
		{
			name:      "другое событие",
			event:     events.Event{Type: events.UserBlocked, UserID: "u1"},
			setupMock: func(_ *RepoMock) {},
		},
		{
			name:      "без пользователя",
			event:     events.Event{Type: events.UserDeleted},
			setupMock: func(_ *RepoMock) {},
		},
		{
			name:  "ошибка хранилища",
			event: events.Event{Type: events.UserDeleted, UserID: "u1"},
			setupMock: func(m *RepoMock) {
				m.On("DeleteUserContent", mock.Anything, "u1").Return(int64(0), errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMock(repo)

			err := newService(repo).Handle(context.Background(), tt.event)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{events.UserDeleted}, newService(new(RepoMock)).Keys())
}
