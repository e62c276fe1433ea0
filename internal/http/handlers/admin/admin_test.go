package admin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/jukebox/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jukebox/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Block(ctx context.Context, actorID, userID string) error {
	return m.Called(ctx, actorID, userID).Error(0)
}

func (m *MockService) Unblock(ctx context.Context, actorID, userID string) error {
	return m.Called(ctx, actorID, userID).Error(0)
}

func (m *MockService) SetRole(ctx context.Context, actorID, userID, role string) error {
	return m.Called(ctx, actorID, userID, role).Error(0)
}

func (m *MockService) Delete(ctx context.Context, actorID, userID string) error {
	return m.Called(ctx, actorID, userID).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRequest(method, body, id string, authenticated bool) *http.Request {
	req := httptest.NewRequest(method, "/api/users/"+id, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if authenticated {
		ctx = middlewarectx.WithPrincipal(ctx, middlewarectx.Principal{UserID: "admin1", Role: models.RoleAdmin})
	}
	return req.WithContext(ctx)
}

func TestActionHandlers(t *testing.T) {
	logger := newNoopLogger()

	tests := []struct {
		name           string
		build          func(Service) http.Handler
		method         string
		setupMock      func(*MockService)
		authenticated  bool
		expectedStatus int
	}{
		{
			name:   "блокировка",
			build:  func(s Service) http.Handler { return NewBlock(logger, s) },
			method: http.MethodPatch,
			setupMock: func(m *MockService) {
				m.On("Block", mock.Anything, "admin1", "u1").Return(nil)
			},
			authenticated:  true,
			expectedStatus: http.StatusOK,
		},
		{
			name:   "разблокировка несуществующего",
			build:  func(s Service) http.Handler { return NewUnblock(logger, s) },
			method: http.MethodPatch,
			setupMock: func(m *MockService) {
				m.On("Unblock", mock.Anything, "admin1", "u1").Return(fmt.Errorf("repo: %w", models.ErrNotFound))
			},
			authenticated:  true,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "удаление самого себя",
			build:  func(s Service) http.Handler { return NewDelete(logger, s) },
			method: http.MethodDelete,
			setupMock: func(m *MockService) {
				m.On("Delete", mock.Anything, "admin1", "u1").Return(fmt.Errorf("admin: %w", models.ErrForbidden))
			},
			authenticated:  true,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "без аутентификации",
			build:          func(s Service) http.Handler { return NewBlock(logger, s) },
			method:         http.MethodPatch,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			w := httptest.NewRecorder()
			tt.build(svc).ServeHTTP(w, newRequest(tt.method, "", "u1", tt.authenticated))

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestSetRoleHandler(t *testing.T) {
	logger := newNoopLogger()

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "назначение администратора",
			body: `{"role":"admin"}`,
			setupMock: func(m *MockService) {
				m.On("SetRole", mock.Anything, "admin1", "u1", "admin").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"role":"admin"`,
		},
		{
			name:           "недопустимая роль",
			body:           `{"role":"owner"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Role must be one of: user admin`,
		},
		{
			name:           "некорректный JSON",
			body:           `role=admin`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			w := httptest.NewRecorder()
			NewSetRole(logger, svc).ServeHTTP(w, newRequest(http.MethodPatch, tt.body, "u1", true))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
