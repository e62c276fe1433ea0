package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/jukebox/internal/config"
	"github.com/magabrotheeeer/jukebox/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jukebox/internal/models"
	authservice "github.com/magabrotheeeer/jukebox/internal/services/auth"
	"github.com/magabrotheeeer/jukebox/internal/session"
)

// MockService реализует интерфейс auth.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, in authservice.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Login(ctx context.Context, identifier, password string) (string, *models.User, error) {
	args := m.Called(ctx, identifier, password)
	if res := args.Get(1); res != nil {
		return args.String(0), res.(*models.User), args.Error(2)
	}
	return args.String(0), nil, args.Error(2)
}

func (m *MockService) Me(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) UpdateProfile(ctx context.Context, userID string, p models.Profile) (*models.User, error) {
	args := m.Called(ctx, userID, p)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) SpotifyLogin(ctx context.Context, code, sessionUserID string) (string, *models.User, error) {
	args := m.Called(ctx, code, sessionUserID)
	if res := args.Get(1); res != nil {
		return args.String(0), res.(*models.User), args.Error(2)
	}
	return args.String(0), nil, args.Error(2)
}

type fakeAuthorizer struct{}

func (fakeAuthorizer) AuthCodeURL(state string) string {
	return "https://accounts.spotify.com/authorize?state=" + state
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager() *session.Manager {
	return session.NewManager(newNoopLogger(), session.NewMemoryStore(), config.Session{Secret: "s", TTL: time.Hour})
}

func withSession(t *testing.T, r *http.Request, m *session.Manager) (*http.Request, *session.Session) {
	t.Helper()
	s, err := m.Start(r.Context(), httptest.NewRecorder(), nil)
	require.NoError(t, err)
	return r.WithContext(session.WithSession(r.Context(), s)), s
}

func TestRegisterHandler(t *testing.T) {
	logger := newNoopLogger()

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешная регистрация",
			body: `{"username":"alice","email":"alice@example.com","password":"secret1","gender":"female"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, mock.MatchedBy(func(in authservice.RegisterInput) bool {
					return in.Username == "alice" && in.Gender == "female"
				})).Return(&models.User{ID: "u1", Username: "alice", Email: "alice@example.com", Role: models.RoleUser}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"username":"alice"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"username":`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "короткий пароль",
			body:           `{"username":"alice","email":"alice@example.com","password":"123"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Password is too short`,
		},
		{
			name:           "некорректный email",
			body:           `{"username":"alice","email":"alice","password":"secret1"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Email must be a valid email`,
		},
		{
			name: "email уже занят",
			body: `{"username":"alice","email":"alice@example.com","password":"secret1"}`,
			setupMock: func(m *MockService) {
				m.On("Register", mock.Anything, mock.Anything).Return(nil, models.ErrConflict)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"error":"already exists"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			NewRegister(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			assert.NotContains(t, w.Body.String(), "password")
			svc.AssertExpectations(t)
		})
	}
}

func TestLoginHandler(t *testing.T) {
	logger := newNoopLogger()

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
		wantSessionID  string
	}{
		{
			name: "вход по username",
			body: `{"username":"alice","password":"secret1"}`,
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "alice", "secret1").Return("tok", &models.User{ID: "u1", Username: "alice"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"token":"tok"`,
			wantSessionID:  "u1",
		},
		{
			name: "вход по email",
			body: `{"email":"alice@example.com","password":"secret1"}`,
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "alice@example.com", "secret1").Return("tok", &models.User{ID: "u1"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"token":"tok"`,
			wantSessionID:  "u1",
		},
		{
			name:           "нет идентификатора",
			body:           `{"password":"secret1"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "неверный пароль",
			body: `{"username":"alice","password":"wrong"}`,
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "alice", "wrong").Return("", nil, models.ErrUnauthorized)
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name: "пользователь заблокирован",
			body: `{"username":"bob","password":"secret1"}`,
			setupMock: func(m *MockService) {
				m.On("Login", mock.Anything, "bob", "secret1").Return("", nil, models.ErrForbidden)
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tt.body))
			req, s := withSession(t, req, newManager())
			w := httptest.NewRecorder()
			NewLogin(logger, svc, newManager()).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			assert.Equal(t, tt.wantSessionID, s.UserID())
			svc.AssertExpectations(t)
		})
	}
}

func TestLoginHandler_RegeneratesSession(t *testing.T) {
	m := newManager()
	ctx := context.Background()

	rec := httptest.NewRecorder()
	pre, err := m.Start(ctx, rec, nil)
	require.NoError(t, err)
	planted := rec.Result().Cookies()[0]

	s, err := m.Start(ctx, httptest.NewRecorder(), planted)
	require.NoError(t, err)
	require.Equal(t, pre.ID, s.ID)

	svc := new(MockService)
	svc.On("Login", mock.Anything, "alice", "secret1").Return("tok", &models.User{ID: "u1"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"alice","password":"secret1"}`))
	req = req.WithContext(session.WithSession(req.Context(), s))
	w := httptest.NewRecorder()
	NewLogin(newNoopLogger(), svc, m).ServeHTTP(w, req)
	m.Commit(ctx, s)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, pre.ID, s.ID)
	assert.Equal(t, "u1", s.UserID())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, strings.HasPrefix(cookies[0].Value, s.ID+"."))

	again, err := m.Start(ctx, httptest.NewRecorder(), planted)
	require.NoError(t, err)
	assert.Empty(t, again.UserID())
}

func TestSpotifyCallback_LinksSessionUser(t *testing.T) {
	m := newManager()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/spotify/callback?code=c&state=st", nil)
	req, s := withSession(t, req, m)
	s.Set(spotifyStateKey, "st")
	s.Set(session.KeyUserID, "u1")

	svc := new(MockService)
	svc.On("SpotifyLogin", mock.Anything, "c", "u1").Return("tok", &models.User{ID: "u1"}, nil)

	w := httptest.NewRecorder()
	NewSpotifyCallback(newNoopLogger(), svc, m).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", s.UserID())
	svc.AssertExpectations(t)
}

func TestLogoutHandler(t *testing.T) {
	m := newManager()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req, s := withSession(t, req, m)
	s.Set(session.KeyUserID, "u1")

	w := httptest.NewRecorder()
	NewLogout(newNoopLogger(), m).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestMeHandler(t *testing.T) {
	logger := newNoopLogger()

	t.Run("без аутентификации", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewMe(logger, new(MockService)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("текущий пользователь", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Me", mock.Anything, "u1").Return(&models.User{ID: "u1", Username: "alice", Password: "hash"}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req = req.WithContext(middlewarectx.WithPrincipal(req.Context(), middlewarectx.Principal{UserID: "u1"}))
		w := httptest.NewRecorder()
		NewMe(logger, svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"username":"alice"`)
		assert.NotContains(t, w.Body.String(), "hash")
	})
}

func TestProfileHandler(t *testing.T) {
	logger := newNoopLogger()
	principal := middlewarectx.Principal{UserID: "u1"}

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name: "обновление bio",
			body: `{"bio":"hello"}`,
			setupMock: func(m *MockService) {
				m.On("UpdateProfile", mock.Anything, "u1", mock.MatchedBy(func(p models.Profile) bool {
					return p.Bio != nil && *p.Bio == "hello" && p.Username == nil
				})).Return(&models.User{ID: "u1", Bio: "hello"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "слишком короткое имя",
			body:           `{"username":"ab"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "ошибка хранилища",
			body: `{"bio":"x"}`,
			setupMock: func(m *MockService) {
				m.On("UpdateProfile", mock.Anything, "u1", mock.Anything).Return(nil, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPut, "/api/auth/profile", strings.NewReader(tt.body))
			req = req.WithContext(middlewarectx.WithPrincipal(req.Context(), principal))
			w := httptest.NewRecorder()
			NewProfile(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestSpotifyFlow(t *testing.T) {
	logger := newNoopLogger()
	m := newManager()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/spotify/login", nil)
	req, s := withSession(t, req, m)
	w := httptest.NewRecorder()
	NewSpotifyLogin(logger, fakeAuthorizer{}).ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	state := s.Get(spotifyStateKey)
	require.NotEmpty(t, state)
	assert.Contains(t, w.Header().Get("Location"), "state="+state)

	t.Run("неверный state", func(t *testing.T) {
		svc := new(MockService)
		cb := httptest.NewRequest(http.MethodGet, "/api/auth/spotify/callback?code=c&state=other", nil)
		cb = cb.WithContext(session.WithSession(cb.Context(), s))
		w := httptest.NewRecorder()
		NewSpotifyCallback(logger, svc, m).ServeHTTP(w, cb)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "SpotifyLogin", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("успешный callback", func(t *testing.T) {
		svc := new(MockService)
		svc.On("SpotifyLogin", mock.Anything, "c", "").Return("tok", &models.User{ID: "u9"}, nil)

		cb := httptest.NewRequest(http.MethodGet, "/api/auth/spotify/callback?code=c&state="+state, nil)
		cb = cb.WithContext(session.WithSession(cb.Context(), s))
		w := httptest.NewRecorder()
		NewSpotifyCallback(logger, svc, m).ServeHTTP(w, cb)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u9", s.UserID())
		assert.Empty(t, s.Get(spotifyStateKey))
		svc.AssertExpectations(t)
	})
}
