package middlewarectx_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/jukebox/internal/config"
	"github.com/magabrotheeeer/jukebox/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jukebox/internal/lib/jwt"
	"github.com/magabrotheeeer/jukebox/internal/models"
	"github.com/magabrotheeeer/jukebox/internal/session"
)

type UsersMock struct {
	mock.Mock
}

func (m *UsersMock) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func withSession(t *testing.T, r *http.Request, userID string) *http.Request {
	t.Helper()
	m := session.NewManager(newNoopLogger(), session.NewMemoryStore(), config.Session{Secret: "s", TTL: time.Hour})
	s, err := m.Start(r.Context(), httptest.NewRecorder(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if userID != "" {
		s.Set(session.KeyUserID, userID)
	}
	return r.WithContext(session.WithSession(r.Context(), s))
}

func TestAuthenticate(t *testing.T) {
	maker := jwt.NewJWTMaker("secret", time.Hour)
	other := jwt.NewJWTMaker("other-secret", time.Hour)
	logger := newNoopLogger()

	validToken, err := maker.GenerateToken("u1", "alice", "user")
	assert.NoError(t, err)
	forgedToken, err := other.GenerateToken("u1", "alice", "admin")
	assert.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		sessionUser    string
		setupMocks     func(m *UsersMock)
		wantStatusCode int
		wantUserID     string
		wantRole       models.Role
	}{
		{
			name:           "no credentials",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "invalid Authorization header prefix",
			authHeader:     "Basic sometoken",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "token signed with another key",
			authHeader:     "Bearer " + forgedToken,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:       "valid token",
			authHeader: "Bearer " + validToken,
			setupMocks: func(m *UsersMock) {
				m.On("GetUserByID", mock.Anything, "u1").Return(&models.User{ID: "u1", Username: "alice", Role: models.RoleUser}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantUserID:     "u1",
			wantRole:       models.RoleUser,
		},
		{
			name:       "valid token for blocked user",
			authHeader: "Bearer " + validToken,
			setupMocks: func(m *UsersMock) {
				m.On("GetUserByID", mock.Anything, "u1").Return(&models.User{ID: "u1", Username: "alice", Blocked: true}, nil).Once()
			},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:       "role taken from stored user",
			authHeader: "Bearer " + validToken,
			setupMocks: func(m *UsersMock) {
				m.On("GetUserByID", mock.Anything, "u1").Return(&models.User{ID: "u1", Username: "alice", Role: models.RoleAdmin}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantUserID:     "u1",
			wantRole:       models.RoleAdmin,
		},
		{
			name:       "valid token for deleted user",
			authHeader: "Bearer " + validToken,
			setupMocks: func(m *UsersMock) {
				m.On("GetUserByID", mock.Anything, "u1").Return(nil, models.ErrNotFound).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:        "session user",
			sessionUser: "u2",
			setupMocks: func(m *UsersMock) {
				m.On("GetUserByID", mock.Anything, "u2").Return(&models.User{ID: "u2", Username: "bob", Role: models.RoleUser}, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantUserID:     "u2",
			wantRole:       models.RoleUser,
		},
		{
			name:        "blocked session user",
			sessionUser: "u3",
			setupMocks: func(m *UsersMock) {
				m.On("GetUserByID", mock.Anything, "u3").Return(&models.User{ID: "u3", Blocked: true}, nil).Once()
			},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:        "session user deleted",
			sessionUser: "gone",
			setupMocks: func(m *UsersMock) {
				m.On("GetUserByID", mock.Anything, "gone").Return(nil, models.ErrNotFound).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:        "storage unavailable",
			sessionUser: "u4",
			setupMocks: func(m *UsersMock) {
				m.On("GetUserByID", mock.Anything, "u4").Return(nil, models.ErrUpstream).Once()
			},
			wantStatusCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UsersMock)
			if tt.setupMocks != nil {
				tt.setupMocks(users)
			}

			var (
				gotUserID string
				gotRole   models.Role
			)
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p, ok := middlewarectx.PrincipalFromContext(r.Context())
				assert.True(t, ok)
				gotUserID = p.UserID
				gotRole = p.Role
				w.WriteHeader(http.StatusOK)
			})
			h := middlewarectx.Authenticate(maker, users, logger)(next)

			req := httptest.NewRequest(http.MethodGet, "/somepath", nil)
			req = withSession(t, req, tt.sessionUser)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantUserID, gotUserID)
			assert.Equal(t, tt.wantRole, gotRole)
			users.AssertExpectations(t)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	logger := newNoopLogger()
	h := middlewarectx.RequireAdmin(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name      string
		principal *middlewarectx.Principal
		want      int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"regular user", &middlewarectx.Principal{UserID: "u1", Role: models.RoleUser}, http.StatusForbidden},
		{"admin", &middlewarectx.Principal{UserID: "a1", Role: models.RoleAdmin}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/api/users/u2/block", nil)
			if tt.principal != nil {
				req = req.WithContext(middlewarectx.WithPrincipal(req.Context(), *tt.principal))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := middlewarectx.NewIPRateLimiter(2, time.Minute)
	h := middlewarectx.RateLimitMiddleware(newNoopLogger(), limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1000"))
}
