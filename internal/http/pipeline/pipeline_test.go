package pipeline

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/jukebox/internal/config"
	"github.com/magabrotheeeer/jukebox/internal/session"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestManager() *session.Manager {
	return session.NewManager(newNoopLogger(), session.NewMemoryStore(), config.Session{
		CookieName: "jukebox.sid",
		Secret:     "secret",
		TTL:        time.Hour,
	})
}

func TestNew_RejectsSessionBeforeCookies(t *testing.T) {
	log := newNoopLogger()

	_, err := New(Session(log, newTestManager()), Cookies())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStageOrder))

	_, err = New(CORS(), Session(log, newTestManager()))
	assert.True(t, errors.Is(err, ErrStageOrder))
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New(Cookies(), Cookies())
	assert.Error(t, err)
}

func TestDefault_Order(t *testing.T) {
	p, err := Default(newNoopLogger(), newTestManager())
	require.NoError(t, err)
	assert.Equal(t, []string{"cors", "json", "urlencoded", "cookies", "session"}, p.Names())
}

func TestJSON(t *testing.T) {
	var gotBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusNoContent)
	})
	h := JSON(newNoopLogger(), 16).Middleware(next)

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
	}{
		{"valid json", "application/json", `{"a":1}`, http.StatusNoContent},
		{"json with charset", "application/json; charset=utf-8", `[1,2]`, http.StatusNoContent},
		{"empty body", "application/json", ``, http.StatusNoContent},
		{"malformed", "application/json", `{"a":`, http.StatusBadRequest},
		{"too large", "application/json", `{"a":"` + strings.Repeat("x", 32) + `"}`, http.StatusRequestEntityTooLarge},
		{"not json content type", "text/plain", `{"a":`, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotBody = ""
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, tt.body, gotBody)
			}
		})
	}
}

func TestURLEncoded(t *testing.T) {
	var name string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name = r.PostForm.Get("name")
	})
	h := URLEncoded(newNoopLogger()).Middleware(next)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("name=jukebox"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "jukebox", name)
}

func TestSession_IssuesCookieAndPersists(t *testing.T) {
	p, err := Default(newNoopLogger(), newTestManager())
	require.NoError(t, err)

	h := chi.NewRouter()
	p.Mount(h)
	h.Get("/", func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())
		require.NotNil(t, s)
		if s.UserID() == "" {
			s.Set(session.KeyUserID, "user-1")
			_, _ = io.WriteString(w, "new")
			return
		}
		_, _ = io.WriteString(w, s.UserID())
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "new", rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestSession_WithoutCookiesStage(t *testing.T) {
	h := Session(newNoopLogger(), newTestManager()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be called")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS().Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/api/songs/search", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
