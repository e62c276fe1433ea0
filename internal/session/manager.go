package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/jukebox/internal/config"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
)

// Manager выдает и сохраняет сессии.
type Manager struct {
	log        *slog.Logger
	store      Store
	cookieName string
	secret     []byte
	ttl        time.Duration
}

// NewManager создает менеджер сессий поверх хранилища.
func NewManager(log *slog.Logger, store Store, cfg config.Session) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	name := cfg.CookieName
	if name == "" {
		name = "jukebox.sid"
	}
	return &Manager{
		log:        log,
		store:      store,
		cookieName: name,
		secret:     []byte(cfg.Secret),
		ttl:        ttl,
	}
}

// CookieName имя cookie сессии.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Start загружает сессию по значению cookie или создает новую.
// Новая сессия сохраняется сразу, даже пустая, и получает cookie.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, cookie *http.Cookie) (*Session, error) {
	const op = "session.Start"

	if cookie != nil {
		if id, ok := m.verify(cookie.Value); ok {
			values, err := m.store.Load(ctx, id)
			switch {
			case err == nil:
				if values == nil {
					values = map[string]string{}
				}
				// срок жизни cookie скользит вместе с записью в хранилище
				http.SetCookie(w, m.cookie(id, m.ttl))
				return &Session{ID: id, Values: values}, nil
			case !errors.Is(err, ErrNotFound):
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	s := newSession(uuid.NewString())
	if err := m.store.Save(ctx, s.ID, s.Values, m.ttl); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	http.SetCookie(w, m.cookie(s.ID, m.ttl))
	return s, nil
}

// Commit сохраняет изменения, сделанные обработчиком. Неизмененная сессия
// только продлевается.
func (m *Manager) Commit(ctx context.Context, s *Session) {
	if s == nil || s.destroyed {
		return
	}
	if !s.dirty {
		if s.IsNew() {
			return
		}
		if err := m.store.Touch(ctx, s.ID, m.ttl); err != nil && !errors.Is(err, ErrNotFound) {
			m.log.Error("failed to extend session", sl.Op("session.Commit"), sl.Err(err))
		}
		return
	}
	if err := m.store.Save(ctx, s.ID, s.Values, m.ttl); err != nil {
		m.log.Error("failed to save session", sl.Op("session.Commit"), sl.Err(err))
		return
	}
	s.dirty = false
}

// Regenerate выдает сессии новый ID, сохраняя данные, и удаляет старую запись.
// Вызывается перед записью пользователя в сессию при входе, чтобы ID,
// известный до входа, не стал ID авторизованной сессии. Сессия, созданная
// в текущем запросе, уже имеет свежий ID и не меняется.
func (m *Manager) Regenerate(ctx context.Context, w http.ResponseWriter, s *Session) error {
	const op = "session.Regenerate"
	if s == nil || s.IsNew() {
		return nil
	}

	oldID := s.ID
	newID := uuid.NewString()
	if err := m.store.Save(ctx, newID, s.Values, m.ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.ID = newID
	s.isNew = true
	http.SetCookie(w, m.cookie(newID, m.ttl))

	if err := m.store.Destroy(ctx, oldID); err != nil {
		m.log.Warn("failed to remove previous session", sl.Op(op), sl.Err(err))
	}
	return nil
}

// Destroy удаляет сессию и сбрасывает cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	const op = "session.Destroy"
	if s == nil {
		return nil
	}
	s.destroyed = true
	http.SetCookie(w, m.cookie("", -1))
	if err := m.store.Destroy(ctx, s.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (m *Manager) cookie(id string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     m.cookieName,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
		return c
	}
	c.Value = m.sign(id)
	c.MaxAge = int(ttl.Seconds())
	return c
}

func (m *Manager) sign(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *Manager) verify(value string) (string, bool) {
	id, _, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(m.sign(id)), []byte(value)) {
		return "", false
	}
	return id, true
}
