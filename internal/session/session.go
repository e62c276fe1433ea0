// Package session хранит серверные сессии, привязанные к cookie.
//
// Значение cookie имеет вид "<id>.<подпись>", подпись HMAC-SHA256 от id
// на секрете сессий. Данные сессии лежат в Store: Redis или память процесса.
package session

import (
	"context"
	"errors"
	"time"
)

// KeyUserID ключ, под которым в сессии хранится ID вошедшего пользователя.
const KeyUserID = "userId"

// ErrNotFound сессия отсутствует или истекла.
var ErrNotFound = errors.New("session not found")

// Store хранилище данных сессий.
type Store interface {
	Load(ctx context.Context, id string) (map[string]string, error)
	Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error
	Destroy(ctx context.Context, id string) error
	// Touch продлевает время жизни сессии без перезаписи данных.
	Touch(ctx context.Context, id string, ttl time.Duration) error
}

// Session данные одной сессии в рамках запроса.
type Session struct {
	ID     string
	Values map[string]string

	isNew     bool
	dirty     bool
	destroyed bool
}

func newSession(id string) *Session {
	return &Session{ID: id, Values: map[string]string{}, isNew: true}
}

// Get возвращает значение по ключу или пустую строку.
func (s *Session) Get(key string) string {
	return s.Values[key]
}

// Set записывает значение, сессия будет сохранена после запроса.
func (s *Session) Set(key, value string) {
	if s.Values[key] == value {
		return
	}
	s.Values[key] = value
	s.dirty = true
}

// Delete удаляет ключ.
func (s *Session) Delete(key string) {
	if _, ok := s.Values[key]; !ok {
		return
	}
	delete(s.Values, key)
	s.dirty = true
}

// UserID ID пользователя, вошедшего в этой сессии.
func (s *Session) UserID() string {
	return s.Get(KeyUserID)
}

// IsNew сообщает, была ли сессия создана в текущем запросе.
func (s *Session) IsNew() bool {
	return s.isNew
}

type ctxKey struct{}

// WithSession кладет сессию в контекст.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext достает сессию из контекста. nil, если стадия session не выполнялась.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
