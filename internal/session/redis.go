package session

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/jukebox/internal/cache"
)

const redisKeyPrefix = "jukebox:sess:"

// RedisStore хранит сессии в Redis.
type RedisStore struct {
	cache *cache.Cache
}

// NewRedisStore создает хранилище поверх подключенного кэша.
func NewRedisStore(c *cache.Cache) *RedisStore {
	return &RedisStore{cache: c}
}

func (s *RedisStore) Load(ctx context.Context, id string) (map[string]string, error) {
	const op = "session.RedisStore.Load"
	values := map[string]string{}
	found, err := s.cache.Get(ctx, redisKeyPrefix+id, &values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, ErrNotFound
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error {
	const op = "session.RedisStore.Save"
	if err := s.cache.Set(ctx, redisKeyPrefix+id, values, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *RedisStore) Destroy(ctx context.Context, id string) error {
	const op = "session.RedisStore.Destroy"
	if err := s.cache.Invalidate(ctx, redisKeyPrefix+id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *RedisStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	const op = "session.RedisStore.Touch"
	if err := s.cache.Touch(ctx, redisKeyPrefix+id, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
