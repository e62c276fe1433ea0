// Package mongostore реализует хранилище jukebox на MongoDB: пользователи,
// личные и совместные плейлисты.
//
// Подключение не блокирует запуск сервиса: New возвращает хранилище сразу,
// а результат подключения только логируется. Пока база недоступна, каждый
// запрос завершается ошибкой models.ErrUpstream.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/magabrotheeeer/jukebox/internal/config"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/models"
)

const (
	usersCollection     = "users"
	playlistsCollection = "playlists"
	collabCollection    = "collab_playlists"
)

// Storage инкапсулирует клиент MongoDB.
type Storage struct {
	log     *slog.Logger
	client  *mongo.Client
	db      *mongo.Database
	connErr error
	now     func() time.Time
}

// New создает клиент и запускает проверку соединения в фоне.
func New(cfg config.Mongo, log *slog.Logger) *Storage {
	const op = "storage.mongostore.New"
	log = log.With(sl.Op(op))

	s := &Storage{
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}

	opts := options.Client().
		ApplyURI(cfg.URL).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	client, err := mongo.Connect(context.Background(), opts)
	if err != nil {
		log.Error("mongodb connection error", sl.Err(err))
		s.connErr = err
		return s
	}

	s.client = client
	s.db = client.Database(cfg.Database)
	go s.watch(cfg.ServerSelectionTimeout)
	return s
}

// NewWithClient оборачивает уже подключенный клиент.
func NewWithClient(client *mongo.Client, database string, log *slog.Logger) *Storage {
	return &Storage{
		log:    log,
		client: client,
		db:     client.Database(database),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Storage) watch(timeout time.Duration) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
	defer cancel()

	if err := s.client.Ping(ctx, nil); err != nil {
		s.log.Error("mongodb connection error", sl.Err(err))
		return
	}
	s.log.Info("connected to mongodb")

	if err := s.EnsureIndexes(ctx); err != nil {
		s.log.Error("failed to create indexes", sl.Err(err))
	}
}

// EnsureIndexes создает индексы для выборок по владельцу и коду приглашения.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	const op = "storage.mongostore.EnsureIndexes"
	if err := s.ready(op); err != nil {
		return err
	}

	if _, err := s.db.Collection(playlistsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ownerId", Value: 1}},
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.db.Collection(collabCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "inviteCode", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "collaborators", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "spotify.id", Value: 1}},
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Ping проверяет доступность базы.
func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.mongostore.Ping"
	if err := s.ready(op); err != nil {
		return err
	}
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%s: %w: %w", op, models.ErrUpstream, err)
	}
	return nil
}

// Close отключает клиент.
func (s *Storage) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Storage) ready(op string) error {
	if s.db == nil {
		return fmt.Errorf("%s: %w: not connected: %v", op, models.ErrUpstream, s.connErr)
	}
	return nil
}

func wrapErr(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w: %w", op, models.ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, models.ErrUpstream, err)
	}
}

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
