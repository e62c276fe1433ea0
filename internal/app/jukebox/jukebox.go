// Package jukebox собирает HTTP-сервер jukebox: хранилище, сессии, события,
// клиент Spotify, realtime-хаб и маршруты.
package jukebox

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/magabrotheeeer/jukebox/internal/cache"
	"github.com/magabrotheeeer/jukebox/internal/config"
	"github.com/magabrotheeeer/jukebox/internal/events"
	"github.com/magabrotheeeer/jukebox/internal/http/pipeline"
	"github.com/magabrotheeeer/jukebox/internal/lib/jwt"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/metrics"
	"github.com/magabrotheeeer/jukebox/internal/realtime"
	"github.com/magabrotheeeer/jukebox/internal/realtime/chat"
	"github.com/magabrotheeeer/jukebox/internal/realtime/collabsocket"
	adminservice "github.com/magabrotheeeer/jukebox/internal/services/admin"
	authservice "github.com/magabrotheeeer/jukebox/internal/services/auth"
	cleanupservice "github.com/magabrotheeeer/jukebox/internal/services/cleanup"
	collabservice "github.com/magabrotheeeer/jukebox/internal/services/collab"
	playlistservice "github.com/magabrotheeeer/jukebox/internal/services/playlist"
	usersservice "github.com/magabrotheeeer/jukebox/internal/services/users"
	"github.com/magabrotheeeer/jukebox/internal/session"
	"github.com/magabrotheeeer/jukebox/internal/spotify"
	"github.com/magabrotheeeer/jukebox/internal/storage/mongostore"
)

const sessionSweepInterval = time.Minute

// App HTTP-сервер со всеми зависимостями.
type App struct {
	server          *http.Server
	logger          *slog.Logger
	db              *mongostore.Storage
	cache           *cache.Cache
	events          events.Publisher
	hub             *realtime.Hub
	shutdownTimeout time.Duration
}

// New создает зависимости в порядке запуска. Недоступность MongoDB, Redis
// и RabbitMQ не мешает старту: ошибки логируются, используются запасные варианты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	m := metrics.New()
	hub := realtime.NewHub(logger, m)

	store, redisCache := sessionStore(ctx, cfg.Redis, logger)
	sessions := session.NewManager(logger, store, cfg.Session)

	pl, err := pipeline.Default(logger, sessions)
	if err != nil {
		return nil, err
	}
	logger.Info("middleware pipeline assembled", slog.Any("stages", pl.Names()))

	db := mongostore.New(cfg.Mongo, logger)
	publisher := events.New(cfg.RabbitMQ, logger)
	subscribeCleanup(ctx, publisher, cleanupservice.New(logger, db), logger)

	sp := spotify.New(logger, spotify.Options{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.Spotify.RedirectURL,
		TokenPolicy:  spotify.TokenPolicy(cfg.Spotify.TokenPolicy),
		Recorder:     m,
	})
	jwtMaker := jwt.NewJWTMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)

	collabService := collabservice.New(logger, db, sp, hub)
	deps := Deps{
		Config:    cfg,
		Logger:    logger,
		Pipeline:  pl,
		Sessions:  sessions,
		Metrics:   m,
		Hub:       hub,
		JWT:       jwtMaker,
		Users:     db,
		DB:        db,
		Catalog:   sp,
		Spotify:   sp,
		Auth:      authservice.New(logger, db, jwtMaker, sp, publisher),
		UserList:  usersservice.New(db),
		Admin:     adminservice.New(logger, db, publisher),
		Playlists: playlistservice.New(db, sp),
		Collab:    collabService,
	}

	hub.SetAuthenticator(SocketAuthenticator(jwtMaker, db, logger))
	chat.Register(logger, hub)
	collabsocket.Register(logger, hub, collabService)

	srv := &http.Server{
		Addr:        cfg.Address(),
		Handler:     NewRouter(deps),
		IdleTimeout: cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server:          srv,
		logger:          logger,
		db:              db,
		cache:           redisCache,
		events:          publisher,
		hub:             hub,
		shutdownTimeout: cfg.HTTPServer.ShutdownTimeout,
	}, nil
}

// sessionStore выбирает Redis, если он настроен и доступен, иначе память процесса.
func sessionStore(ctx context.Context, cfg config.Redis, logger *slog.Logger) (session.Store, *cache.Cache) {
	if cfg.Addr != "" {
		c, err := cache.InitServer(ctx, cfg)
		if err == nil {
			logger.Info("sessions are stored in redis", slog.String("addr", cfg.Addr))
			return session.NewRedisStore(c), c
		}
		logger.Warn("redis is unavailable, falling back to in-memory sessions", sl.Err(err))
	}

	mem := session.NewMemoryStore()
	go func() {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := mem.Sweep(); n > 0 {
					logger.Debug("expired sessions removed", slog.Int("count", n))
				}
			}
		}
	}()
	return mem, nil
}

// subscribeCleanup запускает удаление данных пользователей по событиям брокера.
// Без брокера подписка не выполняется.
func subscribeCleanup(ctx context.Context, pub events.Publisher, svc *cleanupservice.Service, logger *slog.Logger) {
	sub, ok := pub.(events.Subscriber)
	if !ok {
		return
	}
	if err := sub.Subscribe(ctx, logger, cleanupservice.Queue, svc.Keys(), svc.Handle); err != nil {
		logger.Error("failed to subscribe to user events", sl.Err(err))
	}
}

// Run слушает адрес до отмены ctx, затем корректно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close(context.Background())
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close(timeoutCtx)
		return err
	}
}

func (a *App) close(ctx context.Context) {
	a.hub.Close()
	if err := a.db.Close(ctx); err != nil {
		a.logger.Error("failed to close mongodb client", sl.Err(err))
	}
	if err := a.events.Close(); err != nil {
		a.logger.Error("failed to close event publisher", sl.Err(err))
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis client", sl.Err(err))
		}
	}
}
