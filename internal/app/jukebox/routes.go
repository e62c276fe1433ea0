package jukebox

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/jukebox/internal/config"
	adminhandlers "github.com/magabrotheeeer/jukebox/internal/http/handlers/admin"
	authhandlers "github.com/magabrotheeeer/jukebox/internal/http/handlers/auth"
	collabhandlers "github.com/magabrotheeeer/jukebox/internal/http/handlers/collab"
	"github.com/magabrotheeeer/jukebox/internal/http/handlers/diag"
	playlisthandlers "github.com/magabrotheeeer/jukebox/internal/http/handlers/playlists"
	songhandlers "github.com/magabrotheeeer/jukebox/internal/http/handlers/songs"
	"github.com/magabrotheeeer/jukebox/internal/http/handlers/static"
	userhandlers "github.com/magabrotheeeer/jukebox/internal/http/handlers/users"
	"github.com/magabrotheeeer/jukebox/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jukebox/internal/http/pipeline"
	"github.com/magabrotheeeer/jukebox/internal/lib/jwt"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/metrics"
	"github.com/magabrotheeeer/jukebox/internal/realtime"
	"github.com/magabrotheeeer/jukebox/internal/session"
)

// Deps зависимости маршрутов.
type Deps struct {
	Config   *config.Config
	Logger   *slog.Logger
	Pipeline *pipeline.Pipeline
	Sessions *session.Manager
	Metrics  *metrics.Metrics
	Hub      *realtime.Hub
	JWT      jwt.Maker
	Users    middlewarectx.UserLookup
	DB       diag.Pinger

	Catalog   songhandlers.Catalog
	Spotify   authhandlers.SpotifyAuthorizer
	Auth      authhandlers.Service
	UserList  userhandlers.Service
	Admin     adminhandlers.Service
	Playlists playlisthandlers.Service
	Collab    collabhandlers.Service
}

// NewRouter регистрирует все маршруты приложения.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	log := d.Logger

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		d.Metrics.Middleware,
	)
	d.Pipeline.Mount(r)

	authenticate := middlewarectx.Authenticate(d.JWT, d.Users, log)

	r.Route("/api", func(r chi.Router) {
		if d.Config.RateLimit.Enabled {
			limiter := middlewarectx.NewIPRateLimiter(d.Config.RateLimit.Max, d.Config.RateLimit.Window)
			r.Use(middlewarectx.RateLimitMiddleware(log, limiter))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authhandlers.NewRegister(log, d.Auth).ServeHTTP)
			r.Post("/login", authhandlers.NewLogin(log, d.Auth, d.Sessions).ServeHTTP)
			r.Post("/logout", authhandlers.NewLogout(log, d.Sessions).ServeHTTP)
			r.Get("/spotify/login", authhandlers.NewSpotifyLogin(log, d.Spotify).ServeHTTP)
			r.Get("/spotify/callback", authhandlers.NewSpotifyCallback(log, d.Auth, d.Sessions).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Get("/me", authhandlers.NewMe(log, d.Auth).ServeHTTP)
				r.Put("/profile", authhandlers.NewProfile(log, d.Auth).ServeHTTP)
			})
		})

		r.Route("/songs", func(r chi.Router) {
			r.Get("/search", songhandlers.NewSearch(log, d.Catalog).ServeHTTP)
			r.Get("/artist/{id}", songhandlers.NewArtist(log, d.Catalog).ServeHTTP)
			r.Get("/{id}", songhandlers.NewGet(log, d.Catalog).ServeHTTP)
		})

		// Две группы на одном префиксе: сначала список, затем модерация.
		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Get("/", userhandlers.NewList(log, d.UserList).ServeHTTP)
				r.Get("/{id}", userhandlers.NewGet(log, d.UserList).ServeHTTP)
			})
			r.Group(func(r chi.Router) {
				r.Use(authenticate, middlewarectx.RequireAdmin(log))
				r.Patch("/{id}/block", adminhandlers.NewBlock(log, d.Admin).ServeHTTP)
				r.Patch("/{id}/unblock", adminhandlers.NewUnblock(log, d.Admin).ServeHTTP)
				r.Patch("/{id}/role", adminhandlers.NewSetRole(log, d.Admin).ServeHTTP)
				r.Delete("/{id}", adminhandlers.NewDelete(log, d.Admin).ServeHTTP)
			})
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/", playlisthandlers.NewList(log, d.Playlists).ServeHTTP)
			r.Post("/", playlisthandlers.NewCreate(log, d.Playlists).ServeHTTP)
			r.Get("/{id}", playlisthandlers.NewGet(log, d.Playlists).ServeHTTP)
			r.Put("/{id}", playlisthandlers.NewUpdate(log, d.Playlists).ServeHTTP)
			r.Delete("/{id}", playlisthandlers.NewDelete(log, d.Playlists).ServeHTTP)
			r.Post("/{id}/songs", playlisthandlers.NewAddSong(log, d.Playlists).ServeHTTP)
			r.Delete("/{id}/songs/{trackId}", playlisthandlers.NewRemoveSong(log, d.Playlists).ServeHTTP)
		})

		r.Route("/playlist", func(r chi.Router) {
			r.Use(authenticate)
			h := collabhandlers.New(log, d.Collab)
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Post("/join/{code}", h.Join)
			r.Get("/{id}", h.Get)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/songs", h.AddSong)
			r.Delete("/{id}/songs/{trackId}", h.RemoveSong)
		})

		r.Get("/student", diag.StudentHandler)
		r.Get("/health", diag.NewHealth(log, d.DB).ServeHTTP)
	})

	r.Get("/check-frontend", diag.NewCheckFrontend(log, d.Config.FrontendDir).ServeHTTP)
	r.Get("/socket", d.Hub.ServeHTTP)
	r.Handle("/metrics", d.Metrics.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)

	static.Mount(r, "/uploads", d.Config.UploadsDir)
	static.Mount(r, "/upload", d.Config.UploadDir)
	static.Mount(r, "/controllers", d.Config.ControllersDir)
	static.Mount(r, "/", d.Config.FrontendDir, filepath.Join(d.Config.FrontendDir, "public"))

	return r
}

// SocketAuthenticator определяет пользователя сокета по JWT (?token= или
// заголовок Authorization), а без токена по сессии. Пользователь загружается
// из хранилища, заблокированные и неизвестные подключаются анонимно.
func SocketAuthenticator(jwtMaker jwt.Maker, users middlewarectx.UserLookup, log *slog.Logger) realtime.Authenticator {
	return func(r *http.Request) (realtime.Identity, bool) {
		var userID string
		token := r.URL.Query().Get("token")
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if token != "" {
			claims, err := jwtMaker.ParseToken(token)
			if err != nil {
				log.Debug("socket token rejected", sl.Err(err))
				return realtime.Identity{}, false
			}
			userID = claims.UserID
		} else if s := session.FromContext(r.Context()); s != nil {
			userID = s.UserID()
		}
		if userID == "" {
			return realtime.Identity{}, false
		}

		p, err := middlewarectx.LoadPrincipal(r.Context(), users, userID)
		if err != nil {
			log.Debug("socket user rejected", slog.String("user_id", userID), sl.Err(err))
			return realtime.Identity{}, false
		}
		return realtime.Identity{UserID: p.UserID, Username: p.Username}, true
	}
}
