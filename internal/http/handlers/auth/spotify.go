package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/jukebox/internal/http/response"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/session"
)

const spotifyStateKey = "spotifyState"

// SpotifyLogin обработчик GET /api/auth/spotify/login: редирект на страницу входа Spotify.
type SpotifyLogin struct {
	log  *slog.Logger
	auth SpotifyAuthorizer
}

func NewSpotifyLogin(log *slog.Logger, auth SpotifyAuthorizer) *SpotifyLogin {
	return &SpotifyLogin{log: log, auth: auth}
}

func (h *SpotifyLogin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.spotifyLogin"

	s := session.FromContext(r.Context())
	if s == nil {
		h.log.Error("session is missing", sl.Op(op))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	state := uuid.NewString()
	s.Set(spotifyStateKey, state)
	http.Redirect(w, r, h.auth.AuthCodeURL(state), http.StatusFound)
}

// SpotifyCallback обработчик GET /api/auth/spotify/callback.
// Если в сессии уже есть вошедший пользователь, аккаунт Spotify привязывается к нему.
type SpotifyCallback struct {
	log      *slog.Logger
	svc      Service
	sessions Sessions
}

func NewSpotifyCallback(log *slog.Logger, svc Service, sessions Sessions) *SpotifyCallback {
	return &SpotifyCallback{log: log, svc: svc, sessions: sessions}
}

func (h *SpotifyCallback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.spotifyCallback"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		log.Warn("spotify authorization denied", slog.String("error", e))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("spotify authorization denied"))
		return
	}

	s := session.FromContext(r.Context())
	if s == nil || s.Get(spotifyStateKey) == "" || s.Get(spotifyStateKey) != q.Get("state") {
		log.Error("spotify state mismatch")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid oauth state"))
		return
	}
	s.Delete(spotifyStateKey)

	token, user, err := h.svc.SpotifyLogin(r.Context(), q.Get("code"), s.UserID())
	if err != nil {
		log.Error("spotify login failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	if err := signIn(r, w, h.sessions, user.ID); err != nil {
		log.Error("failed to bind user to session", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	log.Info("spotify login success", slog.String("user_id", user.ID))
	render.JSON(w, r, response.StatusOKWithData(LoginResponse{Token: token, User: user}))
}
