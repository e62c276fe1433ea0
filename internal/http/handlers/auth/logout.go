package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/jukebox/internal/http/response"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/session"
)

// Logout обработчик POST /api/auth/logout. JWT остается валидным до истечения,
// выход завершает только серверную сессию.
type Logout struct {
	log      *slog.Logger
	sessions Sessions
}

func NewLogout(log *slog.Logger, sessions Sessions) *Logout {
	return &Logout{log: log, sessions: sessions}
}

func (h *Logout) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.logout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := h.sessions.Destroy(r.Context(), w, session.FromContext(r.Context())); err != nil {
		log.Error("failed to destroy session", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to log out"))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]string{"message": "logged out"}))
}
