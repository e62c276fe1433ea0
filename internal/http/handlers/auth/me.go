package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/jukebox/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jukebox/internal/http/response"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/models"
)

// Me обработчик GET /api/auth/me.
type Me struct {
	log *slog.Logger
	svc Service
}

func NewMe(log *slog.Logger, svc Service) *Me {
	return &Me{log: log, svc: svc}
}

func (h *Me) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok {
		response.RenderError(w, r, models.ErrUnauthorized)
		return
	}

	user, err := h.svc.Me(r.Context(), p.UserID)
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(user))
}

// Profile обработчик PUT /api/auth/profile. Меняет только поля профиля.
type Profile struct {
	log      *slog.Logger
	svc      Service
	validate *validator.Validate
}

func NewProfile(log *slog.Logger, svc Service) *Profile {
	return &Profile{
		log:      log,
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *Profile) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.profile"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok {
		response.RenderError(w, r, models.ErrUnauthorized)
		return
	}

	var req models.Profile
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		renderValidation(w, r, err)
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), p.UserID, req)
	if err != nil {
		log.Error("failed to update profile", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("profile updated", slog.String("user_id", user.ID))
	render.JSON(w, r, response.StatusOKWithData(user))
}
