// Package collab содержит обработчики совместных плейлистов /api/playlist.
// Изменения дополнительно рассылаются участникам через сокет-комнату плейлиста.
package collab

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/jukebox/internal/http/middlewarectx"
	"github.com/magabrotheeeer/jukebox/internal/http/response"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/models"
)

// Service бизнес-логика совместных плейлистов.
type Service interface {
	Create(ctx context.Context, userID, name string) (*models.CollabPlaylist, error)
	Get(ctx context.Context, userID, id string) (*models.CollabPlaylist, error)
	ListForUser(ctx context.Context, userID string) ([]*models.CollabPlaylist, error)
	Join(ctx context.Context, userID, code string) (*models.CollabPlaylist, error)
	AddSong(ctx context.Context, userID, id, trackID string) (*models.CollabPlaylist, error)
	RemoveSong(ctx context.Context, userID, id, trackID string) (*models.CollabPlaylist, error)
	Delete(ctx context.Context, userID, id string) error
}

// CreateRequest название нового совместного плейлиста.
type CreateRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// SongRequest трек для добавления.
type SongRequest struct {
	TrackID string `json:"trackId" validate:"required"`
}

// Handlers набор обработчиков /api/playlist. Методы возвращают http.HandlerFunc.
type Handlers struct {
	log      *slog.Logger
	svc      Service
	validate *validator.Validate
}

func New(log *slog.Logger, svc Service) *Handlers {
	return &Handlers{
		log:      log,
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *Handlers) logger(op string, r *http.Request) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		log.Error("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			response.RenderError(w, r, models.ErrInvalidInput)
			return false
		}
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return false
	}
	return true
}

// userID достает текущего пользователя; если его нет, пишет 401.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok {
		response.RenderError(w, r, models.ErrUnauthorized)
		return "", false
	}
	return p.UserID, true
}

// List godoc
// @Summary Совместные плейлисты пользователя
// @Tags Collab
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response
// @Router /api/playlist [get]
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.collab.list", r)

	uid, ok := userID(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListForUser(r.Context(), uid)
	if err != nil {
		log.Error("failed to list collab playlists", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.CollabPlaylist{}
	}
	render.JSON(w, r, response.StatusOKWithData(list))
}

// Create godoc
// @Summary Создание совместного плейлиста
// @Tags Collab
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body CreateRequest true "Название"
// @Success 201 {object} response.Response
// @Router /api/playlist [post]
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.collab.create", r)

	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	p, err := h.svc.Create(r.Context(), uid, req.Name)
	if err != nil {
		log.Error("failed to create collab playlist", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("collab playlist created", slog.String("playlist_id", p.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(p))
}

// Get godoc
// @Summary Совместный плейлист по ID
// @Description Доступен только владельцу и участникам.
// @Tags Collab
// @Security BearerAuth
// @Produce  json
// @Param id path string true "ID плейлиста"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Не участник"
// @Router /api/playlist/{id} [get]
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.collab.get", r)

	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		log.Error("failed to get collab playlist", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(p))
}

// Join godoc
// @Summary Вступление по коду приглашения
// @Tags Collab
// @Security BearerAuth
// @Produce  json
// @Param code path string true "Код приглашения"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Код не найден"
// @Router /api/playlist/join/{code} [post]
func (h *Handlers) Join(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.collab.join", r)

	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Join(r.Context(), uid, chi.URLParam(r, "code"))
	if err != nil {
		log.Error("failed to join collab playlist", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("joined collab playlist", slog.String("playlist_id", p.ID), slog.String("user_id", uid))
	render.JSON(w, r, response.StatusOKWithData(p))
}

// AddSong godoc
// @Summary Добавление трека в совместный плейлист
// @Tags Collab
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param id path string true "ID плейлиста"
// @Param request body SongRequest true "Spotify ID трека"
// @Success 200 {object} response.Response
// @Router /api/playlist/{id}/songs [post]
func (h *Handlers) AddSong(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.collab.addSong", r)

	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req SongRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	p, err := h.svc.AddSong(r.Context(), uid, chi.URLParam(r, "id"), req.TrackID)
	if err != nil {
		log.Error("failed to add song", slog.String("track_id", req.TrackID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(p))
}

// RemoveSong godoc
// @Summary Удаление трека из совместного плейлиста
// @Tags Collab
// @Security BearerAuth
// @Produce  json
// @Param id path string true "ID плейлиста"
// @Param trackId path string true "Spotify ID трека"
// @Success 200 {object} response.Response
// @Router /api/playlist/{id}/songs/{trackId} [delete]
func (h *Handlers) RemoveSong(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.collab.removeSong", r)

	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.RemoveSong(r.Context(), uid, chi.URLParam(r, "id"), chi.URLParam(r, "trackId"))
	if err != nil {
		log.Error("failed to remove song", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(p))
}

// Delete godoc
// @Summary Удаление совместного плейлиста
// @Description Только владелец.
// @Tags Collab
// @Security BearerAuth
// @Produce  json
// @Param id path string true "ID плейлиста"
// @Success 200 {object} response.Response
// @Router /api/playlist/{id} [delete]
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.collab.delete", r)

	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), uid, id); err != nil {
		log.Error("failed to delete collab playlist", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]string{"id": id}))
}
