// Package playlists содержит обработчики личных плейлистов /api/playlists.
// Все маршруты требуют аутентификации, изменять плейлист может только владелец.
package playlists

import (
	"context"
	"encoding/json"
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

// Service бизнес-логика личных плейлистов.
type Service interface {
	List(ctx context.Context, userID string) ([]*models.Playlist, error)
	Create(ctx context.Context, userID string, in models.PlaylistInput) (*models.Playlist, error)
	Get(ctx context.Context, userID, id string) (*models.Playlist, error)
	Update(ctx context.Context, userID, id string, in models.PlaylistInput) (*models.Playlist, error)
	Delete(ctx context.Context, userID, id string) error
	AddSong(ctx context.Context, userID, id, trackID string) (*models.Playlist, error)
	RemoveSong(ctx context.Context, userID, id, trackID string) (*models.Playlist, error)
}

// SongRequest трек для добавления в плейлист.
type SongRequest struct {
	TrackID string `json:"trackId" validate:"required"`
}

type base struct {
	log      *slog.Logger
	svc      Service
	validate *validator.Validate
}

func newBase(log *slog.Logger, svc Service) base {
	return base{log: log, svc: svc, validate: validator.New()}
}

func (b base) logger(op string, r *http.Request) *slog.Logger {
	return b.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// decode читает и проверяет тело запроса. При ошибке ответ уже записан.
func (b base) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}
	if err := b.validate.Struct(dst); err != nil {
		log.Error("validation failed", sl.Err(err))
		validateErr, ok := err.(validator.ValidationErrors)
		if !ok {
			response.RenderError(w, r, models.ErrInvalidInput)
			return false
		}
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(validateErr))
		return false
	}
	return true
}

func principal(w http.ResponseWriter, r *http.Request) (middlewarectx.Principal, bool) {
	p, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok {
		response.RenderError(w, r, models.ErrUnauthorized)
	}
	return p, ok
}

// List обработчик GET /api/playlists.
type List struct{ base }

func NewList(log *slog.Logger, svc Service) *List { return &List{newBase(log, svc)} }

// ServeHTTP godoc
// @Summary Плейлисты текущего пользователя
// @Tags Playlists
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} response.Response
// @Router /api/playlists [get]
func (h *List) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.playlists.list", r)

	p, ok := principal(w, r)
	if !ok {
		return
	}
	list, err := h.svc.List(r.Context(), p.UserID)
	if err != nil {
		log.Error("failed to list playlists", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Playlist{}
	}
	render.JSON(w, r, response.StatusOKWithData(list))
}

// Create обработчик POST /api/playlists.
type Create struct{ base }

func NewCreate(log *slog.Logger, svc Service) *Create { return &Create{newBase(log, svc)} }

// ServeHTTP godoc
// @Summary Создание плейлиста
// @Tags Playlists
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param request body models.PlaylistInput true "Название и описание"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Router /api/playlists [post]
func (h *Create) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.playlists.create", r)

	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req models.PlaylistInput
	if !h.decode(w, r, log, &req) {
		return
	}
	pl, err := h.svc.Create(r.Context(), p.UserID, req)
	if err != nil {
		log.Error("failed to create playlist", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("playlist created", slog.String("playlist_id", pl.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(pl))
}

// Get обработчик GET /api/playlists/{id}.
type Get struct{ base }

func NewGet(log *slog.Logger, svc Service) *Get { return &Get{newBase(log, svc)} }

// ServeHTTP godoc
// @Summary Плейлист по ID
// @Tags Playlists
// @Security BearerAuth
// @Produce  json
// @Param id path string true "ID плейлиста"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Чужой плейлист"
// @Failure 404 {object} response.ErrorResponse "Плейлист не найден"
// @Router /api/playlists/{id} [get]
func (h *Get) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.playlists.get", r)

	p, ok := principal(w, r)
	if !ok {
		return
	}
	pl, err := h.svc.Get(r.Context(), p.UserID, chi.URLParam(r, "id"))
	if err != nil {
		log.Error("failed to get playlist", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(pl))
}

// Update обработчик PUT /api/playlists/{id}.
type Update struct{ base }

func NewUpdate(log *slog.Logger, svc Service) *Update { return &Update{newBase(log, svc)} }

// ServeHTTP godoc
// @Summary Изменение плейлиста
// @Tags Playlists
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param id path string true "ID плейлиста"
// @Param request body models.PlaylistInput true "Название и описание"
// @Success 200 {object} response.Response
// @Router /api/playlists/{id} [put]
func (h *Update) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.playlists.update", r)

	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req models.PlaylistInput
	if !h.decode(w, r, log, &req) {
		return
	}
	pl, err := h.svc.Update(r.Context(), p.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		log.Error("failed to update playlist", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(pl))
}

// Delete обработчик DELETE /api/playlists/{id}.
type Delete struct{ base }

func NewDelete(log *slog.Logger, svc Service) *Delete { return &Delete{newBase(log, svc)} }

// ServeHTTP godoc
// @Summary Удаление плейлиста
// @Tags Playlists
// @Security BearerAuth
// @Produce  json
// @Param id path string true "ID плейлиста"
// @Success 200 {object} response.Response
// @Router /api/playlists/{id} [delete]
func (h *Delete) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.playlists.delete", r)

	p, ok := principal(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), p.UserID, id); err != nil {
		log.Error("failed to delete playlist", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("playlist deleted", slog.String("playlist_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]string{"id": id}))
}

// AddSong обработчик POST /api/playlists/{id}/songs.
type AddSong struct{ base }

func NewAddSong(log *slog.Logger, svc Service) *AddSong { return &AddSong{newBase(log, svc)} }

// ServeHTTP godoc
// @Summary Добавление трека
// @Description Метаданные трека берутся из Spotify. Повторное добавление дает 409.
// @Tags Playlists
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param id path string true "ID плейлиста"
// @Param request body SongRequest true "Spotify ID трека"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Трек уже в плейлисте"
// @Router /api/playlists/{id}/songs [post]
func (h *AddSong) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.playlists.addSong", r)

	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req SongRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	pl, err := h.svc.AddSong(r.Context(), p.UserID, chi.URLParam(r, "id"), req.TrackID)
	if err != nil {
		log.Error("failed to add song", slog.String("track_id", req.TrackID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(pl))
}

// RemoveSong обработчик DELETE /api/playlists/{id}/songs/{trackId}.
type RemoveSong struct{ base }

func NewRemoveSong(log *slog.Logger, svc Service) *RemoveSong {
	return &RemoveSong{newBase(log, svc)}
}

// ServeHTTP godoc
// @Summary Удаление трека
// @Tags Playlists
// @Security BearerAuth
// @Produce  json
// @Param id path string true "ID плейлиста"
// @Param trackId path string true "Spotify ID трека"
// @Success 200 {object} response.Response
// @Router /api/playlists/{id}/songs/{trackId} [delete]
func (h *RemoveSong) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.playlists.removeSong", r)

	p, ok := principal(w, r)
	if !ok {
		return
	}
	pl, err := h.svc.RemoveSong(r.Context(), p.UserID, chi.URLParam(r, "id"), chi.URLParam(r, "trackId"))
	if err != nil {
		log.Error("failed to remove song", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(pl))
}
