// Package songs содержит обработчики /api/songs: поиск треков, трек и артист по ID.
package songs

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/jukebox/internal/http/response"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/models"
	"github.com/magabrotheeeer/jukebox/internal/spotify"
)

// Catalog источник данных о треках и артистах.
type Catalog interface {
	GetSongByID(ctx context.Context, trackID string) (*spotify.Track, error)
	GetSongByName(ctx context.Context, query string) ([]spotify.Track, error)
	GetArtistByID(ctx context.Context, artistID string) (*spotify.ArtistSummary, error)
}

// Search обработчик GET /api/songs/search?q=.
type Search struct {
	log     *slog.Logger
	catalog Catalog
}

func NewSearch(log *slog.Logger, catalog Catalog) *Search {
	return &Search{log: log, catalog: catalog}
}

// ServeHTTP godoc
// @Summary Поиск треков
// @Description Не более пяти треков. Пустой запрос возвращает пустой список.
// @Tags Songs
// @Produce  json
// @Param q query string true "Строка поиска"
// @Success 200 {object} response.Response
// @Failure 502 {object} response.ErrorResponse "Spotify недоступен"
// @Router /api/songs/search [get]
func (h *Search) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.songs.search"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	tracks, err := h.catalog.GetSongByName(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		log.Error("search failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	if tracks == nil {
		tracks = []spotify.Track{}
	}
	render.JSON(w, r, response.StatusOKWithData(tracks))
}

// Get обработчик GET /api/songs/{id}.
type Get struct {
	log     *slog.Logger
	catalog Catalog
}

func NewGet(log *slog.Logger, catalog Catalog) *Get {
	return &Get{log: log, catalog: catalog}
}

// ServeHTTP godoc
// @Summary Трек по ID
// @Tags Songs
// @Produce  json
// @Param id path string true "Spotify ID трека"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Трек не найден"
// @Router /api/songs/{id} [get]
func (h *Get) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.songs.get"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if id == "" {
		response.RenderError(w, r, models.ErrInvalidInput)
		return
	}

	track, err := h.catalog.GetSongByID(r.Context(), id)
	if err != nil {
		log.Error("failed to get track", slog.String("track_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(track))
}

// Artist обработчик GET /api/songs/artist/{id}.
type Artist struct {
	log     *slog.Logger
	catalog Catalog
}

func NewArtist(log *slog.Logger, catalog Catalog) *Artist {
	return &Artist{log: log, catalog: catalog}
}

// ServeHTTP godoc
// @Summary Артист по ID
// @Description image равен null, если у артиста нет изображений.
// @Tags Songs
// @Produce  json
// @Param id path string true "Spotify ID артиста"
// @Success 200 {object} response.Response
// @Router /api/songs/artist/{id} [get]
func (h *Artist) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.songs.artist"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	if id == "" {
		response.RenderError(w, r, models.ErrInvalidInput)
		return
	}

	a, err := h.catalog.GetArtistByID(r.Context(), id)
	if err != nil {
		log.Error("failed to get artist", slog.String("artist_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(a))
}
