// Package users содержит обработчики публичного списка пользователей.
package users

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/jukebox/internal/http/response"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/models"
)

// Service выборка публичных профилей.
type Service interface {
	List(ctx context.Context, f models.UserFilter) ([]models.PublicUser, error)
	Get(ctx context.Context, id string) (*models.PublicUser, error)
}

// List обработчик GET /api/users.
type List struct {
	log *slog.Logger
	svc Service
}

func NewList(log *slog.Logger, svc Service) *List {
	return &List{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Список пользователей
// @Tags Users
// @Produce  json
// @Param role query string false "user или admin"
// @Param blocked query bool false "Фильтр по блокировке"
// @Param limit query int false "Размер страницы, по умолчанию 50"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Router /api/users [get]
func (h *List) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	f, err := parseFilter(r)
	if err != nil {
		log.Error("invalid query", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid query parameters"))
		return
	}

	list, err := h.svc.List(r.Context(), f)
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(list))
}

func parseFilter(r *http.Request) (models.UserFilter, error) {
	q := r.URL.Query()
	f := models.UserFilter{Role: models.Role(q.Get("role"))}

	if v := q.Get("blocked"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, err
		}
		f.Blocked = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, err
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, err
		}
		f.Offset = n
	}
	return f, nil
}

// Get обработчик GET /api/users/{id}.
type Get struct {
	log *slog.Logger
	svc Service
}

func NewGet(log *slog.Logger, svc Service) *Get {
	return &Get{log: log, svc: svc}
}

// ServeHTTP godoc
// @Summary Публичный профиль пользователя
// @Tags Users
// @Produce  json
// @Param id path string true "ID пользователя"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /api/users/{id} [get]
func (h *Get) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.get"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	u, err := h.svc.Get(r.Context(), id)
	if err != nil {
		log.Error("failed to get user", slog.String("user_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(u))
}
