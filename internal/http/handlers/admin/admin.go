// Package admin содержит обработчики модерации /api/users для администраторов.
// Маршруты закрыты middlewarectx.RequireAdmin.
package admin

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

// Service действия администратора.
type Service interface {
	Block(ctx context.Context, actorID, userID string) error
	Unblock(ctx context.Context, actorID, userID string) error
	SetRole(ctx context.Context, actorID, userID, role string) error
	Delete(ctx context.Context, actorID, userID string) error
}

// Action обработчик одного действия модерации над пользователем {id}.
type Action struct {
	log  *slog.Logger
	name string
	do   func(ctx context.Context, actorID, userID string) error
}

// NewBlock PATCH /api/users/{id}/block.
func NewBlock(log *slog.Logger, svc Service) *Action {
	return &Action{log: log, name: "block", do: svc.Block}
}

// NewUnblock PATCH /api/users/{id}/unblock.
func NewUnblock(log *slog.Logger, svc Service) *Action {
	return &Action{log: log, name: "unblock", do: svc.Unblock}
}

// NewDelete DELETE /api/users/{id}.
func NewDelete(log *slog.Logger, svc Service) *Action {
	return &Action{log: log, name: "delete", do: svc.Delete}
}

// ServeHTTP godoc
// @Summary Модерация пользователя
// @Description Блокировка, разблокировка или удаление. Требуется роль admin.
// @Tags Admin
// @Security BearerAuth
// @Produce  json
// @Param id path string true "ID пользователя"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Действие над своей учетной записью"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /api/users/{id}/block [patch]
// @Router /api/users/{id}/unblock [patch]
// @Router /api/users/{id} [delete]
func (h *Action) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	op := "handlers.admin." + h.name

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok {
		response.RenderError(w, r, models.ErrUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.do(r.Context(), p.UserID, id); err != nil {
		log.Error("moderation failed", slog.String("user_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("moderation applied", slog.String("user_id", id), slog.String("actor_id", p.UserID))
	render.JSON(w, r, response.StatusOKWithData(map[string]string{"id": id, "action": h.name}))
}

// RoleRequest новая роль пользователя.
type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// SetRole обработчик PATCH /api/users/{id}/role.
type SetRole struct {
	log      *slog.Logger
	svc      Service
	validate *validator.Validate
}

func NewSetRole(log *slog.Logger, svc Service) *SetRole {
	return &SetRole{
		log:      log,
		svc:      svc,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Смена роли пользователя
// @Tags Admin
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param id path string true "ID пользователя"
// @Param request body RoleRequest true "Новая роль"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response "Недопустимая роль"
// @Router /api/users/{id}/role [patch]
func (h *SetRole) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.setRole"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFromContext(r.Context())
	if !ok {
		response.RenderError(w, r, models.ErrUnauthorized)
		return
	}

	var req RoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		validateErr, ok := err.(validator.ValidationErrors)
		if !ok {
			response.RenderError(w, r, models.ErrInvalidInput)
			return
		}
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(validateErr))
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.svc.SetRole(r.Context(), p.UserID, id, req.Role); err != nil {
		log.Error("failed to set role", slog.String("user_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("role changed", slog.String("user_id", id), slog.String("role", req.Role))
	render.JSON(w, r, response.StatusOKWithData(map[string]string{"id": id, "role": req.Role}))
}
