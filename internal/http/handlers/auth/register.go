// Package auth содержит HTTP-обработчики /api/auth: регистрация, вход, выход,
// профиль текущего пользователя и вход через Spotify.
package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/jukebox/internal/http/response"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	authservice "github.com/magabrotheeeer/jukebox/internal/services/auth"
)

// RegisterRequest входные данные для регистрации.
type RegisterRequest struct {
	Username    string     `json:"username" validate:"required,min=3,max=50"`
	Email       string     `json:"email" validate:"required,email"`
	Password    string     `json:"password" validate:"required,min=6"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Age         string     `json:"age,omitempty" validate:"max=10"`
	Gender      string     `json:"gender,omitempty" validate:"max=30"`
	Bio         string     `json:"bio,omitempty" validate:"max=500"`
}

// Register обработчик POST /api/auth/register.
type Register struct {
	log      *slog.Logger
	svc      Service
	validate *validator.Validate
}

func NewRegister(log *slog.Logger, svc Service) *Register {
	return &Register{
		log:      log,
		svc:      svc,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body RegisterRequest true "Данные пользователя"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Router /api/auth/register [post]
func (h *Register) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req RegisterRequest
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

	user, err := h.svc.Register(r.Context(), authservice.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DateOfBirth: req.DateOfBirth,
		Age:         req.Age,
		Gender:      req.Gender,
		Bio:         req.Bio,
	})
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(user))
}

func renderValidation(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	render.Status(r, http.StatusUnprocessableEntity)
	render.JSON(w, r, response.ValidationError(verrs))
}
