package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/jukebox/internal/http/response"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/models"
	"github.com/magabrotheeeer/jukebox/internal/session"
)

// LoginRequest вход по имени пользователя или email.
type LoginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse токен и данные пользователя.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login обработчик POST /api/auth/login.
type Login struct {
	log      *slog.Logger
	svc      Service
	sessions Sessions
	validate *validator.Validate
}

func NewLogin(log *slog.Logger, svc Service, sessions Sessions) *Login {
	return &Login{
		log:      log,
		svc:      svc,
		sessions: sessions,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход пользователя
// @Description Проверяет пароль, возвращает JWT и привязывает пользователя к сессии.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body LoginRequest true "Учетные данные"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 403 {object} response.ErrorResponse "Пользователь заблокирован"
// @Router /api/auth/login [post]
func (h *Login) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req LoginRequest
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

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	token, user, err := h.svc.Login(r.Context(), identifier, req.Password)
	if err != nil {
		log.Error("login failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	if err := signIn(r, w, h.sessions, user.ID); err != nil {
		log.Error("failed to bind user to session", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("login success", slog.String("user_id", user.ID))
	render.JSON(w, r, response.StatusOKWithData(LoginResponse{Token: token, User: user}))
}

// signIn привязывает пользователя к сессии запроса под новым ID сессии.
func signIn(r *http.Request, w http.ResponseWriter, sessions Sessions, userID string) error {
	s := session.FromContext(r.Context())
	if s == nil {
		return nil
	}
	if err := sessions.Regenerate(r.Context(), w, s); err != nil {
		return err
	}
	s.Set(session.KeyUserID, userID)
	return nil
}
