// Package middlewarectx содержит HTTP middleware аутентификации и ограничения
// частоты запросов.
//
// Authenticate принимает JWT в заголовке Authorization или, если заголовка нет,
// пользователя из серверной сессии. В обоих случаях пользователь загружается
// из хранилища: блокировка и смена роли действуют сразу. В контекст кладутся
// ID, имя и роль пользователя. RequireAdmin пропускает только администраторов.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/jukebox/internal/http/response"
	"github.com/magabrotheeeer/jukebox/internal/lib/jwt"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/models"
	"github.com/magabrotheeeer/jukebox/internal/session"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID ключ для ID пользователя в контексте
	UserID Key = "user_id"
	// User ключ для имени пользователя в контексте
	User Key = "username"
	// Role ключ для роли пользователя в контексте
	Role Key = "role"
)

// Principal аутентифицированный пользователь запроса.
type Principal struct {
	UserID   string
	Username string
	Role     models.Role
}

// IsAdmin сообщает, является ли пользователь администратором.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// UserLookup загрузка пользователя для сессионной аутентификации.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// WithPrincipal кладет пользователя в контекст.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, UserID, p.UserID)
	ctx = context.WithValue(ctx, User, p.Username)
	return context.WithValue(ctx, Role, string(p.Role))
}

// PrincipalFromContext достает пользователя, положенного Authenticate.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	id, ok := ctx.Value(UserID).(string)
	if !ok || id == "" {
		return Principal{}, false
	}
	username, _ := ctx.Value(User).(string)
	role, _ := ctx.Value(Role).(string)
	return Principal{UserID: id, Username: username, Role: models.Role(role)}, true
}

// Authenticate возвращает middleware, которое требует JWT или сессию с вошедшим пользователем.
func Authenticate(jwtMaker jwt.Maker, users UserLookup, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Authenticate"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			p, err := resolve(r, jwtMaker, users)
			if err != nil {
				status, msg := http.StatusUnauthorized, "missing or invalid credentials"
				if errors.Is(err, models.ErrForbidden) {
					status, msg = http.StatusForbidden, "user is blocked"
				} else if errors.Is(err, models.ErrUpstream) {
					status, msg = response.StatusFromError(err)
				}
				log.Error("authentication failed", sl.Err(err))
				render.Status(r, status)
				render.JSON(w, r, response.Error(msg))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func resolve(r *http.Request, jwtMaker jwt.Maker, users UserLookup) (Principal, error) {
	id, err := credentialsUserID(r, jwtMaker)
	if err != nil {
		return Principal{}, err
	}
	return LoadPrincipal(r.Context(), users, id)
}

// credentialsUserID достает ID пользователя из JWT, а без заголовка из сессии.
func credentialsUserID(r *http.Request, jwtMaker jwt.Maker) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", errors.New("invalid authorization header")
		}
		claims, err := jwtMaker.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			return "", err
		}
		return claims.UserID, nil
	}

	sess := session.FromContext(r.Context())
	if sess == nil || sess.UserID() == "" {
		return "", models.ErrUnauthorized
	}
	return sess.UserID(), nil
}

// LoadPrincipal загружает пользователя из хранилища. Роль берется из записи,
// а не из токена, заблокированный пользователь получает ErrForbidden.
func LoadPrincipal(ctx context.Context, users UserLookup, id string) (Principal, error) {
	if users == nil || id == "" {
		return Principal{}, models.ErrUnauthorized
	}
	u, err := users.GetUserByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return Principal{}, models.ErrUnauthorized
	}
	if err != nil {
		return Principal{}, err
	}
	if u.Blocked {
		return Principal{}, models.ErrForbidden
	}
	return Principal{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

// RequireAdmin пропускает только пользователей с ролью admin. Ставится после Authenticate.
func RequireAdmin(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid credentials"))
				return
			}
			if !p.IsAdmin() {
				log.Warn("admin access denied",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("user_id", p.UserID),
				)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
