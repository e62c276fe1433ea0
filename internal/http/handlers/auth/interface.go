package auth

import (
	"context"
	"net/http"

	"github.com/magabrotheeeer/jukebox/internal/models"
	authservice "github.com/magabrotheeeer/jukebox/internal/services/auth"
	"github.com/magabrotheeeer/jukebox/internal/session"
)

// Service описывает бизнес-логику аутентификации.
type Service interface {
	Register(ctx context.Context, in authservice.RegisterInput) (*models.User, error)
	Login(ctx context.Context, identifier, password string) (string, *models.User, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, p models.Profile) (*models.User, error)
	SpotifyLogin(ctx context.Context, code, sessionUserID string) (string, *models.User, error)
}

// Sessions смена ID сессии при входе и уничтожение при выходе.
type Sessions interface {
	Regenerate(ctx context.Context, w http.ResponseWriter, s *session.Session) error
	Destroy(ctx context.Context, w http.ResponseWriter, s *session.Session) error
}

// SpotifyAuthorizer ссылка на страницу входа Spotify.
type SpotifyAuthorizer interface {
	AuthCodeURL(state string) string
}
