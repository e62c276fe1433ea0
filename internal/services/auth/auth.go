// Package auth содержит логику регистрации, входа и профиля пользователя,
// включая вход через Spotify.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/magabrotheeeer/jukebox/internal/events"
	"github.com/magabrotheeeer/jukebox/internal/lib/jwt"
	"github.com/magabrotheeeer/jukebox/internal/lib/password"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/models"
	"github.com/magabrotheeeer/jukebox/internal/spotify"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserBySpotifyID(ctx context.Context, spotifyID string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, p models.Profile) (*models.User, error)
	SetSpotify(ctx context.Context, id string, identity models.SpotifyIdentity) error
}

// SpotifyAuth вход через Spotify по коду авторизации.
type SpotifyAuth interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	CurrentUser(ctx context.Context, tok *oauth2.Token) (*spotify.UserProfile, error)
}

// RegisterInput данные для регистрации.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DateOfBirth *time.Time
	Age         string
	Gender      string
	Bio         string
}

// Service отвечает за регистрацию, вход и профиль.
type Service struct {
	log      *slog.Logger
	users    UserRepository
	jwtMaker jwt.Maker
	spotify  SpotifyAuth
	events   events.Publisher
	now      func() time.Time
}

// New создает сервис. spotify может быть nil, тогда вход через Spotify недоступен.
func New(log *slog.Logger, users UserRepository, jwtMaker jwt.Maker, sp SpotifyAuth, pub events.Publisher) *Service {
	return &Service{
		log:      log,
		users:    users,
		jwtMaker: jwtMaker,
		spotify:  sp,
		events:   pub,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register создает пользователя с ролью user. Email должен быть свободен.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "services.auth.Register"

	email := strings.ToLower(strings.TrimSpace(in.Email))
	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s: email %s: %w", op, email, models.ErrConflict)
	case !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{
		Username:    strings.TrimSpace(in.Username),
		Email:       email,
		Password:    hashed,
		DateOfBirth: in.DateOfBirth,
		Age:         in.Age,
		Gender:      in.Gender,
		Bio:         in.Bio,
	}
	user.ApplyDefaults(s.now())
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, events.Event{Type: events.UserRegistered, UserID: user.ID, At: s.now()})
	return user, nil
}

// Login проверяет пароль по имени пользователя или email и выдает JWT.
func (s *Service) Login(ctx context.Context, identifier, rawPassword string) (string, *models.User, error) {
	const op = "services.auth.Login"

	user, err := s.lookup(ctx, strings.TrimSpace(identifier))
	if errors.Is(err, models.ErrNotFound) {
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.Compare(user.Password, rawPassword); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}
	if user.Blocked {
		return "", nil, fmt.Errorf("%s: user is blocked: %w", op, models.ErrForbidden)
	}

	token, err := s.jwtMaker.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, user, nil
}

func (s *Service) lookup(ctx context.Context, identifier string) (*models.User, error) {
	if strings.Contains(identifier, "@") {
		user, err := s.users.GetUserByEmail(ctx, strings.ToLower(identifier))
		if !errors.Is(err, models.ErrNotFound) {
			return user, err
		}
	}
	return s.users.GetUserByUsername(ctx, identifier)
}

// Me возвращает текущего пользователя.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	const op = "services.auth.Me"
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// UpdateProfile меняет только поля профиля. Роль, блокировка и дата создания
// через этот путь не меняются.
func (s *Service) UpdateProfile(ctx context.Context, userID string, p models.Profile) (*models.User, error) {
	const op = "services.auth.UpdateProfile"
	if p.Username != nil {
		trimmed := strings.TrimSpace(*p.Username)
		if trimmed == "" {
			return nil, fmt.Errorf("%s: empty username: %w", op, models.ErrInvalidInput)
		}
		p.Username = &trimmed
	}
	user, err := s.users.UpdateProfile(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// SpotifyLogin завершает вход через Spotify. Пользователь ищется только по
// Spotify ID: email из профиля Spotify не подтвержден и не дает доступа
// к существующему аккаунту. Если sessionUserID не пуст, аккаунт Spotify
// привязывается к этому уже вошедшему пользователю. Без привязки и при
// совпадении email с существующим аккаунтом возвращается ErrConflict.
func (s *Service) SpotifyLogin(ctx context.Context, code, sessionUserID string) (string, *models.User, error) {
	const op = "services.auth.SpotifyLogin"
	if s.spotify == nil {
		return "", nil, fmt.Errorf("%s: spotify login is not configured: %w", op, models.ErrUpstream)
	}
	if code == "" {
		return "", nil, fmt.Errorf("%s: empty code: %w", op, models.ErrInvalidInput)
	}

	tok, err := s.spotify.Exchange(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	profile, err := s.spotify.CurrentUser(ctx, tok)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	identity := models.SpotifyIdentity{
		ID:           profile.ID,
		DisplayName:  profile.DisplayName,
		Email:        strings.ToLower(profile.Email),
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}

	user, err := s.users.GetUserBySpotifyID(ctx, identity.ID)
	switch {
	case err == nil:
		if sessionUserID != "" && sessionUserID != user.ID {
			return "", nil, fmt.Errorf("%s: spotify account is linked to another user: %w", op, models.ErrConflict)
		}
	case !errors.Is(err, models.ErrNotFound):
		return "", nil, fmt.Errorf("%s: %w", op, err)
	case sessionUserID != "":
		user, err = s.users.GetUserByID(ctx, sessionUserID)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", op, err)
		}
	default:
		user, err = s.createSpotifyUser(ctx, identity)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if user.Blocked {
		return "", nil, fmt.Errorf("%s: user is blocked: %w", op, models.ErrForbidden)
	}

	if user.Spotify == nil || user.Spotify.AccessToken != identity.AccessToken {
		if err := s.users.SetSpotify(ctx, user.ID, identity); err != nil {
			return "", nil, fmt.Errorf("%s: %w", op, err)
		}
		user.Spotify = &identity
	}

	token, err := s.jwtMaker.GenerateToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, user, nil
}

func (s *Service) createSpotifyUser(ctx context.Context, id models.SpotifyIdentity) (*models.User, error) {
	username := id.DisplayName
	if username == "" {
		username = "spotify-" + id.ID
	}
	if id.Email != "" {
		_, err := s.users.GetUserByEmail(ctx, id.Email)
		switch {
		case err == nil:
			return nil, fmt.Errorf("email belongs to an existing account, log in to link spotify: %w", models.ErrConflict)
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}
	}

	user := &models.User{
		Username: username,
		Email:    id.Email,
		Spotify:  &id,
	}
	user.ApplyDefaults(s.now())
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user created from spotify profile", slog.String("user_id", user.ID))
	s.publish(ctx, events.Event{
		Type:   events.UserRegistered,
		UserID: user.ID,
		At:     s.now(),
		Data:   map[string]string{"provider": "spotify"},
	})
	return user, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Error("failed to publish event", slog.String("type", e.Type), sl.Err(err))
	}
}
