// Package playlist управляет личными плейлистами пользователя.
// Изменять плейлист может только его владелец.
package playlist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/jukebox/internal/models"
	"github.com/magabrotheeeer/jukebox/internal/spotify"
)

// Repository хранилище плейлистов.
type Repository interface {
	CreatePlaylist(ctx context.Context, p *models.Playlist) error
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	ListPlaylists(ctx context.Context, ownerID string) ([]*models.Playlist, error)
	UpdatePlaylist(ctx context.Context, id string, in models.PlaylistInput) (*models.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	AddPlaylistSong(ctx context.Context, id string, song models.Song) (*models.Playlist, error)
	RemovePlaylistSong(ctx context.Context, id, trackID string) (*models.Playlist, error)
}

// TrackSource источник метаданных трека.
type TrackSource interface {
	GetSongByID(ctx context.Context, trackID string) (*spotify.Track, error)
}

// Service сервис личных плейлистов.
type Service struct {
	repo   Repository
	tracks TrackSource
	now    func() time.Time
}

func New(repo Repository, tracks TrackSource) *Service {
	return &Service{
		repo:   repo,
		tracks: tracks,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List плейлисты пользователя.
func (s *Service) List(ctx context.Context, userID string) ([]*models.Playlist, error) {
	const op = "services.playlist.List"
	list, err := s.repo.ListPlaylists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Create создает пустой плейлист.
func (s *Service) Create(ctx context.Context, userID string, in models.PlaylistInput) (*models.Playlist, error) {
	const op = "services.playlist.Create"
	in, err := normalize(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p := &models.Playlist{
		OwnerID:     userID,
		Name:        in.Name,
		Description: in.Description,
	}
	if err := s.repo.CreatePlaylist(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Get возвращает плейлист владельцу.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Playlist, error) {
	const op = "services.playlist.Get"
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Update меняет название и описание.
func (s *Service) Update(ctx context.Context, userID, id string, in models.PlaylistInput) (*models.Playlist, error) {
	const op = "services.playlist.Update"
	in, err := normalize(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := s.repo.UpdatePlaylist(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Delete удаляет плейлист.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	const op = "services.playlist.Delete"
	if _, err := s.owned(ctx, userID, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeletePlaylist(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AddSong добавляет трек по его ID в Spotify. Повторное добавление дает ErrConflict.
func (s *Service) AddSong(ctx context.Context, userID, id, trackID string) (*models.Playlist, error) {
	const op = "services.playlist.AddSong"
	if strings.TrimSpace(trackID) == "" {
		return nil, fmt.Errorf("%s: empty track id: %w", op, models.ErrInvalidInput)
	}
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	track, err := s.tracks.GetSongByID(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	song := track.Song()
	song.AddedBy = userID
	song.AddedAt = s.now()

	p, err := s.repo.AddPlaylistSong(ctx, id, song)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// RemoveSong убирает трек из плейлиста.
func (s *Service) RemoveSong(ctx context.Context, userID, id, trackID string) (*models.Playlist, error) {
	const op = "services.playlist.RemoveSong"
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := s.repo.RemovePlaylistSong(ctx, id, trackID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (*models.Playlist, error) {
	p, err := s.repo.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != userID {
		return nil, fmt.Errorf("playlist %s: %w", id, models.ErrForbidden)
	}
	return p, nil
}

func normalize(in models.PlaylistInput) (models.PlaylistInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, fmt.Errorf("empty name: %w", models.ErrInvalidInput)
	}
	return in, nil
}
