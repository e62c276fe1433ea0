// Package collab управляет совместными плейлистами. После каждого изменения
// участникам комнаты плейлиста рассылается событие playlist-updated.
package collab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
	"github.com/magabrotheeeer/jukebox/internal/models"
	"github.com/magabrotheeeer/jukebox/internal/spotify"
)

// EventPlaylistUpdated событие об изменении совместного плейлиста.
const EventPlaylistUpdated = "playlist-updated"

const (
	inviteCodeLength   = 8
	inviteCodeAttempts = 3
)

// Repository хранилище совместных плейлистов.
type Repository interface {
	CreateCollab(ctx context.Context, p *models.CollabPlaylist) error
	GetCollab(ctx context.Context, id string) (*models.CollabPlaylist, error)
	GetCollabByInvite(ctx context.Context, code string) (*models.CollabPlaylist, error)
	ListCollabsForUser(ctx context.Context, userID string) ([]*models.CollabPlaylist, error)
	AddCollaborator(ctx context.Context, id, userID string) (*models.CollabPlaylist, error)
	AddCollabSong(ctx context.Context, id string, song models.Song) (*models.CollabPlaylist, error)
	RemoveCollabSong(ctx context.Context, id, trackID string) (*models.CollabPlaylist, error)
	DeleteCollab(ctx context.Context, id string) error
}

// TrackSource источник метаданных трека.
type TrackSource interface {
	GetSongByID(ctx context.Context, trackID string) (*spotify.Track, error)
}

// Broadcaster рассылка событий по комнатам.
type Broadcaster interface {
	Broadcast(room, event string, data any) error
}

// Deleted содержимое playlist-updated после удаления плейлиста.
type Deleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// Service сервис совместных плейлистов.
type Service struct {
	log    *slog.Logger
	repo   Repository
	tracks TrackSource
	hub    Broadcaster
	now    func() time.Time
}

func New(log *slog.Logger, repo Repository, tracks TrackSource, hub Broadcaster) *Service {
	return &Service{
		log:    log,
		repo:   repo,
		tracks: tracks,
		hub:    hub,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create создает плейлист с новым кодом приглашения.
func (s *Service) Create(ctx context.Context, userID, name string) (*models.CollabPlaylist, error) {
	const op = "services.collab.Create"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%s: empty name: %w", op, models.ErrInvalidInput)
	}

	var err error
	for i := 0; i < inviteCodeAttempts; i++ {
		p := &models.CollabPlaylist{
			Name:       name,
			OwnerID:    userID,
			InviteCode: newInviteCode(),
		}
		err = s.repo.CreateCollab(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, models.ErrConflict) {
			break
		}
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}

// Get возвращает плейлист участнику.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.CollabPlaylist, error) {
	const op = "services.collab.Get"
	p, err := s.member(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListForUser плейлисты, где пользователь владелец или участник.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]*models.CollabPlaylist, error) {
	const op = "services.collab.ListForUser"
	list, err := s.repo.ListCollabsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Join добавляет пользователя в участники по коду приглашения.
func (s *Service) Join(ctx context.Context, userID, code string) (*models.CollabPlaylist, error) {
	const op = "services.collab.Join"
	p, err := s.repo.GetCollabByInvite(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.HasMember(userID) {
		return p, nil
	}
	p, err = s.repo.AddCollaborator(ctx, p.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.broadcast(p.Room(), p)
	return p, nil
}

// AddSong добавляет трек. Доступно любому участнику.
func (s *Service) AddSong(ctx context.Context, userID, id, trackID string) (*models.CollabPlaylist, error) {
	const op = "services.collab.AddSong"
	if strings.TrimSpace(trackID) == "" {
		return nil, fmt.Errorf("%s: empty track id: %w", op, models.ErrInvalidInput)
	}
	if _, err := s.member(ctx, userID, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	track, err := s.tracks.GetSongByID(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	song := track.Song()
	song.AddedBy = userID
	song.AddedAt = s.now()

	p, err := s.repo.AddCollabSong(ctx, id, song)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.broadcast(p.Room(), p)
	return p, nil
}

// RemoveSong убирает трек. Доступно любому участнику.
func (s *Service) RemoveSong(ctx context.Context, userID, id, trackID string) (*models.CollabPlaylist, error) {
	const op = "services.collab.RemoveSong"
	if _, err := s.member(ctx, userID, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := s.repo.RemoveCollabSong(ctx, id, trackID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.broadcast(p.Room(), p)
	return p, nil
}

// Delete удаляет плейлист. Доступно только владельцу.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	const op = "services.collab.Delete"
	p, err := s.repo.GetCollab(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if p.OwnerID != userID {
		return fmt.Errorf("%s: only owner can delete: %w", op, models.ErrForbidden)
	}
	if err := s.repo.DeleteCollab(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.broadcast(p.Room(), Deleted{ID: id, Deleted: true})
	return nil
}

func (s *Service) member(ctx context.Context, userID, id string) (*models.CollabPlaylist, error) {
	p, err := s.repo.GetCollab(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.HasMember(userID) {
		return nil, fmt.Errorf("playlist %s: %w", id, models.ErrForbidden)
	}
	return p, nil
}

func (s *Service) broadcast(room string, data any) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Broadcast(room, EventPlaylistUpdated, data); err != nil {
		s.log.Error("failed to broadcast playlist update", slog.String("room", room), sl.Err(err))
	}
}

func newInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:inviteCodeLength]
}
