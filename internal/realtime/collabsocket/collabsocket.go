// Package collabsocket подключает совместные плейлисты к realtime-хабу:
// вход в комнату плейлиста и добавление или удаление треков через сокет.
package collabsocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/jukebox/internal/models"
	"github.com/magabrotheeeer/jukebox/internal/realtime"
)

// События совместного редактирования.
const (
	EventJoinPlaylist  = "join-playlist"
	EventLeavePlaylist = "leave-playlist"
	EventAddSong       = "add-song"
	EventRemoveSong    = "remove-song"
	EventPlaylistState = "playlist-state"
)

// Service операции над совместным плейлистом.
type Service interface {
	Get(ctx context.Context, userID, id string) (*models.CollabPlaylist, error)
	AddSong(ctx context.Context, userID, id, trackID string) (*models.CollabPlaylist, error)
	RemoveSong(ctx context.Context, userID, id, trackID string) (*models.CollabPlaylist, error)
}

// Hub часть realtime-хаба, нужная обработчикам.
type Hub interface {
	On(event string, fn realtime.HandlerFunc)
	Join(c *realtime.Conn, room string)
	Leave(c *realtime.Conn, room string)
}

type payload struct {
	PlaylistID string `json:"playlistId"`
	TrackID    string `json:"trackId"`
}

type handlers struct {
	log *slog.Logger
	hub Hub
	svc Service
}

// Register подключает обработчики к хабу.
func Register(log *slog.Logger, hub Hub, svc Service) {
	h := &handlers{
		log: log.With(slog.String("component", "collab-socket")),
		hub: hub,
		svc: svc,
	}
	hub.On(EventJoinPlaylist, h.joinPlaylist)
	hub.On(EventLeavePlaylist, h.leavePlaylist)
	hub.On(EventAddSong, h.addSong)
	hub.On(EventRemoveSong, h.removeSong)
}

func (h *handlers) joinPlaylist(ctx context.Context, c *realtime.Conn, f realtime.Frame) error {
	const op = "collabsocket.joinPlaylist"
	p, err := decode(op, c, f, false)
	if err != nil {
		return err
	}
	playlist, err := h.svc.Get(ctx, c.Identity.UserID, p.PlaylistID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	h.hub.Join(c, playlist.Room())
	c.Emit(EventPlaylistState, playlist)
	return nil
}

func (h *handlers) leavePlaylist(_ context.Context, c *realtime.Conn, f realtime.Frame) error {
	const op = "collabsocket.leavePlaylist"
	p, err := decode(op, c, f, false)
	if err != nil {
		return err
	}
	h.hub.Leave(c, models.CollabRoom(p.PlaylistID))
	return nil
}

// Рассылку playlist-updated выполняет сервис.
func (h *handlers) addSong(ctx context.Context, c *realtime.Conn, f realtime.Frame) error {
	const op = "collabsocket.addSong"
	p, err := decode(op, c, f, true)
	if err != nil {
		return err
	}
	if _, err := h.svc.AddSong(ctx, c.Identity.UserID, p.PlaylistID, p.TrackID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (h *handlers) removeSong(ctx context.Context, c *realtime.Conn, f realtime.Frame) error {
	const op = "collabsocket.removeSong"
	p, err := decode(op, c, f, true)
	if err != nil {
		return err
	}
	if _, err := h.svc.RemoveSong(ctx, c.Identity.UserID, p.PlaylistID, p.TrackID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func decode(op string, c *realtime.Conn, f realtime.Frame, needTrack bool) (payload, error) {
	var p payload
	if !c.Authenticated() {
		return p, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}
	if len(f.Data) == 0 || json.Unmarshal(f.Data, &p) != nil {
		return p, fmt.Errorf("%s: %w", op, models.ErrInvalidInput)
	}
	if p.PlaylistID == "" || (needTrack && p.TrackID == "") {
		return p, fmt.Errorf("%s: playlistId and trackId are required: %w", op, models.ErrInvalidInput)
	}
	return p, nil
}
