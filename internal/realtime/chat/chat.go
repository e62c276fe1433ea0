// Package chat регистрирует в realtime-хабе обработчики чата по комнатам.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/jukebox/internal/models"
	"github.com/magabrotheeeer/jukebox/internal/realtime"
)

// События чата.
const (
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventChatMessage = "chat-message"
	EventUserJoined  = "user-joined"
	EventUserLeft    = "user-left"
)

const maxMessageLength = 1000

// Hub часть realtime-хаба, нужная чату.
type Hub interface {
	On(event string, fn realtime.HandlerFunc)
	Join(c *realtime.Conn, room string)
	Leave(c *realtime.Conn, room string)
	Broadcast(room, event string, data any) error
}

type messageData struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

type handlers struct {
	log *slog.Logger
	hub Hub
	now func() time.Time
}

// Register подключает обработчики join-room, leave-room и chat-message.
func Register(log *slog.Logger, hub Hub) {
	h := &handlers{
		log: log.With(slog.String("component", "chat")),
		hub: hub,
		now: func() time.Time { return time.Now().UTC() },
	}
	hub.On(EventJoinRoom, h.joinRoom)
	hub.On(EventLeaveRoom, h.leaveRoom)
	hub.On(EventChatMessage, h.message)
}

func (h *handlers) joinRoom(_ context.Context, c *realtime.Conn, f realtime.Frame) error {
	const op = "chat.joinRoom"
	if err := checkRoom(op, f.Room); err != nil {
		return err
	}
	h.hub.Join(c, f.Room)
	h.log.Debug("joined room", slog.String("room", f.Room), slog.String("conn_id", c.ID))
	return h.hub.Broadcast(f.Room, EventUserJoined, map[string]string{
		"username": displayName(c, ""),
	})
}

func (h *handlers) leaveRoom(_ context.Context, c *realtime.Conn, f realtime.Frame) error {
	const op = "chat.leaveRoom"
	if err := checkRoom(op, f.Room); err != nil {
		return err
	}
	h.hub.Leave(c, f.Room)
	return h.hub.Broadcast(f.Room, EventUserLeft, map[string]string{
		"username": displayName(c, ""),
	})
}

// Пустые сообщения молча игнорируются.
func (h *handlers) message(_ context.Context, c *realtime.Conn, f realtime.Frame) error {
	const op = "chat.message"
	if err := checkRoom(op, f.Room); err != nil {
		return err
	}

	var data messageData
	if len(f.Data) > 0 {
		if err := json.Unmarshal(f.Data, &data); err != nil {
			return fmt.Errorf("%s: %w", op, models.ErrInvalidInput)
		}
	}
	text := strings.TrimSpace(data.Text)
	if text == "" {
		return nil
	}
	if r := []rune(text); len(r) > maxMessageLength {
		text = string(r[:maxMessageLength])
	}

	msg := models.ChatMessage{
		ID:       uuid.NewString(),
		Room:     f.Room,
		UserID:   c.Identity.UserID,
		Username: displayName(c, data.Username),
		Text:     text,
		SentAt:   h.now(),
	}
	if err := h.hub.Broadcast(f.Room, EventChatMessage, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Комнаты совместных плейлистов доступны только через collabsocket,
// где проверяется участие в плейлисте.
func checkRoom(op, room string) error {
	if room == "" {
		return fmt.Errorf("%s: %w: room is required", op, models.ErrInvalidInput)
	}
	if models.IsCollabRoom(room) {
		return fmt.Errorf("%s: %w: room %q is reserved", op, models.ErrForbidden, room)
	}
	return nil
}

func displayName(c *realtime.Conn, fallback string) string {
	if c.Identity.Username != "" {
		return c.Identity.Username
	}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return fallback
	}
	return "anonymous"
}
