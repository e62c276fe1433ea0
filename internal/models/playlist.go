package models

import (
	"strings"
	"time"
)

// Song трек внутри плейлиста. Метаданные копируются из Spotify при добавлении.
type Song struct {
	TrackID    string    `bson:"trackId" json:"trackId" validate:"required"`
	Title      string    `bson:"title" json:"title" validate:"required"`
	Artist     string    `bson:"artist,omitempty" json:"artist,omitempty"`
	Album      string    `bson:"album,omitempty" json:"album,omitempty"`
	ImageURL   string    `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	DurationMS int       `bson:"durationMs,omitempty" json:"durationMs,omitempty"`
	AddedBy    string    `bson:"addedBy,omitempty" json:"addedBy,omitempty"`
	AddedAt    time.Time `bson:"addedAt" json:"addedAt"`
}

// Playlist личный плейлист пользователя.
type Playlist struct {
	ID          string    `bson:"_id" json:"id"`
	OwnerID     string    `bson:"ownerId" json:"ownerId"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Songs       []Song    `bson:"songs" json:"songs"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PlaylistInput данные для создания и обновления плейлиста.
type PlaylistInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// CollabPlaylist совместный плейлист, который редактируют несколько пользователей.
type CollabPlaylist struct {
	ID            string    `bson:"_id" json:"id"`
	Name          string    `bson:"name" json:"name"`
	OwnerID       string    `bson:"ownerId" json:"ownerId"`
	Collaborators []string  `bson:"collaborators" json:"collaborators"`
	Songs         []Song    `bson:"songs" json:"songs"`
	InviteCode    string    `bson:"inviteCode" json:"inviteCode"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// HasMember сообщает, может ли пользователь редактировать плейлист.
func (p *CollabPlaylist) HasMember(userID string) bool {
	if p.OwnerID == userID {
		return true
	}
	for _, c := range p.Collaborators {
		if c == userID {
			return true
		}
	}
	return false
}

// Room имя комнаты realtime-канала для плейлиста.
func (p *CollabPlaylist) Room() string {
	return CollabRoom(p.ID)
}

// CollabRoomPrefix префикс комнат совместных плейлистов.
const CollabRoomPrefix = "playlist:"

// CollabRoom имя комнаты realtime-канала для плейлиста с заданным ID.
func CollabRoom(id string) string {
	return CollabRoomPrefix + id
}

// IsCollabRoom сообщает, принадлежит ли комната совместному плейлисту.
func IsCollabRoom(room string) bool {
	return strings.HasPrefix(room, CollabRoomPrefix)
}
