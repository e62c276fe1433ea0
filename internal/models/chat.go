package models

import "time"

// ChatMessage сообщение чата. Не сохраняется, только рассылается участникам комнаты.
type ChatMessage struct {
	ID       string    `json:"id"`
	Room     string    `json:"room"`
	UserID   string    `json:"userId,omitempty"`
	Username string    `json:"username"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
}
