// Package models содержит доменные модели jukebox: пользователя, плейлисты,
// совместные плейлисты и сообщения чата, а также общие виды ошибок.
// Структуры используются в бизнес-логике, хранилище и HTTP-слое.
package models

import (
	"fmt"
	"time"
)

// Role роль пользователя в системе.
type Role string

const (
	// RoleUser роль по умолчанию.
	RoleUser Role = "user"
	// RoleAdmin администратор, имеет доступ к модерации.
	RoleAdmin Role = "admin"
)

// Valid сообщает, входит ли роль в допустимый набор.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ParseRole проверяет строку и возвращает роль.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("role %q: %w", s, ErrInvalidInput)
	}
	return r, nil
}

// SpotifyIdentity привязанная учетная запись Spotify.
type SpotifyIdentity struct {
	ID           string `bson:"id" json:"id"`
	DisplayName  string `bson:"displayName" json:"displayName"`
	Email        string `bson:"email" json:"email"`
	AccessToken  string `bson:"accessToken" json:"-"`
	RefreshToken string `bson:"refreshToken" json:"-"`
}

// User представляет зарегистрированного пользователя.
//
// Age хранится строкой и никак не связан с DateOfBirth.
type User struct {
	ID          string           `bson:"_id" json:"id"`
	Username    string           `bson:"username" json:"username"`
	Email       string           `bson:"email" json:"email"`
	Password    string           `bson:"password" json:"-"` // bcrypt-хэш
	DateOfBirth *time.Time       `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	Age         string           `bson:"age,omitempty" json:"age,omitempty"`
	Gender      string           `bson:"gender,omitempty" json:"gender,omitempty"`
	Bio         string           `bson:"bio,omitempty" json:"bio,omitempty"`
	Role        Role             `bson:"role" json:"role"`
	Blocked     bool             `bson:"blocked" json:"blocked"`
	Spotify     *SpotifyIdentity `bson:"spotify,omitempty" json:"spotify,omitempty"`
	CreatedAt   time.Time        `bson:"createdAt" json:"createdAt"`
}

// ApplyDefaults заполняет значения по умолчанию перед первой записью:
// роль user и время создания. Blocked по умолчанию false.
func (u *User) ApplyDefaults(now time.Time) {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
}

// IsAdmin сообщает, является ли пользователь администратором.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Profile изменяемые самим пользователем поля. nil: поле не меняется.
type Profile struct {
	Username    *string    `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Age         *string    `json:"age,omitempty"`
	Gender      *string    `json:"gender,omitempty"`
	Bio         *string    `json:"bio,omitempty" validate:"omitempty,max=500"`
}

// UserFilter параметры выборки пользователей.
type UserFilter struct {
	Role    Role
	Blocked *bool
	Limit   int
	Offset  int
}

// PublicUser данные пользователя, которые видят другие пользователи.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Bio       string    `json:"bio,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	Age       string    `json:"age,omitempty"`
	Role      Role      `json:"role"`
	Blocked   bool      `json:"blocked"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public возвращает публичную проекцию пользователя без email, пароля и токенов.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Bio:       u.Bio,
		Gender:    u.Gender,
		Age:       u.Age,
		Role:      u.Role,
		Blocked:   u.Blocked,
		CreatedAt: u.CreatedAt,
	}
}
