package spotify

import (
	"fmt"
	"net/http"

	"github.com/magabrotheeeer/jukebox/internal/models"
)

// Image изображение обложки или артиста.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SimpleArtist артист в составе трека или альбома.
type SimpleArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album альбом трека.
type Album struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	Images      []Image        `json:"images"`
	Artists     []SimpleArtist `json:"artists"`
}

// Track трек в представлении Spotify Web API.
type Track struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Artists     []SimpleArtist    `json:"artists"`
	Album       Album             `json:"album"`
	DurationMS  int               `json:"duration_ms"`
	Explicit    bool              `json:"explicit"`
	Popularity  int               `json:"popularity"`
	PreviewURL  *string           `json:"preview_url"`
	URI         string            `json:"uri"`
	ExternalURL map[string]string `json:"external_urls,omitempty"`
}

// Song переводит трек в запись плейлиста.
func (t *Track) Song() models.Song {
	s := models.Song{
		TrackID:    t.ID,
		Title:      t.Name,
		Album:      t.Album.Name,
		DurationMS: t.DurationMS,
	}
	if len(t.Artists) > 0 {
		s.Artist = t.Artists[0].Name
	}
	if len(t.Album.Images) > 0 {
		s.ImageURL = t.Album.Images[0].URL
	}
	return s
}

type artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	Images []Image  `json:"images"`
}

// ArtistSummary сокращенное представление артиста.
// Image равен nil (null в JSON), если у артиста нет изображений.
type ArtistSummary struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Image  *string  `json:"image"`
	Genres []string `json:"genres"`
}

func (a artist) summary() *ArtistSummary {
	s := &ArtistSummary{
		ID:     a.ID,
		Name:   a.Name,
		Genres: a.Genres,
	}
	if len(a.Images) > 0 && a.Images[0].URL != "" {
		url := a.Images[0].URL
		s.Image = &url
	}
	return s
}

type searchResponse struct {
	Tracks struct {
		Items []Track `json:"items"`
	} `json:"tracks"`
}

// UserProfile профиль пользователя Spotify (эндпоинт /me).
type UserProfile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Images      []Image `json:"images"`
}

// APIError ошибка, которую вернул Spotify.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify api: status %d: %s", e.StatusCode, e.Message)
}

// Is позволяет сопоставлять ответ провайдера с видами ошибок модели.
func (e *APIError) Is(target error) bool {
	switch target {
	case models.ErrUpstream:
		return true
	case models.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case models.ErrInvalidInput:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

type apiErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}
