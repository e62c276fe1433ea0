package songs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/jukebox/internal/models"
	"github.com/magabrotheeeer/jukebox/internal/spotify"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetSongByID(ctx context.Context, trackID string) (*spotify.Track, error) {
	args := m.Called(ctx, trackID)
	if res := args.Get(0); res != nil {
		return res.(*spotify.Track), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) GetSongByName(ctx context.Context, query string) ([]spotify.Track, error) {
	args := m.Called(ctx, query)
	if res := args.Get(0); res != nil {
		return res.([]spotify.Track), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) GetArtistByID(ctx context.Context, artistID string) (*spotify.ArtistSummary, error) {
	args := m.Called(ctx, artistID)
	if res := args.Get(0); res != nil {
		return res.(*spotify.ArtistSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestSearchHandler(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockCatalog)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "найдены треки",
			query: "daft",
			setupMock: func(m *MockCatalog) {
				m.On("GetSongByName", mock.Anything, "daft").Return([]spotify.Track{{ID: "t1", Name: "One More Time"}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"name":"One More Time"`,
		},
		{
			name:  "пустой запрос",
			query: "",
			setupMock: func(m *MockCatalog) {
				m.On("GetSongByName", mock.Anything, "").Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":[]}`,
		},
		{
			name:  "spotify недоступен",
			query: "daft",
			setupMock: func(m *MockCatalog) {
				m.On("GetSongByName", mock.Anything, "daft").Return(nil, fmt.Errorf("spotify: %w", models.ErrUpstream))
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `"error":"upstream service unavailable"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := new(MockCatalog)
			tt.setupMock(c)

			req := httptest.NewRequest(http.MethodGet, "/api/songs/search?q="+tt.query, nil)
			w := httptest.NewRecorder()
			NewSearch(newNoopLogger(), c).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			c.AssertExpectations(t)
		})
	}
}

func TestGetHandler(t *testing.T) {
	c := new(MockCatalog)
	c.On("GetSongByID", mock.Anything, "t1").Return(&spotify.Track{ID: "t1", Name: "Around the World"}, nil)
	c.On("GetSongByID", mock.Anything, "missing").Return(nil, fmt.Errorf("spotify: %w", models.ErrNotFound))

	w := httptest.NewRecorder()
	NewGet(newNoopLogger(), c).ServeHTTP(w, withID(httptest.NewRequest(http.MethodGet, "/api/songs/t1", nil), "t1"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Around the World"`)

	w = httptest.NewRecorder()
	NewGet(newNoopLogger(), c).ServeHTTP(w, withID(httptest.NewRequest(http.MethodGet, "/api/songs/missing", nil), "missing"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArtistHandler_NullImage(t *testing.T) {
	c := new(MockCatalog)
	c.On("GetArtistByID", mock.Anything, "a1").Return(&spotify.ArtistSummary{ID: "a1", Name: "Daft Punk", Genres: []string{"house"}}, nil)

	w := httptest.NewRecorder()
	NewArtist(newNoopLogger(), c).ServeHTTP(w, withID(httptest.NewRequest(http.MethodGet, "/api/songs/artist/a1", nil), "a1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"image":null`)
}
