package playlist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/jukebox/internal/models"
	"github.com/magabrotheeeer/jukebox/internal/spotify"
)

type RepoMock struct {
	mock.Mock
}

func playlistResult(args mock.Arguments) (*models.Playlist, error) {
	p, _ := args.Get(0).(*models.Playlist)
	return p, args.Error(1)
}

func (m *RepoMock) CreatePlaylist(ctx context.Context, p *models.Playlist) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = "p-new"
	}
	return args.Error(0)
}

func (m *RepoMock) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	return playlistResult(m.Called(ctx, id))
}

func (m *RepoMock) ListPlaylists(ctx context.Context, ownerID string) ([]*models.Playlist, error) {
	args := m.Called(ctx, ownerID)
	list, _ := args.Get(0).([]*models.Playlist)
	return list, args.Error(1)
}

func (m *RepoMock) UpdatePlaylist(ctx context.Context, id string, in models.PlaylistInput) (*models.Playlist, error) {
	return playlistResult(m.Called(ctx, id, in))
}

func (m *RepoMock) DeletePlaylist(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RepoMock) AddPlaylistSong(ctx context.Context, id string, song models.Song) (*models.Playlist, error) {
	return playlistResult(m.Called(ctx, id, song))
}

func (m *RepoMock) RemovePlaylistSong(ctx context.Context, id, trackID string) (*models.Playlist, error) {
	return playlistResult(m.Called(ctx, id, trackID))
}

type TracksMock struct {
	mock.Mock
}

func (m *TracksMock) GetSongByID(ctx context.Context, trackID string) (*spotify.Track, error) {
	args := m.Called(ctx, trackID)
	tr, _ := args.Get(0).(*spotify.Track)
	return tr, args.Error(1)
}

var owned = &models.Playlist{ID: "p1", OwnerID: "u1", Name: "Mine"}

func TestService_Create(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, new(TracksMock))

	_, err := svc.Create(context.Background(), "u1", models.PlaylistInput{Name: "   "})
	assert.True(t, errors.Is(err, models.ErrInvalidInput))

	repo.On("CreatePlaylist", mock.Anything, mock.MatchedBy(func(p *models.Playlist) bool {
		return p.OwnerID == "u1" && p.Name == "Road trip"
	})).Return(nil).Once()
	p, err := svc.Create(context.Background(), "u1", models.PlaylistInput{Name: " Road trip "})
	require.NoError(t, err)
	assert.Equal(t, "p-new", p.ID)
	repo.AssertExpectations(t)
}

func TestService_OnlyOwnerMutates(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, new(TracksMock))
	ctx := context.Background()

	repo.On("GetPlaylist", mock.Anything, "p1").Return(owned, nil)

	_, err := svc.Get(ctx, "intruder", "p1")
	assert.True(t, errors.Is(err, models.ErrForbidden))

	_, err = svc.Update(ctx, "intruder", "p1", models.PlaylistInput{Name: "x"})
	assert.True(t, errors.Is(err, models.ErrForbidden))

	err = svc.Delete(ctx, "intruder", "p1")
	assert.True(t, errors.Is(err, models.ErrForbidden))

	_, err = svc.RemoveSong(ctx, "intruder", "p1", "t1")
	assert.True(t, errors.Is(err, models.ErrForbidden))

	repo.AssertNotCalled(t, "DeletePlaylist", mock.Anything, mock.Anything)
}

func TestService_AddSong(t *testing.T) {
	repo := new(RepoMock)
	tracks := new(TracksMock)
	svc := New(repo, tracks)
	ctx := context.Background()

	track := &spotify.Track{
		ID:      "t1",
		Name:    "Song",
		Artists: []spotify.SimpleArtist{{Name: "Artist"}},
	}

	repo.On("GetPlaylist", mock.Anything, "p1").Return(owned, nil)
	tracks.On("GetSongByID", mock.Anything, "t1").Return(track, nil).Once()
	repo.On("AddPlaylistSong", mock.Anything, "p1", mock.MatchedBy(func(s models.Song) bool {
		return s.TrackID == "t1" && s.Title == "Song" && s.Artist == "Artist" && s.AddedBy == "u1" && !s.AddedAt.IsZero()
	})).Return(&models.Playlist{ID: "p1", Songs: []models.Song{{TrackID: "t1"}}}, nil).Once()

	p, err := svc.AddSong(ctx, "u1", "p1", "t1")
	require.NoError(t, err)
	assert.Len(t, p.Songs, 1)

	tracks.On("GetSongByID", mock.Anything, "bad").Return(nil, models.ErrUpstream).Once()
	_, err = svc.AddSong(ctx, "u1", "p1", "bad")
	assert.True(t, errors.Is(err, models.ErrUpstream))

	_, err = svc.AddSong(ctx, "u1", "p1", " ")
	assert.True(t, errors.Is(err, models.ErrInvalidInput))

	repo.AssertExpectations(t)
	tracks.AssertExpectations(t)
}

func TestService_GetNotFound(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, new(TracksMock))

	repo.On("GetPlaylist", mock.Anything, "missing").Return(nil, models.ErrNotFound).Once()
	_, err := svc.Get(context.Background(), "u1", "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
