package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/magabrotheeeer/jukebox/internal/models"
)

// CreatePlaylist сохраняет новый плейлист.
func (s *Storage) CreatePlaylist(ctx context.Context, p *models.Playlist) error {
	const op = "storage.mongostore.CreatePlaylist"
	if err := s.ready(op); err != nil {
		return err
	}

	now := s.now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Songs == nil {
		p.Songs = []models.Song{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.db.Collection(playlistsCollection).InsertOne(ctx, p); err != nil {
		return wrapErr(op, err)
	}
	return nil
}

// GetPlaylist возвращает плейлист по ID.
func (s *Storage) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	const op = "storage.mongostore.GetPlaylist"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	var p models.Playlist
	if err := s.db.Collection(playlistsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, wrapErr(op, err)
	}
	return &p, nil
}

// ListPlaylists возвращает плейлисты владельца, последние измененные первыми.
func (s *Storage) ListPlaylists(ctx context.Context, ownerID string) ([]*models.Playlist, error) {
	const op = "storage.mongostore.ListPlaylists"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cur, err := s.db.Collection(playlistsCollection).Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	res := make([]*models.Playlist, 0)
	if err := cur.All(ctx, &res); err != nil {
		return nil, wrapErr(op, err)
	}
	return res, nil
}

// UpdatePlaylist меняет название и описание.
func (s *Storage) UpdatePlaylist(ctx context.Context, id string, in models.PlaylistInput) (*models.Playlist, error) {
	const op = "storage.mongostore.UpdatePlaylist"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{
		"name":        in.Name,
		"description": in.Description,
		"updatedAt":   s.now(),
	}}
	var p models.Playlist
	if err := s.db.Collection(playlistsCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).
		Decode(&p); err != nil {
		return nil, wrapErr(op, err)
	}
	return &p, nil
}

// DeletePlaylist удаляет плейлист.
func (s *Storage) DeletePlaylist(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "storage.mongostore.DeletePlaylist", playlistsCollection, id)
}

// AddPlaylistSong добавляет трек, если его еще нет в плейлисте.
func (s *Storage) AddPlaylistSong(ctx context.Context, id string, song models.Song) (*models.Playlist, error) {
	const op = "storage.mongostore.AddPlaylistSong"
	var p models.Playlist
	if err := s.pushSong(ctx, op, playlistsCollection, id, song, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RemovePlaylistSong удаляет трек из плейлиста.
func (s *Storage) RemovePlaylistSong(ctx context.Context, id, trackID string) (*models.Playlist, error) {
	const op = "storage.mongostore.RemovePlaylistSong"
	var p models.Playlist
	if err := s.pullSong(ctx, op, playlistsCollection, id, trackID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Storage) pushSong(ctx context.Context, op, collection, id string, song models.Song, out any) error {
	if err := s.ready(op); err != nil {
		return err
	}
	if song.AddedAt.IsZero() {
		song.AddedAt = s.now()
	}

	coll := s.db.Collection(collection)
	filter := bson.M{"_id": id, "songs.trackId": bson.M{"$ne": song.TrackID}}
	update := bson.M{
		"$push": bson.M{"songs": song},
		"$set":  bson.M{"updatedAt": s.now()},
	}
	err := coll.FindOneAndUpdate(ctx, filter, update, afterUpdate()).Decode(out)
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return wrapErr(op, err)
	}

	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return fmt.Errorf("%s: track %s: %w", op, song.TrackID, models.ErrConflict)
}

func (s *Storage) pullSong(ctx context.Context, op, collection, id, trackID string, out any) error {
	if err := s.ready(op); err != nil {
		return err
	}
	update := bson.M{
		"$pull": bson.M{"songs": bson.M{"trackId": trackID}},
		"$set":  bson.M{"updatedAt": s.now()},
	}
	if err := s.db.Collection(collection).
		FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).
		Decode(out); err != nil {
		return wrapErr(op, err)
	}
	return nil
}

func (s *Storage) deleteByID(ctx context.Context, op, collection, id string) error {
	if err := s.ready(op); err != nil {
		return err
	}
	res, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapErr(op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}
