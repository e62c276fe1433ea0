package mongostore

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/magabrotheeeer/jukebox/internal/models"
)

// CreateCollab сохраняет совместный плейлист.
func (s *Storage) CreateCollab(ctx context.Context, p *models.CollabPlaylist) error {
	const op = "storage.mongostore.CreateCollab"
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
	if p.Collaborators == nil {
		p.Collaborators = []string{}
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.db.Collection(collabCollection).InsertOne(ctx, p); err != nil {
		return wrapErr(op, err)
	}
	return nil
}

// GetCollab возвращает совместный плейлист по ID.
func (s *Storage) GetCollab(ctx context.Context, id string) (*models.CollabPlaylist, error) {
	return s.findCollab(ctx, "storage.mongostore.GetCollab", bson.M{"_id": id})
}

// GetCollabByInvite возвращает совместный плейлист по коду приглашения.
func (s *Storage) GetCollabByInvite(ctx context.Context, code string) (*models.CollabPlaylist, error) {
	return s.findCollab(ctx, "storage.mongostore.GetCollabByInvite", bson.M{"inviteCode": code})
}

func (s *Storage) findCollab(ctx context.Context, op string, filter bson.M) (*models.CollabPlaylist, error) {
	if err := s.ready(op); err != nil {
		return nil, err
	}
	var p models.CollabPlaylist
	if err := s.db.Collection(collabCollection).FindOne(ctx, filter).Decode(&p); err != nil {
		return nil, wrapErr(op, err)
	}
	return &p, nil
}

// ListCollabsForUser возвращает плейлисты, где пользователь владелец или участник.
func (s *Storage) ListCollabsForUser(ctx context.Context, userID string) ([]*models.CollabPlaylist, error) {
	const op = "storage.mongostore.ListCollabsForUser"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	filter := bson.M{"$or": bson.A{
		bson.M{"ownerId": userID},
		bson.M{"collaborators": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cur, err := s.db.Collection(collabCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	res := make([]*models.CollabPlaylist, 0)
	if err := cur.All(ctx, &res); err != nil {
		return nil, wrapErr(op, err)
	}
	return res, nil
}

// AddCollaborator добавляет участника (повторное добавление ничего не меняет).
func (s *Storage) AddCollaborator(ctx context.Context, id, userID string) (*models.CollabPlaylist, error) {
	const op = "storage.mongostore.AddCollaborator"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	update := bson.M{
		"$addToSet": bson.M{"collaborators": userID},
		"$set":      bson.M{"updatedAt": s.now()},
	}
	var p models.CollabPlaylist
	if err := s.db.Collection(collabCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).
		Decode(&p); err != nil {
		return nil, wrapErr(op, err)
	}
	return &p, nil
}

// AddCollabSong добавляет трек в совместный плейлист.
func (s *Storage) AddCollabSong(ctx context.Context, id string, song models.Song) (*models.CollabPlaylist, error) {
	var p models.CollabPlaylist
	if err := s.pushSong(ctx, "storage.mongostore.AddCollabSong", collabCollection, id, song, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RemoveCollabSong удаляет трек из совместного плейлиста.
func (s *Storage) RemoveCollabSong(ctx context.Context, id, trackID string) (*models.CollabPlaylist, error) {
	var p models.CollabPlaylist
	if err := s.pullSong(ctx, "storage.mongostore.RemoveCollabSong", collabCollection, id, trackID, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteCollab удаляет совместный плейлист.
func (s *Storage) DeleteCollab(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "storage.mongostore.DeleteCollab", collabCollection, id)
}
