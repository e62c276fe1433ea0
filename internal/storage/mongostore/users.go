package mongostore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/magabrotheeeer/jukebox/internal/models"
)

// CreateUser сохраняет нового пользователя, проставляя ID и значения по умолчанию.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	const op = "storage.mongostore.CreateUser"
	if err := s.ready(op); err != nil {
		return err
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.ApplyDefaults(s.now())
	if !user.Role.Valid() {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidInput)
	}

	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, user); err != nil {
		return wrapErr(op, err)
	}
	return nil
}

// GetUserByID возвращает пользователя по ID.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "storage.mongostore.GetUserByID", bson.M{"_id": id})
}

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "storage.mongostore.GetUserByEmail", bson.M{"email": email})
}

// GetUserByUsername возвращает пользователя по имени.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, "storage.mongostore.GetUserByUsername", bson.M{"username": username})
}

// GetUserBySpotifyID возвращает пользователя с привязанной учетной записью Spotify.
func (s *Storage) GetUserBySpotifyID(ctx context.Context, spotifyID string) (*models.User, error) {
	return s.findUser(ctx, "storage.mongostore.GetUserBySpotifyID", bson.M{"spotify.id": spotifyID})
}

func (s *Storage) findUser(ctx context.Context, op string, filter bson.M) (*models.User, error) {
	if err := s.ready(op); err != nil {
		return nil, err
	}
	var u models.User
	if err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, wrapErr(op, err)
	}
	return &u, nil
}

// ListUsers возвращает пользователей, новые первыми.
func (s *Storage) ListUsers(ctx context.Context, f models.UserFilter) ([]*models.User, error) {
	const op = "storage.mongostore.ListUsers"
	if err := s.ready(op); err != nil {
		return nil, err
	}

	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Blocked != nil {
		filter["blocked"] = *f.Blocked
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}

	cur, err := s.db.Collection(usersCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	users := make([]*models.User, 0)
	if err := cur.All(ctx, &users); err != nil {
		return nil, wrapErr(op, err)
	}
	return users, nil
}

// UpdateProfile меняет поля профиля. createdAt, роль и блокировка здесь не меняются.
func (s *Storage) UpdateProfile(ctx context.Context, id string, p models.Profile) (*models.User, error) {
	const op = "storage.mongostore.UpdateProfile"
	if err := s.ready(op); err != nil {
		return nil, err
	}

	set := bson.M{}
	if p.Username != nil {
		set["username"] = *p.Username
	}
	if p.DateOfBirth != nil {
		set["dateOfBirth"] = *p.DateOfBirth
	}
	if p.Age != nil {
		set["age"] = *p.Age
	}
	if p.Gender != nil {
		set["gender"] = *p.Gender
	}
	if p.Bio != nil {
		set["bio"] = *p.Bio
	}
	if len(set) == 0 {
		return s.GetUserByID(ctx, id)
	}

	var u models.User
	err := s.db.Collection(usersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, afterUpdate()).
		Decode(&u)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	return &u, nil
}

// SetRole меняет роль пользователя.
func (s *Storage) SetRole(ctx context.Context, id string, role models.Role) error {
	const op = "storage.mongostore.SetRole"
	if !role.Valid() {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidInput)
	}
	return s.updateUser(ctx, op, id, bson.M{"$set": bson.M{"role": role}})
}

// SetBlocked блокирует или разблокирует пользователя.
func (s *Storage) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return s.updateUser(ctx, "storage.mongostore.SetBlocked", id, bson.M{"$set": bson.M{"blocked": blocked}})
}

// SetSpotify привязывает учетную запись Spotify и обновляет ее токены.
func (s *Storage) SetSpotify(ctx context.Context, id string, identity models.SpotifyIdentity) error {
	return s.updateUser(ctx, "storage.mongostore.SetSpotify", id, bson.M{"$set": bson.M{"spotify": identity}})
}

func (s *Storage) updateUser(ctx context.Context, op, id string, update bson.M) error {
	if err := s.ready(op); err != nil {
		return err
	}
	res, err := s.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return wrapErr(op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// DeleteUser удаляет пользователя.
func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	const op = "storage.mongostore.DeleteUser"
	if err := s.ready(op); err != nil {
		return err
	}
	res, err := s.db.Collection(usersCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapErr(op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}
