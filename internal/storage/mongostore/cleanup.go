package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// DeleteUserContent удаляет личные и совместные плейлисты владельца и
// исключает его из участников чужих совместных плейлистов.
// Возвращает число удаленных плейлистов.
func (s *Storage) DeleteUserContent(ctx context.Context, userID string) (int64, error) {
	const op = "storage.mongostore.DeleteUserContent"
	if err := s.ready(op); err != nil {
		return 0, err
	}

	personal, err := s.db.Collection(playlistsCollection).DeleteMany(ctx, bson.M{"ownerId": userID})
	if err != nil {
		return 0, wrapErr(op, err)
	}
	owned, err := s.db.Collection(collabCollection).DeleteMany(ctx, bson.M{"ownerId": userID})
	if err != nil {
		return personal.DeletedCount, wrapErr(op, err)
	}
	_, err = s.db.Collection(collabCollection).UpdateMany(ctx,
		bson.M{"collaborators": userID},
		bson.M{
			"$pull": bson.M{"collaborators": userID},
			"$set":  bson.M{"updatedAt": s.now()},
		},
	)
	if err != nil {
		return personal.DeletedCount + owned.DeletedCount, wrapErr(op, err)
	}
	return personal.DeletedCount + owned.DeletedCount, nil
}
