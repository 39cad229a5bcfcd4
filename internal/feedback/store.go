package feedback

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("feedback")}
}

func (s *MongoStore) InsertEntry(ctx context.Context, entry *Entry) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert feedback entry: %w", err)
	}
	return nil
}
