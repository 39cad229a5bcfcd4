package sessions

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection("sessions")}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "start_at", Value: -1}}},
		{Keys: bson.D{{Key: "end_at", Value: -1}}},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertSession(ctx context.Context, rec *Record) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert session record: %w", err)
	}
	return nil
}
