package usage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoStore persists flushed usage records and stray events. A single
// shared collection with a page index stands in for the original
// per-page collections.
type MongoStore struct {
	records *mongo.Collection
	events  *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		records: db.Collection("usage"),
		events:  db.Collection("usage_events"),
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "page", Value: 1}, {Key: "start_at", Value: -1}}},
		{Keys: bson.D{{Key: "client_id", Value: 1}}},
	}
	if _, err := s.records.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create usage indexes: %w", err)
	}

	eventIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	}
	if _, err := s.events.Indexes().CreateMany(ctx, eventIndexes); err != nil {
		return fmt.Errorf("failed to create usage event indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) SaveRecord(ctx context.Context, rec *Record) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.records.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

func (s *MongoStore) SaveStrayEvent(ctx context.Context, ev *StrayEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.events.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("failed to insert stray event: %w", err)
	}
	return nil
}
