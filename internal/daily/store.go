package daily

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoStore struct {
	users        *mongo.Collection
	counts       *mongo.Collection
	views        *mongo.Collection
	activeUsers  *mongo.Collection
	activeCounts *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users:        db.Collection("daily_page_users"),
		counts:       db.Collection("daily_page_counts"),
		views:        db.Collection("daily_page_views"),
		activeUsers:  db.Collection("daily_active_users"),
		activeCounts: db.Collection("daily_active_counts"),
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	specs := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.users, mongo.IndexModel{
			Keys:    bson.D{{Key: "client_id", Value: 1}, {Key: "page", Value: 1}, {Key: "day", Value: 1}},
			Options: unique,
		}},
		{s.counts, mongo.IndexModel{
			Keys:    bson.D{{Key: "page", Value: 1}, {Key: "day", Value: 1}},
			Options: unique,
		}},
		{s.views, mongo.IndexModel{
			Keys:    bson.D{{Key: "page", Value: 1}, {Key: "day", Value: 1}},
			Options: unique,
		}},
		{s.activeUsers, mongo.IndexModel{
			Keys:    bson.D{{Key: "client_id", Value: 1}, {Key: "day", Value: 1}},
			Options: unique,
		}},
		{s.activeCounts, mongo.IndexModel{
			Keys:    bson.D{{Key: "day", Value: 1}},
			Options: unique,
		}},
	}

	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateOne(ctx, spec.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", spec.coll.Name(), err)
		}
	}
	return nil
}

// UpsertPageUser inserts the (client, page, day) marker if absent and
// reports whether this call created it. A duplicate-key error from a
// concurrent upsert against the unique index counts as "already existed".
func (s *MongoStore) UpsertPageUser(ctx context.Context, clientID, page, day string, now time.Time) (bool, error) {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"client_id": clientID, "page": page, "day": day},
		bson.M{"$setOnInsert": bson.M{"first_seen": now}},
		options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to upsert daily page user: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (s *MongoStore) IncrPageCount(ctx context.Context, page, day string) error {
	_, err := s.counts.UpdateOne(ctx,
		bson.M{"page": page, "day": day},
		bson.M{"$inc": bson.M{"count": 1}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to increment daily page count: %w", err)
	}
	return nil
}

func (s *MongoStore) IncrPageView(ctx context.Context, page, day string) error {
	_, err := s.views.UpdateOne(ctx,
		bson.M{"page": page, "day": day},
		bson.M{"$inc": bson.M{"count": 1}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to increment daily page views: %w", err)
	}
	return nil
}

func (s *MongoStore) UpsertActiveUser(ctx context.Context, clientID, day string, now time.Time) (bool, error) {
	res, err := s.activeUsers.UpdateOne(ctx,
		bson.M{"client_id": clientID, "day": day},
		bson.M{"$setOnInsert": bson.M{"first_seen": now}},
		options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to upsert daily active user: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (s *MongoStore) IncrActiveCount(ctx context.Context, day string) error {
	_, err := s.activeCounts.UpdateOne(ctx,
		bson.M{"day": day},
		bson.M{"$inc": bson.M{"count": 1}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to increment daily active count: %w", err)
	}
	return nil
}

func (s *MongoStore) GetPageCount(ctx context.Context, page, day string) (int64, error) {
	var doc PageCount
	err := s.counts.FindOne(ctx, bson.M{"page": page, "day": day}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read daily page count: %w", err)
	}
	return doc.Count, nil
}

func (s *MongoStore) GetPageViews(ctx context.Context, page, day string) (int64, error) {
	var doc PageView
	err := s.views.FindOne(ctx, bson.M{"page": page, "day": day}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read daily page views: %w", err)
	}
	return doc.Count, nil
}
