package bootstrap

import (
	"context"
	"time"

	"github.com/classpad/activity-backend/internal/daily"
	"github.com/classpad/activity-backend/internal/feedback"
	"github.com/classpad/activity-backend/internal/sessions"
	"github.com/classpad/activity-backend/internal/usage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
)

func ProvideUsageStore(db *mongo.Database) *usage.MongoStore {
	return usage.NewMongoStore(db)
}

func ProvideDailyStore(db *mongo.Database) *daily.MongoStore {
	return daily.NewMongoStore(db)
}

func ProvideSessionStore(db *mongo.Database) *sessions.MongoStore {
	return sessions.NewMongoStore(db)
}

func ProvideFeedbackStore(db *mongo.Database) *feedback.MongoStore {
	return feedback.NewMongoStore(db)
}

func EnsureIndexes(lc fx.Lifecycle, usageStore *usage.MongoStore, dailyStore *daily.MongoStore, sessionStore *sessions.MongoStore) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			if err := usageStore.EnsureIndexes(ctx); err != nil {
				return err
			}
			if err := dailyStore.EnsureIndexes(ctx); err != nil {
				return err
			}
			return sessionStore.EnsureIndexes(ctx)
		},
	})
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideUsageStore,
		ProvideDailyStore,
		ProvideSessionStore,
		ProvideFeedbackStore,
	),
	fx.Invoke(EnsureIndexes),
)
