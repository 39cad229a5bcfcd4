package bootstrap

import (
	"context"

	"github.com/classpad/activity-backend/internal/events"
	"github.com/classpad/activity-backend/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
)

func ProvideMongo(lc fx.Lifecycle, cfg *Config) (*mongo.Database, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}

	db := client.Database(cfg.MongoDatabase)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})

	return db, nil
}

func ProvideMetrics() *metrics.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

func ProvideBus() *events.Bus {
	return events.NewBus()
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideMongo,
		ProvideMetrics,
		ProvideBus,
	),
)
