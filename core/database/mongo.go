package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/m3rciful/storybot/core/logger"
)

// ConnectMongo dials MongoDB, pings the primary and resolves the database.
// The database name falls back to the one embedded in the URI.
func ConnectMongo(ctx context.Context, cfg MongoConfig) (*mongo.Database, error) {
	cs, err := connstring.ParseAndValidate(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("mongo uri: %w", err)
	}
	name := cfg.Database
	if name == "" {
		name = cs.Database
	}
	if name == "" {
		return nil, fmt.Errorf("mongo: database name missing from uri and DATABASE_NAME")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := time.Now()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err == nil {
		err = client.Ping(ctx, readpref.Primary())
		if err != nil {
			_ = client.Disconnect(context.Background())
		}
	}
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("driver", "mongo"),
			slog.String("host", fmt.Sprint(cs.Hosts)),
			slog.String("db", name),
			slog.Duration("duration", logger.RoundMS(took)),
			logger.Err(err),
		)
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", "mongo"),
		slog.String("host", fmt.Sprint(cs.Hosts)),
		slog.String("db", name),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return client.Database(name), nil
}
