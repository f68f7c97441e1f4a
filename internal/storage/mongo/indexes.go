package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/m3rciful/storybot/core/logger"
)

// EnsureIndexes creates the indexes the store depends on. It is
// idempotent; sessionTTL drives the TTL index on user_states.
func (s *Store) EnsureIndexes(ctx context.Context, sessionTTL time.Duration) error {
	if sessionTTL <= 0 {
		sessionTTL = 5 * time.Minute
	}
	specs := map[string][]mongo.IndexModel{
		colStories: {
			{
				Keys:    bson.D{{Key: "title", Value: "text"}, {Key: "description", Value: "text"}},
				Options: options.Index().SetName("stories_text").SetDefaultLanguage("none"),
			},
			{
				Keys:    bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("stories_category_created"),
			},
		},
		colEpisodes: {
			{
				Keys: bson.D{{Key: "vision_id", Value: 1}, {Key: "number", Value: 1}},
				Options: options.Index().SetName("episodes_single_uidx").SetUnique(true).
					SetPartialFilterExpression(bson.M{"is_range": false}),
			},
			{
				Keys: bson.D{{Key: "vision_id", Value: 1}, {Key: "start", Value: 1}, {Key: "end", Value: 1}},
				Options: options.Index().SetName("episodes_range_uidx").SetUnique(true).
					SetPartialFilterExpression(bson.M{"is_range": true}),
			},
		},
		colSessions: {
			{
				Keys:    bson.D{{Key: "created_at", Value: 1}},
				Options: options.Index().SetName("user_states_ttl").SetExpireAfterSeconds(int32(sessionTTL / time.Second)),
			},
		},
	}
	start := time.Now()
	created := 0
	for col, models := range specs {
		names, err := s.col(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			logger.MIG.ErrorContext(ctx, "index creation failed",
				slog.String("event", "db.migrate"),
				slog.String("driver", "mongo"),
				slog.String("collection", col),
				logger.Err(err),
			)
			return fmt.Errorf("mongo indexes %s: %w", col, err)
		}
		created += len(names)
	}
	logger.MIG.InfoContext(ctx, "indexes ensured",
		slog.String("event", "summary"),
		slog.String("driver", "mongo"),
		slog.Int("indexes", created),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}
