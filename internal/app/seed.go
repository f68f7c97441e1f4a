package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/storybot/core/bootstrap"
	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/config"
)

const (
	demoCategory = "kids"
	demoFileRef  = "REPLACE_WITH_REAL_FILE_ID"
	demoEpisodes = 3
)

// CategorySeeder upserts the configured categories and records the configured
// owner in the admin registry. Existing counters and names are kept.
func CategorySeeder(cfg *config.Config) bootstrap.Seeder[Backend] {
	return bootstrap.SeederFunc[Backend](func(ctx context.Context, b Backend) error {
		svc, err := catalog.NewService(b, catalogOptions(cfg))
		if err != nil {
			return err
		}
		for _, c := range cfg.Bot.Categories {
			if _, err := svc.UpsertCategory(ctx, c.Slug, c.Name, c.Prefix); err != nil {
				return fmt.Errorf("seed category %s: %w", c.Slug, err)
			}
		}
		if cfg.Bot.OwnerID != 0 {
			if err := svc.SetOwner(ctx, cfg.Bot.OwnerID); err != nil {
				return fmt.Errorf("seed owner: %w", err)
			}
		}
		logger.SEED.InfoContext(ctx, "categories seeded",
			slog.String("event", "db.seed"),
			slog.String("status", "ok"),
			slog.Int("categories", len(cfg.Bot.Categories)),
			slog.Int64("owner_id", cfg.Bot.OwnerID),
		)
		return nil
	})
}

// DemoSeeder stores a demo story with placeholder document episodes. The
// file references must be replaced with real ones from the storage channel.
func DemoSeeder(cfg *config.Config, now func() time.Time) bootstrap.Seeder[Backend] {
	return bootstrap.SeederFunc[Backend](func(ctx context.Context, b Backend) error {
		svc, err := catalog.NewService(b, catalogOptions(cfg))
		if err != nil {
			return err
		}
		if _, err := svc.UpsertCategory(ctx, demoCategory, "", ""); err != nil {
			return err
		}
		vid := "demo-" + uuid.NewString()[:8]
		if err := b.InsertStory(ctx, catalog.Story{
			VisionID:    vid,
			Category:    demoCategory,
			Title:       "Demo Story - The Little Clockmaker",
			Description: "A short demo story to verify integration.",
			CreatedAt:   now().UTC(),
		}); err != nil {
			return fmt.Errorf("seed demo story: %w", err)
		}
		for i := 1; i <= demoEpisodes; i++ {
			if _, err := svc.AddEpisode(ctx, vid, catalog.EpisodeSpec{
				Number:   i,
				FileRef:  demoFileRef,
				FileType: catalog.FileDocument,
				Caption:  fmt.Sprintf("Episode %d", i),
			}); err != nil {
				return fmt.Errorf("seed demo episode %d: %w", i, err)
			}
		}
		logger.SEED.InfoContext(ctx, "demo story seeded",
			slog.String("event", "db.seed"),
			slog.String("status", "ok"),
			slog.String("vision_id", vid),
			slog.Int("episodes", demoEpisodes),
		)
		return nil
	})
}
