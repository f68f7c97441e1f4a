package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/storybot/core/config"
	"github.com/m3rciful/storybot/core/logger"
)

// Options control the generic bootstrap pipeline. S is whatever storage
// handle the application works with.
type Options[S any] struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	// Open connects to storage; the returned func releases it.
	Open func(ctx context.Context) (S, func() error, error)
	// Migrate is optional and runs after Open.
	Migrate func(ctx context.Context) error

	Modules Modules[S]
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result[S any] struct {
	Storage S
	closer  func() error
}

// Close releases the storage connection.
func (r *Result[S]) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer()
}

// Run initializes the logger, opens storage, applies migrations and runs
// the seeders in order.
func Run[S any](ctx context.Context, opts Options[S]) (*Result[S], error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	if opts.Open == nil {
		return nil, fmt.Errorf("bootstrap: Open is required")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	storage, closer, err := opts.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: storage initialization failed: %w", err)
	}
	res := &Result[S]{Storage: storage, closer: closer}

	if opts.Migrate != nil {
		if err := opts.Migrate(ctx); err != nil {
			return nil, errors.Join(fmt.Errorf("bootstrap: migrations failed: %w", err), res.Close())
		}
	}

	for i, s := range opts.Modules.Seeders {
		start := time.Now()
		if err := s.Seed(ctx, storage); err != nil {
			logger.SEED.ErrorContext(ctx, "seed failed",
				slog.String("event", "db.seed"),
				slog.String("status", "fail"),
				slog.Int("seeder", i),
				logger.Err(err),
			)
			return nil, errors.Join(fmt.Errorf("bootstrap: seeder %d failed: %w", i, err), res.Close())
		}
		logger.SEED.DebugContext(ctx, "seeder done",
			slog.String("event", "db.seed"),
			slog.String("status", "ok"),
			slog.Int("seeder", i),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	}
	return res, nil
}
