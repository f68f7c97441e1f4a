// Package app wires configuration, storage and the bot runtime together.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/m3rciful/storybot/core/bootstrap"
	coreconfig "github.com/m3rciful/storybot/core/config"
	"github.com/m3rciful/storybot/core/metrics"
	coretelegram "github.com/m3rciful/storybot/core/telegram"
	tgsender "github.com/m3rciful/storybot/core/telegram/sender"
	"github.com/m3rciful/storybot/internal/bot"
	"github.com/m3rciful/storybot/internal/catalog"
	"github.com/m3rciful/storybot/internal/config"
	"github.com/m3rciful/storybot/internal/conversation"
	"github.com/m3rciful/storybot/internal/delivery"
	"github.com/m3rciful/storybot/internal/session"
	"github.com/m3rciful/storybot/internal/storage/postgres"
)

// Options tune New.
type Options struct {
	// SkipSeed leaves categories untouched, for the migrate command.
	SkipSeed bool
	// Demo adds a demo story with three placeholder episodes.
	Demo bool

	LoggerInit func(*coreconfig.Config) error
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
}

// App owns the opened storage and the services built on it.
type App struct {
	cfg      *config.Config
	res      *bootstrap.Result[Backend]
	catalog  *catalog.Service
	sessions *session.Store
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
}

// New opens storage, migrates it and runs the seeders.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	var migrate func(context.Context) error
	seeders := []bootstrap.Seeder[Backend]{}
	if !opts.SkipSeed {
		seeders = append(seeders, CategorySeeder(cfg))
		if opts.Demo {
			seeders = append(seeders, DemoSeeder(cfg, time.Now))
		}
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options[Backend]{
		Config:     cfg.CoreConfig(),
		LoggerInit: opts.LoggerInit,
		Open: func(ctx context.Context) (Backend, func() error, error) {
			s, err := openStorage(ctx, cfg)
			if err != nil {
				return nil, nil, err
			}
			migrate = s.migrate
			return s.backend, s.close, nil
		},
		Migrate: func(ctx context.Context) error {
			if migrate == nil {
				return nil
			}
			return migrate(ctx)
		},
		Modules: bootstrap.Modules[Backend]{Seeders: seeders},
	})
	if err != nil {
		return nil, err
	}

	svc, err := catalog.NewService(res.Storage, catalogOptions(cfg))
	if err != nil {
		_ = res.Close()
		return nil, err
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Default()
	}
	return &App{
		cfg:      cfg,
		res:      res,
		catalog:  svc,
		sessions: session.NewStore(res.Storage, cfg.Bot.SessionTTL()),
		metrics:  m,
		gatherer: opts.Gatherer,
	}, nil
}

func catalogOptions(cfg *config.Config) catalog.Options {
	return catalog.Options{
		OwnerID:       cfg.Bot.OwnerID,
		AdminIDs:      cfg.Bot.AdminIDs,
		Prefixes:      cfg.Bot.Prefixes(),
		SearchLimit:   cfg.Bot.SearchResultLimit,
		CategoryLimit: cfg.Bot.CategoryLimit,
	}
}

// Catalog exposes the content service.
func (a *App) Catalog() *catalog.Service { return a.catalog }

// Storage exposes the raw backend.
func (a *App) Storage() Backend { return a.res.Storage }

// Close releases storage.
func (a *App) Close() error { return a.res.Close() }

// Engine builds the conversation engine on top of out.
func (a *App) Engine(out *bot.Outbox) *conversation.Engine {
	b := a.cfg.Bot
	sched := delivery.New(out, delivery.Options{AutoDelete: b.AutoDelete(), Metrics: a.metrics})
	return conversation.New(a.catalog, a.sessions, out, sched, conversation.Options{
		StorageChannelID: b.StorageChannelID,
		SearchLimit:      b.SearchResultLimit,
		CategoryLimit:    b.CategoryLimit,
		EpisodeSyntax:    b.EpisodeSyntax,
		UppercaseSearch:  b.UppercaseSearch(),
		Categories:       b.Slugs(),
		Metrics:          a.metrics,
	})
}

// TelegramRunOptions builds the bot, its outbox and the routes.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()
	tb, err := coretelegram.NewBot(core)
	if err != nil {
		return coretelegram.RunOptions{}, err
	}
	limiter := tgsender.New(tgsender.Options{
		Concurrency: core.Telegram.SendConcurrency,
		Timeout:     time.Duration(core.Telegram.SendTimeoutSeconds) * time.Second,
		Metrics:     a.metrics,
	})
	engine := a.Engine(bot.NewOutbox(tb, limiter))
	reg := bot.Registry(a.cfg.Bot.Slugs())
	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Bot:         tb,
		Sender:      limiter,
		Middlewares: coretelegram.DefaultMiddlewares(core, a.metrics, bot.OnLimited),
		Routes:      bot.Routes(reg, bot.Handler(engine), a.metrics),
	}, nil
}

// Background runs the metrics endpoint and, on postgres, the session reaper.
func (a *App) Background() []func(context.Context) error {
	m := a.cfg.Metrics
	tasks := []func(context.Context) error{
		func(ctx context.Context) error { return metrics.Serve(ctx, m.Listen, m.Path, a.gatherer) },
	}
	if pg, ok := a.res.Storage.(*postgres.Store); ok {
		ttl, every := a.cfg.Bot.SessionTTL(), a.cfg.Storage.SessionReapInterval()
		tasks = append(tasks, func(ctx context.Context) error { return pg.ReapSessions(ctx, ttl, every) })
	}
	return tasks
}
