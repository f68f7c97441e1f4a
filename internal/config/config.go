// Package config loads the storybot configuration: the reusable core
// settings plus storage and bot behaviour.
package config

import (
	"cmp"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/storybot/core/config"
	"github.com/m3rciful/storybot/core/database"
)

// Slugs double as bot commands and callback arguments, so they stay within
// the Bot API command alphabet and leave room in 64-byte callback data.
var (
	slugRe   = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)
	prefixRe = regexp.MustCompile(`^[a-z0-9]{0,8}$`)
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Episode input syntaxes.
const (
	SyntaxTagged = "tagged"
	SyntaxPlain  = "plain"
)

// StorageConfig selects the backend.
type StorageConfig struct {
	// Driver is postgres, mongo or memory; empty infers it from the URLs.
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	// SessionReapSeconds is the purge interval for expired postgres sessions.
	SessionReapSeconds int `yaml:"session_reap_seconds" envconfig:"SESSION_REAP_SECONDS"`
}

// CategoryConfig declares a category seeded at startup.
type CategoryConfig struct {
	Slug   string `yaml:"slug"`
	Name   string `yaml:"name"`
	Prefix string `yaml:"prefix"`
}

// BotConfig holds the catalog bot behaviour.
type BotConfig struct {
	OwnerID          int64   `yaml:"owner_id" envconfig:"OWNER_ID"`
	AdminIDs         []int64 `yaml:"admin_ids" envconfig:"ADMIN_IDS"`
	StorageChannelID int64   `yaml:"storage_channel_id" envconfig:"DB_CHANNEL_ID"`

	AutoDeleteMinutes   int    `yaml:"auto_delete_minutes" envconfig:"AUTO_DELETE_MINUTES"`
	SearchResultLimit   int    `yaml:"search_result_limit" envconfig:"SEARCH_RESULT_LIMIT"`
	SessionTTLSeconds   int    `yaml:"session_ttl_seconds" envconfig:"SESSION_TTL_SECONDS"`
	CategoryLimit       int    `yaml:"category_limit" envconfig:"CATEGORY_LIMIT"`
	EpisodeSyntax       string `yaml:"episode_syntax" envconfig:"EPISODE_SYNTAX"`
	SearchUppercaseOnly *bool  `yaml:"search_uppercase_only" envconfig:"SEARCH_UPPERCASE_ONLY"`

	Categories []CategoryConfig `yaml:"categories"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database database.Config      `yaml:"database"`
	Mongo    database.MongoConfig `yaml:"mongo"`
	Storage  StorageConfig        `yaml:"storage"`
	Bot      BotConfig            `yaml:"bot"`
}

// CoreConfig exposes the embedded core settings to the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// DefaultCategories mirrors the stock catalog.
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{Slug: "drama", Name: "Drama"},
		{Slug: "mystery", Name: "Mystery"},
		{Slug: "sci-fi", Name: "Sci-Fi"},
		{Slug: "kids", Name: "Kids"},
		{Slug: "self-help", Name: "Self-Help"},
	}
}

// Load reads path (YAML) then the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if err := normalizeStorage(cfg); err != nil {
		return err
	}
	return normalizeBot(&cfg.Bot)
}

func normalizeStorage(cfg *Config) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" {
		driver = inferDriver(cfg)
	}
	switch driver {
	case DriverPostgres, "postgresql":
		driver = DriverPostgres
		if err := cfg.Database.Validate(); err != nil {
			return err
		}
	case DriverMongo, "mongodb":
		driver = DriverMongo
		if cfg.Mongo.URI == "" {
			cfg.Mongo.URI = cfg.Database.URL
		}
		if strings.TrimSpace(cfg.Mongo.URI) == "" {
			return fmt.Errorf("mongo.uri (or DATABASE_URL) is required for the mongo driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: postgres, mongo, memory", cfg.Storage.Driver)
	}
	cfg.Storage.Driver = driver
	if cfg.Storage.SessionReapSeconds < 0 {
		return fmt.Errorf("storage.session_reap_seconds must be >= 0")
	}
	if cfg.Storage.SessionReapSeconds == 0 {
		cfg.Storage.SessionReapSeconds = 60
	}
	return nil
}

// inferDriver picks a backend from the DATABASE_URL scheme, then from
// whichever connection block is filled in.
func inferDriver(cfg *Config) string {
	if raw := strings.TrimSpace(cfg.Database.URL); raw != "" {
		if u, err := url.Parse(raw); err == nil {
			switch strings.ToLower(u.Scheme) {
			case "mongodb", "mongodb+srv":
				return DriverMongo
			case "postgres", "postgresql":
				return DriverPostgres
			}
		}
	}
	switch {
	case cfg.Mongo.URI != "":
		return DriverMongo
	case cfg.Database.Host != "":
		return DriverPostgres
	}
	return DriverMemory
}

func normalizeBot(b *BotConfig) error {
	if b.StorageChannelID == 0 {
		return fmt.Errorf("bot.storage_channel_id (DB_CHANNEL_ID) is required")
	}
	for name, v := range map[string]int{
		"auto_delete_minutes": b.AutoDeleteMinutes,
		"search_result_limit": b.SearchResultLimit,
		"session_ttl_seconds": b.SessionTTLSeconds,
		"category_limit":      b.CategoryLimit,
	} {
		if v < 0 {
			return fmt.Errorf("bot.%s must be >= 0", name)
		}
	}
	if b.SearchResultLimit == 0 {
		b.SearchResultLimit = 7
	}
	if b.SessionTTLSeconds == 0 {
		b.SessionTTLSeconds = 300
	}
	if b.CategoryLimit == 0 {
		b.CategoryLimit = 50
	}

	switch s := strings.ToLower(strings.TrimSpace(b.EpisodeSyntax)); s {
	case "", SyntaxTagged:
		b.EpisodeSyntax = SyntaxTagged
	case SyntaxPlain:
		b.EpisodeSyntax = SyntaxPlain
	default:
		return fmt.Errorf("invalid bot.episode_syntax %q; allowed: tagged, plain", b.EpisodeSyntax)
	}

	if b.SearchUppercaseOnly == nil {
		on := true
		b.SearchUppercaseOnly = &on
	}

	if len(b.Categories) == 0 {
		b.Categories = DefaultCategories()
	}
	seen := make(map[string]struct{}, len(b.Categories))
	for i, c := range b.Categories {
		slug := strings.ToLower(cmp.Or(strings.TrimSpace(c.Slug), strings.TrimSpace(c.Name)))
		slug = strings.ReplaceAll(slug, " ", "-")
		if slug == "" {
			return fmt.Errorf("bot.categories[%d]: slug or name is required", i)
		}
		if !slugRe.MatchString(slug) {
			return fmt.Errorf("bot.categories[%d]: slug %q must be 1-32 of a-z, 0-9, '-' or '_'", i, slug)
		}
		if _, dup := seen[slug]; dup {
			return fmt.Errorf("bot.categories: duplicate slug %q", slug)
		}
		seen[slug] = struct{}{}
		prefix := strings.ToLower(strings.TrimSpace(c.Prefix))
		if !prefixRe.MatchString(prefix) {
			return fmt.Errorf("bot.categories[%d]: prefix %q must be up to 8 of a-z or 0-9", i, prefix)
		}
		b.Categories[i].Slug = slug
		b.Categories[i].Prefix = prefix
	}
	return nil
}

// SessionTTL is the session lifetime.
func (b BotConfig) SessionTTL() time.Duration {
	return time.Duration(b.SessionTTLSeconds) * time.Second
}

// AutoDelete is the delay before delivered episodes are deleted; 0 keeps them.
func (b BotConfig) AutoDelete() time.Duration {
	return time.Duration(b.AutoDeleteMinutes) * time.Minute
}

// UppercaseSearch reports whether search queries must be in capitals.
func (b BotConfig) UppercaseSearch() bool {
	return b.SearchUppercaseOnly == nil || *b.SearchUppercaseOnly
}

// Slugs lists the configured category slugs.
func (b BotConfig) Slugs() []string {
	out := make([]string, 0, len(b.Categories))
	for _, c := range b.Categories {
		out = append(out, c.Slug)
	}
	return out
}

// Prefixes maps slugs to their configured vision id prefix.
func (b BotConfig) Prefixes() map[string]string {
	out := make(map[string]string)
	for _, c := range b.Categories {
		if c.Prefix != "" {
			out[c.Slug] = c.Prefix
		}
	}
	return out
}

// SessionReapInterval is how often expired postgres sessions are deleted.
func (s StorageConfig) SessionReapInterval() time.Duration {
	return time.Duration(s.SessionReapSeconds) * time.Second
}
