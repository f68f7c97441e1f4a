package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/storybot/core/config"
)

func baseConfig() *Config {
	return &Config{
		Config: coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "1:abc"}},
		Bot:    BotConfig{StorageChannelID: -100},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := baseConfig()
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 60, cfg.Storage.SessionReapSeconds)
	assert.Equal(t, 7, cfg.Bot.SearchResultLimit)
	assert.Equal(t, 300, cfg.Bot.SessionTTLSeconds)
	assert.Equal(t, 50, cfg.Bot.CategoryLimit)
	assert.Equal(t, SyntaxTagged, cfg.Bot.EpisodeSyntax)
	assert.True(t, cfg.Bot.UppercaseSearch())
	assert.Equal(t, []string{"drama", "mystery", "sci-fi", "kids", "self-help"}, cfg.Bot.Slugs())
	assert.Zero(t, cfg.Bot.AutoDelete())
}

func TestNormalizeInfersDriver(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Config)
		want   string
	}{
		"postgres url": {func(c *Config) { c.Database.URL = "postgres://u:p@h/db" }, DriverPostgres},
		"mongo url":    {func(c *Config) { c.Database.URL = "mongodb+srv://h/db" }, DriverMongo},
		"mongo uri":    {func(c *Config) { c.Mongo.URI = "mongodb://h/db" }, DriverMongo},
		"pg fields":    {func(c *Config) { c.Database.Host, c.Database.Name = "h", "db" }, DriverPostgres},
		"explicit":     {func(c *Config) { c.Storage.Driver = "MongoDB"; c.Mongo.URI = "mongodb://h" }, DriverMongo},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mutate(cfg)
			require.NoError(t, Normalize(cfg))
			assert.Equal(t, tc.want, cfg.Storage.Driver)
		})
	}

	cfg := baseConfig()
	cfg.Database.URL = "mongodb://h/db"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "mongodb://h/db", cfg.Mongo.URI)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"no channel":      func(c *Config) { c.Bot.StorageChannelID = 0 },
		"bad driver":      func(c *Config) { c.Storage.Driver = "redis" },
		"pg without host": func(c *Config) { c.Storage.Driver = DriverPostgres },
		"mongo no uri":    func(c *Config) { c.Storage.Driver = DriverMongo },
		"bad syntax":      func(c *Config) { c.Bot.EpisodeSyntax = "roman" },
		"negative limit":  func(c *Config) { c.Bot.SearchResultLimit = -1 },
		"dup category":    func(c *Config) { c.Bot.Categories = []CategoryConfig{{Name: "Kids"}, {Slug: "kids"}} },
		"empty category":  func(c *Config) { c.Bot.Categories = []CategoryConfig{{Prefix: "xx"}} },
		"missing token":   func(c *Config) { c.Telegram.Token = "" },
		"colon in slug":   func(c *Config) { c.Bot.Categories = []CategoryConfig{{Slug: "a:b"}} },
		"long slug":       func(c *Config) { c.Bot.Categories = []CategoryConfig{{Slug: strings.Repeat("x", 33)}} },
		"bad prefix":      func(c *Config) { c.Bot.Categories = []CategoryConfig{{Slug: "kids", Prefix: "k:"}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig()
			mutate(cfg)
			assert.Error(t, Normalize(cfg))
		})
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `telegram:
  token: file-token
bot:
  storage_channel_id: -1001
  episode_syntax: plain
  search_uppercase_only: false
  admin_ids: [5, 6]
  categories:
    - name: Fantasy World
      prefix: FW
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.CoreConfig().Telegram.Token)
	assert.Equal(t, int64(-1001), cfg.Bot.StorageChannelID)
	assert.Equal(t, SyntaxPlain, cfg.Bot.EpisodeSyntax)
	assert.False(t, cfg.Bot.UppercaseSearch())
	assert.Equal(t, []int64{5, 6}, cfg.Bot.AdminIDs)
	assert.Equal(t, []string{"fantasy-world"}, cfg.Bot.Slugs())
	assert.Equal(t, map[string]string{"fantasy-world": "fw"}, cfg.Bot.Prefixes())

	t.Setenv("DB_CHANNEL_ID", "-2002")
	t.Setenv("ADMIN_IDS", "7,8")
	t.Setenv("AUTO_DELETE_MINUTES", "3")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(-2002), cfg.Bot.StorageChannelID)
	assert.Equal(t, []int64{7, 8}, cfg.Bot.AdminIDs)
	assert.Equal(t, 3*60, int(cfg.Bot.AutoDelete().Seconds()))
}
