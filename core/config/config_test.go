package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "123:abc", RunMode: "polling"}}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Empty(t, cfg.Metrics.Path)

	cfg.Metrics.Listen = ":9100"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]Config{
		"missing token":    {},
		"bad run mode":     {Telegram: TelegramConfig{Token: "t", RunMode: "carrier-pigeon"}},
		"webhook no url":   {Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook}},
		"webhook no port":  {Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook}, Webhook: WebhookConfig{URL: "https://x"}},
		"negative timeout": {Telegram: TelegramConfig{Token: "t", LongPollTimeoutSeconds: -1}},
		"bad exclusion":    {Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := cfg
			assert.Error(t, Normalize(&cfg))
		})
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  token: from-file\nrate_limit:\n  exclude_updates: [\" Callback \"]\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Telegram.Token)
	assert.Equal(t, []string{"callback"}, cfg.RateLimit.ExcludeUpdates)

	t.Setenv("BOT_TOKEN", "from-env")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-only")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-only", cfg.Telegram.Token)
}
