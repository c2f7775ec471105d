package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("COGNITIOFLUX_MAX_NEW_ITEMS", "5")
	t.Setenv("COGNITIOFLUX_TIMEZONE", "Europe/Athens")
	t.Setenv("COGNITIOFLUX_FEED_CACHE_TTL", "90s")
	t.Setenv("COGNITIOFLUX_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxNewItems)
	assert.Equal(t, "Europe/Athens", cfg.Timezone)
	assert.Equal(t, 90*time.Second, cfg.FeedCacheTTL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Athens", loc.String())
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("COGNITIOFLUX_ADDR", ":9000")
	t.Setenv("COGNITIOFLUX_LEARNER", "env@example.com")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String(KeyAddr, "", "")
	fs.String(KeyLearner, "", "")
	fs.Bool("verbose", false, "not a config key")
	require.NoError(t, fs.Parse([]string{"--addr", ":7000"}))

	v := New()
	require.NoError(t, BindFlags(v, fs))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "env@example.com", cfg.Learner, "unset flag falls through to env")
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cognitioflux.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max-new-items: 7\nsnapshot-keep: 3\nbase-url: https://learn.example.com/\n"), 0o644))

	v := New()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxNewItems)
	assert.Equal(t, 3, cfg.SnapshotKeep)
	assert.Equal(t, "https://learn.example.com", cfg.BaseURL)

	assert.NoError(t, ReadFile(New(), ""))
	assert.Error(t, ReadFile(New(), filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative max new", func(c *Config) { c.MaxNewItems = -1 }},
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus_Mons" }},
		{"zero snapshot keep", func(c *Config) { c.SnapshotKeep = 0 }},
		{"negative ttl", func(c *Config) { c.FeedCacheTTL = -time.Second }},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestLocalTimezone(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "local"
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}
