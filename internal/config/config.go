// Package config resolves runtime settings from flags, environment and an
// optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when reading the environment, so
// "max-new-items" is read from COGNITIOFLUX_MAX_NEW_ITEMS.
const EnvPrefix = "COGNITIOFLUX"

// Keys understood by Load.
const (
	KeyAddr             = "addr"
	KeyDB               = "db"
	KeyLearner          = "learner"
	KeyMaxNewItems      = "max-new-items"
	KeyTimezone         = "timezone"
	KeyRedisAddr        = "redis-addr"
	KeyRedisPassword    = "redis-password"
	KeyFeedCacheTTL     = "feed-cache-ttl"
	KeyLogMode          = "log-mode"
	KeySnapshotKeep     = "snapshot-keep"
	KeySnapshotInterval = "snapshot-interval"
	KeyRateLimit        = "rate-limit"
	KeyRateBurst        = "rate-burst"
	KeyRequestTimeout   = "request-timeout"
	KeyShutdownTimeout  = "shutdown-timeout"
	KeyBaseURL          = "base-url"
)

type Config struct {
	Addr    string
	DBPath  string // empty selects store.DefaultDBPath
	Learner string // default learner email for CLI commands

	MaxNewItems int
	Timezone    string // IANA name or "Local"

	RedisAddr     string // empty selects the in-process feed cache
	RedisPassword string
	FeedCacheTTL  time.Duration

	LogMode string

	SnapshotKeep     int
	SnapshotInterval time.Duration

	RateLimit       float64 // requests per second per client, 0 disables
	RateBurst       int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// BaseURL is the public URL used for links in syndicated feeds.
	BaseURL string
}

func Default() Config {
	return Config{
		Addr:             ":8080",
		MaxNewItems:      3,
		Timezone:         "Local",
		FeedCacheTTL:     10 * time.Minute,
		LogMode:          "dev",
		SnapshotKeep:     10,
		SnapshotInterval: 5 * time.Minute,
		RateLimit:        10,
		RateBurst:        20,
		RequestTimeout:   2 * time.Minute,
		ShutdownTimeout:  10 * time.Second,
		BaseURL:          "http://localhost:8080",
	}
}

// New returns a viper instance with defaults registered and environment
// lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	d := Default()
	defaults := map[string]any{
		KeyAddr:             d.Addr,
		KeyDB:               d.DBPath,
		KeyLearner:          d.Learner,
		KeyMaxNewItems:      d.MaxNewItems,
		KeyTimezone:         d.Timezone,
		KeyRedisAddr:        d.RedisAddr,
		KeyRedisPassword:    d.RedisPassword,
		KeyFeedCacheTTL:     d.FeedCacheTTL,
		KeyLogMode:          d.LogMode,
		KeySnapshotKeep:     d.SnapshotKeep,
		KeySnapshotInterval: d.SnapshotInterval,
		KeyRateLimit:        d.RateLimit,
		KeyRateBurst:        d.RateBurst,
		KeyRequestTimeout:   d.RequestTimeout,
		KeyShutdownTimeout:  d.ShutdownTimeout,
		KeyBaseURL:          d.BaseURL,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag in fs whose name is a config key. Flags the
// user did not set do not override the environment or config file.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil || !isKey(f.Name) {
			return
		}
		if bindErr := v.BindPFlag(f.Name, f); bindErr != nil {
			err = fmt.Errorf("bind flag %s: %w", f.Name, bindErr)
		}
	})
	return err
}

func isKey(name string) bool {
	switch name {
	case KeyAddr, KeyDB, KeyLearner, KeyMaxNewItems, KeyTimezone, KeyRedisAddr,
		KeyRedisPassword, KeyFeedCacheTTL, KeyLogMode, KeySnapshotKeep,
		KeySnapshotInterval, KeyRateLimit, KeyRateBurst, KeyRequestTimeout,
		KeyShutdownTimeout, KeyBaseURL:
		return true
	}
	return false
}

// ReadFile merges a YAML, TOML or JSON config file into v.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load resolves a Config from v and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Addr:             v.GetString(KeyAddr),
		DBPath:           v.GetString(KeyDB),
		Learner:          strings.TrimSpace(v.GetString(KeyLearner)),
		MaxNewItems:      v.GetInt(KeyMaxNewItems),
		Timezone:         v.GetString(KeyTimezone),
		RedisAddr:        v.GetString(KeyRedisAddr),
		RedisPassword:    v.GetString(KeyRedisPassword),
		FeedCacheTTL:     v.GetDuration(KeyFeedCacheTTL),
		LogMode:          v.GetString(KeyLogMode),
		SnapshotKeep:     v.GetInt(KeySnapshotKeep),
		SnapshotInterval: v.GetDuration(KeySnapshotInterval),
		RateLimit:        v.GetFloat64(KeyRateLimit),
		RateBurst:        v.GetInt(KeyRateBurst),
		RequestTimeout:   v.GetDuration(KeyRequestTimeout),
		ShutdownTimeout:  v.GetDuration(KeyShutdownTimeout),
		BaseURL:          strings.TrimRight(v.GetString(KeyBaseURL), "/"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.MaxNewItems < 0 {
		return fmt.Errorf("%s must not be negative, got %d", KeyMaxNewItems, c.MaxNewItems)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.SnapshotKeep < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeySnapshotKeep, c.SnapshotKeep)
	}
	if c.FeedCacheTTL < 0 {
		return fmt.Errorf("%s must not be negative", KeyFeedCacheTTL)
	}
	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("%s and %s must not be negative", KeyRateLimit, KeyRateBurst)
	}
	return nil
}

// Location returns the time zone that day boundaries are computed in.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown %s %q: %w", KeyTimezone, c.Timezone, err)
	}
	return loc, nil
}
