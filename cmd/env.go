package cmd

import (
	"context"
	"fmt"

	"github.com/abhisek/cognitioflux/internal/app"
	"github.com/abhisek/cognitioflux/internal/config"
	"github.com/abhisek/cognitioflux/internal/feedcache"
	"github.com/abhisek/cognitioflux/internal/llm"
	"github.com/abhisek/cognitioflux/internal/logger"
	"github.com/abhisek/cognitioflux/internal/store"
	"github.com/abhisek/cognitioflux/internal/syllabus"
)

// env is everything a command needs to operate on learner state.
type env struct {
	cfg   config.Config
	log   *logger.Logger
	store *store.Store
	cache feedcache.Cache
	app   *app.App

	closers []func() error
}

// openEnv loads configuration, opens the database, restores the latest
// snapshot and builds the App.
func openEnv(ctx context.Context) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: log}

	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	e.store, err = store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	e.closers = append(e.closers, e.store.Close)

	e.cache, err = openCache(ctx, cfg, log)
	if err != nil {
		e.Close()
		return nil, err
	}
	if r, ok := e.cache.(*feedcache.Redis); ok {
		e.closers = append(e.closers, r.Close)
	}

	e.app, err = app.New(app.Options{
		Config:    cfg,
		Snapshots: e.store.SnapshotRepo(),
		Events:    e.store.EventRepo(),
		Cache:     e.cache,
		Syllabus:  newSyllabus(ctx, e.store.EventRepo(), log),
		Logger:    log,
	})
	if err != nil {
		e.Close()
		return nil, err
	}
	if err := e.app.Restore(ctx); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// learner returns the configured learner email or an error telling the
// user how to set it.
func (e *env) learner() (string, error) {
	if e.cfg.Learner == "" {
		return "", fmt.Errorf("no learner set: pass --%s or set %s_LEARNER", config.KeyLearner, config.EnvPrefix)
	}
	return app.NormalizeEmail(e.cfg.Learner)
}

// save persists learner state after a mutating command.
func (e *env) save(ctx context.Context) error {
	return e.app.Save(ctx)
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.log.Warn("close failed", "error", err)
		}
	}
	e.log.Sync()
}

// openCache connects to Redis when an address is configured and falls
// back to the in-process cache otherwise.
func openCache(ctx context.Context, cfg config.Config, log *logger.Logger) (feedcache.Cache, error) {
	if cfg.RedisAddr == "" {
		return feedcache.NewMemory(nil), nil
	}
	r, err := feedcache.NewRedis(ctx, feedcache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("connect feed cache: %w", err)
	}
	log.Info("feed cache connected", "backend", "redis")
	return r, nil
}

// newSyllabus returns an LLM-backed outline generator with the template
// generator as fallback, or the template generator alone when no provider
// is configured.
func newSyllabus(ctx context.Context, events store.EventRepo, log *logger.Logger) syllabus.Generator {
	template := syllabus.NewTemplateGenerator(syllabus.DefaultConfig())

	cfg := llm.ConfigFromEnv()
	if cfg.Validate() != nil {
		if discovered, ok := llm.DiscoverConfig(); ok {
			cfg = discovered
		}
	}
	provider, err := llm.NewProvider(ctx, cfg, events, log)
	if err != nil {
		log.Debug("LLM provider not configured, using course templates", "error", err)
		return template
	}
	return syllabus.Fallback(syllabus.NewLLMGenerator(provider, syllabus.DefaultConfig()), template, log)
}
