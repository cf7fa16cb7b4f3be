// SPDX-License-Identifier: MIT

// Package daemon wires the collector components together and owns the
// lifecycle of the long-running process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ManuGH/vcollect/internal/cache"
	"github.com/ManuGH/vcollect/internal/channels"
	"github.com/ManuGH/vcollect/internal/collector"
	"github.com/ManuGH/vcollect/internal/config"
	"github.com/ManuGH/vcollect/internal/log"
	"github.com/ManuGH/vcollect/internal/store"
	"github.com/ManuGH/vcollect/internal/youtube"
)

// Components is the object graph shared by the daemon and the one-shot
// commands.
type Components struct {
	Config    config.AppConfig
	Store     *store.Store
	Cache     cache.Cache
	YouTube   *youtube.Client
	Directory *channels.Directory
	Engine    *collector.Engine

	closers []namedHook
}

// Open builds the components for cfg. The caller must Close them.
func Open(cfg config.AppConfig) (*Components, error) {
	logger := log.WithComponent("bootstrap")
	c := &Components{Config: cfg}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	st, err := store.Open(cfg.DBPath(), store.Config{
		BusyTimeout:  cfg.Database.BusyTimeout,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c.Store = st
	c.addCloser("store", func(context.Context) error { return st.Close() })

	ch, closeCache, err := cache.New(cache.Config{
		Backend:         cfg.Cache.Backend,
		CleanupInterval: cfg.Cache.CleanupInterval,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		},
	}, log.WithComponent("cache"))
	if err != nil {
		_ = c.Close(context.Background())
		return nil, fmt.Errorf("open cache: %w", err)
	}
	c.Cache = ch
	c.addCloser("cache", func(context.Context) error { return closeCache() })

	yt, err := youtube.New(youtube.Config{
		BaseURL:           cfg.YouTube.BaseURL,
		APIKey:            cfg.YouTube.APIKey,
		Timeout:           cfg.YouTube.Timeout,
		RequestsPerSecond: cfg.YouTube.RequestsPerSecond,
		Burst:             cfg.YouTube.Burst,
		BreakerThreshold:  cfg.YouTube.BreakerThreshold,
		BreakerReset:      cfg.YouTube.BreakerReset,
	})
	if err != nil {
		_ = c.Close(context.Background())
		return nil, fmt.Errorf("remote client: %w", err)
	}
	c.YouTube = yt

	c.Directory = channels.NewDirectory(st, yt, ch, channels.WithDetailsTTL(cfg.Cache.ChannelTTL))
	c.Engine = collector.NewEngine(st, yt, c.Directory,
		collector.WithConcurrency(cfg.Sync.Concurrency),
		collector.WithIncludeShorts(cfg.Sync.IncludeShorts),
	)

	logger.Debug().
		Str("db", cfg.DBPath()).
		Str("cache", cfg.Cache.Backend).
		Int("concurrency", cfg.Sync.Concurrency).
		Msg("components ready")
	return c, nil
}

func (c *Components) addCloser(name string, fn ShutdownHook) {
	c.closers = append(c.closers, namedHook{name: name, hook: fn})
}

// Close releases resources in reverse order of acquisition.
func (c *Components) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].hook(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.closers[i].name, err))
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
