// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/vcollect/internal/api"
	"github.com/ManuGH/vcollect/internal/cache"
	"github.com/ManuGH/vcollect/internal/collector"
	"github.com/ManuGH/vcollect/internal/config"
	"github.com/ManuGH/vcollect/internal/health"
	"github.com/ManuGH/vcollect/internal/log"
	"github.com/ManuGH/vcollect/internal/telemetry"
)

// ServiceName identifies the process in traces and logs.
const ServiceName = "vcollect"

// SchedulerMaxAge is how long the scheduler may go without a completed tick
// before the health check degrades.
const SchedulerMaxAge = 90 * time.Minute

// SettingsApplier receives settings that change without a restart.
type SettingsApplier interface {
	SetIncludeShorts(include bool)
}

// App owns the long-lived runtime lifecycle (config watcher, reload signal)
// and delegates servers and the scheduler to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	holder       *config.Holder
	applier      SettingsApplier
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. holder and applier may be nil.
func NewApp(logger zerolog.Logger, manager Manager, holder *config.Holder, applier SettingsApplier) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		holder:       holder,
		applier:      applier,
		reloadSignal: syscall.SIGHUP,
	}
}

// Build assembles the daemon around already opened components. The manager
// takes ownership of comps and closes them on shutdown.
func Build(ctx context.Context, comps *Components, holder *config.Holder) (*App, error) {
	cfg := comps.Config
	logger := log.WithComponent("daemon")

	var provider *telemetry.Provider
	tracingService := ""
	if cfg.Telemetry.Enabled {
		p, err := telemetry.NewProvider(ctx, telemetry.Config{
			Enabled:        true,
			ServiceName:    ServiceName,
			ServiceVersion: cfg.Version,
			ExporterType:   cfg.Telemetry.Exporter,
			Endpoint:       cfg.Telemetry.Endpoint,
			SamplingRate:   cfg.Telemetry.SampleRate,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("telemetry initialization failed, continuing without tracing")
		} else {
			provider = p
			tracingService = ServiceName
		}
	}

	var background Background
	var scheduler *collector.Scheduler
	if cfg.Cron.Enabled {
		opts := []collector.SchedulerOption{collector.WithLocation(cfg.Location())}
		if cfg.Cron.ChannelRefresh {
			opts = append(opts, collector.WithChannelRefresh(comps.Directory))
		}
		scheduler = collector.NewScheduler(collector.NewCronDriver(comps.Store, comps.Engine), opts...)
		background = scheduler
	}

	probes := health.NewManager(cfg.Version)
	probes.RegisterChecker(health.NewPingChecker("database", comps.Store.Ping))
	if rc, ok := comps.Cache.(*cache.RedisCache); ok {
		probes.RegisterChecker(health.NewOptionalPingChecker("redis", rc.HealthCheck))
	}
	if scheduler != nil {
		probes.RegisterChecker(health.NewLastTickChecker(scheduler.LastTick, time.Now(), SchedulerMaxAge))
	}
	probes.RegisterChecker(health.NewBreakerChecker("youtube", comps.YouTube.BreakerState))

	srv := api.New(api.Config{
		RateLimit:      cfg.API.RateLimit,
		TracingService: tracingService,
	}, api.Deps{
		Conditions: comps.Store,
		Videos:     comps.Store,
		Syncer:     comps.Engine,
		Channels:   comps.Directory,
		Details:    comps.Directory,
		Probes:     probes,
	})

	mgr, err := NewManager(DefaultServerConfig(cfg.API.Listen), Deps{
		Logger:         logger,
		APIHandler:     srv.Handler(),
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    cfg.API.MetricsListen,
		Scheduler:      background,
	})
	if err != nil {
		return nil, fmt.Errorf("create manager: %w", err)
	}
	mgr.RegisterShutdownHook("components", comps.Close)
	if provider != nil {
		mgr.RegisterShutdownHook("telemetry", provider.Shutdown)
	}

	return NewApp(logger, mgr, holder, comps.Engine), nil
}

// Run starts all owned background subsystems and blocks until ctx is
// cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if a.holder != nil {
		if err := a.holder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		defer a.holder.Wait()

		applyCh := make(chan config.AppConfig, 1)
		a.holder.RegisterListener(applyCh)
		prev := a.holder.Get()

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case next := <-applyCh:
					a.apply(prev, next)
					prev = next
				}
			}
		})
	}

	if a.holder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(log.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.holder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(log.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		defer cancel()
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// apply pushes live settings and flags the ones that need a restart.
func (a *App) apply(prev, next config.AppConfig) {
	if a.applier != nil && prev.Sync.IncludeShorts != next.Sync.IncludeShorts {
		a.applier.SetIncludeShorts(next.Sync.IncludeShorts)
	}

	var restart []string
	if prev.API != next.API {
		restart = append(restart, "api")
	}
	if prev.Database != next.Database || prev.DataDir != next.DataDir {
		restart = append(restart, "database")
	}
	if prev.Cache != next.Cache {
		restart = append(restart, "cache")
	}
	if prev.YouTube != next.YouTube {
		restart = append(restart, "youtube")
	}
	if prev.Cron != next.Cron || prev.Sync.Concurrency != next.Sync.Concurrency {
		restart = append(restart, "schedule")
	}
	if prev.Telemetry != next.Telemetry {
		restart = append(restart, "telemetry")
	}
	if len(restart) > 0 {
		a.logger.Warn().
			Str(log.FieldEvent, "config.restart_required").
			Strs("sections", restart).
			Msg("changed settings take effect after restart")
	}
}
