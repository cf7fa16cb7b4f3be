// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vcollect/internal/config"
	"github.com/ManuGH/vcollect/internal/daemon"
	"github.com/ManuGH/vcollect/internal/health"
	"github.com/ManuGH/vcollect/internal/log"
)

func (c *cli) daemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the hourly scheduler, the ops API and the metrics listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runDaemon(cmd.Context())
		},
	}
}

func (c *cli) runDaemon(ctx context.Context) error {
	cfg, loader, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger := log.WithComponent("daemon")
	logger.Info().
		Str(log.FieldEvent, "daemon.boot").
		Str("version", cfg.Version).
		Str("config", displayPath(loader.Path())).
		Str("data_dir", cfg.DataDir).
		Str("listen", cfg.API.Listen).
		Msg("starting vcollect daemon")

	if err := health.PerformStartupChecks(cfg); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	comps, err := daemon.Open(cfg)
	if err != nil {
		return err
	}

	var holder *config.Holder
	if loader.Path() != "" {
		holder = config.NewHolder(cfg, loader)
	}

	app, err := daemon.Build(ctx, comps, holder)
	if err != nil {
		_ = comps.Close(context.WithoutCancel(ctx))
		return err
	}
	return app.Run(ctx)
}
