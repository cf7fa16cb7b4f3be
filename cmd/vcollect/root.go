// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vcollect/internal/config"
	"github.com/ManuGH/vcollect/internal/daemon"
	"github.com/ManuGH/vcollect/internal/log"
	"github.com/ManuGH/vcollect/internal/version"
)

// cli holds what every command shares.
type cli struct {
	configPath string
	out        io.Writer
	errOut     io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "vcollect",
		Short:         "Collect YouTube videos that match stored conditions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config file (YAML), defaults to $VCOLLECT_DATA/config.yaml when present")

	root.AddCommand(
		c.daemonCmd(),
		c.conditionCmd(),
		c.conditionsCmd(),
		c.retrieveCmd(),
		c.videosCmd(),
		c.syncChannelsCmd(),
		c.channelCmd(),
		c.fixDatesCmd(),
		c.storageCmd(),
		c.configCmd(),
		c.versionCmd(),
	)
	return root
}

// execute runs args and prints a failure the way the rest of the output
// looks. It returns the process exit code.
func execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	root := newRootCmd(out, errOut)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}

// resolveConfigPath returns the explicit path or the auto-detected one in
// the data directory, empty when neither exists.
func (c *cli) resolveConfigPath() string {
	if p := strings.TrimSpace(c.configPath); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(os.Getenv(config.EnvDataDir))
	if dataDir == "" {
		dataDir = config.Defaults().DataDir
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

// loadConfig loads the configuration and points the logger at errOut.
func (c *cli) loadConfig() (config.AppConfig, *config.Loader, error) {
	log.Configure(log.Config{Level: "warn", Output: c.errOut, Service: daemon.ServiceName, Version: version.Version})

	loader := config.NewLoader(c.resolveConfigPath(), version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return cfg, nil, err
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Output: c.errOut, Service: daemon.ServiceName, Version: version.Version})
	return cfg, loader, nil
}

// withComponents runs fn against freshly opened components and closes them.
func (c *cli) withComponents(ctx context.Context, fn func(ctx context.Context, comps *daemon.Components) error) (err error) {
	cfg, _, err := c.loadConfig()
	if err != nil {
		return err
	}
	comps, err := daemon.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, comps.Close(context.WithoutCancel(ctx)))
	}()
	return fn(ctx, comps)
}

func (c *cli) warn(format string, args ...any) {
	_, _ = fmt.Fprintf(c.errOut, "Warning: "+format+"\n", args...)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
