// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/vcollect/internal/config"
	"github.com/ManuGH/vcollect/internal/log"
)

// ErrMissingAPIKey is returned when the daemon would start without
// credentials for the remote API.
var ErrMissingAPIKey = errors.New("YOUTUBE_API_KEY is not set")

// PerformStartupChecks validates the environment before the daemon starts.
func PerformStartupChecks(cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running startup checks")

	var errs []error
	if err := checkDataDir(cfg.DataDir); err != nil {
		errs = append(errs, fmt.Errorf("data directory: %w", err))
	}
	if cfg.YouTube.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkDataDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	probe := filepath.Join(path, ".write_test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s: %w", path, err)
	}
	_ = os.Remove(probe)
	return nil
}
