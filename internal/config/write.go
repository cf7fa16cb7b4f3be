// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by WriteDefault when path is already present
// and force is not set.
var ErrConfigExists = errors.New("config file already exists")

const redacted = "***"

// Redacted returns a copy safe to print or log.
func (c AppConfig) Redacted() AppConfig {
	if c.YouTube.APIKey != "" {
		c.YouTube.APIKey = redacted
	}
	if c.Cache.Redis.Password != "" {
		c.Cache.Redis.Password = redacted
	}
	return c
}

// Marshal renders c as YAML.
func Marshal(c AppConfig) ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteDefault writes the built-in configuration to path atomically.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", path, err)
		}
	}

	data, err := Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
