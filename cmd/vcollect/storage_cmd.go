// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vcollect/internal/store"
)

var errCorrupt = errors.New("corruption detected")

func (c *cli) storageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect the SQLite database",
	}

	var path, mode string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check database integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode = strings.ToLower(strings.TrimSpace(mode))
			if path == "" {
				cfg, _, err := c.loadConfig()
				if err != nil {
					return err
				}
				path = cfg.DBPath()
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("database %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(c.errOut, "Verifying integrity of %s (mode: %s)...\n", path, mode)
			issues, err := store.VerifyIntegrity(cmd.Context(), path, mode)
			if err != nil {
				return err
			}
			if issues != nil {
				for _, issue := range issues {
					_, _ = fmt.Fprintf(c.errOut, "  - %s\n", issue)
				}
				return fmt.Errorf("%w in %s", errCorrupt, path)
			}
			_, _ = fmt.Fprintf(c.out, "%s: ok\n", path)
			return nil
		},
	}
	verify.Flags().StringVar(&path, "path", "", "database file, defaults to the configured one")
	verify.Flags().StringVar(&mode, "mode", store.VerifyQuick, "quick or full")

	cmd.AddCommand(verify)
	return cmd
}
