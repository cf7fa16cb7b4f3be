// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vcollect/internal/collector"
	"github.com/ManuGH/vcollect/internal/daemon"
	"github.com/ManuGH/vcollect/internal/youtube"
)

const descriptionWidth = 60

func (c *cli) videosCmd() *cobra.Command {
	var channelID, query string
	cmd := &cobra.Command{
		Use:   "videos",
		Short: "Search the remote API directly and show the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withComponents(cmd.Context(), func(ctx context.Context, comps *daemon.Components) error {
				videos, err := comps.YouTube.Search(ctx, channelID, query)
				if err != nil {
					return err
				}
				if len(videos) == 0 {
					return errNoVideos
				}
				t := newTable(c.out, "Title", "URL", "Date", "Description")
				for _, v := range videos {
					t.row(v.Title, youtube.WatchURL(v.ExternalVideoID), formatDate(v.PublishedAt), excerpt(v.Description, descriptionWidth))
				}
				t.flush()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&channelID, "channel", "", "restrict to one channel id")
	cmd.Flags().StringVar(&query, "query", "", "free text query")
	return cmd
}

func (c *cli) fixDatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-dates",
		Short: "Move publication dates forward to the date in the stored snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withComponents(cmd.Context(), func(ctx context.Context, comps *daemon.Components) error {
				report, err := collector.FixPublishedDates(ctx, comps.Store, func(o collector.FixOutcome) {
					switch o {
					case collector.FixUpdated:
						_, _ = fmt.Fprint(c.out, ".")
					case collector.FixFailed:
						_, _ = fmt.Fprint(c.out, "x")
					}
				})
				if report.Updated+report.Failed > 0 {
					_, _ = fmt.Fprintln(c.out)
				}
				for _, w := range report.Warnings {
					c.warn("%s", w)
				}
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(c.out, "Scanned %d, updated %d, failed %d.\n", report.Scanned, report.Updated, report.Failed)
				return nil
			})
		},
	}
}
