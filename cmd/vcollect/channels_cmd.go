// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vcollect/internal/daemon"
	"github.com/ManuGH/vcollect/internal/store"
	"github.com/ManuGH/vcollect/internal/youtube"
)

func (c *cli) syncChannelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-channels",
		Short: "Refresh metadata of every linked channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withComponents(cmd.Context(), func(ctx context.Context, comps *daemon.Components) error {
				res := comps.Directory.SyncAll(ctx)
				if res.HasError() {
					msgs := res.ErrorMessages()
					c.warn("%d errors", len(msgs))
					for _, m := range msgs {
						c.warn("%s", m)
					}
				}
				updated := res.Results()
				if len(updated) == 0 {
					return errNothingUpdated
				}
				t := newTable(c.out, "ID", "Name", "Channel ID")
				for _, ch := range updated {
					t.row(ch.ID, ch.Title, ch.ExternalID)
				}
				t.flush()
				return nil
			})
		},
	}
}

func (c *cli) channelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Manage stored channels",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "link <row-id> <external-id>",
		Short: "Point a stored channel at a remote channel id and refresh it",
		Long:  "Point a stored channel at a remote channel id and refresh it. An empty external id unlinks the channel.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withComponents(cmd.Context(), func(ctx context.Context, comps *daemon.Components) error {
				ch, err := comps.Directory.Link(ctx, id, args[1])
				if err != nil {
					return err
				}
				printChannel(c, ch)
				return nil
			})
		},
	})
	return cmd
}

func printChannel(c *cli, ch store.Channel) {
	url := ""
	if ch.ExternalID != "" {
		url = youtube.ChannelURL(ch.ExternalID)
	}
	t := newTable(c.out, "ID", "Name", "Channel ID", "URL")
	t.row(ch.ID, ch.Title, ch.ExternalID, url)
	t.flush()
	if ch.LastSyncedAt != nil {
		_, _ = fmt.Fprintf(c.out, "Last synced %s.\n", formatDate(*ch.LastSyncedAt))
	}
}
