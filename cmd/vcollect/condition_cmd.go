// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vcollect/internal/collector"
	"github.com/ManuGH/vcollect/internal/condition"
	"github.com/ManuGH/vcollect/internal/daemon"
	"github.com/ManuGH/vcollect/internal/schedule"
	"github.com/ManuGH/vcollect/internal/store"
	"github.com/ManuGH/vcollect/internal/youtube"
)

// Operator-facing messages, printed verbatim.
var (
	errNoConditions   = errors.New("No condition found.")
	errNoChannels     = errors.New("Channel ID is empty.")
	errNothingUpdated = errors.New("Nothing updated.")
	errNoVideos       = errors.New("No video matches.")
)

// conditionListPage is how many conditions the list command loads per query.
const conditionListPage = 200

func (c *cli) conditionCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "condition <id>",
		Short: "Dry-run a condition and show the videos it would collect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withComponents(cmd.Context(), func(ctx context.Context, comps *daemon.Components) error {
				return c.previewCondition(ctx, comps, id, all)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "also list rejected videos with the reason")
	cmd.AddCommand(c.conditionCreateCmd(), c.conditionStatusCmd())
	return cmd
}

func (c *cli) previewCondition(ctx context.Context, comps *daemon.Components, id int64, all bool) error {
	cond, err := comps.Store.GetCondition(ctx, id)
	if err != nil {
		return conditionError(id, err)
	}
	if len(cond.ChannelIDs) == 0 {
		return errNoChannels
	}

	_, _ = fmt.Fprintf(c.out, "Retrieve %d channels...\n\n", len(cond.ChannelIDs))
	c.printConditionChannels(ctx, comps, cond)

	_, _ = fmt.Fprintln(c.out, "## Conditions")
	_, _ = fmt.Fprintln(c.out, condition.FormatQueryGroups(cond.QueryGroups))
	_, _ = fmt.Fprintln(c.out)

	preview, err := comps.Engine.Preview(ctx, id)
	if err != nil {
		return conditionError(id, err)
	}
	c.reportErrors(preview.Errors)

	if all {
		t := newTable(c.out, "#", "Title", "URL", "Date", "Match", "Reason")
		for i, d := range preview.Decisions {
			t.row(i+1, d.Video.Title, youtube.WatchURL(d.Video.ExternalVideoID), formatDate(d.Video.PublishedAt), d.Matched, strings.Join(d.Reasons, "; "))
		}
		t.flush()
		return nil
	}

	t := newTable(c.out, "#", "Title", "URL", "Date")
	for i, v := range preview.Matches() {
		t.row(i+1, v.Title, youtube.WatchURL(v.ExternalVideoID), formatDate(v.PublishedAt))
	}
	t.flush()
	return nil
}

// printConditionChannels lists the channels of cond with their remote titles,
// the hours the condition runs at and when it last synced.
func (c *cli) printConditionChannels(ctx context.Context, comps *daemon.Components, cond condition.Condition) {
	titles := make(map[string]string, len(cond.ChannelIDs))
	details, err := comps.Directory.FetchDetails(ctx, cond.ChannelIDs)
	if err != nil {
		c.warn("channel details: %v", err)
	}
	for _, d := range details {
		titles[d.ID] = d.Title
	}

	_, _ = fmt.Fprintln(c.out, "## Channels")
	t := newTable(c.out, "Channel ID", "Title", "URL")
	for _, id := range cond.ChannelIDs {
		t.row(id, titles[id], youtube.ChannelURL(id))
	}
	t.flush()

	last := "never"
	if cond.LastSyncedAt != nil {
		last = formatDate(*cond.LastSyncedAt)
	}
	_, _ = fmt.Fprintf(c.out, "\nRuns at %s. Last synced %s.\n\n", schedule.Format(cond.Hours()), last)
}

func (c *cli) conditionCreateCmd() *cobra.Command {
	var (
		title    string
		interval int
		offset   int
		channels []string
		queries  []string
		paused   bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Store a new condition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status := condition.StatusActive
			if paused {
				status = condition.StatusPaused
			}
			cond := condition.Condition{
				Title:         title,
				IntervalHours: interval,
				OffsetHours:   offset,
				ChannelIDs:    condition.ParseChannelIDs(strings.Join(channels, "\n")),
				QueryGroups:   condition.ParseQueryGroups(strings.Join(queries, "\n")),
				Status:        status,
			}
			return c.withComponents(cmd.Context(), func(ctx context.Context, comps *daemon.Components) error {
				created, err := comps.Store.CreateCondition(ctx, cond)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(c.out, "Created condition %d (runs at %s).\n", created.ID, schedule.Format(created.Hours()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "condition title")
	cmd.Flags().IntVar(&interval, "interval", 24, "run every N hours (1-24)")
	cmd.Flags().IntVar(&offset, "offset", 0, "first hour of the day (0-12)")
	cmd.Flags().StringArrayVar(&channels, "channels", nil, "channel id, repeatable")
	cmd.Flags().StringArrayVar(&queries, "query", nil, "comma separated words that must all appear, repeatable for OR")
	cmd.Flags().BoolVar(&paused, "paused", false, "create the condition paused")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (c *cli) conditionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <active|paused>",
		Short: "Pause or resume a condition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status := condition.Status(args[1])
			return c.withComponents(cmd.Context(), func(ctx context.Context, comps *daemon.Components) error {
				if err := comps.Store.SetConditionStatus(ctx, id, status); err != nil {
					return conditionError(id, err)
				}
				_, _ = fmt.Fprintf(c.out, "Condition %d is %s.\n", id, status)
				return nil
			})
		},
	}
}

func (c *cli) conditionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conditions",
		Short: "List conditions with their schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withComponents(cmd.Context(), func(ctx context.Context, comps *daemon.Components) error {
				var conds []condition.Condition
				for offset := 0; ; offset += conditionListPage {
					page, err := comps.Store.ListConditions(ctx, store.ConditionFilter{Offset: offset, Limit: conditionListPage})
					if err != nil {
						return err
					}
					conds = append(conds, page...)
					if len(page) < conditionListPage {
						break
					}
				}
				if len(conds) == 0 {
					return errNoConditions
				}

				t := newTable(c.out, "ID", "Title", "Frequency", "Offset", "Matches", "Status")
				for i := len(conds) - 1; i >= 0; i-- {
					cond := conds[i]
					t.row(cond.ID, cond.Title, cond.IntervalHours, cond.OffsetHours, schedule.Format(cond.Hours()), cond.Status)
				}
				t.flush()
				return nil
			})
		},
	}
}

func (c *cli) retrieveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retrieve <id>",
		Short: "Sync a condition now and list the stored videos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withComponents(cmd.Context(), func(ctx context.Context, comps *daemon.Components) error {
				res, err := comps.Engine.SyncCondition(ctx, id, collector.TriggerManual)
				if err != nil {
					return conditionError(id, err)
				}
				c.reportErrors(res.Errors)

				t := newTable(c.out, "ID", "Title", "URL")
				for _, v := range res.Records {
					t.row(v.ID, v.Title, youtube.WatchURL(v.ExternalVideoID))
				}
				t.flush()
				return nil
			})
		},
	}
}

// reportErrors prints the error count and every message to errOut.
func (c *cli) reportErrors(errs []collector.ErrorDetail) {
	if len(errs) == 0 {
		return
	}
	c.warn("%d errors", len(errs))
	for _, e := range errs {
		c.warn("%s", e.Message)
	}
}

func conditionError(id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, collector.ErrInvalidCondition) {
		return fmt.Errorf("condition %d not found", id)
	}
	if errors.Is(err, collector.ErrEmptyChannelList) {
		return errNoChannels
	}
	return err
}
