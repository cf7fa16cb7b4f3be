// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuGH/vcollect/internal/log"
)

// FixPageSize is how many stored videos FixPublishedDates loads per query.
const FixPageSize = 100

// FixOutcome is what happened to one stored video.
type FixOutcome int

const (
	FixSkipped FixOutcome = iota
	FixUpdated
	FixFailed
	FixNoSnapshot
)

// FixReport summarizes a FixPublishedDates run.
type FixReport struct {
	Scanned  int
	Updated  int
	Failed   int
	Warnings []string
}

// FixPublishedDates re-derives the publication date of every stored video
// from its raw snapshot and moves it forward when the snapshot date is later.
// progress, if set, is called once per video that was not skipped.
func FixPublishedDates(ctx context.Context, st VideoStore, progress func(FixOutcome)) (FixReport, error) {
	var report FixReport
	logger := log.WithComponentFromContext(ctx, "maintenance")
	emit := func(o FixOutcome) {
		if progress != nil {
			progress(o)
		}
	}

	var cursor int64
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		page, err := st.ListVideosAfter(ctx, cursor, FixPageSize)
		if err != nil {
			return report, fmt.Errorf("list videos after %d: %w", cursor, err)
		}
		if len(page) == 0 {
			break
		}
		cursor = page[len(page)-1].ID

		for _, v := range page {
			report.Scanned++
			derived, ok := snapshotPublishedAt(v.RawSnapshot)
			if !ok {
				report.Warnings = append(report.Warnings, fmt.Sprintf("%d has no video information.", v.ID))
				emit(FixNoSnapshot)
				continue
			}
			if !derived.After(v.PublishedAt) {
				continue
			}
			if err := st.UpdateVideoPublishedAt(ctx, v.ID, derived); err != nil {
				report.Failed++
				logger.Warn().Err(err).
					Str(log.FieldEvent, "maintenance.fix_date_failed").
					Str(log.FieldVideoID, v.ExternalVideoID).
					Msg("updating publication date failed")
				emit(FixFailed)
				continue
			}
			report.Updated++
			emit(FixUpdated)
		}
	}

	logger.Info().
		Str(log.FieldEvent, "maintenance.fix_dates").
		Int("scanned", report.Scanned).
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Int("warnings", len(report.Warnings)).
		Msg("publication dates fixed")
	return report, nil
}

func snapshotPublishedAt(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}
	var payload struct {
		Snippet struct {
			PublishedAt string `json:"publishedAt"`
		} `json:"snippet"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Snippet.PublishedAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, payload.Snippet.PublishedAt)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
