// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuGH/vcollect/internal/condition"
	"github.com/ManuGH/vcollect/internal/log"
	"github.com/ManuGH/vcollect/internal/store"
	"github.com/ManuGH/vcollect/internal/telemetry"
)

// CronPageSize is how many conditions a tick loads per query.
const CronPageSize = 100

// Syncer runs one condition sync.
type Syncer interface {
	SyncCondition(ctx context.Context, id int64, trigger Trigger) (*SyncResult, error)
}

// TickFailure is a condition whose sync could not run at all.
type TickFailure struct {
	ConditionID int64
	Err         error
}

// TickReport summarizes one tick.
type TickReport struct {
	Hour     int
	Scanned  int
	Due      []int64
	Results  []*SyncResult
	Failures []TickFailure
}

// ErrorCount is the number of recorded sync errors plus failed conditions.
func (r TickReport) ErrorCount() int {
	n := len(r.Failures)
	for _, res := range r.Results {
		n += len(res.Errors)
	}
	return n
}

// CronDriver decides which conditions are due at an hour and syncs them.
type CronDriver struct {
	conditions ConditionStore
	syncer     Syncer
	pageSize   int
}

// NewCronDriver wires a driver.
func NewCronDriver(conditions ConditionStore, syncer Syncer) *CronDriver {
	return &CronDriver{conditions: conditions, syncer: syncer, pageSize: CronPageSize}
}

// Tick visits every active condition once, newest first, and syncs those
// whose schedule contains hour. A failing condition is logged and skipped.
func (d *CronDriver) Tick(ctx context.Context, hour int) TickReport {
	report := TickReport{Hour: hour}
	logger := log.WithComponentFromContext(ctx, "cron")

	ctx, span := telemetry.Tracer("vcollect/collector").Start(ctx, "collector.cron_tick")
	defer span.End()

	var due []condition.Condition
	for offset := 0; ; offset += d.pageSize {
		page, err := d.conditions.ListConditions(ctx, store.ConditionFilter{
			Status: condition.StatusActive,
			Offset: offset,
			Limit:  d.pageSize,
		})
		if err != nil {
			logger.Error().Err(err).
				Str(log.FieldEvent, "cron.list_failed").
				Int(log.FieldPage, offset/d.pageSize+1).
				Msg("listing conditions failed")
			report.Failures = append(report.Failures, TickFailure{Err: fmt.Errorf("list conditions: %w", err)})
			break
		}
		if len(page) == 0 {
			break
		}
		report.Scanned += len(page)
		for _, c := range page {
			if c.DueAt(hour) {
				due = append(due, c)
			}
		}
	}

	span.SetAttributes(telemetry.CronAttributes(hour, len(due))...)
	logger.Info().
		Str(log.FieldEvent, "cron.tick").
		Int(log.FieldHour, hour).
		Int("scanned", report.Scanned).
		Int("due", len(due)).
		Msg("cron tick")

	for _, c := range due {
		if ctx.Err() != nil {
			report.Failures = append(report.Failures, TickFailure{ConditionID: c.ID, Err: ctx.Err()})
			continue
		}
		report.Due = append(report.Due, c.ID)

		res, err := d.syncer.SyncCondition(ctx, c.ID, TriggerCron)
		if err != nil {
			report.Failures = append(report.Failures, TickFailure{ConditionID: c.ID, Err: err})
			logger.Error().Err(err).
				Str(log.FieldEvent, "cron.sync_failed").
				Int64(log.FieldConditionID, c.ID).
				Msg("condition sync failed")
			continue
		}
		report.Results = append(report.Results, res)
		if res.HasErrors() {
			logger.Warn().
				Str(log.FieldEvent, "cron.sync_errors").
				Int64(log.FieldConditionID, c.ID).
				Int(log.FieldErrors, len(res.Errors)).
				Str("messages", strings.Join(res.ErrorMessages(), "\t")).
				Msg("sync errors")
		}
	}
	return report
}
