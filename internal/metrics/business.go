// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus collectors for the collector, the YouTube
// client and the cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync metrics
	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcollect_sync_runs_total",
		Help: "Condition sync runs by trigger and outcome",
	}, []string{"trigger", "outcome"}) // outcome=success|partial|failed

	syncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vcollect_sync_duration_seconds",
		Help:    "Duration of a single condition sync",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"trigger"})

	videosUpsertedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcollect_videos_upserted_total",
		Help: "Video records written by result",
	}, []string{"result"}) // result=created|updated

	videosEvaluatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcollect_videos_evaluated_total",
		Help: "Remote videos evaluated against conditions by outcome",
	}, []string{"outcome"}) // outcome=matched|rejected

	syncErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcollect_sync_errors_total",
		Help: "Non-fatal errors collected during syncs by kind",
	}, []string{"kind"}) // kind=remote_api|upsert|channel

	// Cron metrics
	cronTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcollect_cron_ticks_total",
		Help: "Hourly cron ticks executed",
	})

	cronConditionsDue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vcollect_cron_conditions_due",
		Help: "Conditions due in the last cron tick",
	})

	cronLastTick = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vcollect_cron_last_tick_timestamp_seconds",
		Help: "Unix time of the last completed cron tick",
	})

	// Channel metrics
	channelRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcollect_channel_refresh_total",
		Help: "Channel metadata refresh results",
	}, []string{"outcome"}) // outcome=updated|failed

	channelsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcollect_channels_created_total",
		Help: "Channel records created while resolving videos",
	})
)

// RecordSyncRun records the outcome and duration of a condition sync.
func RecordSyncRun(trigger, outcome string, d time.Duration) {
	syncRunsTotal.WithLabelValues(trigger, outcome).Inc()
	syncDuration.WithLabelValues(trigger).Observe(d.Seconds())
}

// RecordVideoUpsert counts a written video record.
func RecordVideoUpsert(created bool) {
	if created {
		videosUpsertedTotal.WithLabelValues("created").Inc()
		return
	}
	videosUpsertedTotal.WithLabelValues("updated").Inc()
}

// RecordVideoEvaluated counts a match decision.
func RecordVideoEvaluated(matched bool) {
	if matched {
		videosEvaluatedTotal.WithLabelValues("matched").Inc()
		return
	}
	videosEvaluatedTotal.WithLabelValues("rejected").Inc()
}

// IncSyncError counts a non-fatal sync error of the given kind.
func IncSyncError(kind string) {
	syncErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordCronTick records a completed cron tick.
func RecordCronTick(due int, at time.Time) {
	cronTicksTotal.Inc()
	cronConditionsDue.Set(float64(due))
	cronLastTick.Set(float64(at.Unix()))
}

// RecordChannelRefresh counts channel snapshot refresh results.
func RecordChannelRefresh(updated, failed int) {
	channelRefreshTotal.WithLabelValues("updated").Add(float64(updated))
	channelRefreshTotal.WithLabelValues("failed").Add(float64(failed))
}

// IncChannelCreated counts a channel record created on demand.
func IncChannelCreated() {
	channelsCreatedTotal.Inc()
}
