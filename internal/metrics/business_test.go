// SPDX-License-Identifier: MIT
package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, gauge.Write(metric))
	return metric.GetGauge().GetValue()
}

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func getCounterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	return getCounterValue(t, vec.WithLabelValues(labels...))
}

func TestRecordVideoUpsert(t *testing.T) {
	created := getCounterVecValue(t, videosUpsertedTotal, "created")
	updated := getCounterVecValue(t, videosUpsertedTotal, "updated")

	RecordVideoUpsert(true)
	RecordVideoUpsert(false)
	RecordVideoUpsert(false)

	assert.Equal(t, created+1, getCounterVecValue(t, videosUpsertedTotal, "created"))
	assert.Equal(t, updated+2, getCounterVecValue(t, videosUpsertedTotal, "updated"))
}

func TestRecordSyncRun(t *testing.T) {
	before := getCounterVecValue(t, syncRunsTotal, "manual", "partial")
	RecordSyncRun("manual", "partial", 2*time.Second)
	assert.Equal(t, before+1, getCounterVecValue(t, syncRunsTotal, "manual", "partial"))
}

func TestRecordCronTick(t *testing.T) {
	ticks := getCounterValue(t, cronTicksTotal)
	at := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)

	RecordCronTick(4, at)

	assert.Equal(t, ticks+1, getCounterValue(t, cronTicksTotal))
	assert.Equal(t, 4.0, getGaugeValue(t, cronConditionsDue))
	assert.Equal(t, float64(at.Unix()), getGaugeValue(t, cronLastTick))
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("youtube", "open")

	assert.Equal(t, 1.0, getGaugeValue(t, breakerState.WithLabelValues("youtube", "open")))
	assert.Equal(t, 0.0, getGaugeValue(t, breakerState.WithLabelValues("youtube", "closed")))
	assert.Equal(t, 0.0, getGaugeValue(t, breakerState.WithLabelValues("youtube", "half-open")))
}

func TestRecordChannelRefresh(t *testing.T) {
	updated := getCounterVecValue(t, channelRefreshTotal, "updated")
	failed := getCounterVecValue(t, channelRefreshTotal, "failed")

	RecordChannelRefresh(3, 1)

	assert.Equal(t, updated+3, getCounterVecValue(t, channelRefreshTotal, "updated"))
	assert.Equal(t, failed+1, getCounterVecValue(t, channelRefreshTotal, "failed"))
}
