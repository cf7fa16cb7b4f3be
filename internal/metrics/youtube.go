// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	youtubeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcollect_youtube_requests_total",
		Help: "YouTube Data API requests by operation and status",
	}, []string{"operation", "status"}) // status=ok|<error class>

	youtubeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vcollect_youtube_request_duration_seconds",
		Help:    "YouTube Data API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcollect_cache_lookups_total",
		Help: "Channel detail cache lookups by result",
	}, []string{"result"}) // result=hit|miss
)

// RecordYouTubeRequest records one API call.
func RecordYouTubeRequest(operation, status string, d time.Duration) {
	youtubeRequestsTotal.WithLabelValues(operation, status).Inc()
	youtubeRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheLookupsTotal.WithLabelValues("miss").Inc()
}
