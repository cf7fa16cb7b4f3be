// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"strings"
	"time"

	"github.com/ManuGH/vcollect/internal/validate"
)

var logLevels = []string{"trace", "debug", "info", "warn", "error"}

// Validate reports every invalid field at once. The API key is not required
// here; commands that call the remote API check it themselves.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Directory("DataDir", cfg.DataDir, false)
	v.OneOf("LogLevel", strings.ToLower(cfg.LogLevel), logLevels)

	v.MinDuration("Database.BusyTimeout", cfg.Database.BusyTimeout, 0)
	v.Positive("Database.MaxOpenConns", cfg.Database.MaxOpenConns)

	v.URL("YouTube.BaseURL", cfg.YouTube.BaseURL, []string{"http", "https"})
	v.MinDuration("YouTube.Timeout", cfg.YouTube.Timeout, time.Second)
	v.RangeFloat("YouTube.RequestsPerSecond", cfg.YouTube.RequestsPerSecond, 0, 1000)
	v.NonNegative("YouTube.Burst", cfg.YouTube.Burst)
	v.Positive("YouTube.BreakerThreshold", cfg.YouTube.BreakerThreshold)
	v.MinDuration("YouTube.BreakerReset", cfg.YouTube.BreakerReset, time.Second)

	v.OneOf("Cache.Backend", cfg.Cache.Backend, []string{"memory", "redis", "none"})
	v.MinDuration("Cache.ChannelTTL", cfg.Cache.ChannelTTL, time.Second)
	if cfg.Cache.Backend == "redis" {
		v.NotEmpty("Cache.Redis.Addr", cfg.Cache.Redis.Addr)
		v.Range("Cache.Redis.DB", cfg.Cache.Redis.DB, 0, 15)
	}

	v.Range("Sync.Concurrency", cfg.Sync.Concurrency, 1, 32)
	v.Timezone("Cron.Timezone", cfg.Cron.Timezone)

	v.ListenAddr("API.Listen", cfg.API.Listen, false)
	v.ListenAddr("API.MetricsListen", cfg.API.MetricsListen, true)
	v.NonNegative("API.RateLimit", cfg.API.RateLimit)

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.RangeFloat("Telemetry.SampleRate", cfg.Telemetry.SampleRate, 0, 1)
	}

	return v.Err()
}
