// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vcollect/internal/log"
)

// Environment keys.
const (
	EnvDataDir           = "VCOLLECT_DATA"
	EnvDBPath            = "VCOLLECT_DB_PATH"
	EnvLogLevel          = "VCOLLECT_LOG_LEVEL"
	EnvAPIKey            = "YOUTUBE_API_KEY"
	EnvYouTubeBaseURL    = "VCOLLECT_YOUTUBE_BASE_URL"
	EnvYouTubeTimeout    = "VCOLLECT_YOUTUBE_TIMEOUT"
	EnvYouTubeRPS        = "VCOLLECT_YOUTUBE_RPS"
	EnvCacheBackend      = "VCOLLECT_CACHE_BACKEND"
	EnvRedisAddr         = "VCOLLECT_REDIS_ADDR"
	EnvRedisPassword     = "VCOLLECT_REDIS_PASSWORD"
	EnvRedisDB           = "VCOLLECT_REDIS_DB"
	EnvChannelCacheTTL   = "VCOLLECT_CHANNEL_CACHE_TTL"
	EnvSyncConcurrency   = "VCOLLECT_SYNC_CONCURRENCY"
	EnvIncludeShorts     = "VCOLLECT_INCLUDE_SHORTS"
	EnvTimezone          = "VCOLLECT_TIMEZONE"
	EnvChannelRefresh    = "VCOLLECT_CHANNEL_REFRESH"
	EnvListen            = "VCOLLECT_LISTEN"
	EnvMetricsListen     = "VCOLLECT_METRICS_LISTEN"
	EnvTelemetryEnabled  = "VCOLLECT_TELEMETRY_ENABLED"
	EnvTelemetryExporter = "VCOLLECT_TELEMETRY_EXPORTER"
	EnvTelemetryEndpoint = "VCOLLECT_TELEMETRY_ENDPOINT"
)

var sensitiveKeywords = []string{"key", "token", "password", "secret"}

// IsSensitive reports whether values of name must never be logged.
func IsSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ParseString reads a string from environment variable or returns default value.
func ParseString(key, defaultValue string) string {
	return parseEnv(log.WithComponent("config"), key, defaultValue, func(s string) (string, error) { return s, nil })
}

// ParseInt reads an integer from environment variable or returns default value.
// It falls back to the default on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(log.WithComponent("config"), key, defaultValue, strconv.Atoi)
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(log.WithComponent("config"), key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ParseDuration reads a Go duration ("5s", "12h") from environment variable.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(log.WithComponent("config"), key, defaultValue, time.ParseDuration)
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(log.WithComponent("config"), key, defaultValue, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, strconv.ErrSyntax
	})
}

// parseEnv logs where each value came from. Values of sensitive keys are
// never logged.
func parseEnv[T any](logger zerolog.Logger, key string, defaultValue T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		logger.Debug().
			Str("key", key).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}

	v, err := parse(strings.TrimSpace(raw))
	if err != nil {
		evt := logger.Warn().Str("key", key)
		if !IsSensitive(key) {
			evt = evt.Str("value", raw)
		}
		evt.Msg("invalid value in environment variable, using default")
		return defaultValue
	}

	evt := logger.Debug().Str("key", key).Str("source", "environment")
	if IsSensitive(key) {
		evt = evt.Bool("sensitive", true)
	} else {
		evt = evt.Interface("value", v)
	}
	evt.Msg("using environment variable")
	return v
}
