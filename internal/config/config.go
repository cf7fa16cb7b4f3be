// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the vcollect configuration with the precedence
// ENV > YAML file > defaults and keeps it current while the daemon runs.
package config

import (
	"path/filepath"
	"time"
)

// DefaultDBFile is the database file name inside DataDir.
const DefaultDBFile = "vcollect.db"

// AppConfig is the effective configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	DataDir  string `yaml:"dataDir"`
	LogLevel string `yaml:"logLevel"`

	Database  DatabaseConfig  `yaml:"database"`
	YouTube   YouTubeConfig   `yaml:"youtube"`
	Cache     CacheConfig     `yaml:"cache"`
	Sync      SyncConfig      `yaml:"sync"`
	Cron      CronConfig      `yaml:"cron"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DatabaseConfig locates and tunes the SQLite store.
type DatabaseConfig struct {
	// Path defaults to DataDir/vcollect.db.
	Path         string        `yaml:"path"`
	BusyTimeout  time.Duration `yaml:"busyTimeout"`
	MaxOpenConns int           `yaml:"maxOpenConns"`
}

// YouTubeConfig configures the Data API client.
type YouTubeConfig struct {
	APIKey            string        `yaml:"apiKey"`
	BaseURL           string        `yaml:"baseURL"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"` // 0 disables pacing
	Burst             int           `yaml:"burst"`
	BreakerThreshold  int           `yaml:"breakerThreshold"`
	BreakerReset      time.Duration `yaml:"breakerReset"`
}

// CacheConfig selects the channel details cache.
type CacheConfig struct {
	Backend         string        `yaml:"backend"` // memory, redis or none
	ChannelTTL      time.Duration `yaml:"channelTTL"`
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
	Redis           RedisConfig   `yaml:"redis"`
}

// RedisConfig is used when Backend is redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SyncConfig tunes condition syncs.
type SyncConfig struct {
	Concurrency   int  `yaml:"concurrency"`
	IncludeShorts bool `yaml:"includeShorts"`
}

// CronConfig drives the hourly scheduler.
type CronConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Timezone       string `yaml:"timezone"`
	ChannelRefresh bool   `yaml:"channelRefresh"`
}

// APIConfig configures the ops HTTP surface.
type APIConfig struct {
	Listen        string `yaml:"listen"`
	MetricsListen string `yaml:"metricsListen"` // empty disables the metrics listener
	RateLimit     int    `yaml:"rateLimit"`     // requests per minute and client, 0 disables
}

// TelemetryConfig enables OTLP tracing.
type TelemetryConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Exporter   string  `yaml:"exporter"` // grpc or http
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sampleRate"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:  "data",
		LogLevel: "info",
		Database: DatabaseConfig{
			BusyTimeout:  5 * time.Second,
			MaxOpenConns: 8,
		},
		YouTube: YouTubeConfig{
			BaseURL:           "https://www.googleapis.com/youtube/v3/",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
			BreakerThreshold:  5,
			BreakerReset:      time.Minute,
		},
		Cache: CacheConfig{
			Backend:         "memory",
			ChannelTTL:      12 * time.Hour,
			CleanupInterval: time.Minute,
			Redis:           RedisConfig{Addr: "localhost:6379"},
		},
		Sync: SyncConfig{Concurrency: 1},
		Cron: CronConfig{
			Enabled:        true,
			Timezone:       "UTC",
			ChannelRefresh: true,
		},
		API: APIConfig{
			Listen:        "127.0.0.1:8088",
			MetricsListen: "127.0.0.1:9088",
			RateLimit:     120,
		},
		Telemetry: TelemetryConfig{
			Exporter:   "grpc",
			Endpoint:   "localhost:4317",
			SampleRate: 1,
		},
	}
}

// DBPath is the effective database file.
func (c AppConfig) DBPath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.DataDir, DefaultDBFile)
}

// Location is the scheduler time zone. Unknown names fall back to UTC;
// Validate rejects them beforehand.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Cron.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
