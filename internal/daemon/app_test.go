// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/vcollect/internal/cache"
	"github.com/ManuGH/vcollect/internal/condition"
	"github.com/ManuGH/vcollect/internal/config"
	"github.com/ManuGH/vcollect/internal/log"
)

func testAppConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.Version = "test"
	cfg.DataDir = t.TempDir()
	cfg.API.Listen = "127.0.0.1:0"
	cfg.API.MetricsListen = ""
	cfg.API.RateLimit = 0
	return cfg
}

func TestOpen_BuildsComponents(t *testing.T) {
	cfg := testAppConfig(t)

	comps, err := Open(cfg)
	require.NoError(t, err)
	require.NotNil(t, comps.Store)
	require.NotNil(t, comps.Cache)
	require.NotNil(t, comps.YouTube)
	require.NotNil(t, comps.Directory)
	require.NotNil(t, comps.Engine)
	assert.FileExists(t, filepath.Join(cfg.DataDir, config.DefaultDBFile))

	ctx := context.Background()
	created, err := comps.Store.CreateCondition(ctx, condition.Condition{
		Title:         "News",
		IntervalHours: 6,
		ChannelIDs:    []string{"UC1"},
		Status:        condition.StatusActive,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	require.NoError(t, comps.Close(ctx))
	assert.NoError(t, comps.Close(ctx), "closing twice is harmless")
}

func TestOpen_UnknownCacheBackend(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.Cache.Backend = "memcached"

	_, err := Open(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open cache")
}

func TestOpen_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testAppConfig(t)
	cfg.Cache.Backend = cache.BackendRedis
	cfg.Cache.Redis.Addr = mr.Addr()

	comps, err := Open(cfg)
	require.NoError(t, err)
	defer func() { _ = comps.Close(context.Background()) }()

	rc, ok := comps.Cache.(*cache.RedisCache)
	require.True(t, ok)
	assert.NoError(t, rc.HealthCheck(context.Background()))
}

func TestApp_RunServesProbesUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	comps, err := Open(testAppConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	app, err := Build(ctx, comps, nil)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(ctx) }()

	addr := waitForAddr(t, app.manager.(*manager))
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr.String() + "/healthz?verbose=true")
	require.NoError(t, err)
	var body struct {
		Status string                    `json:"status"`
		Checks map[string]map[string]any `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body.Status)
	assert.Contains(t, body.Checks, "database")
	assert.Contains(t, body.Checks, "scheduler")
	assert.Contains(t, body.Checks, "youtube")
	assert.NotContains(t, body.Checks, "redis")

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
}

type recordingApplier struct{ values []bool }

func (r *recordingApplier) SetIncludeShorts(include bool) { r.values = append(r.values, include) }

func TestApp_ApplyPushesLiveSettings(t *testing.T) {
	applier := &recordingApplier{}
	app := NewApp(log.WithComponent("test"), nil, nil, applier)

	prev := config.Defaults()
	next := prev
	next.Sync.IncludeShorts = true
	next.API.Listen = "127.0.0.1:9999"

	app.apply(prev, next)
	app.apply(next, next)

	assert.Equal(t, []bool{true}, applier.values)
}

func TestApp_RunWithoutManager(t *testing.T) {
	app := NewApp(log.WithComponent("test"), nil, nil, nil)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}
