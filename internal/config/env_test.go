// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseHelpers(t *testing.T) {
	t.Setenv("VC_TEST_INT", "42")
	t.Setenv("VC_TEST_BAD_INT", "forty-two")
	t.Setenv("VC_TEST_FLOAT", "2.5")
	t.Setenv("VC_TEST_DUR", "90s")
	t.Setenv("VC_TEST_BOOL", "No")
	t.Setenv("VC_TEST_BAD_BOOL", "maybe")
	t.Setenv("VC_TEST_EMPTY", "")

	assert.Equal(t, 42, ParseInt("VC_TEST_INT", 1))
	assert.Equal(t, 1, ParseInt("VC_TEST_BAD_INT", 1))
	assert.Equal(t, 7, ParseInt("VC_TEST_UNSET", 7))
	assert.InDelta(t, 2.5, ParseFloat("VC_TEST_FLOAT", 0), 1e-9)
	assert.Equal(t, 90*time.Second, ParseDuration("VC_TEST_DUR", time.Second))
	assert.False(t, ParseBool("VC_TEST_BOOL", true))
	assert.True(t, ParseBool("VC_TEST_BAD_BOOL", true))
	assert.Equal(t, "fallback", ParseString("VC_TEST_EMPTY", "fallback"))
}

func TestParseEnvNeverLogsSecrets(t *testing.T) {
	t.Setenv("VC_TEST_API_KEY", "AIza-very-secret")
	t.Setenv("VC_TEST_PLAIN", "visible")

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	parse := func(s string) (string, error) { return s, nil }

	assert.Equal(t, "AIza-very-secret", parseEnv(logger, "VC_TEST_API_KEY", "", parse))
	assert.Equal(t, "visible", parseEnv(logger, "VC_TEST_PLAIN", "", parse))

	assert.NotContains(t, buf.String(), "AIza-very-secret")
	assert.Contains(t, buf.String(), `"sensitive":true`)
	assert.Contains(t, buf.String(), "visible")
}

func TestIsSensitive(t *testing.T) {
	assert.True(t, IsSensitive(EnvAPIKey))
	assert.True(t, IsSensitive(EnvRedisPassword))
	assert.True(t, IsSensitive("GITHUB_TOKEN"))
	assert.False(t, IsSensitive(EnvRedisAddr))
}
