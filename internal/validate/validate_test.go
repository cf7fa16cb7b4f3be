// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorAccumulates(t *testing.T) {
	v := New()
	v.Range("Interval", 30, 1, 24)
	v.OneOf("Backend", "memcached", []string{"memory", "redis"})
	v.Positive("Concurrency", 0)
	v.NotEmpty("Title", "  ")

	require.False(t, v.IsValid())
	err := v.Err()
	require.Error(t, err)
	assert.Len(t, v.Errors(), 4)
	assert.True(t, errors.Is(err, ErrInvalid))

	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Interval", ve.Errors()[0].Field)
	assert.Contains(t, err.Error(), "value must be between 1 and 24, got 30")
}

func TestValidatorValid(t *testing.T) {
	v := New()
	v.Range("Interval", 6, 1, 24)
	v.RangeFloat("SampleRate", 0.5, 0, 1)
	v.MinDuration("Timeout", time.Second, time.Second)
	v.NonNegative("DB", 0)
	assert.True(t, v.IsValid())
	assert.NoError(t, v.Err())
}

func TestURL(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"https", "https://www.googleapis.com/youtube/v3/", true},
		{"empty", "", false},
		{"no host", "https://", false},
		{"scheme", "ftp://example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("BaseURL", tt.value, []string{"http", "https"})
			assert.Equal(t, tt.ok, v.IsValid())
		})
	}
}

func TestListenAddr(t *testing.T) {
	tests := []struct {
		addr     string
		optional bool
		ok       bool
	}{
		{":8080", false, true},
		{"127.0.0.1:0", false, true},
		{"", true, true},
		{"", false, false},
		{"8080", false, false},
		{":99999", false, false},
	}
	for _, tt := range tests {
		v := New()
		v.ListenAddr("Listen", tt.addr, tt.optional)
		assert.Equal(t, tt.ok, v.IsValid(), tt.addr)
	}
}

func TestTimezone(t *testing.T) {
	v := New()
	v.Timezone("Timezone", "UTC")
	assert.True(t, v.IsValid())
	v.Timezone("Timezone", "Mars/Olympus")
	assert.False(t, v.IsValid())
}

func TestDirectory(t *testing.T) {
	root := t.TempDir()

	v := New()
	v.Directory("DataDir", filepath.Join(root, "created"), false)
	assert.True(t, v.IsValid())
	assert.DirExists(t, filepath.Join(root, "created"))

	v = New()
	v.Directory("DataDir", filepath.Join(root, "missing"), true)
	assert.False(t, v.IsValid())

	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	v = New()
	v.Directory("DataDir", file, false)
	assert.False(t, v.IsValid())

	v = New()
	v.Directory("DataDir", "../escape", false)
	assert.False(t, v.IsValid())
}
