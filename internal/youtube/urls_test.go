// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package youtube

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLs(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", WatchURL("abc123"))
	assert.Equal(t, "https://www.youtube.com/embed/abc123", EmbedURL("abc123"))
	assert.Equal(t, "https://www.youtube.com/channel/UC42/", ChannelURL("UC42"))
	assert.Empty(t, WatchURL(""))
	assert.Empty(t, ChannelURL(""))
}

func TestThumbnailsBestPreference(t *testing.T) {
	th := Thumbnails{
		"default": {URL: "d"},
		"maxres":  {URL: "m"},
		"high":    {URL: "h"},
	}
	best, ok := th.Best()
	assert.True(t, ok)
	assert.Equal(t, "h", best.URL)

	best, ok = Thumbnails{"default": {URL: "d"}}.Best()
	assert.True(t, ok)
	assert.Equal(t, "d", best.URL)

	_, ok = Thumbnails{}.Best()
	assert.False(t, ok)
}
