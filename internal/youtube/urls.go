// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package youtube

import "net/url"

// WatchURL returns the public watch page of a video.
func WatchURL(videoID string) string {
	if videoID == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}

// EmbedURL returns the iframe source of a video.
func EmbedURL(videoID string) string {
	if videoID == "" {
		return ""
	}
	return "https://www.youtube.com/embed/" + url.PathEscape(videoID)
}

// ChannelURL returns the public page of a channel.
func ChannelURL(channelID string) string {
	if channelID == "" {
		return ""
	}
	return "https://www.youtube.com/channel/" + url.PathEscape(channelID) + "/"
}

var thumbnailPreference = []string{"standard", "high", "maxres", "medium", "default"}

// Best returns the preferred rendition, or false when none is set.
func (t Thumbnails) Best() (Thumbnail, bool) {
	for _, size := range thumbnailPreference {
		if th, ok := t[size]; ok && th.URL != "" {
			return th, true
		}
	}
	return Thumbnail{}, false
}
