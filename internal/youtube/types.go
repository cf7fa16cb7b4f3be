// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package youtube

import (
	"encoding/json"
	"strconv"
	"time"
)

// Thumbnail is one rendition of a video or channel image.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Thumbnails maps a size name (default, medium, high, standard, maxres) to a rendition.
type Thumbnails map[string]Thumbnail

// VideoSummary is a search hit. It only carries what is needed to build a
// detail request and is never persisted.
type VideoSummary struct {
	ExternalVideoID string
	ChannelID       string
	Title           string
	Description     string
	PublishedAt     time.Time
}

// VideoDetail is the full remote payload of one video.
type VideoDetail struct {
	ExternalVideoID string
	ChannelID       string
	ChannelTitle    string
	Title           string
	Description     string
	PublishedAt     time.Time
	Duration        string // ISO-8601, e.g. PT4M13S
	PrivacyStatus   string
	Statistics      map[string]int64
	Thumbnails      Thumbnails
	Raw             json.RawMessage
}

// IsPublic reports whether the video is publicly listed.
func (v VideoDetail) IsPublic() bool {
	return v.PrivacyStatus == "public"
}

// ChannelDetail is the remote payload of one channel.
type ChannelDetail struct {
	ID          string
	Title       string
	Description string
	CustomURL   string
	PublishedAt time.Time
	Statistics  map[string]int64
	Thumbnails  Thumbnails
	Raw         json.RawMessage
}

// Wire formats of the Data API v3.

type apiList struct {
	NextPageToken string            `json:"nextPageToken"`
	Items         []json.RawMessage `json:"items"`
}

type apiSnippet struct {
	PublishedAt  string     `json:"publishedAt"`
	ChannelID    string     `json:"channelId"`
	ChannelTitle string     `json:"channelTitle"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	CustomURL    string     `json:"customUrl"`
	Thumbnails   Thumbnails `json:"thumbnails"`
}

type apiSearchItem struct {
	ID struct {
		Kind    string `json:"kind"`
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet apiSnippet `json:"snippet"`
}

type apiVideoItem struct {
	ID             string     `json:"id"`
	Snippet        apiSnippet `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Statistics map[string]string `json:"statistics"`
	Status     struct {
		PrivacyStatus string `json:"privacyStatus"`
	} `json:"status"`
}

type apiChannelItem struct {
	ID         string         `json:"id"`
	Snippet    apiSnippet     `json:"snippet"`
	Statistics map[string]any `json:"statistics"`
}

type apiErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
			Domain string `json:"domain"`
		} `json:"errors"`
	} `json:"error"`
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// The API encodes counters as decimal strings; unparseable values are dropped.
func parseCounters(in map[string]string) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out
}

func parseAnyCounters(in map[string]any) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		switch x := v.(type) {
		case string:
			if n, err := strconv.ParseInt(x, 10, 64); err == nil {
				out[k] = n
			}
		case float64:
			out[k] = int64(x)
		}
	}
	return out
}
