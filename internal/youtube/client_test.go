// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vcollect/internal/resilience"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	s := httptest.NewServer(h)
	t.Cleanup(s.Close)

	c, err := New(Config{
		BaseURL:    s.URL + "/youtube/v3",
		APIKey:     "secret-key",
		HTTPClient: &http.Client{Timeout: 500 * time.Millisecond},
	})
	require.NoError(t, err)
	return c
}

const searchBody = `{
  "items": [
    {"id": {"kind": "youtube#video", "videoId": "v1"},
     "snippet": {"channelId": "UC1", "title": "First", "description": "d1", "publishedAt": "2024-03-01T10:00:00Z"}},
    {"id": {"kind": "youtube#playlist", "playlistId": "PL1"},
     "snippet": {"channelId": "UC1", "title": "A playlist"}},
    {"id": {"kind": "youtube#video", "videoId": "v2"},
     "snippet": {"channelId": "UC1", "title": "Second", "publishedAt": "2024-03-02T10:00:00Z"}}
  ]
}`

func TestSearchBuildsRequestAndSkipsNonVideos(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(searchBody))
	})

	hits, err := c.Search(context.Background(), "UC1", "")
	require.NoError(t, err)

	assert.Equal(t, "/youtube/v3/search", gotPath)
	assert.Equal(t, "id,snippet", gotQuery["part"][0])
	assert.Equal(t, "date", gotQuery["order"][0])
	assert.Equal(t, "50", gotQuery["maxResults"][0])
	assert.Equal(t, "UC1", gotQuery["channelId"][0])
	assert.Equal(t, "secret-key", gotQuery["key"][0])

	require.Len(t, hits, 2)
	assert.Equal(t, "v1", hits[0].ExternalVideoID)
	assert.Equal(t, "First", hits[0].Title)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), hits[0].PublishedAt)
	assert.Equal(t, "v2", hits[1].ExternalVideoID)
}

func TestSearchWithoutChannelOmitsParam(t *testing.T) {
	var hasChannel bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasChannel = r.URL.Query()["channelId"]
		_, _ = w.Write([]byte(`{"items": []}`))
	})

	hits, err := c.Search(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.False(t, hasChannel)
}

func TestVideosParsesDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/videos", r.URL.Path)
		assert.Equal(t, "v1,v2", r.URL.Query().Get("id"))
		assert.Equal(t, "id,snippet,contentDetails,statistics,status", r.URL.Query().Get("part"))
		_, _ = w.Write([]byte(`{"items": [
		  {"id": "v1",
		   "snippet": {"channelId": "UC1", "channelTitle": "Chan", "title": "T", "description": "D",
		               "publishedAt": "2024-03-01T10:00:00Z",
		               "thumbnails": {"high": {"url": "https://i/high.jpg", "width": 480, "height": 360}}},
		   "contentDetails": {"duration": "PT4M13S"},
		   "statistics": {"viewCount": "1200", "likeCount": "34", "favoriteCount": "0", "bogus": "x"},
		   "status": {"privacyStatus": "public"}}
		]}`))
	})

	vids, err := c.Videos(context.Background(), []string{"v1", " ", "v2"})
	require.NoError(t, err)
	require.Len(t, vids, 1)

	v := vids[0]
	assert.Equal(t, "v1", v.ExternalVideoID)
	assert.Equal(t, "Chan", v.ChannelTitle)
	assert.Equal(t, "PT4M13S", v.Duration)
	assert.True(t, v.IsPublic())
	assert.Equal(t, map[string]int64{"viewCount": 1200, "likeCount": 34, "favoriteCount": 0}, v.Statistics)
	assert.Contains(t, string(v.Raw), `"privacyStatus": "public"`)

	best, ok := v.Thumbnails.Best()
	require.True(t, ok)
	assert.Equal(t, "https://i/high.jpg", best.URL)
}

func TestVideosBatchesIDs(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		ids := strings.Split(r.URL.Query().Get("id"), ",")
		assert.LessOrEqual(t, len(ids), MaxResults)
		_, _ = w.Write([]byte(`{"items": []}`))
	})

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = fmt.Sprintf("v%d", i)
	}
	_, err := c.Videos(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestVideosEmptyIDsSkipsRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request")
	})
	vids, err := c.Videos(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vids)
}

func TestChannelsParsesDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id,snippet,contentDetails,statistics,brandingSettings", r.URL.Query().Get("part"))
		_, _ = w.Write([]byte(`{"items": [
		  {"id": "UC1",
		   "snippet": {"title": "Chan", "description": "About", "customUrl": "@chan", "publishedAt": "2015-01-01T00:00:00Z"},
		   "statistics": {"subscriberCount": "1000", "videoCount": "12", "hiddenSubscriberCount": false}}
		]}`))
	})

	chans, err := c.Channels(context.Background(), []string{"UC1"})
	require.NoError(t, err)
	require.Len(t, chans, 1)
	assert.Equal(t, "Chan", chans[0].Title)
	assert.Equal(t, "@chan", chans[0].CustomURL)
	assert.Equal(t, map[string]int64{"subscriberCount": 1000, "videoCount": 12}, chans[0].Statistics)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		class    string
	}{
		{"bad request", 400, `{"error": {"code": 400, "message": "bad", "errors": [{"reason": "invalidParameter"}]}}`, ErrBadRequest, "bad_request"},
		{"quota", 403, `{"error": {"code": 403, "message": "quota", "errors": [{"reason": "quotaExceeded"}]}}`, ErrQuotaExceeded, "quota"},
		{"forbidden", 403, `{"error": {"code": 403, "message": "nope", "errors": [{"reason": "forbidden"}]}}`, ErrForbidden, "forbidden"},
		{"not found", 404, `{}`, ErrNotFound, "not_found"},
		{"too many", 429, ``, ErrQuotaExceeded, "quota"},
		{"upstream", 503, `oops`, ErrUpstream, "upstream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Search(context.Background(), "UC1", "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.class, apiErr.Class())
		})
	}
}

func TestInvalidJSONIsBadResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not-json"))
	})
	_, err := c.Search(context.Background(), "UC1", "")
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestTimeoutDoesNotLeakKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(time.Second)
	})
	_, err := c.Search(context.Background(), "UC1", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotContains(t, err.Error(), "secret-key")
}

func TestMissingAPIKey(t *testing.T) {
	c, err := New(Config{BaseURL: "http://127.0.0.1:1/"})
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "UC1", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestBreakerOpensOnUpstreamFailures(t *testing.T) {
	var calls atomic.Int32
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(s.Close)

	c, err := New(Config{BaseURL: s.URL, APIKey: "k", BreakerThreshold: 2, BreakerReset: time.Hour})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.Search(context.Background(), "UC1", "")
		assert.ErrorIs(t, err, ErrUpstream)
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	_, err = c.Search(context.Background(), "UC1", "")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(s.Close)

	c, err := New(Config{BaseURL: s.URL, APIKey: "k", BreakerThreshold: 1})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _ = c.Search(context.Background(), "UC1", "")
	}
	assert.Equal(t, resilience.StateClosed, c.BreakerState())
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "::not a url"})
	assert.Error(t, err)
}
