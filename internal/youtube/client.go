// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package youtube is a small client for the YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/ManuGH/vcollect/internal/log"
	"github.com/ManuGH/vcollect/internal/metrics"
	"github.com/ManuGH/vcollect/internal/resilience"
)

const (
	// DefaultBaseURL is the public Data API endpoint.
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3/"
	// MaxResults is the API page size limit for list and id batches.
	MaxResults = 50

	maxBodyBytes = 8 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	BreakerThreshold  int
	BreakerReset      time.Duration
	HTTPClient        *http.Client
}

// Client talks to the Data API. Safe for concurrent use.
type Client struct {
	base    *url.URL
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

// New builds a client. An empty APIKey is accepted; every call then fails
// with ErrMissingAPIKey.
func New(cfg Config) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("youtube: invalid base url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		base:    base,
		apiKey:  cfg.APIKey,
		http:    hc,
		limiter: rate.NewLimiter(limit, burst),
		breaker: resilience.NewCircuitBreaker("youtube", cfg.BreakerThreshold, cfg.BreakerReset,
			resilience.WithFailureFilter(IsTransient)),
	}, nil
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// Search returns the most recent videos of a channel matching q. An empty
// channelID searches globally and an empty q matches everything. Items that
// are not videos are skipped.
func (c *Client) Search(ctx context.Context, channelID, q string) ([]VideoSummary, error) {
	params := url.Values{}
	params.Set("part", "id,snippet")
	params.Set("type", "video")
	params.Set("order", "date")
	params.Set("maxResults", fmt.Sprint(MaxResults))
	params.Set("q", q)
	if channelID != "" {
		params.Set("channelId", channelID)
	}

	var list apiList
	if err := c.get(ctx, "search", params, &list); err != nil {
		return nil, err
	}

	out := make([]VideoSummary, 0, len(list.Items))
	for _, raw := range list.Items {
		var item apiSearchItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, &APIError{Sentinel: ErrBadResponse, Operation: "search", Err: err}
		}
		if item.ID.VideoID == "" {
			continue
		}
		out = append(out, VideoSummary{
			ExternalVideoID: item.ID.VideoID,
			ChannelID:       item.Snippet.ChannelID,
			Title:           item.Snippet.Title,
			Description:     item.Snippet.Description,
			PublishedAt:     parseTime(item.Snippet.PublishedAt),
		})
	}
	return out, nil
}

// Videos fetches full details. Ids are requested in batches of MaxResults and
// results come back in API order. Unknown ids are silently absent.
func (c *Client) Videos(ctx context.Context, ids []string) ([]VideoDetail, error) {
	var out []VideoDetail
	for _, batch := range chunk(ids, MaxResults) {
		params := url.Values{}
		params.Set("part", "id,snippet,contentDetails,statistics,status")
		params.Set("id", strings.Join(batch, ","))
		params.Set("maxResults", fmt.Sprint(MaxResults))

		var list apiList
		if err := c.get(ctx, "videos", params, &list); err != nil {
			return nil, err
		}
		for _, raw := range list.Items {
			var item apiVideoItem
			if err := json.Unmarshal(raw, &item); err != nil {
				return nil, &APIError{Sentinel: ErrBadResponse, Operation: "videos", Err: err}
			}
			out = append(out, VideoDetail{
				ExternalVideoID: item.ID,
				ChannelID:       item.Snippet.ChannelID,
				ChannelTitle:    item.Snippet.ChannelTitle,
				Title:           item.Snippet.Title,
				Description:     item.Snippet.Description,
				PublishedAt:     parseTime(item.Snippet.PublishedAt),
				Duration:        item.ContentDetails.Duration,
				PrivacyStatus:   item.Status.PrivacyStatus,
				Statistics:      parseCounters(item.Statistics),
				Thumbnails:      item.Snippet.Thumbnails,
				Raw:             raw,
			})
		}
	}
	return out, nil
}

// Channels fetches channel details in batches of MaxResults.
func (c *Client) Channels(ctx context.Context, ids []string) ([]ChannelDetail, error) {
	var out []ChannelDetail
	for _, batch := range chunk(ids, MaxResults) {
		params := url.Values{}
		params.Set("part", "id,snippet,contentDetails,statistics,brandingSettings")
		params.Set("id", strings.Join(batch, ","))
		params.Set("maxResults", fmt.Sprint(MaxResults))

		var list apiList
		if err := c.get(ctx, "channels", params, &list); err != nil {
			return nil, err
		}
		for _, raw := range list.Items {
			var item apiChannelItem
			if err := json.Unmarshal(raw, &item); err != nil {
				return nil, &APIError{Sentinel: ErrBadResponse, Operation: "channels", Err: err}
			}
			out = append(out, ChannelDetail{
				ID:          item.ID,
				Title:       item.Snippet.Title,
				Description: item.Snippet.Description,
				CustomURL:   item.Snippet.CustomURL,
				PublishedAt: parseTime(item.Snippet.PublishedAt),
				Statistics:  parseAnyCounters(item.Statistics),
				Thumbnails:  item.Snippet.Thumbnails,
				Raw:         raw,
			})
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, operation string, params url.Values, into any) error {
	if c.apiKey == "" {
		return &APIError{Sentinel: ErrMissingAPIKey, Operation: operation}
	}

	logger := log.WithComponentFromContext(ctx, "youtube")
	start := time.Now()

	err := c.breaker.Execute(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return classifyTransport(operation, err)
		}
		return c.do(ctx, operation, params, into)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		err = &APIError{Sentinel: ErrUnavailable, Operation: operation, Err: err}
	}

	status := "ok"
	if err != nil {
		status = "error"
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			status = apiErr.Class()
		}
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "youtube.request_failed").
			Str(log.FieldOperation, operation).
			Dur("duration", time.Since(start)).
			Msg("youtube request failed")
	} else {
		logger.Debug().
			Str(log.FieldEvent, "youtube.request").
			Str(log.FieldOperation, operation).
			Dur("duration", time.Since(start)).
			Msg("youtube request completed")
	}
	metrics.RecordYouTubeRequest(operation, status, time.Since(start))
	return err
}

func (c *Client) do(ctx context.Context, operation string, params url.Values, into any) error {
	u := c.base.ResolveReference(&url.URL{Path: operation})
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &APIError{Sentinel: ErrBadRequest, Operation: operation, Err: errors.New("cannot build request")}
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(operation, err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return classifyTransport(operation, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var eb apiErrorBody
		_ = json.Unmarshal(body, &eb)
		reason := ""
		if len(eb.Error.Errors) > 0 {
			reason = eb.Error.Errors[0].Reason
		}
		return &APIError{
			Sentinel:  sentinelForStatus(res.StatusCode, reason),
			Operation: operation,
			Status:    res.StatusCode,
			Reason:    reason,
			Message:   eb.Error.Message,
		}
	}

	if err := json.Unmarshal(body, into); err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: operation, Status: res.StatusCode, Err: err}
	}
	return nil
}

// classifyTransport maps network errors and drops the *url.Error wrapper,
// whose message would contain the api key.
func classifyTransport(operation string, err error) error {
	sentinel := ErrUnavailable
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		sentinel = ErrTimeout
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	return &APIError{Sentinel: sentinel, Operation: operation, Err: err}
}

func chunk(ids []string, size int) [][]string {
	var clean []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	var out [][]string
	for len(clean) > 0 {
		n := min(size, len(clean))
		out = append(out, clean[:n])
		clean = clean[n:]
	}
	return out
}
