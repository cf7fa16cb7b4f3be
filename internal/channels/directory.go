// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package channels maps remote channel ids to local channel records and keeps
// their metadata fresh.
package channels

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ManuGH/vcollect/internal/apiresult"
	"github.com/ManuGH/vcollect/internal/cache"
	"github.com/ManuGH/vcollect/internal/log"
	"github.com/ManuGH/vcollect/internal/metrics"
	"github.com/ManuGH/vcollect/internal/store"
	"github.com/ManuGH/vcollect/internal/youtube"
)

const (
	// DefaultDetailsTTL bounds how long a channel detail list is served from cache.
	DefaultDetailsTTL = 12 * time.Hour
	// PageSize is the number of linked channels refreshed per remote call.
	PageSize = youtube.MaxResults

	cacheKeyPrefix = "vcollect:channels:"
)

// ErrEmptyChannelID is returned by Resolve for a blank id.
var ErrEmptyChannelID = errors.New("channels: empty channel id")

// Store is the persistence the directory needs.
type Store interface {
	EnsureChannel(ctx context.Context, externalID, title, slug string) (store.Channel, bool, error)
	GetChannel(ctx context.Context, id int64) (store.Channel, error)
	ListLinkedChannels(ctx context.Context, offset, limit int) ([]store.Channel, error)
	UpdateChannelSnapshot(ctx context.Context, id int64, detail youtube.ChannelDetail, at time.Time) (store.Channel, error)
	SetChannelExternalID(ctx context.Context, id int64, externalID string) error
}

// Remote fetches channel details.
type Remote interface {
	Channels(ctx context.Context, ids []string) ([]youtube.ChannelDetail, error)
}

// Directory resolves and refreshes channels. Safe for concurrent use.
type Directory struct {
	store  Store
	remote Remote
	cache  cache.Cache
	ttl    time.Duration
	now    func() time.Time

	sf singleflight.Group
}

// Option configures a Directory.
type Option func(*Directory)

// WithDetailsTTL overrides DefaultDetailsTTL.
func WithDetailsTTL(ttl time.Duration) Option {
	return func(d *Directory) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithClock replaces the wall clock used for last-synced stamps.
func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

// NewDirectory wires a directory. A nil cache disables detail caching.
func NewDirectory(st Store, remote Remote, c cache.Cache, opts ...Option) *Directory {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	d := &Directory{
		store:  st,
		remote: remote,
		cache:  c,
		ttl:    DefaultDetailsTTL,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Slug derives the local slug of a channel from its external id. A Caser
// keeps state, so each call builds its own.
func (d *Directory) Slug(externalID string) string {
	return cases.Lower(language.Und).String(externalID)
}

// Resolve returns the channel linked to externalID, creating it with title
// on first sight. Concurrent callers for the same id share one lookup and the
// insert is atomic in the store, so a channel is never created twice.
func (d *Directory) Resolve(ctx context.Context, externalID, title string) (store.Channel, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return store.Channel{}, ErrEmptyChannelID
	}

	v, err, _ := d.sf.Do(externalID, func() (any, error) {
		ch, created, err := d.store.EnsureChannel(ctx, externalID, title, d.Slug(externalID))
		if err != nil {
			return store.Channel{}, err
		}
		if created {
			metrics.IncChannelCreated()
			logger := log.WithComponentFromContext(ctx, "channels")
			logger.Info().
				Str(log.FieldEvent, "channel.created").
				Str(log.FieldChannelID, externalID).
				Int64("row_id", ch.ID).
				Str("title", title).
				Msg("channel created")
		}
		return ch, nil
	})
	if err != nil {
		return store.Channel{}, fmt.Errorf("resolve channel %s: %w", externalID, err)
	}
	return v.(store.Channel), nil
}

// CacheKey is the cache key of a channel id list. Order does not matter.
func CacheKey(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// FetchDetails returns remote details for ids, served from cache when a
// previous call for the same set is still fresh.
func (d *Directory) FetchDetails(ctx context.Context, ids []string) ([]youtube.ChannelDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	key := CacheKey(ids)
	logger := log.WithComponentFromContext(ctx, "channels")

	if raw, ok := d.cache.Get(ctx, key); ok {
		var cached []youtube.ChannelDetail
		if err := json.Unmarshal(raw, &cached); err == nil {
			metrics.RecordCacheLookup(true)
			return cached, nil
		}
		logger.Warn().Str(log.FieldEvent, "channels.cache_corrupt").Str("key", key).Msg("dropping unreadable cache entry")
		d.cache.Delete(ctx, key)
	}
	metrics.RecordCacheLookup(false)

	details, err := d.remote.Channels(ctx, ids)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(details); err == nil {
		d.cache.Set(ctx, key, raw, d.ttl)
	}
	return details, nil
}

// InvalidateDetails drops the cached detail list for ids.
func (d *Directory) InvalidateDetails(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	d.cache.Delete(ctx, CacheKey(ids))
}

// SyncAll refreshes every linked channel, PageSize at a time, straight from
// the remote. A failing page is recorded and the next page is still tried.
func (d *Directory) SyncAll(ctx context.Context) *apiresult.Result[store.Channel] {
	res := &apiresult.Result[store.Channel]{}
	logger := log.WithComponentFromContext(ctx, "channels")

	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			res.AddError(err)
			break
		}
		linked, err := d.store.ListLinkedChannels(ctx, page*PageSize, PageSize)
		if err != nil {
			res.AddError(fmt.Errorf("list channels page %d: %w", page+1, err))
			break
		}
		if len(linked) == 0 {
			break
		}

		byExternal := make(map[string]int64, len(linked))
		ids := make([]string, 0, len(linked))
		for _, ch := range linked {
			byExternal[ch.ExternalID] = ch.ID
			ids = append(ids, ch.ExternalID)
		}

		details, err := d.remote.Channels(ctx, ids)
		if err != nil {
			res.AddError(fmt.Errorf("fetch channels page %d: %w", page+1, err))
			logger.Warn().Err(err).
				Str(log.FieldEvent, "channels.page_failed").
				Int(log.FieldPage, page+1).
				Msg("channel page refresh failed")
			continue
		}
		for _, detail := range details {
			rowID, ok := byExternal[detail.ID]
			if !ok {
				continue
			}
			ch, err := d.store.UpdateChannelSnapshot(ctx, rowID, detail, d.now())
			if err != nil {
				res.AddError(fmt.Errorf("update channel %s: %w", detail.ID, err))
				continue
			}
			res.AddSuccess(ch)
		}
		d.InvalidateDetails(ctx, ids)
	}

	metrics.RecordChannelRefresh(len(res.Results()), len(res.Errors()))
	logger.Info().
		Str(log.FieldEvent, "channels.synced").
		Int(log.FieldRecords, len(res.Results())).
		Int(log.FieldErrors, len(res.Errors())).
		Msg("channel refresh finished")
	return res
}

// SyncOne refreshes a single channel by local id.
func (d *Directory) SyncOne(ctx context.Context, rowID int64) (store.Channel, error) {
	ch, err := d.store.GetChannel(ctx, rowID)
	if err != nil {
		return store.Channel{}, err
	}
	if ch.ExternalID == "" {
		return ch, nil
	}
	details, err := d.remote.Channels(ctx, []string{ch.ExternalID})
	if err != nil {
		return store.Channel{}, err
	}
	for _, detail := range details {
		if detail.ID == ch.ExternalID {
			return d.store.UpdateChannelSnapshot(ctx, rowID, detail, d.now())
		}
	}
	return ch, nil
}

// Link points a channel at another external id and refreshes it. An empty
// id unlinks the channel and clears its snapshot.
func (d *Directory) Link(ctx context.Context, rowID int64, externalID string) (store.Channel, error) {
	externalID = strings.TrimSpace(externalID)
	if err := d.store.SetChannelExternalID(ctx, rowID, externalID); err != nil {
		return store.Channel{}, err
	}
	if externalID == "" {
		return d.store.GetChannel(ctx, rowID)
	}
	return d.SyncOne(ctx, rowID)
}
