// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vcollect/internal/cache"
	"github.com/ManuGH/vcollect/internal/store"
	"github.com/ManuGH/vcollect/internal/youtube"
)

type fakeRemote struct {
	mu     sync.Mutex
	calls  atomic.Int32
	failOn map[int32]error // call number -> error
	known  map[string]youtube.ChannelDetail
}

func (f *fakeRemote) Channels(_ context.Context, ids []string) ([]youtube.ChannelDetail, error) {
	n := f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[n]; err != nil {
		return nil, err
	}
	var out []youtube.ChannelDetail
	for _, id := range ids {
		if d, ok := f.known[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func detail(id string) youtube.ChannelDetail {
	return youtube.ChannelDetail{
		ID:         id,
		Title:      "Title " + id,
		Thumbnails: youtube.Thumbnails{"high": {URL: "https://i/" + id + ".jpg"}},
		Raw:        json.RawMessage(fmt.Sprintf(`{"id":%q}`, id)),
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "vcollect.db"), store.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestResolveCreatesOnce(t *testing.T) {
	st := newTestStore(t)
	d := NewDirectory(st, &fakeRemote{}, nil)
	ctx := context.Background()

	first, err := d.Resolve(ctx, "UCMixedCase", "Mixed")
	require.NoError(t, err)
	assert.Equal(t, "ucmixedcase", first.Slug)
	assert.Equal(t, "Mixed", first.Title)

	second, err := d.Resolve(ctx, "UCMixedCase", "Renamed")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = d.Resolve(ctx, "  ", "x")
	assert.ErrorIs(t, err, ErrEmptyChannelID)
}

func TestResolveConcurrentNoDuplicates(t *testing.T) {
	st := newTestStore(t)
	d := NewDirectory(st, &fakeRemote{}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]int64, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ch, err := d.Resolve(ctx, "UCsame", "Same")
			if assert.NoError(t, err) {
				ids[i] = ch.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	linked, err := st.ListLinkedChannels(ctx, 0, 100)
	require.NoError(t, err)
	assert.Len(t, linked, 1)
}

func TestSlugConcurrentDistinctIDs(t *testing.T) {
	d := NewDirectory(newTestStore(t), &fakeRemote{}, nil)

	var wg sync.WaitGroup
	slugs := make([]string, 32)
	for i := range slugs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slugs[i] = d.Slug(fmt.Sprintf("UCMixed%02d", i))
		}(i)
	}
	wg.Wait()

	for i, slug := range slugs {
		assert.Equal(t, fmt.Sprintf("ucmixed%02d", i), slug)
	}
}

func TestCacheKeyIgnoresOrder(t *testing.T) {
	a := CacheKey([]string{"UC2", "UC1"})
	b := CacheKey([]string{"UC1", "UC2"})
	assert.Equal(t, a, b)
	assert.Contains(t, a, "vcollect:channels:")
	assert.NotEqual(t, a, CacheKey([]string{"UC1"}))
}

func TestFetchDetailsUsesCache(t *testing.T) {
	remote := &fakeRemote{known: map[string]youtube.ChannelDetail{"UC1": detail("UC1"), "UC2": detail("UC2")}}
	mem := cache.NewMemoryCache(0)
	d := NewDirectory(newTestStore(t), remote, mem, WithDetailsTTL(time.Hour))
	ctx := context.Background()

	got, err := d.FetchDetails(ctx, []string{"UC1", "UC2"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	again, err := d.FetchDetails(ctx, []string{"UC2", "UC1"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), remote.calls.Load(), "second call must be served from cache")
	assert.Equal(t, got[0].Title, again[0].Title)
	assert.Equal(t, "https://i/UC1.jpg", again[0].Thumbnails["high"].URL)

	d.InvalidateDetails(ctx, []string{"UC1", "UC2"})
	_, err = d.FetchDetails(ctx, []string{"UC1", "UC2"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), remote.calls.Load())
}

func TestFetchDetailsErrorIsNotCached(t *testing.T) {
	boom := errors.New("quota")
	remote := &fakeRemote{failOn: map[int32]error{1: boom}, known: map[string]youtube.ChannelDetail{"UC1": detail("UC1")}}
	d := NewDirectory(newTestStore(t), remote, cache.NewMemoryCache(0))
	ctx := context.Background()

	_, err := d.FetchDetails(ctx, []string{"UC1"})
	assert.ErrorIs(t, err, boom)

	got, err := d.FetchDetails(ctx, []string{"UC1"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSyncAllAccumulatesAcrossPages(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	known := map[string]youtube.ChannelDetail{}
	for i := 0; i < PageSize*2+5; i++ {
		id := fmt.Sprintf("UC%03d", i)
		_, _, err := st.EnsureChannel(ctx, id, id, id)
		require.NoError(t, err)
		known[id] = detail(id)
	}

	boom := errors.New("upstream 503")
	remote := &fakeRemote{known: known, failOn: map[int32]error{2: boom}}
	fixed := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	d := NewDirectory(st, remote, nil, WithClock(func() time.Time { return fixed }))

	res := d.SyncAll(ctx)
	assert.True(t, res.HasError())
	require.Len(t, res.ErrorMessages(), 1)
	assert.Contains(t, res.ErrorMessages()[0], "page 2")
	assert.Len(t, res.Results(), PageSize+5, "pages 1 and 3 survive the page 2 failure")
	assert.Equal(t, int32(3), remote.calls.Load())

	first := res.Results()[0]
	require.NotNil(t, first.LastSyncedAt)
	assert.True(t, fixed.Equal(*first.LastSyncedAt))
	assert.NotEmpty(t, first.RawSnapshot)
}

func TestSyncAllNothingLinked(t *testing.T) {
	d := NewDirectory(newTestStore(t), &fakeRemote{}, nil)
	res := d.SyncAll(context.Background())
	assert.False(t, res.HasError())
	assert.Empty(t, res.Results())
}

func TestLinkAndUnlink(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	remote := &fakeRemote{known: map[string]youtube.ChannelDetail{"UCnew": detail("UCnew")}}
	d := NewDirectory(st, remote, nil)

	ch, err := d.Resolve(ctx, "UCold", "Old")
	require.NoError(t, err)

	linked, err := d.Link(ctx, ch.ID, "UCnew")
	require.NoError(t, err)
	assert.Equal(t, "UCnew", linked.ExternalID)
	require.NotNil(t, linked.LastSyncedAt)
	assert.Equal(t, "https://i/UCnew.jpg", linked.Thumbnails["high"].URL)

	unlinked, err := d.Link(ctx, ch.ID, "")
	require.NoError(t, err)
	assert.Empty(t, unlinked.ExternalID)
	assert.Nil(t, unlinked.LastSyncedAt)
	assert.Nil(t, unlinked.RawSnapshot)

	_, err = d.Link(ctx, 9999, "UCx")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
