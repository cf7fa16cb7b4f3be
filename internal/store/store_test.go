// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vcollect/internal/condition"
	"github.com/ManuGH/vcollect/internal/youtube"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "vcollect.db"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConditionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := condition.Condition{
		Title:         "Go releases",
		IntervalHours: 6,
		OffsetHours:   1,
		ChannelIDs:    []string{"UC1", "UC2"},
		QueryGroups:   [][]string{{"Go", "release"}, {"gopher"}},
	}
	created, err := s.CreateCondition(ctx, in)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, condition.StatusActive, created.Status)

	got, err := s.GetCondition(ctx, created.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(in.ChannelIDs, got.ChannelIDs); diff != "" {
		t.Errorf("channel ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(in.QueryGroups, got.QueryGroups); diff != "" {
		t.Errorf("query groups mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, got.LastSyncedAt)

	at := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
	require.NoError(t, s.TouchConditionSynced(ctx, created.ID, at))
	got, err = s.GetCondition(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSyncedAt)
	assert.True(t, at.Equal(*got.LastSyncedAt))
}

func TestCreateConditionValidates(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateCondition(context.Background(), condition.Condition{Title: "x", IntervalHours: 30})
	assert.ErrorIs(t, err, condition.ErrInvalidInterval)
}

func TestGetConditionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetCondition(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.TouchConditionSynced(context.Background(), 42, time.Now()), ErrNotFound)
}

func TestListConditionsPagesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		status := condition.StatusActive
		if i == 2 {
			status = condition.StatusPaused
		}
		_, err := s.CreateCondition(ctx, condition.Condition{
			Title:         fmt.Sprintf("c%d", i),
			IntervalHours: 24,
			Status:        status,
			CreatedAt:     base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	page, err := s.ListConditions(ctx, ConditionFilter{Status: condition.StatusActive, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, []string{"c4", "c3", "c1"}, []string{page[0].Title, page[1].Title, page[2].Title})

	page, err = s.ListConditions(ctx, ConditionFilter{Status: condition.StatusActive, Offset: 3, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c0", page[0].Title)

	all, err := s.ListConditions(ctx, ConditionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	require.NoError(t, s.SetConditionStatus(ctx, all[0].ID, condition.StatusPaused))
	paused, err := s.ListConditions(ctx, ConditionFilter{Status: condition.StatusPaused})
	require.NoError(t, err)
	assert.Len(t, paused, 2)
}

func TestEnsureChannelIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, created, err := s.EnsureChannel(ctx, "UCabc", "Chan", "ucabc")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := s.EnsureChannel(ctx, "UCabc", "Other title", "ucabc")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Chan", again.Title)
}

func TestEnsureChannelConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[int64]struct{}{}
		creates int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, created, err := s.EnsureChannel(ctx, "UCrace", "Race", "ucrace")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[ch.ID] = struct{}{}
			if created {
				creates++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 1)
	assert.Equal(t, 1, creates)
}

func TestChannelSnapshotAndLink(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch, _, err := s.EnsureChannel(ctx, "UC1", "One", "uc1")
	require.NoError(t, err)
	_, _, err = s.EnsureChannel(ctx, "UC2", "Two", "uc2")
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	updated, err := s.UpdateChannelSnapshot(ctx, ch.ID, youtube.ChannelDetail{
		ID:         "UC1",
		Thumbnails: youtube.Thumbnails{"high": {URL: "https://i/h.jpg"}},
		Raw:        json.RawMessage(`{"id":"UC1"}`),
	}, at)
	require.NoError(t, err)
	assert.Equal(t, "https://i/h.jpg", updated.Thumbnails["high"].URL)
	assert.JSONEq(t, `{"id":"UC1"}`, string(updated.RawSnapshot))
	require.NotNil(t, updated.LastSyncedAt)

	require.NoError(t, s.SetChannelExternalID(ctx, ch.ID, ""))
	unlinked, err := s.GetChannel(ctx, ch.ID)
	require.NoError(t, err)
	assert.Empty(t, unlinked.ExternalID)
	assert.Nil(t, unlinked.RawSnapshot)
	assert.Nil(t, unlinked.LastSyncedAt)

	linked, err := s.ListLinkedChannels(ctx, 0, 50)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "UC2", linked[0].ExternalID)

	require.NoError(t, s.SetChannelExternalID(ctx, ch.ID, "UC9"))
	found, err := s.FindChannelByExternalID(ctx, "UC9")
	require.NoError(t, err)
	assert.Equal(t, ch.ID, found.ID)

	assert.ErrorIs(t, s.SetChannelExternalID(ctx, 999, "UCx"), ErrNotFound)
}

func TestUpsertVideoCreatesThenUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch, _, err := s.EnsureChannel(ctx, "UC1", "One", "uc1")
	require.NoError(t, err)

	published := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	v := Video{
		ExternalVideoID: "v1",
		Title:           "First",
		Excerpt:         "desc",
		PublishedAt:     published,
		Visibility:      VisibilityPublished,
		Stats:           VideoStats{Views: 10, Likes: 2},
		ChannelID:       &ch.ID,
		RawSnapshot:     json.RawMessage(`{"id":"v1"}`),
	}
	stored, created, err := s.UpsertVideo(ctx, v)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, SourceYouTube, stored.Source)
	require.NotNil(t, stored.ChannelID)
	assert.Equal(t, ch.ID, *stored.ChannelID)

	v.Title = "First (edited)"
	v.Stats.Views = 99
	v.ChannelID = nil
	again, created, err := s.UpsertVideo(ctx, v)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ID, again.ID)
	assert.Equal(t, "First (edited)", again.Title)
	assert.Equal(t, int64(99), again.Stats.Views)
	require.NotNil(t, again.ChannelID, "channel ref is kept when not supplied")
	assert.Equal(t, ch.ID, *again.ChannelID)

	n, err := s.CountVideos(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListVideosAndUpdatePublishedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, _, err := s.UpsertVideo(ctx, Video{
			ExternalVideoID: fmt.Sprintf("v%d", i),
			PublishedAt:     base.AddDate(0, 0, i),
		})
		require.NoError(t, err)
	}

	vids, err := s.ListVideos(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, vids, 2)
	assert.Equal(t, "v2", vids[0].ExternalVideoID)
	assert.Equal(t, VisibilityPrivate, vids[0].Visibility)

	later := base.AddDate(1, 0, 0)
	oldest, err := s.FindVideoByExternalID(ctx, "v0")
	require.NoError(t, err)
	require.NoError(t, s.UpdateVideoPublishedAt(ctx, oldest.ID, later))

	vids, err = s.ListVideos(ctx, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, "v0", vids[0].ExternalVideoID)

	_, err = s.FindVideoByExternalID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListVideosAfterPagesByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _, err := s.UpsertVideo(ctx, Video{ExternalVideoID: fmt.Sprintf("v%d", i)})
		require.NoError(t, err)
	}

	first, err := s.ListVideosAfter(ctx, 0, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, "v0", first[0].ExternalVideoID)

	rest, err := s.ListVideosAfter(ctx, first[2].ID, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "v4", rest[1].ExternalVideoID)

	none, err := s.ListVideosAfter(ctx, rest[1].ID, 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}
