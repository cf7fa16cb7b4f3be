// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"time"

	"github.com/ManuGH/vcollect/internal/collector"
	"github.com/ManuGH/vcollect/internal/condition"
	"github.com/ManuGH/vcollect/internal/store"
	"github.com/ManuGH/vcollect/internal/youtube"
)

type conditionView struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	IntervalHours int        `json:"intervalHours"`
	OffsetHours   int        `json:"offsetHours"`
	Hours         []int      `json:"hours"`
	ChannelIDs    []string   `json:"channelIds"`
	QueryGroups   [][]string `json:"queryGroups"`
	Summary       string     `json:"summary"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastSyncedAt  *time.Time `json:"lastSyncedAt,omitempty"`
}

func newConditionView(c condition.Condition) conditionView {
	channels := c.ChannelIDs
	if channels == nil {
		channels = []string{}
	}
	groups := c.QueryGroups
	if groups == nil {
		groups = [][]string{}
	}
	return conditionView{
		ID:            c.ID,
		Title:         c.Title,
		IntervalHours: c.IntervalHours,
		OffsetHours:   c.OffsetHours,
		Hours:         c.Hours(),
		ChannelIDs:    channels,
		QueryGroups:   groups,
		Summary:       condition.FormatQueryGroups(c.QueryGroups),
		Status:        string(c.Status),
		CreatedAt:     c.CreatedAt,
		LastSyncedAt:  c.LastSyncedAt,
	}
}

type conditionChannelView struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

type conditionDetailView struct {
	conditionView
	Channels []conditionChannelView `json:"channels,omitempty"`
}

// newChannelViews keeps the order of ids; ids without details get no title.
func newChannelViews(ids []string, details []youtube.ChannelDetail) []conditionChannelView {
	titles := make(map[string]string, len(details))
	for _, d := range details {
		titles[d.ID] = d.Title
	}
	views := make([]conditionChannelView, 0, len(ids))
	for _, id := range ids {
		views = append(views, conditionChannelView{ID: id, Title: titles[id], URL: youtube.ChannelURL(id)})
	}
	return views
}

type videoView struct {
	ID              int64     `json:"id"`
	ExternalVideoID string    `json:"externalVideoId"`
	Title           string    `json:"title"`
	Excerpt         string    `json:"excerpt,omitempty"`
	URL             string    `json:"url"`
	PublishedAt     time.Time `json:"publishedAt"`
	Visibility      string    `json:"visibility"`
	Views           int64     `json:"views"`
	Likes           int64     `json:"likes"`
	ChannelID       *int64    `json:"channelId,omitempty"`
	LastSyncedAt    time.Time `json:"lastSyncedAt"`
}

func newVideoView(v store.Video) videoView {
	return videoView{
		ID:              v.ID,
		ExternalVideoID: v.ExternalVideoID,
		Title:           v.Title,
		Excerpt:         v.Excerpt,
		URL:             youtube.WatchURL(v.ExternalVideoID),
		PublishedAt:     v.PublishedAt,
		Visibility:      string(v.Visibility),
		Views:           v.Stats.Views,
		Likes:           v.Stats.Likes,
		ChannelID:       v.ChannelID,
		LastSyncedAt:    v.LastSyncedAt,
	}
}

func newVideoViews(videos []store.Video) []videoView {
	out := make([]videoView, 0, len(videos))
	for _, v := range videos {
		out = append(out, newVideoView(v))
	}
	return out
}

type syncView struct {
	ConditionID int64                   `json:"conditionId"`
	RunID       string                  `json:"runId"`
	Trigger     string                  `json:"trigger"`
	Outcome     string                  `json:"outcome"`
	StartedAt   time.Time               `json:"startedAt"`
	FinishedAt  time.Time               `json:"finishedAt"`
	Records     []videoView             `json:"records"`
	Errors      []collector.ErrorDetail `json:"errors"`
}

func newSyncView(res *collector.SyncResult) syncView {
	errs := res.Errors
	if errs == nil {
		errs = []collector.ErrorDetail{}
	}
	return syncView{
		ConditionID: res.ConditionID,
		RunID:       res.RunID,
		Trigger:     string(res.Trigger),
		Outcome:     res.Outcome(),
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
		Records:     newVideoViews(res.Records),
		Errors:      errs,
	}
}

type decisionView struct {
	ExternalVideoID string    `json:"externalVideoId"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	PublishedAt     time.Time `json:"publishedAt"`
	Matched         bool      `json:"matched"`
	Reasons         []string  `json:"reasons"`
}

type previewView struct {
	Condition conditionView           `json:"condition"`
	Decisions []decisionView          `json:"decisions"`
	Errors    []collector.ErrorDetail `json:"errors"`
}

func newPreviewView(p *collector.PreviewResult) previewView {
	out := previewView{
		Condition: newConditionView(p.Condition),
		Decisions: make([]decisionView, 0, len(p.Decisions)),
		Errors:    p.Errors,
	}
	if out.Errors == nil {
		out.Errors = []collector.ErrorDetail{}
	}
	for _, d := range p.Decisions {
		out.Decisions = append(out.Decisions, decisionView{
			ExternalVideoID: d.Video.ExternalVideoID,
			Title:           d.Video.Title,
			URL:             youtube.WatchURL(d.Video.ExternalVideoID),
			PublishedAt:     d.Video.PublishedAt,
			Matched:         d.Matched,
			Reasons:         d.Reasons,
		})
	}
	return out
}

type channelView struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"externalId"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	URL        string `json:"url"`
	Thumbnail  string `json:"thumbnail,omitempty"`
}

func newChannelView(c store.Channel) channelView {
	v := channelView{
		ID:         c.ID,
		ExternalID: c.ExternalID,
		Title:      c.Title,
		Slug:       c.Slug,
		URL:        youtube.ChannelURL(c.ExternalID),
	}
	if th, ok := c.Thumbnails.Best(); ok {
		v.Thumbnail = th.URL
	}
	return v
}
