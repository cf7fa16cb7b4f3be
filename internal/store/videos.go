// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Visibility of a stored video.
type Visibility string

const (
	VisibilityPublished Visibility = "published"
	VisibilityPrivate   Visibility = "private"
)

// SourceYouTube tags every record collected from the Data API.
const SourceYouTube = "YouTube"

// VideoStats are the counters copied from the remote payload.
type VideoStats struct {
	Views     int64
	Likes     int64
	Dislikes  int64
	Favorites int64
}

// Video is a persisted collected video.
type Video struct {
	ID              int64
	ExternalVideoID string
	Title           string
	Excerpt         string
	PublishedAt     time.Time
	Visibility      Visibility
	Stats           VideoStats
	ChannelID       *int64
	Source          string
	RawSnapshot     json.RawMessage
	LastSyncedAt    time.Time
	CreatedAt       time.Time
}

const videoColumns = `id, external_video_id, title, excerpt, published_at, visibility, view_count, like_count, dislike_count, favorite_count, channel_id, source, raw_snapshot, last_synced_at, created_at`

// UpsertVideo creates the record on first sight of ExternalVideoID and
// updates it in place afterwards. Both paths are single statements keyed on
// the unique external id, so concurrent writers never duplicate a video.
func (s *Store) UpsertVideo(ctx context.Context, v Video) (Video, bool, error) {
	if v.ExternalVideoID == "" {
		return Video{}, false, errors.New("store: empty video id")
	}
	if v.Visibility == "" {
		v.Visibility = VisibilityPrivate
	}
	if v.Source == "" {
		v.Source = SourceYouTube
	}
	if v.LastSyncedAt.IsZero() {
		v.LastSyncedAt = s.now()
	}

	args := []any{
		v.Title,
		v.Excerpt,
		formatTime(v.PublishedAt),
		string(v.Visibility),
		v.Stats.Views,
		v.Stats.Likes,
		v.Stats.Dislikes,
		v.Stats.Favorites,
		v.ChannelID,
		v.Source,
		nullBytes(v.RawSnapshot),
		formatTime(v.LastSyncedAt),
	}

	res, err := s.db.ExecContext(ctx, `
	INSERT INTO videos (title, excerpt, published_at, visibility, view_count, like_count, dislike_count, favorite_count,
		channel_id, source, raw_snapshot, last_synced_at, external_video_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(external_video_id) DO NOTHING
	`, append(args, v.ExternalVideoID, formatTime(s.now()))...)
	if err != nil {
		return Video{}, false, fmt.Errorf("insert video %s: %w", v.ExternalVideoID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Video{}, false, err
	}
	created := n == 1

	if !created {
		_, err = s.db.ExecContext(ctx, `
		UPDATE videos
		SET title = ?,
		    excerpt = ?,
		    published_at = ?,
		    visibility = ?,
		    view_count = ?,
		    like_count = ?,
		    dislike_count = ?,
		    favorite_count = ?,
		    channel_id = COALESCE(?, channel_id),
		    source = ?,
		    raw_snapshot = ?,
		    last_synced_at = ?
		WHERE external_video_id = ?
		`, append(args, v.ExternalVideoID)...)
		if err != nil {
			return Video{}, false, fmt.Errorf("update video %s: %w", v.ExternalVideoID, err)
		}
	}

	stored, err := s.FindVideoByExternalID(ctx, v.ExternalVideoID)
	if err != nil {
		return Video{}, false, err
	}
	return stored, created, nil
}

// FindVideoByExternalID returns ErrNotFound when the video was never collected.
func (s *Store) FindVideoByExternalID(ctx context.Context, externalID string) (Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE external_video_id = ?`, externalID)
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Video{}, ErrNotFound
	}
	return v, err
}

// ListVideos pages through stored videos, newest publication first.
func (s *Store) ListVideos(ctx context.Context, offset, limit int) ([]Video, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+videoColumns+` FROM videos
	ORDER BY published_at DESC, id DESC
	LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListVideosAfter pages by ascending id. Use the last returned id as the next
// cursor; the order is stable while rows are being rewritten.
func (s *Store) ListVideosAfter(ctx context.Context, afterID int64, limit int) ([]Video, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+videoColumns+` FROM videos
	WHERE id > ?
	ORDER BY id
	LIMIT ?
	`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateVideoPublishedAt rewrites the publication date of one record.
func (s *Store) UpdateVideoPublishedAt(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE videos SET published_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// CountVideos returns the number of stored videos.
func (s *Store) CountVideos(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos`).Scan(&n)
	return n, err
}

func scanVideo(sc scanner) (Video, error) {
	var (
		v          Video
		published  sql.NullString
		visibility string
		channelID  sql.NullInt64
		raw        sql.NullString
		lastSynced sql.NullString
		created    sql.NullString
	)
	err := sc.Scan(
		&v.ID, &v.ExternalVideoID, &v.Title, &v.Excerpt, &published, &visibility,
		&v.Stats.Views, &v.Stats.Likes, &v.Stats.Dislikes, &v.Stats.Favorites,
		&channelID, &v.Source, &raw, &lastSynced, &created,
	)
	if err != nil {
		return Video{}, err
	}
	v.Visibility = Visibility(visibility)
	if t := parseTime(published); t != nil {
		v.PublishedAt = *t
	}
	if channelID.Valid {
		id := channelID.Int64
		v.ChannelID = &id
	}
	if raw.Valid && raw.String != "" {
		v.RawSnapshot = json.RawMessage(raw.String)
	}
	if t := parseTime(lastSynced); t != nil {
		v.LastSyncedAt = *t
	}
	if t := parseTime(created); t != nil {
		v.CreatedAt = *t
	}
	return v, nil
}
