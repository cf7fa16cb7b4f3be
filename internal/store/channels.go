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

	"github.com/ManuGH/vcollect/internal/youtube"
)

// Channel is the local record of a remote channel.
type Channel struct {
	ID           int64
	ExternalID   string // empty when unlinked
	Title        string
	Slug         string
	Thumbnails   youtube.Thumbnails
	RawSnapshot  json.RawMessage
	LastSyncedAt *time.Time
	CreatedAt    time.Time
}

const channelColumns = `id, external_id, title, slug, thumbnails, raw_snapshot, last_synced_at, created_at`

// EnsureChannel inserts the channel if no row carries externalID yet and
// returns the stored row. created is true only for the caller whose insert won.
func (s *Store) EnsureChannel(ctx context.Context, externalID, title, slug string) (Channel, bool, error) {
	if externalID == "" {
		return Channel{}, false, errors.New("store: empty channel id")
	}
	res, err := s.db.ExecContext(ctx, `
	INSERT INTO channels (external_id, title, slug, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(external_id) DO NOTHING
	`, externalID, title, slug, formatTime(s.now()))
	if err != nil {
		return Channel{}, false, fmt.Errorf("insert channel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Channel{}, false, err
	}

	ch, err := s.FindChannelByExternalID(ctx, externalID)
	if err != nil {
		return Channel{}, false, err
	}
	return ch, n == 1, nil
}

// FindChannelByExternalID returns ErrNotFound when no row is linked to id.
func (s *Store) FindChannelByExternalID(ctx context.Context, externalID string) (Channel, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE external_id = ?`, externalID)
	return scanChannelRow(row)
}

// GetChannel loads a channel by local id.
func (s *Store) GetChannel(ctx context.Context, id int64) (Channel, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = ?`, id)
	return scanChannelRow(row)
}

// ListLinkedChannels pages through channels that have an external id.
func (s *Store) ListLinkedChannels(ctx context.Context, offset, limit int) ([]Channel, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+channelColumns+` FROM channels
	WHERE external_id IS NOT NULL AND external_id != ''
	ORDER BY id
	LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// UpdateChannelSnapshot stores fresh remote details.
func (s *Store) UpdateChannelSnapshot(ctx context.Context, id int64, detail youtube.ChannelDetail, at time.Time) (Channel, error) {
	thumbs, err := marshalThumbnails(detail.Thumbnails)
	if err != nil {
		return Channel{}, err
	}
	res, err := s.db.ExecContext(ctx, `
	UPDATE channels
	SET thumbnails = ?,
	    raw_snapshot = ?,
	    last_synced_at = ?
	WHERE id = ?
	`, thumbs, nullBytes(detail.Raw), formatTime(at), id)
	if err != nil {
		return Channel{}, err
	}
	if err := expectOne(res); err != nil {
		return Channel{}, err
	}
	return s.GetChannel(ctx, id)
}

// SetChannelExternalID re-links a channel. An empty id unlinks it and clears
// the snapshot and sync time.
func (s *Store) SetChannelExternalID(ctx context.Context, id int64, externalID string) error {
	var (
		res sql.Result
		err error
	)
	if externalID == "" {
		res, err = s.db.ExecContext(ctx, `
		UPDATE channels
		SET external_id = NULL, thumbnails = NULL, raw_snapshot = NULL, last_synced_at = NULL
		WHERE id = ?
		`, id)
	} else {
		res, err = s.db.ExecContext(ctx, `UPDATE channels SET external_id = ? WHERE id = ?`, externalID, id)
	}
	if err != nil {
		return fmt.Errorf("link channel %d: %w", id, err)
	}
	return expectOne(res)
}

func scanChannelRow(row *sql.Row) (Channel, error) {
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Channel{}, ErrNotFound
	}
	return ch, err
}

func scanChannel(sc scanner) (Channel, error) {
	var (
		ch         Channel
		externalID sql.NullString
		thumbs     sql.NullString
		raw        sql.NullString
		lastSynced sql.NullString
		created    sql.NullString
	)
	if err := sc.Scan(&ch.ID, &externalID, &ch.Title, &ch.Slug, &thumbs, &raw, &lastSynced, &created); err != nil {
		return Channel{}, err
	}
	ch.ExternalID = externalID.String
	if thumbs.Valid && thumbs.String != "" {
		if err := json.Unmarshal([]byte(thumbs.String), &ch.Thumbnails); err != nil {
			return Channel{}, fmt.Errorf("decode thumbnails of channel %d: %w", ch.ID, err)
		}
	}
	if raw.Valid && raw.String != "" {
		ch.RawSnapshot = json.RawMessage(raw.String)
	}
	ch.LastSyncedAt = parseTime(lastSynced)
	if t := parseTime(created); t != nil {
		ch.CreatedAt = *t
	}
	return ch, nil
}

func marshalThumbnails(t youtube.Thumbnails) (any, error) {
	if len(t) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
