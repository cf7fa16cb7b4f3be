// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/vcollect/internal/condition"
)

// ConditionFilter pages through conditions, newest first.
type ConditionFilter struct {
	Status condition.Status // empty selects all
	Offset int
	Limit  int
}

const conditionColumns = `id, title, interval_hours, offset_hours, channel_ids, search_query, status, created_at, last_synced_at`

// CreateCondition validates and inserts c, returning it with ID and CreatedAt set.
func (s *Store) CreateCondition(ctx context.Context, c condition.Condition) (condition.Condition, error) {
	if c.Status == "" {
		c.Status = condition.StatusActive
	}
	if err := c.Validate(); err != nil {
		return condition.Condition{}, err
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	res, err := s.db.ExecContext(ctx, `
	INSERT INTO conditions (title, interval_hours, offset_hours, channel_ids, search_query, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		c.Title,
		c.IntervalHours,
		c.OffsetHours,
		condition.FormatChannelIDs(c.ChannelIDs),
		condition.FormatQueryText(c.QueryGroups),
		string(c.Status),
		formatTime(c.CreatedAt),
	)
	if err != nil {
		return condition.Condition{}, fmt.Errorf("insert condition: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return condition.Condition{}, err
	}
	c.ID = id
	return c, nil
}

// SetConditionStatus pauses or resumes a condition.
func (s *Store) SetConditionStatus(ctx context.Context, id int64, status condition.Status) error {
	if status != condition.StatusActive && status != condition.StatusPaused {
		return condition.ErrInvalidStatus
	}
	res, err := s.db.ExecContext(ctx, `UPDATE conditions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// GetCondition loads one condition or returns ErrNotFound.
func (s *Store) GetCondition(ctx context.Context, id int64) (condition.Condition, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+conditionColumns+` FROM conditions WHERE id = ?`, id)
	c, err := scanCondition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return condition.Condition{}, ErrNotFound
	}
	return c, err
}

// ListConditions returns one page ordered by creation time, newest first.
func (s *Store) ListConditions(ctx context.Context, f ConditionFilter) ([]condition.Condition, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + conditionColumns + ` FROM conditions`
	args := []any{}
	if f.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []condition.Condition
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TouchConditionSynced stamps the last sync time.
func (s *Store) TouchConditionSynced(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE conditions SET last_synced_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func scanCondition(sc scanner) (condition.Condition, error) {
	var (
		c          condition.Condition
		channels   string
		query      string
		status     string
		created    sql.NullString
		lastSynced sql.NullString
	)
	if err := sc.Scan(&c.ID, &c.Title, &c.IntervalHours, &c.OffsetHours, &channels, &query, &status, &created, &lastSynced); err != nil {
		return condition.Condition{}, err
	}
	c.ChannelIDs = condition.ParseChannelIDs(channels)
	c.QueryGroups = condition.ParseQueryGroups(query)
	c.Status = condition.Status(status)
	if t := parseTime(created); t != nil {
		c.CreatedAt = *t
	}
	c.LastSyncedAt = parseTime(lastSynced)
	return c, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
