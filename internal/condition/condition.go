// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package condition holds the rule set that decides which remote videos are
// collected, and the evaluation of a single video against it.
package condition

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ManuGH/vcollect/internal/schedule"
)

// Status controls whether the hourly driver picks a condition up.
type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
)

const (
	MinIntervalHours = 1
	MaxIntervalHours = 24
	MaxOffsetHours   = 12
)

// Condition is a named rule set. QueryGroups is a disjunction of
// conjunctions: the outer slice is OR, each inner slice is AND.
type Condition struct {
	ID            int64
	Title         string
	IntervalHours int
	OffsetHours   int
	ChannelIDs    []string
	QueryGroups   [][]string
	Status        Status
	CreatedAt     time.Time
	LastSyncedAt  *time.Time
}

var (
	ErrInvalidInterval = errors.New("interval must be between 1 and 24 hours")
	ErrInvalidOffset   = errors.New("offset must be between 0 and 12 hours")
	ErrInvalidStatus   = errors.New("status must be active or paused")
	ErrEmptyTitle      = errors.New("title is required")
)

// Validate checks the scheduling fields. A condition without channels is
// valid to store; syncing it fails instead.
func (c Condition) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Title) == "" {
		errs = append(errs, ErrEmptyTitle)
	}
	if c.IntervalHours < MinIntervalHours || c.IntervalHours > MaxIntervalHours {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidInterval, c.IntervalHours))
	}
	if c.OffsetHours < 0 || c.OffsetHours > MaxOffsetHours {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidOffset, c.OffsetHours))
	}
	switch c.Status {
	case StatusActive, StatusPaused:
	default:
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidStatus, c.Status))
	}
	return errors.Join(errs...)
}

// Hours returns the hours of day the condition is due.
func (c Condition) Hours() []int {
	return schedule.MatchingHours(c.OffsetHours, c.IntervalHours)
}

// DueAt reports whether the condition is due at hour h.
func (c Condition) DueAt(h int) bool {
	return schedule.Contains(c.Hours(), h)
}

var lineBreak = regexp.MustCompile(`\r\n|\r|\n`)

// ParseChannelIDs splits one id per line, dropping blank lines.
func ParseChannelIDs(raw string) []string {
	var out []string
	for _, line := range lineBreak.Split(raw, -1) {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// FormatChannelIDs is the inverse of ParseChannelIDs.
func FormatChannelIDs(ids []string) string {
	return strings.Join(ids, "\n")
}

// ParseQueryGroups reads one AND-group per line with comma separated words.
// Words are trimmed; empty words and lines without words are dropped.
func ParseQueryGroups(raw string) [][]string {
	var out [][]string
	for _, line := range lineBreak.Split(raw, -1) {
		var group []string
		for _, w := range strings.Split(line, ",") {
			if w = strings.TrimSpace(w); w != "" {
				group = append(group, w)
			}
		}
		if len(group) > 0 {
			out = append(out, group)
		}
	}
	return out
}

// FormatQueryText is the inverse of ParseQueryGroups.
func FormatQueryText(groups [][]string) string {
	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		lines = append(lines, strings.Join(g, ", "))
	}
	return strings.Join(lines, "\n")
}

// FormatQueryGroups renders groups for humans:
//
//	Including "a" AND "b"
//	OR
//	Including "c"
func FormatQueryGroups(groups [][]string) string {
	if len(groups) == 0 {
		return "No condition."
	}
	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		quoted := make([]string, 0, len(g))
		for _, w := range g {
			quoted = append(quoted, fmt.Sprintf("%q", w))
		}
		lines = append(lines, "Including "+strings.Join(quoted, " AND "))
	}
	return strings.Join(lines, "\nOR\n")
}
