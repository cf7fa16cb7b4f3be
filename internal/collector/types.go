// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package collector

import (
	"time"

	"github.com/ManuGH/vcollect/internal/condition"
	"github.com/ManuGH/vcollect/internal/store"
	"github.com/ManuGH/vcollect/internal/youtube"
)

// Trigger names what started a sync.
type Trigger string

const (
	TriggerCron   Trigger = "cron"
	TriggerManual Trigger = "manual"
	TriggerAPI    Trigger = "api"
)

// ErrorKind classifies a non-fatal failure inside a sync.
type ErrorKind string

const (
	ErrorKindRemoteAPI ErrorKind = "remote_api"
	ErrorKindUpsert    ErrorKind = "upsert"
	ErrorKindChannel   ErrorKind = "channel"
)

// ErrorDetail is one recorded failure. ChannelID and VideoID are remote ids
// and may be empty.
type ErrorDetail struct {
	Kind      ErrorKind `json:"kind"`
	ChannelID string    `json:"channelId,omitempty"`
	VideoID   string    `json:"videoId,omitempty"`
	Message   string    `json:"message"`
}

func (e ErrorDetail) String() string {
	return e.Message
}

// SyncResult is the outcome of one SyncCondition call. It is not modified
// after being returned and may be shared between collapsed callers.
type SyncResult struct {
	ConditionID int64         `json:"conditionId"`
	RunID       string        `json:"runId"`
	Trigger     Trigger       `json:"trigger"`
	StartedAt   time.Time     `json:"startedAt"`
	FinishedAt  time.Time     `json:"finishedAt"`
	Records     []store.Video `json:"records"`
	Errors      []ErrorDetail `json:"errors,omitempty"`
}

// HasErrors reports whether anything failed.
func (r *SyncResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// ErrorMessages returns the error messages in order.
func (r *SyncResult) ErrorMessages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Message)
	}
	return out
}

// Duration is the wall time of the run.
func (r *SyncResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome is "success", "partial" (records and errors) or "failed" (errors only).
func (r *SyncResult) Outcome() string {
	switch {
	case !r.HasErrors():
		return "success"
	case len(r.Records) > 0:
		return "partial"
	default:
		return "failed"
	}
}

// Decision explains why a fetched video was or was not matched.
type Decision struct {
	Video   youtube.VideoDetail
	Matched bool
	Reasons []string
}

// PreviewResult is a dry run of a sync: what would be stored, nothing written.
type PreviewResult struct {
	Condition condition.Condition
	Decisions []Decision
	Errors    []ErrorDetail
}

// Matches returns the videos that would be stored, in fetch order.
func (p *PreviewResult) Matches() []youtube.VideoDetail {
	var out []youtube.VideoDetail
	for _, d := range p.Decisions {
		if d.Matched {
			out = append(out, d.Video)
		}
	}
	return out
}
