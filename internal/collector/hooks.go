// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package collector

import (
	"context"

	"github.com/ManuGH/vcollect/internal/condition"
	"github.com/ManuGH/vcollect/internal/youtube"
)

// Hooks are extension points of a sync. Each slot runs synchronously in
// registration order.
type Hooks struct {
	// BeforeSync runs after the condition is loaded. An error aborts the sync
	// and is returned to the caller.
	BeforeSync []func(ctx context.Context, c condition.Condition) error
	// AfterSync sees the final result before it is returned.
	AfterSync []func(ctx context.Context, c condition.Condition, res *SyncResult)
	// FilterMatch may override the matcher verdict for one video.
	FilterMatch []func(video youtube.VideoDetail, c condition.Condition, matched bool) bool
	// IncludeShorts may override whether shorts are kept for a condition.
	IncludeShorts []func(c condition.Condition, include bool) bool
}

func (h *Hooks) append(other Hooks) {
	h.BeforeSync = append(h.BeforeSync, other.BeforeSync...)
	h.AfterSync = append(h.AfterSync, other.AfterSync...)
	h.FilterMatch = append(h.FilterMatch, other.FilterMatch...)
	h.IncludeShorts = append(h.IncludeShorts, other.IncludeShorts...)
}

func (h *Hooks) beforeSync(ctx context.Context, c condition.Condition) error {
	for _, fn := range h.BeforeSync {
		if err := fn(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hooks) afterSync(ctx context.Context, c condition.Condition, res *SyncResult) {
	for _, fn := range h.AfterSync {
		fn(ctx, c, res)
	}
}

func (h *Hooks) filterMatch(video youtube.VideoDetail, c condition.Condition, matched bool) bool {
	for _, fn := range h.FilterMatch {
		matched = fn(video, c, matched)
	}
	return matched
}

func (h *Hooks) includeShorts(c condition.Condition, include bool) bool {
	for _, fn := range h.IncludeShorts {
		include = fn(c, include)
	}
	return include
}
