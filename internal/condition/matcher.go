// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package condition

import (
	"fmt"
	"strings"

	"github.com/sosodev/duration"

	"github.com/ManuGH/vcollect/internal/youtube"
)

// ShortMaxSeconds is the longest duration still counted as a short.
const ShortMaxSeconds = 60

// DurationSeconds converts an ISO-8601 duration to seconds. Only the hour,
// minute and second components count; days and larger units are ignored.
func DurationSeconds(iso string) (int, error) {
	d, err := duration.Parse(iso)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", iso, err)
	}
	return int(d.Hours)*3600 + int(d.Minutes)*60 + int(d.Seconds), nil
}

// IsShort reports whether a video is a short. Only the length decides: a
// #Shorts tag in title or description neither qualifies a longer video nor
// is required for a short one.
func IsShort(durationSeconds int, title, description string) bool {
	return durationSeconds <= ShortMaxSeconds
}

// MatchResult explains one evaluation.
type MatchResult struct {
	Matched bool
	Reasons []string
}

// Evaluate decides whether video belongs to c and records why.
func Evaluate(video youtube.VideoDetail, c Condition, includeShorts bool) MatchResult {
	var res MatchResult

	if !includeShorts {
		secs, err := DurationSeconds(video.Duration)
		switch {
		case err != nil:
			res.Reasons = append(res.Reasons, fmt.Sprintf("duration %q unreadable, not treated as short", video.Duration))
		case IsShort(secs, video.Title, video.Description):
			res.Reasons = append(res.Reasons, fmt.Sprintf("short (%ds)", secs))
			return res
		}
	}

	if len(c.QueryGroups) == 0 {
		res.Matched = true
		res.Reasons = append(res.Reasons, "no query groups")
		return res
	}

	for i, group := range c.QueryGroups {
		missing, ok := groupMatches(group, video.Title, video.Description)
		if ok {
			res.Matched = true
			res.Reasons = append(res.Reasons, fmt.Sprintf("group %d matched", i+1))
			return res
		}
		res.Reasons = append(res.Reasons, fmt.Sprintf("group %d missing %q", i+1, missing))
	}
	return res
}

// Matches is Evaluate without the explanation.
func Matches(video youtube.VideoDetail, c Condition, includeShorts bool) bool {
	return Evaluate(video, c, includeShorts).Matched
}

// groupMatches is case sensitive. An empty group matches.
func groupMatches(group []string, title, description string) (string, bool) {
	for _, w := range group {
		if !strings.Contains(title, w) && !strings.Contains(description, w) {
			return w, false
		}
	}
	return "", true
}
