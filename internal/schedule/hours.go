// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package schedule computes the hours of day a condition is due.
package schedule

import (
	"slices"
	"strconv"
	"strings"
)

// HoursPerDay bounds every schedule.
const HoursPerDay = 24

// MatchingHours returns the hours of day starting at offset and stepping by
// interval while the hour is below 24. Intervals below 1 are treated as 1.
func MatchingHours(offset, interval int) []int {
	step := max(1, interval)
	hours := make([]int, 0, HoursPerDay/step+1)
	for h := offset; h < HoursPerDay; h += step {
		hours = append(hours, h)
	}
	return hours
}

// Contains reports whether hour is one of hours.
func Contains(hours []int, hour int) bool {
	return slices.Contains(hours, hour)
}

// Format renders hours as "1, 7, 13, 19".
func Format(hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}
	return strings.Join(parts, ", ")
}
