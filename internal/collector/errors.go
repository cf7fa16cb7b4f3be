// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package collector

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCondition is returned when the condition does not exist.
	ErrInvalidCondition = errors.New("condition not found")
	// ErrEmptyChannelList is returned when a condition names no channels.
	ErrEmptyChannelList = errors.New("channel id is empty")
	// ErrUpsertFailed marks a video that could not be stored.
	ErrUpsertFailed = errors.New("video upsert failed")
)

// UpsertError carries the remote id of a video the store rejected.
type UpsertError struct {
	VideoID string
	Err     error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("save video %s: %v", e.VideoID, e.Err)
}

func (e *UpsertError) Unwrap() []error {
	return []error{ErrUpsertFailed, e.Err}
}
