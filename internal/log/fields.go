// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID   = "request_id"
	FieldJobID       = "job_id"
	FieldConditionID = "condition_id"
	FieldChannelID   = "channel_id"
	FieldVideoID     = "video_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldTrigger   = "trigger"
	FieldOperation = "operation"

	// Scheduling fields
	FieldHour  = "hour"
	FieldHours = "hours"
	FieldPage  = "page"

	// Result fields
	FieldRecords = "records"
	FieldErrors  = "errors"
)
