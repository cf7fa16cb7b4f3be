// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Sync attributes
	ConditionIDKey  = "condition.id"
	SyncTriggerKey  = "sync.trigger"
	SyncRecordsKey  = "sync.records"
	SyncErrorsKey   = "sync.errors"
	SyncChannelsKey = "sync.channels"

	// YouTube attributes
	ChannelIDKey  = "youtube.channel_id"
	VideoCountKey = "youtube.video_count"
	OperationKey  = "youtube.operation"

	// Cron attributes
	CronHourKey = "cron.hour"
	CronDueKey  = "cron.due"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// SyncAttributes creates condition sync span attributes.
func SyncAttributes(conditionID int64, trigger string, channels int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(ConditionIDKey, conditionID),
		attribute.String(SyncTriggerKey, trigger),
		attribute.Int(SyncChannelsKey, channels),
	}
}

// SyncResultAttributes summarises a finished sync.
func SyncResultAttributes(records, errs int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(SyncRecordsKey, records),
		attribute.Int(SyncErrorsKey, errs),
	}
}

// ChannelAttributes creates per-channel fetch attributes.
func ChannelAttributes(channelID string, videos int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int(VideoCountKey, videos)}
	if channelID != "" {
		attrs = append(attrs, attribute.String(ChannelIDKey, channelID))
	}
	return attrs
}

// CronAttributes creates cron tick attributes.
func CronAttributes(hour, due int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(CronHourKey, hour),
		attribute.Int(CronDueKey, due),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
