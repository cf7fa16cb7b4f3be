// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package youtube

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound      = errors.New("youtube: resource not found")
	ErrForbidden     = errors.New("youtube: access forbidden")
	ErrBadRequest    = errors.New("youtube: bad request")
	ErrQuotaExceeded = errors.New("youtube: quota or rate limit exceeded")
	ErrUnavailable   = errors.New("youtube: host unreachable or transport failure")
	ErrUpstream      = errors.New("youtube: upstream error (5xx)")
	ErrBadResponse   = errors.New("youtube: invalid response format or malformed data")
	ErrTimeout       = errors.New("youtube: request timed out")
	ErrMissingAPIKey = errors.New("youtube: api key is not configured")
)

// APIError wraps a sentinel with request context. errors.Is matches the
// sentinel and the cause; errors.As exposes status and reason.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Reason    string // first reason from the error body, e.g. quotaExceeded
	Message   string
	Err       error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("youtube: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Reason)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

// Class is a short label for metrics and error details.
func (e *APIError) Class() string {
	switch {
	case errors.Is(e.Sentinel, ErrNotFound):
		return "not_found"
	case errors.Is(e.Sentinel, ErrForbidden):
		return "forbidden"
	case errors.Is(e.Sentinel, ErrBadRequest):
		return "bad_request"
	case errors.Is(e.Sentinel, ErrQuotaExceeded):
		return "quota"
	case errors.Is(e.Sentinel, ErrTimeout):
		return "timeout"
	case errors.Is(e.Sentinel, ErrBadResponse):
		return "bad_response"
	case errors.Is(e.Sentinel, ErrUpstream):
		return "upstream"
	default:
		return "unavailable"
	}
}

// IsTransient reports whether err is the kind of failure that says something
// about upstream health. The circuit breaker only counts these.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUpstream) ||
		errors.Is(err, ErrQuotaExceeded)
}

var quotaReasons = map[string]struct{}{
	"quotaExceeded":         {},
	"dailyLimitExceeded":    {},
	"rateLimitExceeded":     {},
	"userRateLimitExceeded": {},
}

func sentinelForStatus(status int, reason string) error {
	switch {
	case status == 400:
		return ErrBadRequest
	case status == 403:
		if _, ok := quotaReasons[reason]; ok {
			return ErrQuotaExceeded
		}
		return ErrForbidden
	case status == 404:
		return ErrNotFound
	case status == 429:
		return ErrQuotaExceeded
	case status >= 500:
		return ErrUpstream
	default:
		return ErrBadResponse
	}
}
