// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/vcollect/internal/collector"
	"github.com/ManuGH/vcollect/internal/condition"
	"github.com/ManuGH/vcollect/internal/log"
	"github.com/ManuGH/vcollect/internal/store"
	"github.com/ManuGH/vcollect/internal/youtube"
)

// problem is the JSON error body.
type problem struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, r *http.Request, code int, kind, detail string) {
	writeJSON(w, code, problem{
		Error:     kind,
		Detail:    detail,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := classify(err)
	if code >= http.StatusInternalServerError {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str(log.FieldEvent, "api.error").
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	writeProblem(w, r, code, kind, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, collector.ErrInvalidCondition), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, collector.ErrEmptyChannelList):
		return http.StatusUnprocessableEntity, "empty_channel_list"
	case errors.Is(err, condition.ErrInvalidInterval),
		errors.Is(err, condition.ErrInvalidOffset),
		errors.Is(err, condition.ErrInvalidStatus),
		errors.Is(err, condition.ErrEmptyTitle):
		return http.StatusUnprocessableEntity, "invalid_condition"
	case errors.Is(err, youtube.ErrMissingAPIKey), errors.Is(err, youtube.ErrUnavailable):
		return http.StatusServiceUnavailable, "remote_unavailable"
	case errors.Is(err, youtube.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "remote_quota_exceeded"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
