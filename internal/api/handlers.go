// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/vcollect/internal/collector"
	"github.com/ManuGH/vcollect/internal/condition"
	"github.com/ManuGH/vcollect/internal/log"
	"github.com/ManuGH/vcollect/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxBodyBytes    = 64 << 10
)

var errBadRequest = errors.New("bad request")

type page struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total,omitempty"`
}

func parsePage(r *http.Request) (page, error) {
	p := page{Limit: defaultPageSize}
	q := r.URL.Query()
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("%w: offset must be a non-negative integer", errBadRequest)
		}
		p.Offset = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			return p, fmt.Errorf("%w: limit must be between 1 and %d", errBadRequest, maxPageSize)
		}
		p.Limit = n
	}
	return p, nil
}

func conditionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: condition id must be a positive integer", errBadRequest)
	}
	return id, nil
}

func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeProblem(w, r, http.StatusBadRequest, "bad_request", err.Error())
}

func (s *Server) handleListConditions(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	status := condition.Status(r.URL.Query().Get("status"))
	if status != "" && status != condition.StatusActive && status != condition.StatusPaused {
		badRequest(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, status))
		return
	}

	items, err := s.deps.Conditions.ListConditions(r.Context(), store.ConditionFilter{
		Status: status,
		Offset: p.Offset,
		Limit:  p.Limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]conditionView, 0, len(items))
	for _, c := range items {
		views = append(views, newConditionView(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": p, "conditions": views})
}

type createConditionRequest struct {
	Title         string   `json:"title"`
	IntervalHours int      `json:"intervalHours"`
	OffsetHours   int      `json:"offsetHours"`
	ChannelIDs    []string `json:"channelIds"`
	// Query uses the line/comma text form: lines are OR-ed, commas AND-ed.
	Query  string `json:"query"`
	Paused bool   `json:"paused"`
}

func (s *Server) handleCreateCondition(w http.ResponseWriter, r *http.Request) {
	var req createConditionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	c := condition.Condition{
		Title:         req.Title,
		IntervalHours: req.IntervalHours,
		OffsetHours:   req.OffsetHours,
		ChannelIDs:    condition.ParseChannelIDs(condition.FormatChannelIDs(req.ChannelIDs)),
		QueryGroups:   condition.ParseQueryGroups(req.Query),
		Status:        condition.StatusActive,
	}
	if req.Paused {
		c.Status = condition.StatusPaused
	}

	created, err := s.deps.Conditions.CreateCondition(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldEvent, "condition.created").
		Int64(log.FieldConditionID, created.ID).
		Msg("condition created")
	w.Header().Set("Location", fmt.Sprintf("/api/conditions/%d", created.ID))
	writeJSON(w, http.StatusCreated, newConditionView(created))
}

func (s *Server) handleGetCondition(w http.ResponseWriter, r *http.Request) {
	id, err := conditionID(r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	c, err := s.deps.Conditions.GetCondition(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view := conditionDetailView{conditionView: newConditionView(c)}
	if s.deps.Details != nil && len(c.ChannelIDs) > 0 {
		details, err := s.deps.Details.FetchDetails(r.Context(), c.ChannelIDs)
		if err != nil {
			logger := log.WithComponentFromContext(r.Context(), "api")
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "condition.channel_details_failed").
				Int64(log.FieldConditionID, id).
				Msg("channel details unavailable")
		} else {
			view.Channels = newChannelViews(c.ChannelIDs, details)
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSetConditionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := conditionID(r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	var req struct {
		Status condition.Status `json:"status"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := s.deps.Conditions.SetConditionStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.deps.Conditions.GetCondition(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newConditionView(c))
}

func (s *Server) handleSyncCondition(w http.ResponseWriter, r *http.Request) {
	id, err := conditionID(r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	res, err := s.deps.Syncer.SyncCondition(r.Context(), id, collector.TriggerAPI)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSyncView(res))
}

func (s *Server) handlePreviewCondition(w http.ResponseWriter, r *http.Request) {
	id, err := conditionID(r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	res, err := s.deps.Syncer.Preview(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPreviewView(res))
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	p, err := parsePage(r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	videos, err := s.deps.Videos.ListVideos(r.Context(), p.Offset, p.Limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if p.Total, err = s.deps.Videos.CountVideos(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": p, "videos": newVideoViews(videos)})
}

func (s *Server) handleSyncChannels(w http.ResponseWriter, r *http.Request) {
	res := s.deps.Channels.SyncAll(r.Context())
	updated := res.Results()
	views := make([]channelView, 0, len(updated))
	for _, c := range updated {
		views = append(views, newChannelView(c))
	}
	msgs := res.ErrorMessages()
	if msgs == nil {
		msgs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": views, "errors": msgs})
}
