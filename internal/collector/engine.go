// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package collector pulls videos for conditions from the remote API, filters
// them and stores the matches. It also hosts the hourly driver.
package collector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/vcollect/internal/condition"
	"github.com/ManuGH/vcollect/internal/log"
	"github.com/ManuGH/vcollect/internal/metrics"
	"github.com/ManuGH/vcollect/internal/store"
	"github.com/ManuGH/vcollect/internal/telemetry"
	"github.com/ManuGH/vcollect/internal/youtube"
)

// ConditionStore loads conditions and records sync times.
type ConditionStore interface {
	GetCondition(ctx context.Context, id int64) (condition.Condition, error)
	ListConditions(ctx context.Context, f store.ConditionFilter) ([]condition.Condition, error)
	TouchConditionSynced(ctx context.Context, id int64, at time.Time) error
}

// VideoStore persists collected videos.
type VideoStore interface {
	UpsertVideo(ctx context.Context, v store.Video) (store.Video, bool, error)
	ListVideosAfter(ctx context.Context, afterID int64, limit int) ([]store.Video, error)
	UpdateVideoPublishedAt(ctx context.Context, id int64, at time.Time) error
}

// Store is everything the engine persists.
type Store interface {
	ConditionStore
	VideoStore
}

// Remote is the subset of the API client the engine calls.
type Remote interface {
	Search(ctx context.Context, channelID, q string) ([]youtube.VideoSummary, error)
	Videos(ctx context.Context, ids []string) ([]youtube.VideoDetail, error)
}

// ChannelResolver maps a remote channel to its local record.
type ChannelResolver interface {
	Resolve(ctx context.Context, externalID, title string) (store.Channel, error)
}

// Engine runs condition syncs. Safe for concurrent use; concurrent syncs of
// the same condition are collapsed into one.
type Engine struct {
	store    Store
	remote   Remote
	channels ChannelResolver

	hooks         Hooks
	includeShorts atomic.Bool
	concurrency   int
	now           func() time.Time
	tracer        trace.Tracer

	group singleflight.Group
	mu    sync.Mutex
	runs  map[int64]*sharedRun
}

// sharedRun carries the context of the collapsed sync of one condition. It is
// cancelled once no caller waits on it.
type sharedRun struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// Option configures an Engine.
type Option func(*Engine)

// WithHooks registers extension callbacks. May be given more than once.
func WithHooks(h Hooks) Option {
	return func(e *Engine) { e.hooks.append(h) }
}

// WithIncludeShorts sets the default for keeping videos of a minute or less.
func WithIncludeShorts(include bool) Option {
	return func(e *Engine) { e.includeShorts.Store(include) }
}

// WithConcurrency bounds parallel channel fetches within one sync.
// 1 is sequential.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine wires an engine.
func NewEngine(st Store, remote Remote, channels ChannelResolver, opts ...Option) *Engine {
	e := &Engine{
		store:       st,
		remote:      remote,
		channels:    channels,
		concurrency: 1,
		now:         func() time.Time { return time.Now().UTC() },
		tracer:      telemetry.Tracer("vcollect/collector"),
		runs:        make(map[int64]*sharedRun),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetIncludeShorts changes the default for subsequent syncs.
func (e *Engine) SetIncludeShorts(include bool) {
	e.includeShorts.Store(include)
}

// SyncCondition fetches, filters and stores the videos of condition id.
// Only a missing condition, an empty channel list, a BeforeSync veto or a
// cancelled context fail the call; every other failure is recorded in the
// result and processing continues.
//
// Concurrent calls for the same condition share one run. A caller that joins
// a running sync receives its result, including the RunID and Trigger of the
// caller that started it. The run is cancelled only when every waiting
// caller's context is done; a caller whose own context ends returns at once.
func (e *Engine) SyncCondition(ctx context.Context, id int64, trigger Trigger) (*SyncResult, error) {
	key := strconv.FormatInt(id, 10)
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		run := e.join(ctx, id)
		ch := e.group.DoChan(key, func() (any, error) {
			return e.sync(run.ctx, id, trigger)
		})

		select {
		case <-ctx.Done():
			e.leave(id, run)
			return nil, ctx.Err()
		case r := <-ch:
			e.leave(id, run)
			if r.Err != nil {
				// A run abandoned by all its callers may still hand out its
				// cancellation to a caller that joined just before it ended.
				if attempt == 0 && errors.Is(r.Err, context.Canceled) && ctx.Err() == nil {
					continue
				}
				return nil, r.Err
			}
			return r.Val.(*SyncResult), nil
		}
	}
}

func (e *Engine) join(ctx context.Context, id int64) *sharedRun {
	e.mu.Lock()
	defer e.mu.Unlock()
	run, ok := e.runs[id]
	if !ok {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		run = &sharedRun{ctx: runCtx, cancel: cancel}
		e.runs[id] = run
	}
	run.waiters++
	return run
}

func (e *Engine) leave(id int64, run *sharedRun) {
	e.mu.Lock()
	defer e.mu.Unlock()
	run.waiters--
	if run.waiters > 0 {
		return
	}
	run.cancel()
	if e.runs[id] == run {
		delete(e.runs, id)
	}
}

func (e *Engine) sync(ctx context.Context, id int64, trigger Trigger) (*SyncResult, error) {
	res := &SyncResult{
		ConditionID: id,
		RunID:       uuid.NewString(),
		Trigger:     trigger,
		StartedAt:   e.now(),
	}
	ctx = log.ContextWithJobID(ctx, res.RunID)
	logger := log.WithComponentFromContext(ctx, "collector").With().
		Int64(log.FieldConditionID, id).
		Str(log.FieldTrigger, string(trigger)).
		Logger()

	ctx, span := e.tracer.Start(ctx, "collector.sync_condition")
	defer span.End()

	c, err := e.loadCondition(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err, "precondition")
		metrics.RecordSyncRun(string(trigger), "rejected", 0)
		return nil, err
	}
	span.SetAttributes(telemetry.SyncAttributes(id, string(trigger), len(c.ChannelIDs))...)

	if err := e.hooks.beforeSync(ctx, c); err != nil {
		telemetry.RecordError(span, err, "hook")
		metrics.RecordSyncRun(string(trigger), "rejected", 0)
		return nil, fmt.Errorf("before sync hook: %w", err)
	}

	logger.Info().
		Str(log.FieldEvent, "sync.start").
		Int("channels", len(c.ChannelIDs)).
		Msg("sync started")

	includeShorts := e.hooks.includeShorts(c, e.includeShorts.Load())
	for _, batch := range e.fetchAll(ctx, c.ChannelIDs) {
		if batch.err != nil {
			res.Errors = append(res.Errors, remoteError(batch.channelID, batch.err))
			metrics.IncSyncError(string(ErrorKindRemoteAPI))
			logger.Warn().Err(batch.err).
				Str(log.FieldEvent, "sync.channel_failed").
				Str(log.FieldChannelID, batch.channelID).
				Msg("channel skipped")
			continue
		}
		for _, video := range batch.videos {
			matched := condition.Matches(video, c, includeShorts)
			matched = e.hooks.filterMatch(video, c, matched)
			metrics.RecordVideoEvaluated(matched)
			if !matched {
				continue
			}
			rec, details := e.save(ctx, video)
			res.Errors = append(res.Errors, details...)
			if rec != nil {
				res.Records = append(res.Records, *rec)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		telemetry.RecordError(span, err, "cancelled")
		metrics.RecordSyncRun(string(trigger), "cancelled", e.now().Sub(res.StartedAt))
		return nil, err
	}

	res.FinishedAt = e.now()
	if err := e.store.TouchConditionSynced(ctx, id, res.FinishedAt); err != nil {
		res.Errors = append(res.Errors, ErrorDetail{
			Kind:    ErrorKindUpsert,
			Message: fmt.Sprintf("stamp last sync of condition %d: %v", id, err),
		})
		metrics.IncSyncError(string(ErrorKindUpsert))
	}

	e.hooks.afterSync(ctx, c, res)

	span.SetAttributes(telemetry.SyncResultAttributes(len(res.Records), len(res.Errors))...)
	metrics.RecordSyncRun(string(trigger), res.Outcome(), res.Duration())

	evt := logger.Info()
	if res.HasErrors() {
		evt = logger.Warn().Strs("messages", res.ErrorMessages())
	}
	evt.Str(log.FieldEvent, "sync.finished").
		Int(log.FieldRecords, len(res.Records)).
		Int(log.FieldErrors, len(res.Errors)).
		Dur("duration", res.Duration()).
		Msg("sync finished")

	return res, nil
}

// Preview runs the fetch and match steps of a sync without writing anything.
func (e *Engine) Preview(ctx context.Context, id int64) (*PreviewResult, error) {
	ctx, span := e.tracer.Start(ctx, "collector.preview", trace.WithAttributes(attribute.Int64(telemetry.ConditionIDKey, id)))
	defer span.End()

	c, err := e.loadCondition(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err, "precondition")
		return nil, err
	}

	res := &PreviewResult{Condition: c}
	includeShorts := e.hooks.includeShorts(c, e.includeShorts.Load())
	for _, batch := range e.fetchAll(ctx, c.ChannelIDs) {
		if batch.err != nil {
			res.Errors = append(res.Errors, remoteError(batch.channelID, batch.err))
			continue
		}
		for _, video := range batch.videos {
			mr := condition.Evaluate(video, c, includeShorts)
			matched := e.hooks.filterMatch(video, c, mr.Matched)
			if matched != mr.Matched {
				mr.Reasons = append(mr.Reasons, "overridden by filter")
			}
			res.Decisions = append(res.Decisions, Decision{Video: video, Matched: matched, Reasons: mr.Reasons})
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) loadCondition(ctx context.Context, id int64) (condition.Condition, error) {
	c, err := e.store.GetCondition(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return condition.Condition{}, fmt.Errorf("%w: %d", ErrInvalidCondition, id)
	}
	if err != nil {
		return condition.Condition{}, fmt.Errorf("load condition %d: %w", id, err)
	}
	if len(c.ChannelIDs) == 0 {
		return condition.Condition{}, fmt.Errorf("%w: condition %d", ErrEmptyChannelList, id)
	}
	return c, nil
}

type channelBatch struct {
	channelID string
	videos    []youtube.VideoDetail
	err       error
}

// fetchAll returns one batch per channel in input order regardless of the
// concurrency limit.
func (e *Engine) fetchAll(ctx context.Context, channelIDs []string) []channelBatch {
	out := make([]channelBatch, len(channelIDs))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, id := range channelIDs {
		g.Go(func() error {
			out[i] = e.fetchChannel(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *Engine) fetchChannel(ctx context.Context, channelID string) channelBatch {
	batch := channelBatch{channelID: channelID}
	if err := ctx.Err(); err != nil {
		batch.err = err
		return batch
	}

	ctx, span := e.tracer.Start(ctx, "collector.fetch_channel")
	defer span.End()

	hits, err := e.remote.Search(ctx, channelID, "")
	if err != nil {
		telemetry.RecordError(span, err, "search")
		batch.err = fmt.Errorf("search channel %s: %w", channelID, err)
		return batch
	}
	if len(hits) == 0 {
		span.SetAttributes(telemetry.ChannelAttributes(channelID, 0)...)
		return batch
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ExternalVideoID)
	}
	videos, err := e.remote.Videos(ctx, ids)
	if err != nil {
		telemetry.RecordError(span, err, "videos")
		batch.err = fmt.Errorf("fetch videos of channel %s: %w", channelID, err)
		return batch
	}
	span.SetAttributes(telemetry.ChannelAttributes(channelID, len(videos))...)
	batch.videos = videos
	return batch
}

// save stores one matched video. A channel failure is reported but the video
// is still stored, without a channel reference.
func (e *Engine) save(ctx context.Context, video youtube.VideoDetail) (*store.Video, []ErrorDetail) {
	var details []ErrorDetail

	var channelRef *int64
	if video.ChannelID != "" {
		ch, err := e.channels.Resolve(ctx, video.ChannelID, video.ChannelTitle)
		if err != nil {
			details = append(details, ErrorDetail{
				Kind:      ErrorKindChannel,
				ChannelID: video.ChannelID,
				VideoID:   video.ExternalVideoID,
				Message:   err.Error(),
			})
			metrics.IncSyncError(string(ErrorKindChannel))
		} else {
			channelRef = &ch.ID
		}
	}

	stored, created, err := e.store.UpsertVideo(ctx, toRecord(video, channelRef, e.now()))
	if err != nil {
		uerr := &UpsertError{VideoID: video.ExternalVideoID, Err: err}
		details = append(details, ErrorDetail{
			Kind:      ErrorKindUpsert,
			ChannelID: video.ChannelID,
			VideoID:   video.ExternalVideoID,
			Message:   uerr.Error(),
		})
		metrics.IncSyncError(string(ErrorKindUpsert))
		return nil, details
	}
	metrics.RecordVideoUpsert(created)
	return &stored, details
}

func toRecord(video youtube.VideoDetail, channelRef *int64, now time.Time) store.Video {
	visibility := store.VisibilityPrivate
	if video.IsPublic() {
		visibility = store.VisibilityPublished
	}
	return store.Video{
		ExternalVideoID: video.ExternalVideoID,
		Title:           video.Title,
		Excerpt:         video.Description,
		PublishedAt:     video.PublishedAt,
		Visibility:      visibility,
		Stats: store.VideoStats{
			Views:     video.Statistics["viewCount"],
			Likes:     video.Statistics["likeCount"],
			Dislikes:  video.Statistics["dislikeCount"],
			Favorites: video.Statistics["favoriteCount"],
		},
		ChannelID:    channelRef,
		Source:       store.SourceYouTube,
		RawSnapshot:  video.Raw,
		LastSyncedAt: now,
	}
}

func remoteError(channelID string, err error) ErrorDetail {
	return ErrorDetail{Kind: ErrorKindRemoteAPI, ChannelID: channelID, Message: err.Error()}
}
