// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vcollect/internal/apiresult"
	"github.com/ManuGH/vcollect/internal/log"
	"github.com/ManuGH/vcollect/internal/metrics"
	"github.com/ManuGH/vcollect/internal/store"
)

// Clock interface for mocking time
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer interface for mocking time.Timer
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}

// RealClock implements Clock using standard time package
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
func (RealClock) NewTimer(d time.Duration) Timer {
	return &RealTimer{t: time.NewTimer(d)}
}

// RealTimer wraps time.Timer
type RealTimer struct {
	t *time.Timer
}

func (r *RealTimer) C() <-chan time.Time        { return r.t.C }
func (r *RealTimer) Stop() bool                 { return r.t.Stop() }
func (r *RealTimer) Reset(d time.Duration) bool { return r.t.Reset(d) }

// Ticker runs one cron tick.
type Ticker interface {
	Tick(ctx context.Context, hour int) TickReport
}

// ChannelRefresher refreshes channel metadata.
type ChannelRefresher interface {
	SyncAll(ctx context.Context) *apiresult.Result[store.Channel]
}

// Scheduler fires the cron driver at the top of every hour in its time zone.
// A wall-clock hour is never ticked twice, even if the timer fires early or
// twice.
type Scheduler struct {
	driver    Ticker
	refresher ChannelRefresher // nil disables the hourly channel refresh
	location  *time.Location
	clock     Clock
	logger    zerolog.Logger

	mu       sync.Mutex
	lastHour time.Time
	lastTick time.Time
	done     chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLocation sets the time zone whose hours are ticked.
func WithLocation(loc *time.Location) SchedulerOption {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithSchedulerClock replaces the wall clock.
func WithSchedulerClock(c Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithChannelRefresh runs r after every tick.
func WithChannelRefresh(r ChannelRefresher) SchedulerOption {
	return func(s *Scheduler) { s.refresher = r }
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(driver Ticker, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		driver:   driver,
		location: time.UTC,
		clock:    RealClock{},
		logger:   log.WithComponent("cron.scheduler"),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the scheduling loop in a background goroutine.
// It returns immediately. The loop stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

// Done is closed once the loop has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// LastTick is the wall time of the last completed tick, zero before the first.
func (s *Scheduler) LastTick() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	s.logger.Info().Str(log.FieldEvent, "scheduler.start").Str("timezone", s.location.String()).Msg("scheduler started")

	timer := s.clock.NewTimer(s.untilNextHour(s.clock.Now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str(log.FieldEvent, "scheduler.stop").Msg("scheduler stopping")
			return
		case <-timer.C():
			s.RunOnce(ctx, s.clock.Now())
			timer.Reset(s.untilNextHour(s.clock.Now()))
		}
	}
}

// RunOnce ticks the hour containing now unless it was already ticked. It
// reports whether a tick ran.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (TickReport, bool) {
	local := now.In(s.location)
	hour := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, s.location)

	s.mu.Lock()
	if hour.Equal(s.lastHour) {
		s.mu.Unlock()
		s.logger.Debug().Str(log.FieldEvent, "scheduler.skip").Int(log.FieldHour, local.Hour()).Msg("hour already ticked")
		return TickReport{}, false
	}
	s.lastHour = hour
	s.mu.Unlock()

	report := s.driver.Tick(ctx, local.Hour())
	metrics.RecordCronTick(len(report.Due), now)

	if s.refresher != nil && ctx.Err() == nil {
		res := s.refresher.SyncAll(ctx)
		if res.HasError() {
			s.logger.Warn().
				Str(log.FieldEvent, "scheduler.channel_refresh_errors").
				Strs("messages", res.ErrorMessages()).
				Msg("channel refresh had errors")
		}
	}

	s.mu.Lock()
	s.lastTick = now
	s.mu.Unlock()

	s.logger.Info().
		Str(log.FieldEvent, "scheduler.tick_done").
		Int(log.FieldHour, local.Hour()).
		Int("due", len(report.Due)).
		Int(log.FieldErrors, report.ErrorCount()).
		Msg("hourly tick finished")
	return report, true
}

// untilNextHour is the delay to the next top of the hour, plus a small
// margin so the timer never lands in the previous hour.
func (s *Scheduler) untilNextHour(now time.Time) time.Duration {
	local := now.In(s.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, s.location).Add(time.Hour)
	return next.Sub(local) + time.Second
}
