// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/vcollect/internal/resilience"
)

// PingChecker reports a dependency that answers a ping, such as the
// database or the Redis cache.
type PingChecker struct {
	name     string
	ping     func(ctx context.Context) error
	optional bool
}

// NewPingChecker fails the daemon's readiness when ping fails.
func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

// NewOptionalPingChecker only degrades when ping fails.
func NewOptionalPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping, optional: true}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		status := StatusUnhealthy
		if c.optional {
			status = StatusDegraded
		}
		return CheckResult{Status: status, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// LastTickChecker watches the hourly scheduler.
type LastTickChecker struct {
	lastTick func() time.Time
	started  time.Time
	maxAge   time.Duration
	now      func() time.Time
}

// NewLastTickChecker degrades when no tick completed within maxAge. Before
// the first tick the age is measured from started.
func NewLastTickChecker(lastTick func() time.Time, started time.Time, maxAge time.Duration) *LastTickChecker {
	return &LastTickChecker{lastTick: lastTick, started: started, maxAge: maxAge, now: time.Now}
}

func (c *LastTickChecker) Name() string { return "scheduler" }

func (c *LastTickChecker) Check(context.Context) CheckResult {
	last := c.lastTick()
	if last.IsZero() {
		if c.now().Sub(c.started) > c.maxAge {
			return CheckResult{Status: StatusDegraded, Message: "no tick since start"}
		}
		return CheckResult{Status: StatusHealthy, Message: "waiting for first tick"}
	}
	age := c.now().Sub(last)
	if age > c.maxAge {
		return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("last tick %s ago", age.Truncate(time.Second))}
	}
	return CheckResult{Status: StatusHealthy, Message: "last tick " + last.UTC().Format(time.RFC3339)}
}

// BreakerChecker reports the remote API circuit breaker.
type BreakerChecker struct {
	name  string
	state func() resilience.State
}

// NewBreakerChecker degrades while the breaker is not closed.
func NewBreakerChecker(name string, state func() resilience.State) *BreakerChecker {
	return &BreakerChecker{name: name, state: state}
}

func (c *BreakerChecker) Name() string { return c.name }

func (c *BreakerChecker) Check(context.Context) CheckResult {
	switch s := c.state(); s {
	case resilience.StateClosed:
		return CheckResult{Status: StatusHealthy, Message: string(s)}
	default:
		return CheckResult{Status: StatusDegraded, Message: "circuit " + string(s)}
	}
}
