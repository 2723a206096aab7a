package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"time"
)

// DefaultTickInterval is how often the main loop runs its checks.
const DefaultTickInterval = 200 * time.Millisecond

// DefaultEventBatch bounds the transport events handled per tick.
const DefaultEventBatch = 32

// Check is one unit of work performed on every scheduler tick.
type Check interface {
	Name() string
	Run(ctx context.Context, now time.Time) error
}

// TimerCheck fires expired timers through the Router and executes the
// resulting messages on the Session.
type TimerCheck struct {
	Timers  *TimerQueue
	Router  *Router
	Session *Session
}

func (c *TimerCheck) Name() string { return "timers" }

func (c *TimerCheck) Run(ctx context.Context, now time.Time) error {
	for _, entry := range c.Timers.Expire(now) {
		c.Session.Execute(c.Router.Fire(ctx, entry), entry.SayTarget)
		if c.Session.Stopped() {
			return nil
		}
	}
	return nil
}

// TransportCheck feeds one batch of inbound chat events to the Session.
type TransportCheck struct {
	Session *Session
	Batch   int
}

func (c *TransportCheck) Name() string { return "transport" }

func (c *TransportCheck) Run(ctx context.Context, _ time.Time) error {
	batch := c.Batch
	if batch <= 0 {
		batch = DefaultEventBatch
	}
	c.Session.Pump(ctx, batch)
	return nil
}

// DailyCheck runs Job once per calendar day, the first time a tick falls on
// a day different from the last run.
type DailyCheck struct {
	Job  func(ctx context.Context, now time.Time) error
	last time.Time
}

// NewDailyCheck creates a DailyCheck that treats start's day as already
// handled, so the job first runs after the next midnight.
func NewDailyCheck(start time.Time, job func(ctx context.Context, now time.Time) error) *DailyCheck {
	return &DailyCheck{Job: job, last: start}
}

func (c *DailyCheck) Name() string { return "daily" }

func (c *DailyCheck) Run(ctx context.Context, now time.Time) error {
	if sameDay(c.last, now) {
		return nil
	}
	c.last = now
	return c.Job(ctx, now)
}

func sameDay(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// PollCheck runs Hook whenever Interval has elapsed since its last run.
type PollCheck struct {
	Interval time.Duration
	Hook     func(ctx context.Context, now time.Time) error
	last     time.Time
}

// NewPollCheck creates a PollCheck whose first run happens one interval
// after start.
func NewPollCheck(start time.Time, interval time.Duration, hook func(ctx context.Context, now time.Time) error) *PollCheck {
	return &PollCheck{Interval: interval, Hook: hook, last: start}
}

func (c *PollCheck) Name() string { return "poll" }

func (c *PollCheck) Run(ctx context.Context, now time.Time) error {
	if c.Interval <= 0 || now.Sub(c.last) < c.Interval {
		return nil
	}
	c.last = now
	return c.Hook(ctx, now)
}

// Scheduler is the single-threaded main loop. Each tick runs its checks in
// order; a failing check is logged and the others still run.
type Scheduler struct {
	checks   []Check
	interval time.Duration
	clock    Clock
	logger   *slog.Logger
	stopped  func() bool
}

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Interval time.Duration
	Clock    Clock
	Logger   *slog.Logger
	// Stopped ends Run after the tick on which it first reports true.
	Stopped func() bool
}

// NewScheduler creates a Scheduler running checks in the given order.
func NewScheduler(cfg SchedulerConfig, checks ...Check) *Scheduler {
	s := &Scheduler{
		checks:   checks,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		stopped:  cfg.Stopped,
	}
	if s.interval <= 0 {
		s.interval = DefaultTickInterval
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.stopped == nil {
		s.stopped = func() bool { return false }
	}
	return s
}

// Tick runs every check once at now.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	for _, c := range s.checks {
		if err := s.runCheck(ctx, c, now); err != nil {
			s.logger.Error("check failed", "check", c.Name(), "error", err)
		}
		if s.stopped() {
			return
		}
	}
}

func (s *Scheduler) runCheck(ctx context.Context, c Check, now time.Time) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("check %s panicked: %v\n%s", c.Name(), p, debug.Stack())
		}
	}()
	return c.Run(ctx, now)
}

// Run ticks until ctx is cancelled or the stop condition holds.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx, s.clock.Now())
			if s.stopped() {
				return nil
			}
		}
	}
}
