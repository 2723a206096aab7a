package core

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/valter-silva-au/dmb/pkg/models"
)

// Default timer queue limits.
const (
	DefaultMaxTimers    = 1000
	DefaultMaxTimerWait = 7 * 24 * time.Hour
)

var (
	// ErrQueueFull is returned when the timer queue is at capacity.
	ErrQueueFull = errors.New("timer queue is full")
	// ErrDelayTooLong is returned when a delay exceeds the queue's maximum.
	ErrDelayTooLong = errors.New("timer delay too long")
)

// Clock abstracts time so timers can be tested with a simulated clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// TimerQueue holds deferred helper re-invocations. It is owned by the
// main loop and is not safe for concurrent use.
type TimerQueue struct {
	clock      Clock
	maxEntries int
	maxDelay   time.Duration
	entries    []models.TimerEntry
}

// NewTimerQueue creates an empty queue. Non-positive limits disable the
// corresponding cap.
func NewTimerQueue(clock Clock, limits models.TimerLimits) *TimerQueue {
	if clock == nil {
		clock = SystemClock
	}
	return &TimerQueue{
		clock:      clock,
		maxEntries: limits.MaxEntries,
		maxDelay:   limits.MaxDelay,
	}
}

// Schedule appends an entry that fires delay from now.
func (q *TimerQueue) Schedule(delay time.Duration, helperPath, argument string, inv models.InvocationContext, sayTarget string) (models.TimerEntry, error) {
	if q.maxEntries > 0 && len(q.entries) >= q.maxEntries {
		return models.TimerEntry{}, fmt.Errorf("scheduling %s %q: %w", helperPath, argument, ErrQueueFull)
	}
	if q.maxDelay > 0 && delay > q.maxDelay {
		return models.TimerEntry{}, fmt.Errorf("scheduling %s %q in %v: %w", helperPath, argument, delay, ErrDelayTooLong)
	}
	if delay < 0 {
		delay = 0
	}

	now := q.clock.Now()
	entry := models.TimerEntry{
		ID:         ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		FireAt:     now.Add(delay),
		HelperPath: helperPath,
		Argument:   argument,
		Invocation: inv,
		SayTarget:  sayTarget,
	}
	q.entries = append(q.entries, entry)
	return entry, nil
}

// Expire removes and returns every entry whose fire time is not after now,
// earliest first. Each entry is returned exactly once.
func (q *TimerQueue) Expire(now time.Time) []models.TimerEntry {
	var expired []models.TimerEntry
	pending := q.entries[:0]
	for _, e := range q.entries {
		if e.Due(now) {
			expired = append(expired, e)
		} else {
			pending = append(pending, e)
		}
	}
	// Clear the tail so dropped entries can be collected.
	for i := len(pending); i < len(q.entries); i++ {
		q.entries[i] = models.TimerEntry{}
	}
	q.entries = pending

	sort.SliceStable(expired, func(i, j int) bool {
		return expired[i].FireAt.Before(expired[j].FireAt)
	})
	return expired
}

// Len returns the number of pending entries.
func (q *TimerQueue) Len() int {
	return len(q.entries)
}

// Pending returns a copy of the pending entries.
func (q *TimerQueue) Pending() []models.TimerEntry {
	out := make([]models.TimerEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Next returns the earliest pending entry.
func (q *TimerQueue) Next() (models.TimerEntry, bool) {
	if len(q.entries) == 0 {
		return models.TimerEntry{}, false
	}
	next := q.entries[0]
	for _, e := range q.entries[1:] {
		if e.FireAt.Before(next.FireAt) {
			next = e
		}
	}
	return next, true
}
