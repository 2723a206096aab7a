package models

import "time"

// TimerEntry is a deferred re-invocation of a helper, created from a
// /timer directive in the helper's output. It is consumed exactly once.
type TimerEntry struct {
	ID         string            `json:"id"`
	FireAt     time.Time         `json:"fire_at"`
	HelperPath string            `json:"helper_path"`
	Argument   string            `json:"argument"`
	Invocation InvocationContext `json:"invocation"`
	SayTarget  string            `json:"say_target"`
}

// Due reports whether the entry should fire at now. An entry whose fire
// time equals now is due, so a zero-delay timer fires on the next tick.
func (e TimerEntry) Due(now time.Time) bool {
	return !e.FireAt.After(now)
}
