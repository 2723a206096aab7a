package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Journal event types. Data keys are listed next to each type.
const (
	EventHelperRun       = "helper.run"         // helper, exit_code, sender
	EventHelperFailed    = "helper.failed"      // helper, error
	EventTimerScheduled  = "timer.scheduled"    // id, helper, fire_at
	EventTimerRejected   = "timer.rejected"     // helper, error
	EventTimerFired      = "timer.fired"        // id, helper, argument
	EventAdminCommand    = "admin.command"      // command, sender
	EventDispatchError   = "dispatch.error"     // what, error or panic
	EventSessionJoined   = "session.joined"     // nick, channels
	EventSessionNick     = "session.nick_retry" // rejected, next
	EventTopicRotated    = "topic.rotated"      // old, new
	EventHeartbeat       = "heartbeat"          // phase, nick
	EventSessionShutdown = "session.shutdown"   // reason
	EventAlertTriggered  = "alert.triggered"    // id, condition, severity
)

// Event is one line of the journal.
type Event struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"` // INFO, WARN, ERROR
	Type    string         `json:"type"`
	Message string         `json:"msg"`
	Data    map[string]any `json:"data,omitempty"`
}

// EventFilter selects journal entries. Zero fields match everything.
type EventFilter struct {
	Since *time.Time
	Until *time.Time
	Type  string
	Level string
	// Last keeps only the newest matching events when positive.
	Last int
}

// Matches reports whether e passes every criterion of f.
func (f EventFilter) Matches(e Event) bool {
	switch {
	case f.Since != nil && e.Time.Before(*f.Since):
		return false
	case f.Until != nil && e.Time.After(*f.Until):
		return false
	case f.Type != "" && e.Type != f.Type:
		return false
	case f.Level != "" && e.Level != f.Level:
		return false
	}
	return true
}

// EventLog is the bot's append-only journal of helper runs, timers, admin
// commands and session changes.
type EventLog interface {
	Write(event Event) error
	Read(filter EventFilter) ([]Event, error)
	Close() error
}

// journal keeps one JSON object per line. Writes share a single append
// handle; reads reopen the file so they see everything flushed so far.
type journal struct {
	mu   sync.Mutex
	path string
	out  *os.File
}

// NewJSONLEventLog opens, or creates, the journal at path.
func NewJSONLEventLog(path string) (EventLog, error) {
	out, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event journal %s: %w", path, err)
	}
	return &journal{path: path, out: out}, nil
}

// Emit journals an event stamped with the current UTC time. A nil log
// discards the event and write failures are ignored, so callers on the
// main loop never stop over the journal.
func Emit(log EventLog, level, eventType, msg string, data map[string]any) {
	if log == nil {
		return
	}
	_ = log.Write(Event{
		Time:    time.Now().UTC(),
		Level:   level,
		Type:    eventType,
		Message: msg,
		Data:    data,
	})
}

func (j *journal) Write(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.Type, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.out.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending %s event: %w", event.Type, err)
	}
	return nil
}

// Read returns the matching events oldest first. Lines that do not decode
// are skipped; a missing journal reads as empty.
func (j *journal) Read(filter EventFilter) ([]Event, error) {
	in, err := os.Open(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading event journal: %w", err)
	}
	defer func() { _ = in.Close() }()

	var events []Event
	lines := bufio.NewScanner(in)
	for lines.Scan() {
		var e Event
		if len(lines.Bytes()) == 0 || json.Unmarshal(lines.Bytes(), &e) != nil {
			continue
		}
		if filter.Matches(e) {
			events = append(events, e)
		}
	}
	if err := lines.Err(); err != nil {
		return nil, fmt.Errorf("reading event journal: %w", err)
	}

	if filter.Last > 0 && len(events) > filter.Last {
		events = events[len(events)-filter.Last:]
	}
	return events, nil
}

func (j *journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.out.Close(); err != nil {
		return fmt.Errorf("closing event journal: %w", err)
	}
	return nil
}
