package observability

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Metrics holds calculated metrics derived from the event log.
type Metrics struct {
	HelperRuns      int            `json:"helper_runs"`
	HelperFailures  int            `json:"helper_failures"`
	RunsByHelper    map[string]int `json:"runs_by_helper"`
	TimersScheduled int            `json:"timers_scheduled"`
	TimersRejected  int            `json:"timers_rejected"`
	TimersFired     int            `json:"timers_fired"`
	AdminCommands   int            `json:"admin_commands"`
	DispatchErrors  int            `json:"dispatch_errors"`
	EventCount      int            `json:"event_count"`
	OldestEvent     *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent     *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{RunsByHelper: make(map[string]int)}
	m.EventCount = len(events)

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case EventHelperRun:
			m.HelperRuns++
			if helper, ok := event.Data["helper"].(string); ok {
				m.RunsByHelper[helper]++
			}
		case EventHelperFailed:
			m.HelperFailures++
		case EventTimerScheduled:
			m.TimersScheduled++
		case EventTimerRejected:
			m.TimersRejected++
		case EventTimerFired:
			m.TimersFired++
		case EventAdminCommand:
			m.AdminCommands++
		case EventDispatchError:
			m.DispatchErrors++
		}
	}

	return m, nil
}

// Summary renders the metrics as a single chat line.
func (m *Metrics) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "runs=%d failures=%d timers=%d/%d fired rejected=%d admin=%d errors=%d",
		m.HelperRuns, m.HelperFailures, m.TimersFired, m.TimersScheduled, m.TimersRejected, m.AdminCommands, m.DispatchErrors)

	helpers := make([]string, 0, len(m.RunsByHelper))
	for h := range m.RunsByHelper {
		helpers = append(helpers, h)
	}
	sort.Strings(helpers)
	for _, h := range helpers {
		fmt.Fprintf(&b, " %s:%d", h, m.RunsByHelper[h])
	}
	return b.String()
}
