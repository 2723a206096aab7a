package observability

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert conditions.
const (
	ConditionHelperFailing  = "helper_failing"
	ConditionDispatchErrors = "dispatch_errors"
	ConditionTimerRejects   = "timer_rejections"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts fire. Counts are taken over the
// trailing Window; a non-positive maximum disables its check.
type AlertThresholds struct {
	Window             time.Duration
	MaxHelperFailures  int
	MaxDispatchErrors  int
	MaxTimerRejections int
}

// DefaultAlertThresholds returns the thresholds used when none are configured.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		Window:             time.Hour,
		MaxHelperFailures:  5,
		MaxDispatchErrors:  3,
		MaxTimerRejections: 20,
	}
}

// AlertEngine evaluates alert conditions against the event journal.
type AlertEngine interface {
	Evaluate(now time.Time) ([]Alert, error)
}

type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
}

// NewAlertEngine creates an AlertEngine over eventLog.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{eventLog: eventLog, thresholds: thresholds}
}

// Evaluate counts failures journaled during the window ending at now and
// returns an alert for every threshold that is exceeded.
func (ae *alertEngine) Evaluate(now time.Time) ([]Alert, error) {
	since := now.Add(-ae.thresholds.Window)
	events, err := ae.eventLog.Read(EventFilter{Since: &since, Until: &now})
	if err != nil {
		return nil, fmt.Errorf("reading events for alerts: %w", err)
	}

	failures := make(map[string]int)
	var dispatchErrors, rejections int
	for _, e := range events {
		switch e.Type {
		case EventHelperFailed:
			helper, _ := e.Data["helper"].(string)
			failures[helper]++
		case EventDispatchError:
			dispatchErrors++
		case EventTimerRejected:
			rejections++
		}
	}

	var alerts []Alert
	alerts = append(alerts, ae.checkHelperFailures(failures, now)...)
	if limit := ae.thresholds.MaxDispatchErrors; limit > 0 && dispatchErrors > limit {
		alerts = append(alerts, Alert{
			ID:          "dispatch-errors",
			Condition:   ConditionDispatchErrors,
			Severity:    SeverityHigh,
			Message:     fmt.Sprintf("%d dispatch errors in the last %v (max %d)", dispatchErrors, ae.thresholds.Window, limit),
			TriggeredAt: now,
		})
	}
	if limit := ae.thresholds.MaxTimerRejections; limit > 0 && rejections > limit {
		alerts = append(alerts, Alert{
			ID:          "timer-rejections",
			Condition:   ConditionTimerRejects,
			Severity:    SeverityLow,
			Message:     fmt.Sprintf("%d timers rejected in the last %v (max %d)", rejections, ae.thresholds.Window, limit),
			TriggeredAt: now,
		})
	}
	return alerts, nil
}

// checkHelperFailures alerts once per helper over the failure limit, in
// helper name order.
func (ae *alertEngine) checkHelperFailures(failures map[string]int, now time.Time) []Alert {
	limit := ae.thresholds.MaxHelperFailures
	if limit <= 0 {
		return nil
	}
	helpers := make([]string, 0, len(failures))
	for h, n := range failures {
		if n > limit {
			helpers = append(helpers, h)
		}
	}
	sort.Strings(helpers)

	alerts := make([]Alert, 0, len(helpers))
	for _, h := range helpers {
		alerts = append(alerts, Alert{
			ID:          "helper-failing-" + h,
			Condition:   ConditionHelperFailing,
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("helper %s failed %d times in the last %v (max %d)", h, failures[h], ae.thresholds.Window, limit),
			TriggeredAt: now,
		})
	}
	return alerts
}

// AlertMonitor runs an AlertEngine on every poll and notifies each alert
// once while its condition holds. An alert that clears may fire again.
type AlertMonitor struct {
	engine   AlertEngine
	notifier Notifier
	eventLog EventLog
	active   map[string]bool
}

// NewAlertMonitor creates a monitor. Triggered alerts are also journaled to
// eventLog when it is not nil.
func NewAlertMonitor(engine AlertEngine, notifier Notifier, eventLog EventLog) *AlertMonitor {
	return &AlertMonitor{
		engine:   engine,
		notifier: notifier,
		eventLog: eventLog,
		active:   make(map[string]bool),
	}
}

// Check evaluates the alerts at now and notifies the newly triggered ones.
func (m *AlertMonitor) Check(_ context.Context, now time.Time) error {
	alerts, err := m.engine.Evaluate(now)
	if err != nil {
		return err
	}

	active := make(map[string]bool, len(alerts))
	var fresh []Alert
	for _, a := range alerts {
		active[a.ID] = true
		if m.active[a.ID] {
			continue
		}
		fresh = append(fresh, a)
		Emit(m.eventLog, "WARN", EventAlertTriggered, a.Message, map[string]any{
			"id":        a.ID,
			"condition": a.Condition,
			"severity":  string(a.Severity),
		})
	}
	m.active = active

	if len(fresh) == 0 {
		return nil
	}
	if err := m.notifier.Notify(fresh); err != nil {
		return fmt.Errorf("notifying alerts: %w", err)
	}
	return nil
}
