package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/dmb/internal/observability"
)

func TestParseSinceDuration(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		errMsg  string
	}{
		{"empty defaults to 7d", "", false, ""},
		{"valid 7d", "7d", false, ""},
		{"valid 24h", "24h", false, ""},
		{"invalid suffix", "abc", true, "unsupported duration format"},
		{"invalid day number", "xd", true, "invalid day duration"},
		{"invalid hour number", "yh", true, "invalid hour duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSinceDuration(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errMsg)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func newEventsFixture(t *testing.T) observability.EventLog {
	t.Helper()
	saveServices(t)
	Initialize = nil

	log, err := observability.NewJSONLEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })

	now := time.Now().UTC()
	events := []observability.Event{
		{Time: now.Add(-2 * time.Minute), Level: "INFO", Type: observability.EventHelperRun, Message: "helper ran", Data: map[string]any{"helper": "jm.sh", "exit_code": 0}},
		{Time: now.Add(-time.Minute), Level: "WARN", Type: observability.EventHelperFailed, Message: "helper failed", Data: map[string]any{"helper": "x.sh"}},
		{Time: now, Level: "INFO", Type: observability.EventTimerScheduled, Message: "timer scheduled"},
	}
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatal(err)
		}
	}
	EventLog = log
	MetricsCalc = observability.NewMetricsCalculator(log)

	origType, origLevel, origSince, origLast := eventsType, eventsLevel, eventsSince, eventsLast
	origJSON, origStats := eventsJSON, eventsStats
	t.Cleanup(func() {
		eventsType, eventsLevel, eventsSince, eventsLast = origType, origLevel, origSince, origLast
		eventsJSON, eventsStats = origJSON, origStats
	})
	eventsType, eventsLevel, eventsSince, eventsLast = "", "", "1d", 0
	eventsJSON, eventsStats = false, false
	return log
}

func runEventsCmd(t *testing.T) string {
	t.Helper()
	var out bytes.Buffer
	eventsCmd.SetOut(&out)
	defer eventsCmd.SetOut(nil)
	if err := eventsCmd.RunE(eventsCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out.String()
}

func TestEventsCmd_ListsEvents(t *testing.T) {
	newEventsFixture(t)

	out := runEventsCmd(t)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "helper.run") || !strings.Contains(lines[0], "exit_code=0 helper=jm.sh") {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestEventsCmd_Filters(t *testing.T) {
	newEventsFixture(t)

	eventsLevel = "warn"
	out := runEventsCmd(t)
	if strings.Count(out, "\n") != 1 || !strings.Contains(out, "helper.failed") {
		t.Errorf("level filter output = %q", out)
	}

	eventsLevel = ""
	eventsLast = 1
	out = runEventsCmd(t)
	if strings.Count(out, "\n") != 1 || !strings.Contains(out, "timer.scheduled") {
		t.Errorf("--last output = %q", out)
	}

	eventsLast = 0
	eventsType = "nonexistent"
	if out = runEventsCmd(t); !strings.Contains(out, "No events found") {
		t.Errorf("empty output = %q", out)
	}
}

func TestEventsCmd_JSON(t *testing.T) {
	newEventsFixture(t)
	eventsJSON = true

	out := runEventsCmd(t)
	if strings.Count(out, "\n") != 3 || !strings.Contains(out, `"type":"helper.run"`) {
		t.Errorf("JSON output = %q", out)
	}
}

func TestEventsCmd_Stats(t *testing.T) {
	newEventsFixture(t)
	eventsStats = true

	out := runEventsCmd(t)
	if !strings.HasPrefix(out, "runs=1 failures=1 timers=0/1 fired") || !strings.Contains(out, "jm.sh:1") {
		t.Errorf("stats output = %q", out)
	}
}

func TestEventsCmd_NotInitialized(t *testing.T) {
	saveServices(t)
	Initialize = nil
	EventLog = nil
	if err := eventsCmd.RunE(eventsCmd, nil); err == nil {
		t.Fatal("expected error when event log is nil")
	}
}
