package observability

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type printLines []string

func (p *printLines) Printf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func TestConsoleNotifier(t *testing.T) {
	var out printLines
	err := NewConsoleNotifier(&out).Notify([]Alert{{Severity: SeverityHigh, Message: "4 dispatch errors"}})
	if err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	if len(out) != 1 || out[0] != "ALERT [HIGH] 4 dispatch errors" {
		t.Errorf("console = %q", out)
	}
}

func TestSlackNotifier_PostsBlocks(t *testing.T) {
	var got slackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
	}))
	defer srv.Close()

	alerts := []Alert{
		{Severity: SeverityMedium, Message: "helper jm.sh failed 6 times", TriggeredAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		{Severity: SeverityLow, Message: "21 timers rejected"},
	}
	if err := NewSlackNotifier(srv.URL).Notify(alerts); err != nil {
		t.Fatalf("Notify() error: %v", err)
	}

	if len(got.Blocks) != 3 {
		t.Fatalf("got %d blocks, want header plus 2 sections", len(got.Blocks))
	}
	if got.Blocks[0].Type != "header" {
		t.Errorf("first block = %q, want header", got.Blocks[0].Type)
	}
	text := got.Blocks[1].Text.Text
	if !strings.Contains(text, "[MEDIUM]") || !strings.Contains(text, "jm.sh") || !strings.Contains(text, "2024-03-01 12:00 UTC") {
		t.Errorf("section text = %q", text)
	}
}

func TestSlackNotifier_EmptyIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	if err := NewSlackNotifier(srv.URL).Notify(nil); err != nil {
		t.Fatalf("Notify() error: %v", err)
	}
	if called {
		t.Error("webhook called for empty alert list")
	}
}

func TestSlackNotifier_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := NewSlackNotifier(srv.URL).Notify([]Alert{{Message: "x"}}); err == nil {
		t.Error("Notify() error = nil, want status error")
	}
}

func TestMultiNotifier_JoinsErrors(t *testing.T) {
	var out printLines
	failing := &recordingNotifier{err: errors.New("webhook down")}
	n := NewMultiNotifier(NewConsoleNotifier(&out), nil, failing)

	err := n.Notify([]Alert{{Severity: SeverityLow, Message: "m"}})
	if err == nil || !strings.Contains(err.Error(), "webhook down") {
		t.Errorf("error = %v, want webhook down", err)
	}
	if len(out) != 1 || len(failing.batches) != 1 {
		t.Errorf("console=%d webhook=%d, want both notified", len(out), len(failing.batches))
	}
}
