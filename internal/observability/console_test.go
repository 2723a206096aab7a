package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestConsole_BannerRedrawnAfterWrites(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.ShowAdminKey("AbCd1234")
	c.Printf("<%s> %s", "alice", "ja neko")

	out := buf.String()
	if strings.Count(out, "Today's magic key for admin commands: ") != 2 {
		t.Errorf("expected banner twice, got %q", out)
	}
	if !strings.Contains(out, "<alice> ja neko\n") {
		t.Errorf("expected debug line, got %q", out)
	}
	last := out[strings.LastIndex(out, "\n")+1:]
	if !strings.Contains(last, "AbCd1234") {
		t.Errorf("expected the banner after the last line, got %q", last)
	}
}

func TestConsole_NoBannerBeforeKey(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Printf("starting")

	if buf.String() != "starting\n" {
		t.Errorf("output = %q, want %q", buf.String(), "starting\n")
	}
}

func TestConsole_LoggerWritesThroughConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Logger().Error("dispatch failed", "error", errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, "dispatch failed") || !strings.Contains(out, "error=boom") {
		t.Errorf("expected structured log line, got %q", out)
	}
}
