package core

import (
	"math"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestExtractTimers(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		wantBody   string
		directives []TimerDirective
	}{
		{
			name:     "no directives",
			output:   "foo\nbar\n",
			wantBody: "foo\nbar",
		},
		{
			name:       "directive removed from body",
			output:     "bar\n/timer 5 baz\n",
			wantBody:   "bar",
			directives: []TimerDirective{{Delay: 5 * time.Second, Argument: "baz"}},
		},
		{
			name:       "argument keeps the remaining fields",
			output:     "/timer 30 next question 2\nQ1",
			wantBody:   "Q1",
			directives: []TimerDirective{{Delay: 30 * time.Second, Argument: "next question 2"}},
		},
		{
			name:       "unparsable delay counts as zero",
			output:     "/timer soon again",
			directives: []TimerDirective{{Delay: 0, Argument: "again"}},
		},
		{
			name:       "negative delay counts as zero",
			output:     "/timer -5 again",
			directives: []TimerDirective{{Delay: 0, Argument: "again"}},
		},
		{
			name:       "delay beyond duration range saturates",
			output:     "ok\n/timer 10000000000 again",
			wantBody:   "ok",
			directives: []TimerDirective{{Delay: time.Duration(math.MaxInt64), Argument: "again"}},
		},
		{
			name:       "delay beyond int64 saturates",
			output:     "/timer 99999999999999999999999 again",
			directives: []TimerDirective{{Delay: time.Duration(math.MaxInt64), Argument: "again"}},
		},
		{
			name:     "too few fields is dropped",
			output:   "a\n/timer 5\nb",
			wantBody: "a\nb",
		},
		{
			name:     "prefix must be exact",
			output:   "/timers 5 x\n /timer 5 x",
			wantBody: "/timers 5 x\n /timer 5 x",
		},
		{
			name:     "crlf endings",
			output:   "eins\r\nzwei\r\n",
			wantBody: "eins\nzwei",
		},
		{
			name:   "empty output",
			output: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, directives := ExtractTimers(tt.output)
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
			if !reflect.DeepEqual(directives, tt.directives) {
				t.Errorf("directives = %+v, want %+v", directives, tt.directives)
			}
		})
	}
}

func TestSendLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "single line", text: "hello\n", want: []string{"hello"}},
		{name: "blank lines skipped", text: "a\n\n  \nb", want: []string{"a", "b"}},
		{name: "capped at four", text: "1\n2\n3\n4\n5\n6", want: []string{"1", "2", "3", "4"}},
		{name: "empty", text: "", want: nil},
		{name: "only whitespace", text: " \n\t\n", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SendLines(tt.text, DefaultMaxLines, DefaultLineBudget)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SendLines(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSendLines_TruncatesLongLines(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := SendLines(long+"\nshort", DefaultMaxLines, DefaultLineBudget)
	if len(got) != 2 {
		t.Fatalf("got %d lines, want 2", len(got))
	}
	if len(got[0]) != DefaultLineBudget {
		t.Errorf("first line is %d bytes, want %d", len(got[0]), DefaultLineBudget)
	}
	if got[1] != "short" {
		t.Errorf("second line = %q, want %q", got[1], "short")
	}
}

func TestLimitLength(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		budget int
		want   string
	}{
		{name: "fits", s: "abc", budget: 3, want: "abc"},
		{name: "ascii cut", s: "abcdef", budget: 4, want: "abcd"},
		// 日 and 本 are three bytes each.
		{name: "never splits a character", s: "日本語", budget: 5, want: "日"},
		{name: "exact character boundary", s: "日本語", budget: 6, want: "日本"},
		{name: "budget smaller than first character", s: "日本", budget: 2, want: ""},
		{name: "zero budget", s: "abc", budget: 0, want: ""},
		{name: "empty", s: "", budget: 10, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LimitLength(tt.s, tt.budget); got != tt.want {
				t.Errorf("LimitLength(%q, %d) = %q, want %q", tt.s, tt.budget, got, tt.want)
			}
		})
	}
}
