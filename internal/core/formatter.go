package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Reply limits applied to every invocation.
const (
	DefaultLineBudget = 410
	DefaultMaxLines   = 4
)

const timerPrefix = "/timer "

// TimerDirective is a request, embedded in helper output, to run the same
// helper again after Delay with Argument.
type TimerDirective struct {
	Delay    time.Duration
	Argument string
}

// ExtractTimers separates /timer directives from chat content. A directive
// line has the form "/timer <seconds> <argument...>"; an unparsable delay
// counts as zero and lines with fewer than three fields are dropped. All
// other lines are returned joined by newlines.
func ExtractTimers(output string) (string, []TimerDirective) {
	var kept []string
	var directives []TimerDirective
	for _, line := range splitLines(output) {
		if !strings.HasPrefix(line, timerPrefix) {
			kept = append(kept, line)
			continue
		}
		fields := strings.Split(line, " ")
		if len(fields) < 3 {
			continue
		}
		directives = append(directives, TimerDirective{
			Delay:    parseDelay(fields[1]),
			Argument: strings.Join(fields[2:], " "),
		})
	}
	return strings.Join(kept, "\n"), directives
}

// maxDelay stands in for delays too long to represent, so the timer cap
// rejects them.
const maxDelay = time.Duration(math.MaxInt64)

// parseDelay reads a delay in whole seconds. Negative or unparsable values
// are zero; values beyond the range of time.Duration saturate at maxDelay.
func parseDelay(field string) time.Duration {
	seconds, err := strconv.ParseInt(field, 10, 64)
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || seconds < 0 {
		return 0
	}
	if seconds > int64(maxDelay/time.Second) {
		return maxDelay
	}
	return time.Duration(seconds) * time.Second
}

// SendLines shapes text into chat lines: blank lines are skipped, at most
// maxLines lines are kept and each is cut to budget bytes of UTF-8.
func SendLines(text string, maxLines, budget int) []string {
	var lines []string
	for _, line := range splitLines(text) {
		if len(lines) >= maxLines {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, LimitLength(line, budget))
	}
	return lines
}

// LimitLength returns the longest prefix of s whose UTF-8 encoding fits in
// maxBytes without splitting a character. No ellipsis is added.
func LimitLength(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	if maxBytes <= 0 {
		return ""
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// splitLines splits on \n, tolerating \r\n, without a trailing empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
