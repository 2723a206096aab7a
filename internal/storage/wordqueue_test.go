package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestWordQueue(t *testing.T, content string) (*WordQueue, string, string) {
	t.Helper()
	dir := t.TempDir()
	queue := filepath.Join(dir, "word_of_the_day_next.txt")
	done := filepath.Join(dir, "word_of_the_day_done.txt")
	if content != "" {
		if err := os.WriteFile(queue, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewWordQueue(queue, done), queue, done
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	return string(data)
}

func TestWordQueue_NextPopsFirstWord(t *testing.T) {
	q, queue, done := newTestWordQueue(t, "猫\n犬\n鳥\n")

	word, ok, err := q.Next("魚")
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !ok || word != "猫" {
		t.Errorf("Next = %q, %v, want 猫, true", word, ok)
	}
	if got := readFile(t, queue); got != "犬\n鳥\n" {
		t.Errorf("queue = %q, want %q", got, "犬\n鳥\n")
	}
	if got := readFile(t, done); got != "魚\n" {
		t.Errorf("done = %q, want %q", got, "魚\n")
	}
}

func TestWordQueue_SkipsBlankLinesAndTrims(t *testing.T) {
	q, _, _ := newTestWordQueue(t, "\n  \n  Katze \r\nHund")

	word, ok, err := q.Next("")
	if err != nil || !ok || word != "Katze" {
		t.Fatalf("Next = %q, %v, %v, want Katze", word, ok, err)
	}
	word, ok, err = q.Next("Katze")
	if err != nil || !ok || word != "Hund" {
		t.Fatalf("Next = %q, %v, %v, want Hund", word, ok, err)
	}
	if _, ok, err = q.Next("Hund"); err != nil || ok {
		t.Errorf("Next on drained queue = %v, %v, want false, nil", ok, err)
	}
}

func TestWordQueue_EmptyRetiredNotLogged(t *testing.T) {
	q, _, done := newTestWordQueue(t, "a\n")
	if _, _, err := q.Next(""); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got := readFile(t, done); got != "" {
		t.Errorf("done = %q, want empty", got)
	}
}

func TestWordQueue_MissingQueue(t *testing.T) {
	q, _, done := newTestWordQueue(t, "")
	word, ok, err := q.Next("x")
	if err != nil || ok || word != "" {
		t.Errorf("Next = %q, %v, %v, want empty", word, ok, err)
	}
	if got := readFile(t, done); got != "" {
		t.Errorf("done log written for an empty queue: %q", got)
	}
}

func TestWordQueue_DoneLogAppends(t *testing.T) {
	q, _, done := newTestWordQueue(t, "b\nc\n")
	for _, retired := range []string{"a", "b"} {
		if _, _, err := q.Next(retired); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if got := readFile(t, done); got != "a\nb\n" {
		t.Errorf("done = %q, want %q", got, "a\nb\n")
	}
}

func TestWordQueue_Remaining(t *testing.T) {
	q, _, _ := newTestWordQueue(t, "a\n\nb\n")
	got, err := q.Remaining()
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Remaining = %q", got)
	}
}
