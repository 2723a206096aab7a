package storage

import (
	"fmt"
	"os"
	"strings"
)

// WordQueue serves the word of the day from a plain text file, one word per
// line. Retired words are appended to a separate done log.
type WordQueue struct {
	queuePath string
	donePath  string
}

// NewWordQueue creates a WordQueue over the given queue and done files.
func NewWordQueue(queuePath, donePath string) *WordQueue {
	return &WordQueue{queuePath: queuePath, donePath: donePath}
}

// Next pops the first non-blank line of the queue file. retired, when
// non-empty, is appended to the done log and synced before the queue is
// rewritten. ok is false when the queue file is missing or holds no words.
func (q *WordQueue) Next(retired string) (word string, ok bool, err error) {
	unlock, err := lockFile(q.queuePath + ".lock")
	if err != nil {
		return "", false, fmt.Errorf("locking word queue: %w", err)
	}
	defer func() { _ = unlock() }()

	data, err := os.ReadFile(q.queuePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading word queue: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	idx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", false, nil
	}
	word = strings.TrimSpace(lines[idx])

	if retired != "" {
		if err := appendLine(q.donePath, retired); err != nil {
			return "", false, err
		}
	}

	rest := strings.Join(lines[idx+1:], "\n")
	if err := writeFileAtomic(q.queuePath, []byte(rest), 0o644); err != nil {
		return "", false, fmt.Errorf("rewriting word queue: %w", err)
	}
	return word, true, nil
}

// Remaining returns the words still queued.
func (q *WordQueue) Remaining() ([]string, error) {
	data, err := os.ReadFile(q.queuePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading word queue: %w", err)
	}
	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		if w := strings.TrimSpace(line); w != "" {
			words = append(words, w)
		}
	}
	return words, nil
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening done log: %w", err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("writing done log: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing done log: %w", err)
	}
	return f.Close()
}
