// Package logbook keeps a plain-text history of task runs in the project.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kixxauth/treadwell"
)

// Logbook appends one line per task event to a text file.
type Logbook struct {
	path string
	mu   sync.Mutex
}

// New creates a logbook that writes to path, creating its directory.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: %w", err)
	}
	return &Logbook{path: path}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record appends event as a single line:
//
//	2026-01-02T15:04:05.000Z END   <run id> <task>
//
// Error events carry the first line of the error after the task name, behind
// a "discarded:" marker when the failure came from an abandoned parallel set.
func (l *Logbook) Record(event treadwell.Event) error {
	if l == nil {
		return nil
	}
	when := event.Time
	if when.IsZero() {
		when = time.Now()
	}
	line := fmt.Sprintf("%s %-5s %s %s",
		when.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		strings.ToUpper(string(event.Type)),
		event.RunID,
		event.Key,
	)
	if event.Err != nil {
		msg, _, _ := strings.Cut(event.Err.Error(), "\n")
		if event.Discarded {
			line += " discarded:"
		}
		line += " " + strings.TrimSpace(msg)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logbook: open %s: %w", l.path, err)
	}
	defer file.Close()
	if _, err := file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("logbook: write %s: %w", l.path, err)
	}
	return nil
}

// Listener records every event it receives. Write failures go to onError
// when it is non-nil.
func (l *Logbook) Listener(onError func(error)) treadwell.Listener {
	return func(event treadwell.Event) {
		if err := l.Record(event); err != nil && onError != nil {
			onError(err)
		}
	}
}

// Tail returns up to maxLines of the most recent entries and the total
// number of entries in the logbook.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total == 0 {
		return nil, 0
	}
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}
