package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// FileLog appends events to a JSON-lines file, one record per line. Appends
// are serialized by an internal mutex; the file is opened per append so the
// log can be rotated or tailed externally without coordination.
type FileLog struct {
	mu   sync.Mutex
	path string
}

// NewFileLog creates a file log at path, creating parent directories.
func NewFileLog(path string) (*FileLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}
	return &FileLog{path: path}, nil
}

// Path returns the location of the backing file.
func (l *FileLog) Path() string { return l.path }

// Append writes one event as a single JSON line.
func (l *FileLog) Append(event core.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer f.Close()
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

// Read returns all events currently in the log in append order. It exists
// for external readers (dashboards, tests); the orchestrator never reads the
// log back.
func (l *FileLog) Read() ([]core.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []core.Event{}, nil
		}
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer f.Close()

	var events []core.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev core.Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("decoding event line: %w", err)
		}
		events = append(events, ev)
	}
	return events, scanner.Err()
}
