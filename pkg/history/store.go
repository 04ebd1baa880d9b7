// Package history keeps a log of installation attempts.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// Version is the current history schema version.
	Version = "1.0"
	// FileName is the name of the history file in the state directory.
	FileName = "history.json"
	// MaxRecords is the maximum number of attempts kept; oldest are evicted.
	MaxRecords = 100
)

// Outcome values stored in a Record.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeError     = "error"
)

// Record is one installation attempt.
type Record struct {
	SessionID  string    `json:"session_id"`
	Package    string    `json:"package"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`           // succeeded, failed or error
	Message    string    `json:"message,omitempty"` // Error text for OutcomeError
}

// Duration returns how long the attempt took.
func (r Record) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// file is the on-disk layout.
type file struct {
	Version string   `json:"version"`
	Records []Record `json:"records"`
}

// Store persists records as JSON.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the history file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns all records, oldest first. A missing file yields none.
func (s *Store) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}
	return f.Records, nil
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(n int) ([]Record, error) {
	records, err := s.Load()
	if err != nil {
		return nil, err
	}

	if n <= 0 || n > len(records) {
		n = len(records)
	}

	recent := make([]Record, 0, n)
	for i := len(records) - 1; i >= len(records)-n; i-- {
		recent = append(recent, records[i])
	}
	return recent, nil
}

// Append adds a record and saves the file.
func (s *Store) Append(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}

	f.Records = append(f.Records, r)
	if len(f.Records) > MaxRecords {
		f.Records = f.Records[len(f.Records)-MaxRecords:]
	}

	return s.save(f)
}

// load reads the file without locking (caller must hold lock).
func (s *Store) load() (*file, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &file{Version: Version, Records: []Record{}}, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	if f.Records == nil {
		f.Records = []Record{}
	}

	return &f, nil
}

// save writes the file atomically without locking (caller must hold lock).
func (s *Store) save(f *file) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	f.Version = Version
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save history file: %w", err)
	}

	return nil
}
