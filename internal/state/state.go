// Package state persists monitor state as JSON files under a base
// directory. Every write goes through a temp-file-plus-rename so a crash
// mid-write never leaves a truncated state file behind.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

const (
	// DefaultBaseDir is the default state directory.
	DefaultBaseDir = ".agents/aw"

	// ActivityLogFile holds the bounded activity ledger.
	ActivityLogFile = "activity_log.json"

	// PerformanceHistoryFile holds scored evaluation records.
	PerformanceHistoryFile = "performance_history.json"

	// ImprovementHistoryFile holds executed improvement proposals.
	ImprovementHistoryFile = "improvement_history.json"

	// CapabilityMapFile holds the per-capability proficiency map.
	CapabilityMapFile = "capability_map.json"

	// LastRunFile records when each periodic task last completed.
	LastRunFile = "last_run.json"
)

// Store reads and writes JSON state files under a base directory.
// Safe for concurrent use.
type Store struct {
	// BaseDir is the root directory (e.g., .agents/aw).
	BaseDir string

	logger *zap.Logger
	mu     sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithBaseDir sets the base directory.
func WithBaseDir(dir string) StoreOption {
	return func(s *Store) {
		s.BaseDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a file-backed state store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		BaseDir: DefaultBaseDir,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init creates the state directory.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.BaseDir, 0700); err != nil {
		return fmt.Errorf("create directory %s: %w", s.BaseDir, err)
	}
	return nil
}

// Save marshals v as indented JSON and writes it atomically to the named
// state file.
func (s *Store) Save(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(s.BaseDir, name)
	if err := s.atomicWrite(path, func(w io.Writer) error {
		_, werr := w.Write(data)
		return werr
	}); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Load unmarshals the named state file into v. A missing file leaves v
// untouched and returns nil, so callers start from their zero state on
// first run. A corrupt file is logged and treated the same way rather
// than wedging the monitor on startup.
func (s *Store) Load(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.BaseDir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Warn("state file corrupt, starting fresh",
			zap.String("file", name), zap.Error(err))
		return nil
	}
	return nil
}

// Exists reports whether the named state file is present.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.BaseDir, name))
	return err == nil
}

// Path returns the full path of a named state file.
func (s *Store) Path(name string) string {
	return filepath.Join(s.BaseDir, name)
}

// atomicWrite writes to a temp file in the target directory, syncs, and
// renames over the destination.
func (s *Store) atomicWrite(path string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath) //nolint:errcheck // cleanup in error path
		}
	}()

	if err := writeFunc(tmpFile); err != nil {
		_ = tmpFile.Close() //nolint:errcheck // cleanup in error path
		return fmt.Errorf("write content: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close() //nolint:errcheck // cleanup in error path
		return fmt.Errorf("sync file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to final: %w", err)
	}

	success = true
	return nil
}
