package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/c360studio/specsync/spec"
)

// Snapshot persists the last parsed spec as the diff baseline for the
// next pass. A missing or corrupted snapshot degrades to an empty spec,
// which makes every present key read as added.
type Snapshot struct {
	path   string
	logger *slog.Logger
}

// NewSnapshot creates a file-backed snapshot store at path.
func NewSnapshot(path string, logger *slog.Logger) *Snapshot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshot{path: path, logger: logger}
}

// Load returns the previously persisted parse, or an empty ParsedSpec
// when none is usable.
func (s *Snapshot) Load() *spec.ParsedSpec {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Snapshot unreadable, treating as empty",
				slog.String("path", s.path),
				slog.String("error", err.Error()))
		}
		return &spec.ParsedSpec{}
	}

	var parsed spec.ParsedSpec
	if err := json.Unmarshal(data, &parsed); err != nil {
		s.logger.Warn("Snapshot corrupted, treating as empty",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return &spec.ParsedSpec{}
	}
	return &parsed
}

// Save rewrites the snapshot as a whole.
func (s *Snapshot) Save(parsed *spec.ParsedSpec) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// MemSnapshot is an in-memory snapshot store for tests. Save round-trips
// through JSON so tests exercise the same serialization as the file
// store.
type MemSnapshot struct {
	data []byte

	// SaveErr, when set, is returned by Save to simulate a persistence
	// failure.
	SaveErr error
}

// NewMemSnapshot creates an empty in-memory snapshot store.
func NewMemSnapshot() *MemSnapshot {
	return &MemSnapshot{}
}

// Load returns the saved parse, or an empty ParsedSpec when none exists.
func (m *MemSnapshot) Load() *spec.ParsedSpec {
	if m.data == nil {
		return &spec.ParsedSpec{}
	}
	var parsed spec.ParsedSpec
	if err := json.Unmarshal(m.data, &parsed); err != nil {
		return &spec.ParsedSpec{}
	}
	return &parsed
}

// Save serializes and retains the parse.
func (m *MemSnapshot) Save(parsed *spec.ParsedSpec) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	data, err := json.Marshal(parsed)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}
