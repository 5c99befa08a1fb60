package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/specsync/detect"
)

// FileStore persists the change history as an indented JSON file.
// Unreadable or corrupted history degrades to first-run semantics and
// is never fatal.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a file-backed history store at path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// LastFingerprint returns the most recently recorded fingerprint, or ""
// when no usable history exists.
func (s *FileStore) LastFingerprint() string {
	entries := s.load()
	if len(entries) == 0 {
		return ""
	}
	return entries[len(entries)-1].Fingerprint
}

// Record appends an unprocessed entry, trims the log to the most recent
// entries, and rewrites the file as a whole.
func (s *FileStore) Record(fingerprint string, changes []detect.ChangeItem) error {
	entries := s.load()
	entries = append(entries, Entry{
		Timestamp:   time.Now().UTC(),
		Fingerprint: fingerprint,
		Changes:     changes,
		Processed:   false,
	})
	return s.save(trim(entries))
}

// Entries returns the retained history, oldest first.
func (s *FileStore) Entries() []Entry {
	return s.load()
}

func (s *FileStore) load() []Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("History unreadable, treating as empty",
				slog.String("path", s.path),
				slog.String("error", err.Error()))
		}
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("History corrupted, treating as empty",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return nil
	}
	return entries
}

func (s *FileStore) save(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
