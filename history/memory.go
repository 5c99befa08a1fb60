package history

import (
	"time"

	"github.com/c360studio/specsync/detect"
)

// MemStore is an in-memory history store for tests.
type MemStore struct {
	entries []Entry

	// RecordErr, when set, is returned by Record to simulate a
	// persistence failure.
	RecordErr error
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// LastFingerprint returns the most recently recorded fingerprint, or ""
// when nothing has been recorded.
func (s *MemStore) LastFingerprint() string {
	if len(s.entries) == 0 {
		return ""
	}
	return s.entries[len(s.entries)-1].Fingerprint
}

// Record appends an unprocessed entry and trims to the retention cap.
func (s *MemStore) Record(fingerprint string, changes []detect.ChangeItem) error {
	if s.RecordErr != nil {
		return s.RecordErr
	}
	s.entries = trim(append(s.entries, Entry{
		Timestamp:   time.Now().UTC(),
		Fingerprint: fingerprint,
		Changes:     changes,
		Processed:   false,
	}))
	return nil
}

// Entries returns the retained history, oldest first.
func (s *MemStore) Entries() []Entry {
	return s.entries
}
