// Package history persists change-detection state between passes: the
// capped fingerprint log and the parsed-spec snapshot used as the diff
// baseline.
package history

import (
	"time"

	"github.com/c360studio/specsync/detect"
)

// maxEntries caps the retained log. Older entries are dropped on record.
const maxEntries = 10

// Default state file names under the state directory.
const (
	// HistoryFile holds the change-history log.
	HistoryFile = "history.json"
	// SnapshotFile holds the last parsed spec.
	SnapshotFile = "snapshot.json"
)

// Entry is one recorded detection.
type Entry struct {
	// Timestamp is when the detection was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Fingerprint is the spec fingerprint at detection time.
	Fingerprint string `json:"fingerprint"`

	// Changes holds the change items emitted by the detection.
	Changes []detect.ChangeItem `json:"changes"`

	// Processed marks whether downstream tooling has consumed the entry.
	// Records always start unprocessed.
	Processed bool `json:"processed"`
}

// trim returns the most recent maxEntries entries.
func trim(entries []Entry) []Entry {
	if len(entries) > maxEntries {
		return entries[len(entries)-maxEntries:]
	}
	return entries
}
