package history

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specsync/detect"
)

func TestMemStore_Empty(t *testing.T) {
	store := NewMemStore()

	assert.Equal(t, "", store.LastFingerprint())
	assert.Empty(t, store.Entries())
}

func TestMemStore_Record(t *testing.T) {
	store := NewMemStore()

	changes := []detect.ChangeItem{{Type: detect.ChangeSources}}
	require.NoError(t, store.Record("fp-1", changes))

	assert.Equal(t, "fp-1", store.LastFingerprint())

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, changes, entries[0].Changes)
	assert.False(t, entries[0].Processed)
}

func TestMemStore_TrimsToRetentionCap(t *testing.T) {
	store := NewMemStore()

	for i := 1; i <= maxEntries+5; i++ {
		require.NoError(t, store.Record(fmt.Sprintf("fp-%02d", i), nil))
	}

	entries := store.Entries()
	require.Len(t, entries, maxEntries)
	assert.Equal(t, "fp-06", entries[0].Fingerprint)
}

func TestMemStore_RecordError(t *testing.T) {
	store := NewMemStore()
	store.RecordErr = errors.New("boom")

	err := store.Record("fp-1", nil)
	assert.EqualError(t, err, "boom")
	assert.Empty(t, store.Entries())
}
