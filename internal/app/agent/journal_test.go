package agent

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournal_RecordAndSeen(t *testing.T) {
	j := newTestJournal(t)

	seen, err := j.Seen("cmd-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, j.Record("cmd-1", 11, "SYNC_PREPARE", "ACKED"))

	seen, err = j.Seen("cmd-1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestJournal_RecordTwiceIsNoop(t *testing.T) {
	j := newTestJournal(t)

	require.NoError(t, j.Record("cmd-1", 11, "SYNC_PREPARE", "ACKED"))
	require.NoError(t, j.Record("cmd-1", 11, "SYNC_PREPARE", "ACKED"))

	n, err := j.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJournal_CountPerSession(t *testing.T) {
	j := newTestJournal(t)

	require.NoError(t, j.Record("cmd-1", 11, "SYNC_PREPARE", "ACKED"))
	require.NoError(t, j.Record("cmd-2", 11, "SYNC_STOP", "ACKED"))
	require.NoError(t, j.Record("cmd-3", 12, "SYNC_PREPARE", "ACKED"))

	n, err := j.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
