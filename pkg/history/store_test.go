package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "state", FileName))
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := newTestStore(t)

	records, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_AppendAndLoad(t *testing.T) {
	store := newTestStore(t)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(Record{
		SessionID:  "s1",
		Package:    "Editor",
		StartedAt:  start,
		FinishedAt: start.Add(4 * time.Second),
		Outcome:    OutcomeSucceeded,
	}))
	require.NoError(t, store.Append(Record{SessionID: "s2", Package: "Debugger", Outcome: OutcomeError, Message: "extraction failed"}))

	records, err := store.Load()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Editor", records[0].Package)
	assert.Equal(t, 4*time.Second, records[0].Duration())
	assert.Equal(t, "extraction failed", records[1].Message)

	// No temp file left behind
	_, err = os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStore_Recent(t *testing.T) {
	store := newTestStore(t)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, store.Append(Record{Package: name, Outcome: OutcomeSucceeded}))
	}

	tests := []struct {
		n    int
		want []string
	}{
		{n: 2, want: []string{"c", "b"}},
		{n: 0, want: []string{"c", "b", "a"}},
		{n: 10, want: []string{"c", "b", "a"}},
	}

	for _, tt := range tests {
		records, err := store.Recent(tt.n)
		require.NoError(t, err)

		var got []string
		for _, r := range records {
			got = append(got, r.Package)
		}
		assert.Equal(t, tt.want, got, "n=%d", tt.n)
	}
}

func TestStore_EvictsOldest(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < MaxRecords+5; i++ {
		require.NoError(t, store.Append(Record{SessionID: string(rune('a' + i%26)), Outcome: OutcomeFailed}))
	}

	records, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, records, MaxRecords)
	assert.Equal(t, string(rune('a'+5)), records[0].SessionID)
}

func TestStore_CorruptFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0755))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0644))

	_, err := store.Load()
	assert.ErrorContains(t, err, "failed to parse history file")

	err = store.Append(Record{Package: "x"})
	assert.Error(t, err)
}
