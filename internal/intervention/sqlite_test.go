package intervention

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "suppression.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_GetMiss(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, ok, err := store.Get("u1", "mr_x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_UpdateRoundtrip(t *testing.T) {
	store := newTestSQLiteStore(t)

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err := store.Update("u1", "mr_x", func(st State) State {
		st.Dismissals = 2
		st.LastDismissedAt = created
		st.ActedCount = 1
		st.ExposureTotal = 90 * time.Second
		st.CreatedAt = created
		st.SuppressedUntil = created.Add(30 * time.Minute)
		return st
	})
	require.NoError(t, err)

	st, ok, err := store.Get("u1", "mr_x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, st.Dismissals)
	assert.Equal(t, 1, st.ActedCount)
	assert.Equal(t, 90*time.Second, st.ExposureTotal)
	assert.True(t, st.LastDismissedAt.Equal(created))
	assert.True(t, st.CreatedAt.Equal(created))
	assert.True(t, st.SuppressedUntil.Equal(created.Add(30*time.Minute)))
}

func TestSQLiteStore_ZeroTimesStayZero(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, err := store.Update("u1", "mr_x", func(st State) State {
		st.Dismissals = 1
		return st
	})
	require.NoError(t, err)

	st, ok, err := store.Get("u1", "mr_x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, st.LastDismissedAt.IsZero())
	assert.True(t, st.SuppressedUntil.IsZero())
}

func TestSQLiteStore_ConcurrentUpdates(t *testing.T) {
	// Two sessions of the same user dismissing concurrently: every
	// increment must survive the read-modify-write.
	store := newTestSQLiteStore(t)

	const goroutines = 8
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update("u1", "mr_x", func(st State) State {
				st.Dismissals++
				return st
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, ok, err := store.Get("u1", "mr_x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, goroutines, st.Dismissals)
}

func TestTracker_WithSQLiteStore(t *testing.T) {
	store := newTestSQLiteStore(t)
	tr, err := NewTracker(DefaultTrackerConfig(), store, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := tr.RecordResponse("u1", "mr_x", ActionDismiss, 0)
		require.NoError(t, err)
	}
	assert.True(t, tr.Suppressed("u1", "mr_x"))

	_, err = tr.RecordResponse("u1", "mr_x", ActionAct, 0)
	require.NoError(t, err)
	assert.False(t, tr.Suppressed("u1", "mr_x"))
}
