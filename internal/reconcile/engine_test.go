package reconcile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/klurigast/griffel/internal/models"
	"github.com/klurigast/griffel/internal/store"
	"github.com/klurigast/griffel/internal/store/sqlite"
)

// newTestEngine backs the engine with an in-memory SQLite store. The concrete
// store is returned too so tests can seed and inspect raw state.
func newTestEngine(t *testing.T) (*Engine, *sqlite.SQLiteStore) {
	t.Helper()

	s, err := sqlite.NewSQLiteStore(":memory:")
	require.NoError(t, err, "Failed to create store")

	err = s.ApplyMigrations("../../migrations")
	require.NoError(t, err, "Failed to apply migrations")

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return NewEngine(s), s
}

func seedRoster(t *testing.T, s *sqlite.SQLiteStore, classroomID int64, entries ...models.RosterEntry) {
	t.Helper()

	batch := store.RosterBatch{ClassroomID: classroomID}
	for _, entry := range entries {
		batch.Reserves = append(batch.Reserves, entry.StudentID)
		batch.Creates = append(batch.Creates, entry)
	}
	require.NoError(t, s.ApplyRosterBatch(batch))
}

func seedCompositions(t *testing.T, s *sqlite.SQLiteStore, classroomID int64, comps ...models.GradeComposition) []models.GradeComposition {
	t.Helper()

	require.NoError(t, s.ApplyCompositionBatch(store.CompositionBatch{
		ClassroomID: classroomID,
		Creates:     comps,
	}))
	created, err := s.ListCompositions(classroomID)
	require.NoError(t, err)
	return created
}

func failureReasons(failed []FailedRow) []string {
	reasons := make([]string, len(failed))
	for i, f := range failed {
		reasons[i] = f.Reason
	}
	return reasons
}
