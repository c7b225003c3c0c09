package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klurigast/griffel/internal/models"
	"github.com/klurigast/griffel/internal/store"
)

func TestRemapStudentIDs(t *testing.T) {
	e, s := newTestEngine(t)
	seedRoster(t, s, 1,
		models.RosterEntry{ClassroomID: 1, Name: "John Doe", StudentID: "s001", Email: "john@example.com"},
		models.RosterEntry{ClassroomID: 1, Name: "Jane Roe", StudentID: "s002", Email: "jane@example.com"},
	)
	comps := seedCompositions(t, s, 1,
		models.GradeComposition{ClassroomID: 1, Name: "Midterm", GradePercent: 100, Index: 0},
	)
	require.NoError(t, s.ApplyGradeBatch(store.GradeBatch{
		ClassroomID: 1,
		Upserts: []models.GradeDetail{
			{StudentID: "s001", ClassroomID: 1, GradeCategory: comps[0].ID, Grade: 8},
		},
	}))

	result, err := e.RemapStudentIDs(1, []RemapInput{
		{Name: "John Doe", Email: "john@example.com", StudentID: "s100"},
	})
	require.NoError(t, err)
	require.Len(t, result.Success, 1)
	assert.Equal(t, "s100", result.Success[0].StudentID)

	t.Run("grade rows follow the new id", func(t *testing.T) {
		grades, err := s.ListCompositionGrades(1, comps[0].ID)
		require.NoError(t, err)
		require.Len(t, grades, 1)
		assert.Equal(t, "s100", grades[0].StudentID)
	})

	t.Run("old reservation released", func(t *testing.T) {
		reserved, err := s.ListReservedStudentIDs()
		require.NoError(t, err)
		assert.Equal(t, []string{"s002", "s100"}, reserved)
	})
}

func TestRemapStudentIDsDuplicateTarget(t *testing.T) {
	e, s := newTestEngine(t)
	seedRoster(t, s, 1,
		models.RosterEntry{ClassroomID: 1, Name: "John Doe", StudentID: "s001", Email: "john@example.com"},
		models.RosterEntry{ClassroomID: 1, Name: "Jane Roe", StudentID: "s002", Email: "jane@example.com"},
	)

	_, err := e.RemapStudentIDs(1, []RemapInput{
		{Name: "John Doe", Email: "john@example.com", StudentID: "s100"},
		{Name: "Jane Roe", Email: "jane@example.com", StudentID: "s100"},
	})
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, CodeDuplicateInBatch, CodeOf(err))
}

func TestRemapStudentIDsRowFailures(t *testing.T) {
	e, s := newTestEngine(t)
	seedRoster(t, s, 1,
		models.RosterEntry{ClassroomID: 1, Name: "John Doe", StudentID: "s001", Email: "john@example.com"},
	)
	seedRoster(t, s, 2,
		models.RosterEntry{ClassroomID: 2, Name: "Other Kid", StudentID: "s027"},
	)

	result, err := e.RemapStudentIDs(1, []RemapInput{
		{Name: "Nobody", Email: "nobody@example.com", StudentID: "s050"},
		{Name: "John Doe", Email: "john@example.com", StudentID: "s027"},
		{Name: "John Doe", Email: "john@example.com", StudentID: "s0123456789"},
		{Name: "John Doe", StudentID: "s051"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Success)
	assert.Equal(t, []string{
		ReasonStudentNotInRosterList,
		ReasonStudentIdAlreadyReserved,
		ReasonStudentIdTooLong,
		ReasonMissingRequiredField,
	}, failureReasons(result.Failed))

	// nothing moved
	roster, err := s.ListRoster(1)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "s001", roster[0].StudentID)
}

func TestRemapStudentIDsNoOp(t *testing.T) {
	e, s := newTestEngine(t)
	seedRoster(t, s, 1,
		models.RosterEntry{ClassroomID: 1, Name: "John Doe", StudentID: "s001", Email: "john@example.com"},
	)

	result, err := e.RemapStudentIDs(1, []RemapInput{
		{Name: "John Doe", Email: "john@example.com", StudentID: "s001"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Success, 1)
	assert.Empty(t, result.Failed)

	reserved, err := s.ListReservedStudentIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"s001"}, reserved)
}

func TestRemapStudentIDsChainWithinBatch(t *testing.T) {
	e, s := newTestEngine(t)
	seedRoster(t, s, 1,
		models.RosterEntry{ClassroomID: 1, Name: "John Doe", StudentID: "s001", Email: "john@example.com"},
		models.RosterEntry{ClassroomID: 1, Name: "Jane Roe", StudentID: "s002", Email: "jane@example.com"},
	)

	// Jane takes s001 after John vacates it in the same batch
	result, err := e.RemapStudentIDs(1, []RemapInput{
		{Name: "John Doe", Email: "john@example.com", StudentID: "s100"},
		{Name: "Jane Roe", Email: "jane@example.com", StudentID: "s001"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Success, 2)
	assert.Empty(t, result.Failed)

	reserved, err := s.ListReservedStudentIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"s001", "s100"}, reserved)
}
