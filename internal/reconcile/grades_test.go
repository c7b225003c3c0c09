package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klurigast/griffel/internal/models"
	"github.com/klurigast/griffel/internal/sheet"
)

func TestSyncGradesForComposition(t *testing.T) {
	e, s := newTestEngine(t)
	seedRoster(t, s, 1,
		models.RosterEntry{ClassroomID: 1, Name: "John Doe", StudentID: "s001", Email: "john@example.com"},
		models.RosterEntry{ClassroomID: 1, Name: "Jane Roe", StudentID: "s002", Email: "jane@example.com"},
	)
	comps := seedCompositions(t, s, 1,
		models.GradeComposition{ClassroomID: 1, Name: "Midterm", GradePercent: 100, Index: 0},
	)
	midterm := comps[0].ID

	result, err := e.SyncGradesForComposition(1, midterm, []sheet.GradeRow{
		{Name: "John Doe", StudentID: "s001", Grade: "8"},
		{Name: "Jane Roe", StudentID: "s002", Grade: "9.5"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Success, 2)
	assert.Empty(t, result.Failed)

	grades, err := s.ListCompositionGrades(1, midterm)
	require.NoError(t, err)
	require.Len(t, grades, 2)
	assert.Equal(t, 8.0, grades[0].Grade)
	assert.Equal(t, 9.5, grades[1].Grade)

	t.Run("absent student loses the grade row", func(t *testing.T) {
		_, err := e.SyncGradesForComposition(1, midterm, []sheet.GradeRow{
			{Name: "John Doe", StudentID: "s001", Grade: "8"},
		})
		require.NoError(t, err)

		grades, err := s.ListCompositionGrades(1, midterm)
		require.NoError(t, err)
		require.Len(t, grades, 1)
		assert.Equal(t, "s001", grades[0].StudentID)
	})
}

func TestSyncGradesUnknownComposition(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.SyncGradesForComposition(1, 999, []sheet.GradeRow{
		{Name: "John Doe", StudentID: "s001", Grade: "8"},
	})
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, CodeInvalidComposition, CodeOf(err))
}

func TestSyncGradesAutoAddsToRoster(t *testing.T) {
	e, s := newTestEngine(t)
	comps := seedCompositions(t, s, 1,
		models.GradeComposition{ClassroomID: 1, Name: "Midterm", GradePercent: 100, Index: 0},
	)

	result, err := e.SyncGradesForComposition(1, comps[0].ID, []sheet.GradeRow{
		{Name: "New Kid", StudentID: "s009", Email: "kid@example.com", Grade: "7"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Success, 1)

	roster, err := s.ListRoster(1)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "s009", roster[0].StudentID)

	reserved, err := s.ListReservedStudentIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"s009"}, reserved)
}

func TestSyncGradesRowFailures(t *testing.T) {
	e, s := newTestEngine(t)
	seedRoster(t, s, 1,
		models.RosterEntry{ClassroomID: 1, Name: "John Doe", StudentID: "s001", Email: "john@example.com"},
	)
	// s027 belongs to another classroom
	seedRoster(t, s, 2,
		models.RosterEntry{ClassroomID: 2, Name: "Other Kid", StudentID: "s027"},
	)
	comps := seedCompositions(t, s, 1,
		models.GradeComposition{ClassroomID: 1, Name: "Midterm", GradePercent: 100, Index: 0},
	)

	result, err := e.SyncGradesForComposition(1, comps[0].ID, []sheet.GradeRow{
		{Name: "John Doe", StudentID: "", Grade: "8"},
		{Name: "John Doe", StudentID: "s001", Grade: "abc"},
		{Name: "John Doe 2", StudentID: "s002", Grade: "11"},
		{Name: "John Doe 3", StudentID: "s003", Grade: "-1"},
		{Name: "Borrowed Id", StudentID: "s027", Grade: "5"},
		{Name: "Borrowed Mail", StudentID: "s042", Email: "john@example.com", Grade: "5"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Success)
	assert.Equal(t, []string{
		ReasonMissingRequiredField,
		ReasonGradeOutOfRange,
		ReasonGradeOutOfRange,
		ReasonGradeOutOfRange,
		ReasonStudentIdAlreadyReserved,
		ReasonStudentNotInRosterList,
	}, failureReasons(result.Failed))

	grades, err := s.ListCompositionGrades(1, comps[0].ID)
	require.NoError(t, err)
	assert.Empty(t, grades)
}

func TestSyncGradesIsIdempotent(t *testing.T) {
	e, s := newTestEngine(t)
	seedRoster(t, s, 1,
		models.RosterEntry{ClassroomID: 1, Name: "John Doe", StudentID: "s001"},
	)
	comps := seedCompositions(t, s, 1,
		models.GradeComposition{ClassroomID: 1, Name: "Midterm", GradePercent: 100, Index: 0},
	)

	rows := []sheet.GradeRow{{Name: "John Doe", StudentID: "s001", Grade: "8"}}
	_, err := e.SyncGradesForComposition(1, comps[0].ID, rows)
	require.NoError(t, err)

	grades, err := s.ListCompositionGrades(1, comps[0].ID)
	require.NoError(t, err)
	roster, err := s.ListRoster(1)
	require.NoError(t, err)
	reserved, err := s.ListReservedStudentIDs()
	require.NoError(t, err)

	batch, result := diffCompositionGrades(1, comps[0].ID, grades, roster, toSet(reserved), rows)
	assert.True(t, batch.Empty())
	assert.Len(t, result.Success, 1)
}

func TestSyncGradeBoard(t *testing.T) {
	e, s := newTestEngine(t)
	seedRoster(t, s, 1,
		models.RosterEntry{ClassroomID: 1, Name: "John Doe", StudentID: "s001", Email: "john@example.com"},
		models.RosterEntry{ClassroomID: 1, Name: "Jane Roe", StudentID: "s002", Email: "jane@example.com"},
	)
	seedCompositions(t, s, 1,
		models.GradeComposition{ClassroomID: 1, Name: "Midterm", GradePercent: 40, Index: 0},
		models.GradeComposition{ClassroomID: 1, Name: "Final", GradePercent: 60, Index: 1},
	)

	result, err := e.SyncGradeBoard(1, []sheet.BoardRow{
		{Name: "John Doe", StudentID: "s001", Grades: map[string]string{"Midterm": "8", "Final": "9"}},
		{Name: "Jane Roe", StudentID: "s002", Grades: map[string]string{"Midterm": "6"}},
	})
	require.NoError(t, err)
	assert.Len(t, result.Success, 3)
	assert.Empty(t, result.Failed)

	grades, err := s.ListGradeDetails(1)
	require.NoError(t, err)
	assert.Len(t, grades, 3)

	t.Run("bad cell fails the cell, not the row", func(t *testing.T) {
		result, err := e.SyncGradeBoard(1, []sheet.BoardRow{
			{Name: "John Doe", StudentID: "s001", Grades: map[string]string{"Midterm": "8", "Final": "so-so"}},
			{Name: "Jane Roe", StudentID: "s002", Grades: map[string]string{"Midterm": "6"}},
		})
		require.NoError(t, err)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, ReasonGradeOutOfRange, result.Failed[0].Reason)
		assert.Len(t, result.Success, 2)
	})

	t.Run("absent student loses all grade rows", func(t *testing.T) {
		_, err := e.SyncGradeBoard(1, []sheet.BoardRow{
			{Name: "John Doe", StudentID: "s001", Grades: map[string]string{"Midterm": "8", "Final": "9"}},
		})
		require.NoError(t, err)

		grades, err := s.ListGradeDetails(1)
		require.NoError(t, err)
		require.Len(t, grades, 2)
		for _, g := range grades {
			assert.Equal(t, "s001", g.StudentID)
		}

		// the roster entry itself stays
		roster, err := s.ListRoster(1)
		require.NoError(t, err)
		assert.Len(t, roster, 2)
	})
}

func TestEditGrades(t *testing.T) {
	e, s := newTestEngine(t)
	seedRoster(t, s, 1,
		models.RosterEntry{ClassroomID: 1, Name: "John Doe", StudentID: "s001"},
	)
	comps := seedCompositions(t, s, 1,
		models.GradeComposition{ClassroomID: 1, Name: "Midterm", GradePercent: 100, Index: 0},
	)
	midterm := comps[0].ID

	t.Run("upsert for known student", func(t *testing.T) {
		result, err := e.EditGrades(1, midterm, []GradeInput{
			{StudentID: "s001", Grade: 8},
		})
		require.NoError(t, err)
		assert.Len(t, result.Success, 1)

		result, err = e.EditGrades(1, midterm, []GradeInput{
			{StudentID: "s001", Grade: 9},
		})
		require.NoError(t, err)
		assert.Len(t, result.Success, 1)

		grades, err := s.ListCompositionGrades(1, midterm)
		require.NoError(t, err)
		require.Len(t, grades, 1)
		assert.Equal(t, 9.0, grades[0].Grade)
	})

	t.Run("unknown student fails, no auto-add", func(t *testing.T) {
		result, err := e.EditGrades(1, midterm, []GradeInput{
			{StudentID: "s999", Grade: 5},
		})
		require.NoError(t, err)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, ReasonStudentNotInRosterList, result.Failed[0].Reason)

		roster, err := s.ListRoster(1)
		require.NoError(t, err)
		assert.Len(t, roster, 1)
	})

	t.Run("grade out of range", func(t *testing.T) {
		result, err := e.EditGrades(1, midterm, []GradeInput{
			{StudentID: "s001", Grade: 10.5},
		})
		require.NoError(t, err)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, ReasonGradeOutOfRange, result.Failed[0].Reason)
	})

	t.Run("unknown composition", func(t *testing.T) {
		_, err := e.EditGrades(1, 999, []GradeInput{
			{StudentID: "s001", Grade: 5},
		})
		require.Error(t, err)
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}
