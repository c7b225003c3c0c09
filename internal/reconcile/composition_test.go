package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klurigast/griffel/internal/models"
	"github.com/klurigast/griffel/internal/store"
	"github.com/klurigast/griffel/internal/store/sqlite"
)

func seedMembers(t *testing.T, s *sqlite.SQLiteStore, classroomID int64) {
	t.Helper()

	members := []models.ClassroomMember{
		{ClassroomID: classroomID, MemberID: 7, MemberRole: models.RoleStudent},
		{ClassroomID: classroomID, MemberID: 8, MemberRole: models.RoleStudent},
		{ClassroomID: classroomID, MemberID: 42, MemberRole: models.RoleTeacher},
	}
	for _, m := range members {
		require.NoError(t, s.CreateMember(m))
	}
}

func TestEditCompositionsCreatesScheme(t *testing.T) {
	e, _ := newTestEngine(t)

	comps, err := e.EditCompositions(1, 42, []CompositionInput{
		{Name: "Final", GradePercent: 60, Index: 1},
		{Name: "Midterm", GradePercent: 40, Index: 0},
	})
	require.NoError(t, err)
	require.Len(t, comps, 2)

	// returned in index order regardless of input order
	assert.Equal(t, "Midterm", comps[0].Name)
	assert.Equal(t, "Final", comps[1].Name)
	assert.Equal(t, 40, comps[0].GradePercent)
}

func TestEditCompositionsRejectsBadSchemes(t *testing.T) {
	e, _ := newTestEngine(t)

	t.Run("empty list", func(t *testing.T) {
		_, err := e.EditCompositions(1, 42, nil)
		require.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
	})

	t.Run("weights must total 100", func(t *testing.T) {
		_, err := e.EditCompositions(1, 42, []CompositionInput{
			{Name: "Midterm", GradePercent: 40, Index: 0},
			{Name: "Final", GradePercent: 50, Index: 1},
		})
		require.Error(t, err)
		assert.Equal(t, CodeInvalidWeights, CodeOf(err))
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := e.EditCompositions(1, 42, []CompositionInput{
			{Name: "Midterm", GradePercent: 40, Index: 0},
			{Name: "Midterm", GradePercent: 60, Index: 1},
		})
		require.Error(t, err)
		assert.Equal(t, CodeDuplicateInBatch, CodeOf(err))
	})

	t.Run("duplicate index", func(t *testing.T) {
		_, err := e.EditCompositions(1, 42, []CompositionInput{
			{Name: "Midterm", GradePercent: 40, Index: 0},
			{Name: "Final", GradePercent: 60, Index: 0},
		})
		require.Error(t, err)
		assert.Equal(t, CodeDuplicateInBatch, CodeOf(err))
	})

	t.Run("nothing was persisted", func(t *testing.T) {
		comps, err := e.store.ListCompositions(1)
		require.NoError(t, err)
		assert.Empty(t, comps)
	})
}

func TestEditCompositionsDeleteDropsGrades(t *testing.T) {
	e, s := newTestEngine(t)
	seedRoster(t, s, 1, models.RosterEntry{ClassroomID: 1, Name: "John Doe", StudentID: "s001"})

	comps, err := e.EditCompositions(1, 42, []CompositionInput{
		{Name: "Midterm", GradePercent: 40, Index: 0},
		{Name: "Final", GradePercent: 60, Index: 1},
	})
	require.NoError(t, err)

	require.NoError(t, s.ApplyGradeBatch(store.GradeBatch{
		ClassroomID: 1,
		Upserts: []models.GradeDetail{
			{StudentID: "s001", ClassroomID: 1, GradeCategory: comps[0].ID, Grade: 8},
		},
	}))

	// Midterm gives way to Homework; its grade rows must go with it
	_, err = e.EditCompositions(1, 42, []CompositionInput{
		{Name: "Homework", GradePercent: 40, Index: 0},
		{Name: "Final", GradePercent: 60, Index: 1},
	})
	require.NoError(t, err)

	grades, err := s.ListGradeDetails(1)
	require.NoError(t, err)
	assert.Empty(t, grades)
}

func TestEditCompositionsFinalizeAnnounces(t *testing.T) {
	e, s := newTestEngine(t)
	seedMembers(t, s, 1)

	_, err := e.EditCompositions(1, 42, []CompositionInput{
		{Name: "Midterm", GradePercent: 100, Index: 0},
	})
	require.NoError(t, err)

	_, err = e.EditCompositions(1, 42, []CompositionInput{
		{Name: "Midterm", GradePercent: 100, IsFinalized: true, Index: 0},
	})
	require.NoError(t, err)

	var anns []models.Announcement
	err = s.DB.Select(&anns, `
		SELECT id, classroom_id, created_by, title, description, type, to_members, grade_category, expected_grade
		FROM classroom_announcements
	`)
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, "Grade Midterm is finalized", anns[0].Title)
	assert.Equal(t, models.TypeGradeAnnouncement, anns[0].Type)
	assert.Equal(t, "7,8", anns[0].ToMembers)

	var notes []models.Notification
	err = s.DB.Select(&notes, `
		SELECT id, classroom_id, title, description, type, to_members, announcement_id
		FROM notifications
	`)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Grade Midterm is finalized", notes[0].Title)

	t.Run("unfinalizing announces too", func(t *testing.T) {
		_, err := e.EditCompositions(1, 42, []CompositionInput{
			{Name: "Midterm", GradePercent: 100, Index: 0},
		})
		require.NoError(t, err)

		var titles []string
		err = s.DB.Select(&titles, `SELECT title FROM classroom_announcements ORDER BY id`)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Grade Midterm is finalized",
			"Grade Midterm is closed for editing",
		}, titles)
	})

	t.Run("no flip, no announcement", func(t *testing.T) {
		_, err := e.EditCompositions(1, 42, []CompositionInput{
			{Name: "Midterm", GradePercent: 100, Index: 0},
		})
		require.NoError(t, err)

		var count int
		err = s.DB.Get(&count, `SELECT COUNT(*) FROM classroom_announcements`)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestEditCompositionsIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)

	target := []CompositionInput{
		{Name: "Midterm", GradePercent: 40, Index: 0},
		{Name: "Final", GradePercent: 60, Index: 1},
	}
	first, err := e.EditCompositions(1, 42, target)
	require.NoError(t, err)
	second, err := e.EditCompositions(1, 42, target)
	require.NoError(t, err)

	// same rows, same ids
	assert.Equal(t, first, second)
}
