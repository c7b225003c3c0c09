package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRosterRoundTrip(t *testing.T) {
	in := []RosterRow{
		{Name: "John Doe", StudentID: "s001", Email: "john@example.com"},
		{Name: "Jane Roe", StudentID: "s002"},
	}

	data, err := WriteRoster(in)
	require.NoError(t, err)

	out, err := ParseRoster(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestGradesRoundTrip(t *testing.T) {
	in := []GradeRow{
		{Name: "John Doe", StudentID: "s001", Email: "john@example.com", Grade: "8"},
		{Name: "Jane Roe", StudentID: "s002", Grade: "9.5"},
	}

	data, err := WriteGrades(in)
	require.NoError(t, err)

	out, err := ParseGrades(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBoardRoundTrip(t *testing.T) {
	names := []string{"Midterm", "Final"}
	in := []BoardRow{
		{
			Name: "John Doe", StudentID: "s001", Email: "john@example.com",
			Grades: map[string]string{"Midterm": "8", "Final": "9"},
		},
		{
			Name: "Jane Roe", StudentID: "s002",
			Grades: map[string]string{"Midterm": "6"},
		},
	}

	data, err := WriteBoard(in, names)
	require.NoError(t, err)

	out, err := ParseBoard(data, names)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParseRejectsWrongHeaders(t *testing.T) {
	t.Run("wrong sheet name", func(t *testing.T) {
		data, err := WriteGrades(nil)
		require.NoError(t, err)

		_, err = ParseRoster(data)
		assert.ErrorIs(t, err, ErrHeaderMismatch)
	})

	t.Run("missing column", func(t *testing.T) {
		f := excelize.NewFile()
		defer f.Close()
		_, err := f.NewSheet(RosterSheet)
		require.NoError(t, err)
		row := []any{"Student Name", "Email"}
		require.NoError(t, f.SetSheetRow(RosterSheet, "A1", &row))
		buf, err := f.WriteToBuffer()
		require.NoError(t, err)

		_, err = ParseRoster(buf.Bytes())
		assert.ErrorIs(t, err, ErrHeaderMismatch)
	})

	t.Run("garbage bytes", func(t *testing.T) {
		_, err := ParseRoster([]byte("not a spreadsheet"))
		assert.Error(t, err)
	})
}

func TestParseSkipsBlankRowsAndTrimsCells(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet(RosterSheet)
	require.NoError(t, err)

	rows := [][]any{
		{"Student Name", "Student ID", "Email"},
		{"  John Doe ", " s001", ""},
		{"", "", ""},
		{"Jane Roe", "s002", " jane@example.com "},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(RosterSheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	out, err := ParseRoster(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []RosterRow{
		{Name: "John Doe", StudentID: "s001"},
		{Name: "Jane Roe", StudentID: "s002", Email: "jane@example.com"},
	}, out)
}

func TestBoardHeaders(t *testing.T) {
	headers := BoardHeaders([]string{"Midterm", "Final"})
	assert.Equal(t, []string{
		"Student Name", "Student ID", "Email",
		"Grade: Midterm", "Grade: Final",
	}, headers)
}
