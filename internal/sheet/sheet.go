// Package sheet is the spreadsheet boundary: it turns uploaded .xlsx bytes
// into typed rows after validating the expected headers, and writes typed
// rows back out. Untyped cell maps never leave this package.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrHeaderMismatch means the sheet is missing, or its first row does not
// carry every expected column header.
var ErrHeaderMismatch = errors.New("sheet headers do not match expected columns")

// Sheet names and fixed header sets, preserved verbatim for compatibility
// with spreadsheets produced by the web client.
const (
	RosterSheet = "Student List"
	GradesSheet = "Grade List"
	BoardSheet  = "Grade Board"

	headerName      = "Student Name"
	headerStudentID = "Student ID"
	headerEmail     = "Email"
	headerGrade     = "Student Grade"
	gradePrefix     = "Grade: "
)

var (
	RosterHeaders = []string{headerName, headerStudentID, headerEmail}
	GradeHeaders  = []string{headerName, headerStudentID, headerEmail, headerGrade}
)

// BoardHeaders is the grade board header set for a classroom's composition
// names, one "Grade: <name>" column per composition.
func BoardHeaders(compositionNames []string) []string {
	headers := []string{headerName, headerStudentID, headerEmail}
	for _, name := range compositionNames {
		headers = append(headers, gradePrefix+name)
	}
	return headers
}

// RosterRow is one parsed roster line. Values are raw cell text; the engine
// decides what is valid.
type RosterRow struct {
	Name      string
	StudentID string
	Email     string
}

// GradeRow is one parsed per-composition grade line. Grade stays a string so
// an unparseable cell can be echoed back in the failure report.
type GradeRow struct {
	Name      string
	StudentID string
	Email     string
	Grade     string
}

// BoardRow is one parsed grade board line; Grades maps composition name to
// raw cell text, absent for blank cells.
type BoardRow struct {
	Name      string
	StudentID string
	Email     string
	Grades    map[string]string
}

func ParseRoster(data []byte) ([]RosterRow, error) {
	records, err := parseSheet(data, RosterSheet, RosterHeaders)
	if err != nil {
		return nil, err
	}

	rows := make([]RosterRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, RosterRow{
			Name:      rec[headerName],
			StudentID: rec[headerStudentID],
			Email:     rec[headerEmail],
		})
	}
	return rows, nil
}

func ParseGrades(data []byte) ([]GradeRow, error) {
	records, err := parseSheet(data, GradesSheet, GradeHeaders)
	if err != nil {
		return nil, err
	}

	rows := make([]GradeRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, GradeRow{
			Name:      rec[headerName],
			StudentID: rec[headerStudentID],
			Email:     rec[headerEmail],
			Grade:     rec[headerGrade],
		})
	}
	return rows, nil
}

func ParseBoard(data []byte, compositionNames []string) ([]BoardRow, error) {
	records, err := parseSheet(data, BoardSheet, BoardHeaders(compositionNames))
	if err != nil {
		return nil, err
	}

	rows := make([]BoardRow, 0, len(records))
	for _, rec := range records {
		row := BoardRow{
			Name:      rec[headerName],
			StudentID: rec[headerStudentID],
			Email:     rec[headerEmail],
			Grades:    make(map[string]string),
		}
		for _, name := range compositionNames {
			if cell, ok := rec[gradePrefix+name]; ok && cell != "" {
				row.Grades[name] = cell
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func WriteRoster(rows []RosterRow) ([]byte, error) {
	records := make([][]any, 0, len(rows))
	for _, row := range rows {
		records = append(records, []any{row.Name, row.StudentID, row.Email})
	}
	return writeSheet(RosterSheet, RosterHeaders, records)
}

func WriteGrades(rows []GradeRow) ([]byte, error) {
	records := make([][]any, 0, len(rows))
	for _, row := range rows {
		records = append(records, []any{row.Name, row.StudentID, row.Email, row.Grade})
	}
	return writeSheet(GradesSheet, GradeHeaders, records)
}

func WriteBoard(rows []BoardRow, compositionNames []string) ([]byte, error) {
	records := make([][]any, 0, len(rows))
	for _, row := range rows {
		rec := []any{row.Name, row.StudentID, row.Email}
		for _, name := range compositionNames {
			rec = append(rec, row.Grades[name])
		}
		records = append(records, rec)
	}
	return writeSheet(BoardSheet, BoardHeaders(compositionNames), records)
}

// parseSheet reads the named sheet, validates that the first row carries
// every expected header, and returns one header-keyed record per non-empty
// data row.
func parseSheet(data []byte, sheetName string, expected []string) ([]map[string]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	raw, err := f.GetRows(sheetName)
	if err != nil || len(raw) == 0 {
		return nil, ErrHeaderMismatch
	}

	colByHeader := make(map[string]int)
	for i, header := range raw[0] {
		colByHeader[strings.TrimSpace(header)] = i
	}
	for _, header := range expected {
		if _, ok := colByHeader[header]; !ok {
			return nil, ErrHeaderMismatch
		}
	}

	var records []map[string]string
	for _, line := range raw[1:] {
		rec := make(map[string]string)
		empty := true
		for header, col := range colByHeader {
			if col >= len(line) {
				continue
			}
			value := strings.TrimSpace(line[col])
			if value != "" {
				empty = false
			}
			rec[header] = value
		}
		if empty {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func writeSheet(sheetName string, headers []string, records [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheetName); err != nil {
		return nil, fmt.Errorf("failed to create sheet %s: %w", sheetName, err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &row); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheetName, cell, &rec); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}
