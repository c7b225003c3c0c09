package reconcile

import (
	"github.com/klurigast/griffel/internal/models"
	"github.com/klurigast/griffel/internal/scoring"
	"github.com/klurigast/griffel/internal/store"
)

// BoardCell is one composition's grade for one student. Grade is nil when
// the composition is hidden from the viewer or no grade row exists yet.
type BoardCell struct {
	GradeCategory int64    `json:"grade_category"`
	Name          string   `json:"name"`
	GradePercent  int      `json:"grade_percent"`
	IsFinalized   bool     `json:"is_finalized"`
	Grade         *float64 `json:"grade"`
}

type BoardRow struct {
	StudentID string      `json:"student_id"`
	Name      string      `json:"name"`
	Email     string      `json:"email,omitempty"`
	Grades    []BoardCell `json:"grades"`
	Overall   float64     `json:"overall"`
}

// GradeBoard assembles the full roster x composition matrix for the teacher
// view. Missing grade rows count as zero toward the weighted overall.
func (e *Engine) GradeBoard(classroomID int64) ([]BoardRow, error) {
	roster, comps, gradeByKey, err := e.loadBoard(classroomID)
	if err != nil {
		return nil, err
	}

	rows := make([]BoardRow, 0, len(roster))
	for _, entry := range roster {
		rows = append(rows, boardRow(entry, comps, gradeByKey, false))
	}
	return rows, nil
}

// StudentGradeBoard assembles the board row of the roster entry matching the
// viewer's email. Grades of unfinalized compositions are withheld and do not
// count toward the overall.
func (e *Engine) StudentGradeBoard(classroomID int64, email string) (*BoardRow, error) {
	entry, err := e.store.FindRosterEntryByEmail(classroomID, email)
	if err != nil {
		return nil, internal(err)
	}
	if entry == nil {
		return nil, notFoundf(ReasonStudentNotInRosterList,
			"no roster entry matches email %s", email)
	}

	_, comps, gradeByKey, err := e.loadBoard(classroomID)
	if err != nil {
		return nil, err
	}
	row := boardRow(*entry, comps, gradeByKey, true)
	return &row, nil
}

func (e *Engine) loadBoard(classroomID int64) ([]models.RosterEntry, []models.GradeComposition, map[store.GradeKey]models.GradeDetail, error) {
	roster, err := e.store.ListRoster(classroomID)
	if err != nil {
		return nil, nil, nil, internal(err)
	}
	comps, err := e.store.ListCompositions(classroomID)
	if err != nil {
		return nil, nil, nil, internal(err)
	}
	grades, err := e.store.ListGradeDetails(classroomID)
	if err != nil {
		return nil, nil, nil, internal(err)
	}
	gradeByKey := make(map[store.GradeKey]models.GradeDetail, len(grades))
	for _, g := range grades {
		gradeByKey[store.GradeKey{StudentID: g.StudentID, GradeCategory: g.GradeCategory}] = g
	}
	return roster, comps, gradeByKey, nil
}

func boardRow(entry models.RosterEntry, comps []models.GradeComposition, gradeByKey map[store.GradeKey]models.GradeDetail, finalizedOnly bool) BoardRow {
	row := BoardRow{
		StudentID: entry.StudentID,
		Name:      entry.Name,
		Email:     entry.Email,
		Grades:    make([]BoardCell, 0, len(comps)),
	}
	weighted := make([]scoring.WeightedGrade, 0, len(comps))
	for _, comp := range comps {
		cell := BoardCell{
			GradeCategory: comp.ID,
			Name:          comp.Name,
			GradePercent:  comp.GradePercent,
			IsFinalized:   comp.IsFinalized,
		}
		visible := !finalizedOnly || comp.IsFinalized
		if visible {
			grade := 0.0
			if g, ok := gradeByKey[store.GradeKey{StudentID: entry.StudentID, GradeCategory: comp.ID}]; ok {
				grade = g.Grade
			}
			cell.Grade = &grade
			weighted = append(weighted, scoring.WeightedGrade{Grade: grade, Percent: comp.GradePercent})
		}
		row.Grades = append(row.Grades, cell)
	}
	row.Overall = scoring.Overall(weighted)
	return row
}
