package reconcile

import (
	"strconv"
	"strings"

	"github.com/klurigast/griffel/internal/metrics"
	"github.com/klurigast/griffel/internal/models"
	"github.com/klurigast/griffel/internal/scoring"
	"github.com/klurigast/griffel/internal/sheet"
	"github.com/klurigast/griffel/internal/store"
)

// SyncGradesForComposition reconciles the grade rows of one composition
// against an uploaded grade list. Grade rows whose student is absent from
// the upload are deleted; identities not yet on the roster are auto-added
// with a global reservation before their grade row is created.
func (e *Engine) SyncGradesForComposition(classroomID, compositionID int64, incoming []sheet.GradeRow) (*GradeSyncResult, error) {
	comp, err := e.store.GetComposition(classroomID, compositionID)
	if err != nil {
		return nil, internal(err)
	}
	if comp == nil {
		return nil, notFoundf(CodeInvalidComposition,
			"composition %d does not belong to classroom %d", compositionID, classroomID)
	}

	if err := screenGradeBatch(incoming); err != nil {
		return nil, err
	}

	grades, err := e.store.ListCompositionGrades(classroomID, compositionID)
	if err != nil {
		return nil, internal(err)
	}
	roster, err := e.store.ListRoster(classroomID)
	if err != nil {
		return nil, internal(err)
	}
	reserved, err := e.store.ListReservedStudentIDs()
	if err != nil {
		return nil, internal(err)
	}

	batch, result := diffCompositionGrades(classroomID, compositionID, grades, roster, toSet(reserved), incoming)
	if !batch.Empty() {
		if err := e.store.ApplyGradeBatch(batch); err != nil {
			return nil, internal(err)
		}
	}

	for _, g := range batch.Upserts {
		metrics.GradeHistogram.WithLabelValues("composition_sync").Observe(g.Grade)
	}
	observeRows("grades", len(batch.RosterCreates), len(batch.Upserts), len(batch.Deletes), len(result.Failed))
	return result, nil
}

// screenGradeBatch rejects uploads that carry the same student twice, either
// as a repeated (name, student id) pair or a repeated student id.
func screenGradeBatch(incoming []sheet.GradeRow) error {
	namePair := make(map[string]string)
	idSeen := make(map[string]bool)
	for _, row := range incoming {
		if prev, ok := namePair[row.Name]; ok && prev == row.StudentID {
			return conflictf(CodeDuplicateInBatch,
				"student name %s with id %s appears twice", row.Name, row.StudentID)
		}
		if row.StudentID != "" {
			if idSeen[row.StudentID] {
				return conflictf(CodeDuplicateInBatch,
					"student id %s appears twice", row.StudentID)
			}
			idSeen[row.StudentID] = true
		}
		namePair[row.Name] = row.StudentID
	}
	return nil
}

func diffCompositionGrades(classroomID, compositionID int64, grades []models.GradeDetail, roster []models.RosterEntry, reserved map[string]bool, incoming []sheet.GradeRow) (store.GradeBatch, *GradeSyncResult) {
	batch := store.GradeBatch{ClassroomID: classroomID}
	result := &GradeSyncResult{}

	gradeByStudent := make(map[string]models.GradeDetail, len(grades))
	for _, g := range grades {
		gradeByStudent[g.StudentID] = g
	}
	rosterByID := make(map[string]models.RosterEntry, len(roster))
	emailOwner := make(map[string]string)
	for _, entry := range roster {
		if entry.StudentID != "" {
			rosterByID[entry.StudentID] = entry
		}
		if entry.Email != "" {
			emailOwner[entry.Email] = entry.StudentID
		}
	}

	incomingIDs := make(map[string]bool, len(incoming))
	for _, row := range incoming {
		if row.StudentID != "" {
			incomingIDs[row.StudentID] = true
		}
	}
	for _, g := range grades {
		if !incomingIDs[g.StudentID] {
			batch.Deletes = append(batch.Deletes, store.GradeKey{
				StudentID:     g.StudentID,
				GradeCategory: compositionID,
			})
		}
	}

	avail := make(map[string]bool, len(reserved))
	for id := range reserved {
		avail[id] = true
	}

	for _, row := range incoming {
		if row.Name == "" || row.StudentID == "" {
			result.Failed = append(result.Failed, failedGrade(row, ReasonMissingRequiredField))
			continue
		}
		if len(row.StudentID) > models.MaxStudentIDLength {
			result.Failed = append(result.Failed, failedGrade(row, ReasonStudentIdTooLong))
			continue
		}
		grade, err := strconv.ParseFloat(strings.TrimSpace(row.Grade), 64)
		if err != nil || !scoring.InRange(grade) {
			result.Failed = append(result.Failed, failedGrade(row, ReasonGradeOutOfRange))
			continue
		}

		if _, onRoster := rosterByID[row.StudentID]; !onRoster {
			// auto-add, subject to the same global uniqueness rule as a
			// roster upload
			if owner, ok := emailOwner[row.Email]; ok && row.Email != "" && owner != row.StudentID {
				result.Failed = append(result.Failed, failedGrade(row, ReasonStudentNotInRosterList))
				continue
			}
			if avail[row.StudentID] {
				result.Failed = append(result.Failed, failedGrade(row, ReasonStudentIdAlreadyReserved))
				continue
			}
			entry := models.RosterEntry{
				ClassroomID: classroomID,
				Name:        row.Name,
				StudentID:   row.StudentID,
				Email:       row.Email,
			}
			batch.Reserves = append(batch.Reserves, row.StudentID)
			avail[row.StudentID] = true
			batch.RosterCreates = append(batch.RosterCreates, entry)
			rosterByID[row.StudentID] = entry
		}

		detail := models.GradeDetail{
			StudentID:     row.StudentID,
			ClassroomID:   classroomID,
			GradeCategory: compositionID,
			Grade:         grade,
		}
		if cur, ok := gradeByStudent[row.StudentID]; ok && cur.Grade == grade {
			result.Success = append(result.Success, cur)
			continue
		}
		batch.Upserts = append(batch.Upserts, detail)
		result.Success = append(result.Success, detail)
	}

	return batch, result
}

// SyncGradeBoard reconciles the full student x composition grade matrix of a
// classroom against an uploaded grade board. Grade rows of students absent
// from the upload are deleted across all compositions; blank cells leave the
// stored value untouched.
func (e *Engine) SyncGradeBoard(classroomID int64, incoming []sheet.BoardRow) (*GradeSyncResult, error) {
	comps, err := e.store.ListCompositions(classroomID)
	if err != nil {
		return nil, internal(err)
	}

	if err := screenBoardBatch(incoming); err != nil {
		return nil, err
	}

	grades, err := e.store.ListGradeDetails(classroomID)
	if err != nil {
		return nil, internal(err)
	}
	roster, err := e.store.ListRoster(classroomID)
	if err != nil {
		return nil, internal(err)
	}
	reserved, err := e.store.ListReservedStudentIDs()
	if err != nil {
		return nil, internal(err)
	}

	batch, result := diffGradeBoard(classroomID, comps, grades, roster, toSet(reserved), incoming)
	if !batch.Empty() {
		if err := e.store.ApplyGradeBatch(batch); err != nil {
			return nil, internal(err)
		}
	}

	for _, g := range batch.Upserts {
		metrics.GradeHistogram.WithLabelValues("board_sync").Observe(g.Grade)
	}
	observeRows("board", len(batch.RosterCreates), len(batch.Upserts), len(batch.Deletes), len(result.Failed))
	return result, nil
}

func screenBoardBatch(incoming []sheet.BoardRow) error {
	rows := make([]sheet.RosterRow, 0, len(incoming))
	for _, row := range incoming {
		rows = append(rows, sheet.RosterRow{Name: row.Name, StudentID: row.StudentID, Email: row.Email})
	}
	return screenRosterBatch(rows)
}

func diffGradeBoard(classroomID int64, comps []models.GradeComposition, grades []models.GradeDetail, roster []models.RosterEntry, reserved map[string]bool, incoming []sheet.BoardRow) (store.GradeBatch, *GradeSyncResult) {
	batch := store.GradeBatch{ClassroomID: classroomID}
	result := &GradeSyncResult{}

	compByName := make(map[string]models.GradeComposition, len(comps))
	for _, comp := range comps {
		compByName[comp.Name] = comp
	}
	gradeByKey := make(map[store.GradeKey]models.GradeDetail, len(grades))
	for _, g := range grades {
		gradeByKey[store.GradeKey{StudentID: g.StudentID, GradeCategory: g.GradeCategory}] = g
	}
	rosterByID := make(map[string]models.RosterEntry, len(roster))
	emailOwner := make(map[string]string)
	for _, entry := range roster {
		if entry.StudentID != "" {
			rosterByID[entry.StudentID] = entry
		}
		if entry.Email != "" {
			emailOwner[entry.Email] = entry.StudentID
		}
	}

	incomingIDs := make(map[string]bool, len(incoming))
	for _, row := range incoming {
		if row.StudentID != "" {
			incomingIDs[row.StudentID] = true
		}
	}
	for _, g := range grades {
		if !incomingIDs[g.StudentID] {
			batch.Deletes = append(batch.Deletes, store.GradeKey{
				StudentID:     g.StudentID,
				GradeCategory: g.GradeCategory,
			})
		}
	}

	avail := make(map[string]bool, len(reserved))
	for id := range reserved {
		avail[id] = true
	}

	for _, row := range incoming {
		if row.Name == "" || row.StudentID == "" {
			result.Failed = append(result.Failed, FailedRow{
				Name: row.Name, StudentID: row.StudentID, Email: row.Email,
				Reason: ReasonMissingRequiredField,
			})
			continue
		}
		if len(row.StudentID) > models.MaxStudentIDLength {
			result.Failed = append(result.Failed, FailedRow{
				Name: row.Name, StudentID: row.StudentID, Email: row.Email,
				Reason: ReasonStudentIdTooLong,
			})
			continue
		}

		if _, onRoster := rosterByID[row.StudentID]; !onRoster {
			if owner, ok := emailOwner[row.Email]; ok && row.Email != "" && owner != row.StudentID {
				result.Failed = append(result.Failed, FailedRow{
					Name: row.Name, StudentID: row.StudentID, Email: row.Email,
					Reason: ReasonStudentNotInRosterList,
				})
				continue
			}
			if avail[row.StudentID] {
				result.Failed = append(result.Failed, FailedRow{
					Name: row.Name, StudentID: row.StudentID, Email: row.Email,
					Reason: ReasonStudentIdAlreadyReserved,
				})
				continue
			}
			entry := models.RosterEntry{
				ClassroomID: classroomID,
				Name:        row.Name,
				StudentID:   row.StudentID,
				Email:       row.Email,
			}
			batch.Reserves = append(batch.Reserves, row.StudentID)
			avail[row.StudentID] = true
			batch.RosterCreates = append(batch.RosterCreates, entry)
			rosterByID[row.StudentID] = entry
		}

		for name, cell := range row.Grades {
			comp, ok := compByName[name]
			if !ok {
				continue
			}
			grade, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil || !scoring.InRange(grade) {
				result.Failed = append(result.Failed, FailedRow{
					Name: row.Name, StudentID: row.StudentID, Email: row.Email,
					Grade: cell, Reason: ReasonGradeOutOfRange,
				})
				continue
			}

			detail := models.GradeDetail{
				StudentID:     row.StudentID,
				ClassroomID:   classroomID,
				GradeCategory: comp.ID,
				Grade:         grade,
			}
			key := store.GradeKey{StudentID: row.StudentID, GradeCategory: comp.ID}
			if cur, ok := gradeByKey[key]; ok && cur.Grade == grade {
				result.Success = append(result.Success, cur)
				continue
			}
			batch.Upserts = append(batch.Upserts, detail)
			result.Success = append(result.Success, detail)
		}
	}

	return batch, result
}

// GradeInput is one structured grade assignment from the JSON edit surface.
type GradeInput struct {
	StudentID string  `json:"student_id" validate:"required,max=10"`
	Grade     float64 `json:"grade" validate:"min=0,max=10"`
}

// EditGrades upserts grades for known roster students under one composition.
// Unlike the spreadsheet syncs it never deletes and never auto-adds: a
// student id not on the roster is a per-row failure.
func (e *Engine) EditGrades(classroomID, compositionID int64, inputs []GradeInput) (*GradeSyncResult, error) {
	comp, err := e.store.GetComposition(classroomID, compositionID)
	if err != nil {
		return nil, internal(err)
	}
	if comp == nil {
		return nil, notFoundf(CodeInvalidComposition,
			"composition %d does not belong to classroom %d", compositionID, classroomID)
	}

	roster, err := e.store.ListRoster(classroomID)
	if err != nil {
		return nil, internal(err)
	}
	onRoster := make(map[string]bool, len(roster))
	for _, entry := range roster {
		if entry.StudentID != "" {
			onRoster[entry.StudentID] = true
		}
	}

	batch := store.GradeBatch{ClassroomID: classroomID}
	result := &GradeSyncResult{}
	for _, in := range inputs {
		if in.StudentID == "" {
			result.Failed = append(result.Failed, FailedRow{Reason: ReasonMissingRequiredField})
			continue
		}
		if !scoring.InRange(in.Grade) {
			result.Failed = append(result.Failed, FailedRow{
				StudentID: in.StudentID,
				Grade:     strconv.FormatFloat(in.Grade, 'f', -1, 64),
				Reason:    ReasonGradeOutOfRange,
			})
			continue
		}
		if !onRoster[in.StudentID] {
			result.Failed = append(result.Failed, FailedRow{
				StudentID: in.StudentID,
				Reason:    ReasonStudentNotInRosterList,
			})
			continue
		}

		detail := models.GradeDetail{
			StudentID:     in.StudentID,
			ClassroomID:   classroomID,
			GradeCategory: compositionID,
			Grade:         in.Grade,
		}
		batch.Upserts = append(batch.Upserts, detail)
		result.Success = append(result.Success, detail)
	}

	if !batch.Empty() {
		if err := e.store.ApplyGradeBatch(batch); err != nil {
			return nil, internal(err)
		}
	}

	for _, g := range batch.Upserts {
		metrics.GradeHistogram.WithLabelValues("edit").Observe(g.Grade)
	}
	observeRows("grade_edit", 0, len(batch.Upserts), 0, len(result.Failed))
	return result, nil
}

func failedGrade(row sheet.GradeRow, reason string) FailedRow {
	return FailedRow{
		Name:      row.Name,
		StudentID: row.StudentID,
		Email:     row.Email,
		Grade:     row.Grade,
		Reason:    reason,
	}
}
