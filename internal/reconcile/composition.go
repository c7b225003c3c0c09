package reconcile

import (
	"fmt"

	"github.com/klurigast/griffel/internal/metrics"
	"github.com/klurigast/griffel/internal/models"
	"github.com/klurigast/griffel/internal/scoring"
	"github.com/klurigast/griffel/internal/store"
)

// CompositionInput is one target composition in a bulk edit.
type CompositionInput struct {
	Name         string `json:"name" validate:"required"`
	GradePercent int    `json:"grade_percent" validate:"min=0,max=100"`
	IsFinalized  bool   `json:"is_finalized"`
	Index        int    `json:"index" validate:"min=0"`
}

// EditCompositions replaces a classroom's grading scheme with the target
// set, diffed by name. Validation happens before any storage read: duplicate
// names or indexes and a weight total other than 100 reject the whole edit.
// Every finalized-flag flip emits one announcement and one notification to
// the classroom's students, committed in the same transaction as the edit.
func (e *Engine) EditCompositions(classroomID, editorID int64, target []CompositionInput) ([]models.GradeComposition, error) {
	if len(target) == 0 {
		return nil, validationf(CodeInvalidWeights, "grade composition list is empty")
	}

	nameSeen := make(map[string]bool)
	indexSeen := make(map[int]bool)
	percents := make([]int, 0, len(target))
	for _, comp := range target {
		if comp.Name == "" {
			return nil, validationf(CodeInvalidFormat, "grade composition name is empty")
		}
		if nameSeen[comp.Name] {
			return nil, validationf(CodeDuplicateInBatch,
				"grade composition name %s is duplicated", comp.Name)
		}
		if indexSeen[comp.Index] {
			return nil, validationf(CodeDuplicateInBatch,
				"grade composition index %d is duplicated", comp.Index)
		}
		nameSeen[comp.Name] = true
		indexSeen[comp.Index] = true
		percents = append(percents, comp.GradePercent)
	}
	if total := scoring.SumPercents(percents); total != scoring.TotalWeight {
		return nil, validationf(CodeInvalidWeights,
			"grade composition total is %d instead of %d", total, scoring.TotalWeight)
	}

	current, err := e.store.ListCompositions(classroomID)
	if err != nil {
		return nil, internal(err)
	}
	currentByName := make(map[string]models.GradeComposition, len(current))
	for _, comp := range current {
		currentByName[comp.Name] = comp
	}

	batch := store.CompositionBatch{ClassroomID: classroomID}
	var flips []models.GradeComposition

	targetNames := make(map[string]bool, len(target))
	for _, comp := range target {
		targetNames[comp.Name] = true
	}
	for _, comp := range current {
		if !targetNames[comp.Name] {
			batch.Deletes = append(batch.Deletes, comp.ID)
		}
	}

	for _, comp := range target {
		cur, ok := currentByName[comp.Name]
		if !ok {
			batch.Creates = append(batch.Creates, models.GradeComposition{
				ClassroomID:  classroomID,
				Name:         comp.Name,
				GradePercent: comp.GradePercent,
				IsFinalized:  comp.IsFinalized,
				Index:        comp.Index,
			})
			continue
		}

		upd := cur
		upd.GradePercent = comp.GradePercent
		upd.IsFinalized = comp.IsFinalized
		upd.Index = comp.Index
		if upd != cur {
			batch.Updates = append(batch.Updates, upd)
		}
		if upd.IsFinalized != cur.IsFinalized {
			flips = append(flips, upd)
		}
	}

	if len(flips) > 0 {
		studentIDs, err := e.store.ListStudentMemberIDs(classroomID)
		if err != nil {
			return nil, internal(err)
		}
		to := models.JoinMemberIDs(studentIDs)

		for _, comp := range flips {
			title := fmt.Sprintf("Grade %s is closed for editing", comp.Name)
			if comp.IsFinalized {
				title = fmt.Sprintf("Grade %s is finalized", comp.Name)
			}
			batch.Announcements = append(batch.Announcements, models.Announcement{
				ClassroomID:   classroomID,
				CreatedBy:     editorID,
				Title:         title,
				Description:   title,
				Type:          models.TypeGradeAnnouncement,
				ToMembers:     to,
				GradeCategory: comp.ID,
			})
			batch.Notifications = append(batch.Notifications, models.Notification{
				ClassroomID: classroomID,
				Title:       title,
				Type:        models.TypeGradeAnnouncement,
				ToMembers:   to,
			})
		}
	}

	if !batch.Empty() {
		if err := e.store.ApplyCompositionBatch(batch); err != nil {
			return nil, internal(err)
		}
	}

	observeRows("compositions", len(batch.Creates), len(batch.Updates), len(batch.Deletes), 0)
	metrics.FinalizeFlipsTotal.Add(float64(len(flips)))

	comps, err := e.store.ListCompositions(classroomID)
	if err != nil {
		return nil, internal(err)
	}
	return comps, nil
}
