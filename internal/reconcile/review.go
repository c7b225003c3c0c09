package reconcile

import (
	"fmt"

	"github.com/klurigast/griffel/internal/models"
)

// ReviewInput is a student's request to have one composition's grade looked
// at again.
type ReviewInput struct {
	StudentName   string  `json:"student_name" validate:"required"`
	GradeCategory int64   `json:"grade_category" validate:"required"`
	ExpectedGrade float64 `json:"expected_grade" validate:"min=0,max=10"`
	Explanation   string  `json:"explanation"`
}

// CreateGradeReview files a grade review announcement addressed to every
// teacher of the classroom and mirrors it as a notification. A second review
// by the same student for the same composition replaces the first instead of
// stacking.
func (e *Engine) CreateGradeReview(classroomID, creatorID int64, in ReviewInput) (*models.Announcement, error) {
	comp, err := e.store.GetComposition(classroomID, in.GradeCategory)
	if err != nil {
		return nil, internal(err)
	}
	if comp == nil {
		return nil, notFoundf(CodeInvalidComposition,
			"composition %d does not belong to classroom %d", in.GradeCategory, classroomID)
	}

	teachers, err := e.store.ListTeacherMemberIDs(classroomID)
	if err != nil {
		return nil, internal(err)
	}
	toMembers := models.JoinMemberIDs(teachers)

	title := fmt.Sprintf("%s needs to review grade for %q", in.StudentName, comp.Name)
	expected := in.ExpectedGrade

	existing, err := e.store.FindGradeReview(classroomID, in.GradeCategory, creatorID)
	if err != nil {
		return nil, internal(err)
	}
	if existing != nil {
		if err := e.store.UpdateGradeReview(existing.ID, in.Explanation, expected, toMembers); err != nil {
			return nil, internal(err)
		}
		existing.Description = in.Explanation
		existing.ExpectedGrade = &expected
		existing.ToMembers = toMembers
		return existing, nil
	}

	ann := &models.Announcement{
		ClassroomID:   classroomID,
		CreatedBy:     creatorID,
		Title:         title,
		Description:   in.Explanation,
		Type:          models.TypeGradeReview,
		ToMembers:     toMembers,
		GradeCategory: in.GradeCategory,
		ExpectedGrade: &expected,
	}
	if err := e.store.CreateAnnouncement(ann); err != nil {
		return nil, internal(err)
	}

	note := &models.Notification{
		ClassroomID:    classroomID,
		Title:          title,
		Description:    in.Explanation,
		Type:           models.TypeGradeReview,
		ToMembers:      toMembers,
		AnnouncementID: &ann.ID,
	}
	if err := e.store.CreateNotification(note); err != nil {
		return nil, internal(err)
	}
	return ann, nil
}
