package models

import (
	"strconv"
	"strings"
)

const (
	TypeGradeAnnouncement = "GRADE_ANNOUNCEMENT"
	TypeGradeReview       = "GRADE_REVIEW"
)

// Announcement is a classroom-scoped message record. Grade reviews are
// announcements of type GRADE_REVIEW carrying an expected grade.
type Announcement struct {
	ID            int64    `db:"id" json:"id"`
	ClassroomID   int64    `db:"classroom_id" json:"classroom_id"`
	CreatedBy     int64    `db:"created_by" json:"created_by"`
	Title         string   `db:"title" json:"title"`
	Description   string   `db:"description" json:"description"`
	Type          string   `db:"type" json:"type"`
	ToMembers     string   `db:"to_members" json:"to_members"`
	GradeCategory int64    `db:"grade_category" json:"grade_category"`
	ExpectedGrade *float64 `db:"expected_grade" json:"expected_grade,omitempty"`
}

// Notification mirrors an announcement towards its recipients. Only grade
// review notifications link back to an announcement row.
type Notification struct {
	ID             int64  `db:"id" json:"id"`
	ClassroomID    int64  `db:"classroom_id" json:"classroom_id"`
	Title          string `db:"title" json:"title"`
	Description    string `db:"description" json:"description"`
	Type           string `db:"type" json:"type"`
	ToMembers      string `db:"to_members" json:"to_members"`
	AnnouncementID *int64 `db:"announcement_id" json:"announcement_id,omitempty"`
}

// JoinMemberIDs renders to_members the way downstream consumers expect it:
// comma-joined, no spaces.
func JoinMemberIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
