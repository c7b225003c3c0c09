package models

// Member roles are ordinal: a teacher can do everything a student can.
const (
	RoleStudent = 1
	RoleTeacher = 2
	RoleOwner   = 3
	RoleAdmin   = 4
)

// ClassroomMember ties a user account to a classroom with a role. The
// reconciliation engine only consumes this table through the role predicates;
// membership management itself lives elsewhere.
type ClassroomMember struct {
	ClassroomID int64 `db:"classroom_id" json:"classroom_id"`
	MemberID    int64 `db:"member_id" json:"member_id"`
	MemberRole  int   `db:"member_role" json:"member_role"`
}
