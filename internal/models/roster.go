package models

import (
	"github.com/go-playground/validator/v10"
)

// MaxStudentIDLength bounds every student id that enters the roster or the
// reservation table.
const MaxStudentIDLength = 10

// RosterEntry is one student on a classroom's grade list. StudentID may be
// empty until the teacher assigns one; once set it must hold a reservation in
// the global reserved_student_ids table.
type RosterEntry struct {
	ID          int64  `db:"id" json:"id"`
	ClassroomID int64  `db:"classroom_id" json:"classroom_id"`
	Name        string `db:"name" json:"name" validate:"required"`
	StudentID   string `db:"student_id" json:"student_id" validate:"max=10"`
	Email       string `db:"email" json:"email" validate:"omitempty,email"`
}

// ReservedStudentID is a global claim on a student id. A row exists here iff
// some live roster entry uses that id, in any classroom.
type ReservedStudentID struct {
	StudentID string `db:"student_id" json:"student_id" validate:"required,max=10"`
}

func (e *RosterEntry) Validate() error {
	validate := validator.New()
	return validate.Struct(e)
}
