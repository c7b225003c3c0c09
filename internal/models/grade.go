package models

import (
	"github.com/go-playground/validator/v10"
)

// GradeDetail is one grade cell, unique per
// (student_id, classroom_id, grade_category).
type GradeDetail struct {
	StudentID     string  `db:"student_id" json:"student_id" validate:"required,max=10"`
	ClassroomID   int64   `db:"classroom_id" json:"classroom_id"`
	GradeCategory int64   `db:"grade_category" json:"grade_category"`
	Grade         float64 `db:"grade" json:"grade" validate:"min=0,max=10"`
}

func (d *GradeDetail) Validate() error {
	validate := validator.New()
	return validate.Struct(d)
}
