package models

import (
	"github.com/go-playground/validator/v10"
)

// GradeComposition is one weighted grading category of a classroom, e.g.
// Midterm at 40%. Names and indexes are unique per classroom and the percents
// of a classroom always sum to 100. IsFinalized gates student visibility of
// the grades filed under this composition.
type GradeComposition struct {
	ID           int64  `db:"id" json:"id"`
	ClassroomID  int64  `db:"classroom_id" json:"classroom_id"`
	Name         string `db:"name" json:"name" validate:"required"`
	GradePercent int    `db:"grade_percent" json:"grade_percent" validate:"min=0,max=100"`
	IsFinalized  bool   `db:"is_finalized" json:"is_finalized"`
	Index        int    `db:"idx" json:"index" validate:"min=0"`
}

func (c *GradeComposition) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}
