package reconcile

import (
	"errors"
	"fmt"
)

// Kind separates "your data was invalid" from "the system failed" so callers
// can map failures to the right status without string matching.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindNotFound
	KindInternal
)

// Stable codes reported for batch-wide rejections and per-row failures.
const (
	CodeInvalidFormat      = "InvalidFormat"
	CodeDuplicateInBatch   = "DuplicateInBatch"
	CodeInvalidComposition = "InvalidComposition"
	CodeInvalidWeights     = "InvalidWeights"

	ReasonMissingRequiredField     = "MissingRequiredField"
	ReasonStudentIdTooLong         = "StudentIdTooLong"
	ReasonStudentIdAlreadyReserved = "StudentIdAlreadyReserved"
	ReasonStudentNotInRosterList   = "StudentNotInRosterList"
	ReasonGradeOutOfRange          = "GradeOutOfRange"
)

// Error is the failure type every engine operation returns on batch-wide
// rejection. Per-row failures go into the result's Failed list instead.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationf(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(code, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func internal(err error) *Error {
	return &Error{Kind: KindInternal, Err: err}
}

// KindOf classifies any error; unknown errors are internal failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code of an engine error, or "" for plain errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
