package reconcile

import (
	"github.com/klurigast/griffel/internal/models"
	"github.com/klurigast/griffel/internal/store"
)

// RemapInput asks for the roster entry matching (name, email) to be moved to
// a new student id.
type RemapInput struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	StudentID string `json:"student_id" validate:"required,max=10"`
}

// RemapStudentIDs reassigns student ids for existing roster entries. Each
// applied entry atomically reserves the new id, rewrites the roster row and
// every grade row carrying the old id, then releases the old reservation.
func (e *Engine) RemapStudentIDs(classroomID int64, inputs []RemapInput) (*RemapResult, error) {
	targets := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if in.StudentID == "" {
			continue
		}
		if targets[in.StudentID] {
			return nil, conflictf(CodeDuplicateInBatch,
				"student id %s is a remap target twice", in.StudentID)
		}
		targets[in.StudentID] = true
	}

	roster, err := e.store.ListRoster(classroomID)
	if err != nil {
		return nil, internal(err)
	}
	reserved, err := e.store.ListReservedStudentIDs()
	if err != nil {
		return nil, internal(err)
	}

	batch, result := diffRemap(classroomID, roster, toSet(reserved), inputs)
	if len(batch.Remaps) > 0 {
		if err := e.store.ApplyRemapBatch(batch); err != nil {
			return nil, internal(err)
		}
	}

	observeRows("remap", 0, len(batch.Remaps), 0, len(result.Failed))
	return result, nil
}

func diffRemap(classroomID int64, roster []models.RosterEntry, reserved map[string]bool, inputs []RemapInput) (store.RemapBatch, *RemapResult) {
	batch := store.RemapBatch{ClassroomID: classroomID}
	result := &RemapResult{}

	type identity struct{ name, email string }
	byIdentity := make(map[identity]models.RosterEntry, len(roster))
	for _, entry := range roster {
		byIdentity[identity{entry.Name, entry.Email}] = entry
	}

	avail := make(map[string]bool, len(reserved))
	for id := range reserved {
		avail[id] = true
	}

	for _, in := range inputs {
		fail := func(reason string) {
			result.Failed = append(result.Failed, FailedRow{
				Name: in.Name, StudentID: in.StudentID, Email: in.Email,
				Reason: reason,
			})
		}
		if in.Name == "" || in.Email == "" || in.StudentID == "" {
			fail(ReasonMissingRequiredField)
			continue
		}
		if len(in.StudentID) > models.MaxStudentIDLength {
			fail(ReasonStudentIdTooLong)
			continue
		}
		cur, ok := byIdentity[identity{in.Name, in.Email}]
		if !ok {
			fail(ReasonStudentNotInRosterList)
			continue
		}
		if cur.StudentID == in.StudentID {
			// already holds the requested id
			result.Success = append(result.Success, cur)
			continue
		}
		if avail[in.StudentID] {
			fail(ReasonStudentIdAlreadyReserved)
			continue
		}

		batch.Remaps = append(batch.Remaps, store.RemapEntry{
			EntryID:      cur.ID,
			ClassroomID:  classroomID,
			OldStudentID: cur.StudentID,
			NewStudentID: in.StudentID,
		})
		avail[in.StudentID] = true
		delete(avail, cur.StudentID)

		cur.StudentID = in.StudentID
		byIdentity[identity{in.Name, in.Email}] = cur
		result.Success = append(result.Success, cur)
	}

	return batch, result
}
