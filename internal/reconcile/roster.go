package reconcile

import (
	"github.com/klurigast/griffel/internal/models"
	"github.com/klurigast/griffel/internal/sheet"
	"github.com/klurigast/griffel/internal/store"
)

// SyncRoster reconciles a classroom's roster against an uploaded student
// list. Entries absent from the upload are removed and their reservations
// released; matched entries are updated; new identities are created with a
// fresh global reservation. Rejected rows are reported individually, the
// accepted remainder commits in one transaction.
func (e *Engine) SyncRoster(classroomID int64, incoming []sheet.RosterRow) (*RosterSyncResult, error) {
	if err := screenRosterBatch(incoming); err != nil {
		return nil, err
	}

	current, err := e.store.ListRoster(classroomID)
	if err != nil {
		return nil, internal(err)
	}
	reserved, err := e.store.ListReservedStudentIDs()
	if err != nil {
		return nil, internal(err)
	}

	batch, result := diffRoster(classroomID, current, toSet(reserved), incoming)
	if !batch.Empty() {
		if err := e.store.ApplyRosterBatch(batch); err != nil {
			return nil, internal(err)
		}
	}

	observeRows("roster", len(batch.Creates), len(batch.Updates), len(batch.Deletes), len(result.Failed))
	return result, nil
}

// screenRosterBatch rejects the whole upload on intra-batch collisions:
// repeated (name, student id) pairs, repeated student ids, repeated emails.
// Rows with a blank student id are exempt from the id check.
func screenRosterBatch(incoming []sheet.RosterRow) error {
	namePair := make(map[string]string)
	idSeen := make(map[string]bool)
	emailSeen := make(map[string]bool)

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
		if row.Email != "" {
			if emailSeen[row.Email] {
				return conflictf(CodeDuplicateInBatch,
					"email %s appears twice", row.Email)
			}
			emailSeen[row.Email] = true
		}
		namePair[row.Name] = row.StudentID
	}
	return nil
}

// diffRoster computes the staged mutations for one roster sync. It is pure:
// given the same store state and upload it always produces the same batch,
// and a re-upload of already-synced data produces an empty one.
func diffRoster(classroomID int64, current []models.RosterEntry, reserved map[string]bool, incoming []sheet.RosterRow) (store.RosterBatch, *RosterSyncResult) {
	batch := store.RosterBatch{ClassroomID: classroomID}
	result := &RosterSyncResult{}

	currentByID := make(map[string]models.RosterEntry)
	currentByEmail := make(map[string]models.RosterEntry)
	for _, entry := range current {
		if entry.StudentID != "" {
			currentByID[entry.StudentID] = entry
		}
		if entry.Email != "" {
			currentByEmail[entry.Email] = entry
		}
	}

	// claimed marks current entries some upload row refers to, by id or by
	// email. Unclaimed entries are the ones to delete. Id matches always win
	// over email matches, so they are settled first.
	claimedByID := make(map[int64]bool)
	for _, row := range incoming {
		if row.StudentID == "" {
			continue
		}
		if cur, ok := currentByID[row.StudentID]; ok {
			claimedByID[cur.ID] = true
		}
	}
	claimed := make(map[int64]bool, len(claimedByID))
	for id := range claimedByID {
		claimed[id] = true
	}
	for _, row := range incoming {
		if row.Email == "" {
			continue
		}
		if _, ok := currentByID[row.StudentID]; ok {
			continue
		}
		if cur, ok := currentByEmail[row.Email]; ok && !claimedByID[cur.ID] {
			claimed[cur.ID] = true
		}
	}

	// avail tracks which ids hold a live reservation as the staged batch
	// executes: releases free them up front, reserves claim them in turn.
	avail := make(map[string]bool, len(reserved))
	for id := range reserved {
		avail[id] = true
	}

	for _, entry := range current {
		if claimed[entry.ID] {
			continue
		}
		batch.Deletes = append(batch.Deletes, entry)
		if reserved[entry.StudentID] {
			batch.Releases = append(batch.Releases, entry.StudentID)
			delete(avail, entry.StudentID)
		}
	}

	for _, row := range incoming {
		if row.Name == "" || row.StudentID == "" {
			result.Failed = append(result.Failed, failedRoster(row, ReasonMissingRequiredField))
			continue
		}
		if len(row.StudentID) > models.MaxStudentIDLength {
			result.Failed = append(result.Failed, failedRoster(row, ReasonStudentIdTooLong))
			continue
		}

		// matching by student id takes precedence over matching by email
		cur, matched := currentByID[row.StudentID]
		if !matched && row.Email != "" {
			if c, ok := currentByEmail[row.Email]; ok && !claimedByID[c.ID] {
				cur, matched = c, true
			}
		}

		switch {
		case matched && cur.StudentID == row.StudentID && reserved[row.StudentID]:
			// reservation intact, plain update; skip rows that changed nothing
			if cur.Name == row.Name && cur.Email == row.Email {
				result.Success = append(result.Success, cur)
				continue
			}
			upd := cur
			upd.Name = row.Name
			upd.Email = row.Email
			batch.Updates = append(batch.Updates, upd)
			result.Success = append(result.Success, upd)

		case matched:
			// same identity with a new or unreserved id: re-reserve under
			// this entry, releasing whatever it held before
			if avail[row.StudentID] {
				result.Failed = append(result.Failed, failedRoster(row, ReasonStudentIdAlreadyReserved))
				continue
			}
			if cur.StudentID != "" && cur.StudentID != row.StudentID && reserved[cur.StudentID] {
				batch.Releases = append(batch.Releases, cur.StudentID)
				delete(avail, cur.StudentID)
			}
			upd := cur
			upd.Name = row.Name
			upd.StudentID = row.StudentID
			upd.Email = row.Email
			batch.Updates = append(batch.Updates, upd)
			batch.Reserves = append(batch.Reserves, row.StudentID)
			avail[row.StudentID] = true
			result.Success = append(result.Success, upd)

		default:
			if avail[row.StudentID] {
				result.Failed = append(result.Failed, failedRoster(row, ReasonStudentIdAlreadyReserved))
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
			batch.Creates = append(batch.Creates, entry)
			result.Success = append(result.Success, entry)
		}
	}

	return batch, result
}

func failedRoster(row sheet.RosterRow, reason string) FailedRow {
	return FailedRow{
		Name:      row.Name,
		StudentID: row.StudentID,
		Email:     row.Email,
		Reason:    reason,
	}
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
