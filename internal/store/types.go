package store

import (
	"github.com/klurigast/griffel/internal/models"
)

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

type DBConfig struct {
	DSN  string
	Type DatabaseType
}

// RosterBatch is the staged output of a roster diff. Stages commit in one
// transaction, in field order: releases, deletes, updates, reserves, creates.
// The ordering is a contract: an id released by a removed or reassigned entry
// must be free before anything re-reserves it.
type RosterBatch struct {
	ClassroomID int64
	Releases    []string             // reservation releases by student id
	Deletes     []models.RosterEntry // entries gone from the re-uploaded roster
	Updates     []models.RosterEntry
	Reserves    []string
	Creates     []models.RosterEntry
}

func (b *RosterBatch) Empty() bool {
	return len(b.Releases) == 0 && len(b.Deletes) == 0 &&
		len(b.Updates) == 0 && len(b.Reserves) == 0 && len(b.Creates) == 0
}

// CompositionBatch replaces a classroom's grading scheme in one transaction.
// Announcements and notifications for finalize flips ride along so the side
// effect cannot outlive a rolled-back edit.
type CompositionBatch struct {
	ClassroomID   int64
	Deletes       []int64 // composition ids, their grade rows go too
	Updates       []models.GradeComposition
	Creates       []models.GradeComposition
	Announcements []models.Announcement
	Notifications []models.Notification
}

func (b *CompositionBatch) Empty() bool {
	return len(b.Deletes) == 0 && len(b.Updates) == 0 && len(b.Creates) == 0
}

// GradeKey addresses one grade cell within a classroom.
type GradeKey struct {
	StudentID     string
	GradeCategory int64
}

// GradeBatch carries one grade sync. Stages commit in one transaction:
// reserves, roster creates, grade upserts, grade deletes. Roster creates come
// before upserts so no grade row ever references a student missing from the
// roster.
type GradeBatch struct {
	ClassroomID   int64
	Reserves      []string
	RosterCreates []models.RosterEntry
	Upserts       []models.GradeDetail
	Deletes       []GradeKey
}

func (b *GradeBatch) Empty() bool {
	return len(b.Reserves) == 0 && len(b.RosterCreates) == 0 &&
		len(b.Upserts) == 0 && len(b.Deletes) == 0
}

// RemapEntry is one student-id reassignment. Per entry the store reserves the
// new id, rewrites the roster entry and its grade rows, then releases the old
// id, so the new id is never observable as both unreserved and in use.
type RemapEntry struct {
	EntryID      int64
	ClassroomID  int64
	OldStudentID string
	NewStudentID string
}

type RemapBatch struct {
	ClassroomID int64
	Remaps      []RemapEntry
}

func (b *RemapBatch) Empty() bool {
	return len(b.Remaps) == 0
}
