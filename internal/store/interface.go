package store

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/klurigast/griffel/internal/models"
)

// GradeStore is everything the reconciliation engine and the HTTP surface
// need from persistence. The Apply* methods are the only write paths for
// roster, reservation, composition and grade state; each commits its staged
// mutations in a single transaction or not at all.
type GradeStore interface {
	Close() error
	ApplyMigrations(dir string) error

	ListRoster(classroomID int64) ([]models.RosterEntry, error)
	FindRosterEntryByEmail(classroomID int64, email string) (*models.RosterEntry, error)
	ListReservedStudentIDs() ([]string, error)

	ListCompositions(classroomID int64) ([]models.GradeComposition, error)
	GetComposition(classroomID, compositionID int64) (*models.GradeComposition, error)

	ListGradeDetails(classroomID int64) ([]models.GradeDetail, error)
	ListCompositionGrades(classroomID, compositionID int64) ([]models.GradeDetail, error)

	GetMemberRole(classroomID, memberID int64) (int, error)
	ListStudentMemberIDs(classroomID int64) ([]int64, error)
	ListTeacherMemberIDs(classroomID int64) ([]int64, error)
	CreateMember(member models.ClassroomMember) error

	ApplyRosterBatch(batch RosterBatch) error
	ApplyCompositionBatch(batch CompositionBatch) error
	ApplyGradeBatch(batch GradeBatch) error
	ApplyRemapBatch(batch RemapBatch) error

	CreateAnnouncement(a *models.Announcement) error
	UpdateGradeReview(announcementID int64, description string, expectedGrade float64, toMembers string) error
	FindGradeReview(classroomID, gradeCategory, createdBy int64) (*models.Announcement, error)
	CreateNotification(n *models.Notification) error
}

// BaseStore provides the dialect-independent part of GradeStore. The
// Converter rewrites `?` placeholders for backends that want `$n`.
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating
// dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(fmt.Sprintf("%s/%s", dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

func (s *BaseStore) ListRoster(classroomID int64) ([]models.RosterEntry, error) {
	var entries []models.RosterEntry
	query := s.Converter(`
		SELECT id, classroom_id, name, student_id, email
		FROM student_grade_list
		WHERE classroom_id = ?
		ORDER BY name, student_id
	`)

	if err := s.DB.Select(&entries, query, classroomID); err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	return entries, nil
}

func (s *BaseStore) FindRosterEntryByEmail(classroomID int64, email string) (*models.RosterEntry, error) {
	var entry models.RosterEntry
	query := s.Converter(`
		SELECT id, classroom_id, name, student_id, email
		FROM student_grade_list
		WHERE classroom_id = ?
		AND email = ?
	`)

	err := s.DB.Get(&entry, query, classroomID, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find roster entry by email: %w", err)
	}
	return &entry, nil
}

func (s *BaseStore) ListReservedStudentIDs() ([]string, error) {
	var ids []string
	err := s.DB.Select(&ids, `
		SELECT student_id
		FROM reserved_student_ids
		ORDER BY student_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reserved student ids: %w", err)
	}
	return ids, nil
}

func (s *BaseStore) ListCompositions(classroomID int64) ([]models.GradeComposition, error) {
	var comps []models.GradeComposition
	query := s.Converter(`
		SELECT id, classroom_id, name, grade_percent, is_finalized, idx
		FROM grade_compositions
		WHERE classroom_id = ?
		ORDER BY idx ASC
	`)

	if err := s.DB.Select(&comps, query, classroomID); err != nil {
		return nil, fmt.Errorf("failed to list compositions: %w", err)
	}
	return comps, nil
}

func (s *BaseStore) GetComposition(classroomID, compositionID int64) (*models.GradeComposition, error) {
	var comp models.GradeComposition
	query := s.Converter(`
		SELECT id, classroom_id, name, grade_percent, is_finalized, idx
		FROM grade_compositions
		WHERE classroom_id = ?
		AND id = ?
	`)

	err := s.DB.Get(&comp, query, classroomID, compositionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get composition: %w", err)
	}
	return &comp, nil
}

func (s *BaseStore) ListGradeDetails(classroomID int64) ([]models.GradeDetail, error) {
	var grades []models.GradeDetail
	query := s.Converter(`
		SELECT student_id, classroom_id, grade_category, grade
		FROM student_grade_details
		WHERE classroom_id = ?
		ORDER BY student_id, grade_category
	`)

	if err := s.DB.Select(&grades, query, classroomID); err != nil {
		return nil, fmt.Errorf("failed to list grade details: %w", err)
	}
	return grades, nil
}

func (s *BaseStore) ListCompositionGrades(classroomID, compositionID int64) ([]models.GradeDetail, error) {
	var grades []models.GradeDetail
	query := s.Converter(`
		SELECT student_id, classroom_id, grade_category, grade
		FROM student_grade_details
		WHERE classroom_id = ?
		AND grade_category = ?
		ORDER BY student_id
	`)

	if err := s.DB.Select(&grades, query, classroomID, compositionID); err != nil {
		return nil, fmt.Errorf("failed to list composition grades: %w", err)
	}
	return grades, nil
}

func (s *BaseStore) GetMemberRole(classroomID, memberID int64) (int, error) {
	var role int
	query := s.Converter(`
		SELECT member_role
		FROM classroom_members
		WHERE classroom_id = ?
		AND member_id = ?
	`)

	err := s.DB.Get(&role, query, classroomID, memberID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get member role: %w", err)
	}
	return role, nil
}

func (s *BaseStore) ListStudentMemberIDs(classroomID int64) ([]int64, error) {
	var ids []int64
	query := s.Converter(`
		SELECT member_id
		FROM classroom_members
		WHERE classroom_id = ?
		AND member_role = ?
		ORDER BY member_id
	`)

	if err := s.DB.Select(&ids, query, classroomID, models.RoleStudent); err != nil {
		return nil, fmt.Errorf("failed to list student members: %w", err)
	}
	return ids, nil
}

func (s *BaseStore) ListTeacherMemberIDs(classroomID int64) ([]int64, error) {
	var ids []int64
	query := s.Converter(`
		SELECT member_id
		FROM classroom_members
		WHERE classroom_id = ?
		AND member_role IN (?, ?)
		ORDER BY member_id
	`)

	if err := s.DB.Select(&ids, query, classroomID, models.RoleTeacher, models.RoleOwner); err != nil {
		return nil, fmt.Errorf("failed to list teacher members: %w", err)
	}
	return ids, nil
}

func (s *BaseStore) CreateMember(member models.ClassroomMember) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO classroom_members (classroom_id, member_id, member_role)
		VALUES (:classroom_id, :member_id, :member_role)
	`, member)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	return nil
}

// ApplyRosterBatch commits one roster sync. Releases run first so reassigned
// ids are free by the time the reserve stage claims them; deleting an entry
// also drops its grade rows.
func (s *BaseStore) ApplyRosterBatch(b RosterBatch) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin roster batch: %w", err)
	}
	defer tx.Rollback()

	for _, id := range b.Releases {
		if err := s.releaseStudentID(tx, id); err != nil {
			return err
		}
	}
	for _, entry := range b.Deletes {
		query := s.Converter(`
			DELETE FROM student_grade_details
			WHERE classroom_id = ? AND student_id = ?
		`)
		if _, err := tx.Exec(query, entry.ClassroomID, entry.StudentID); err != nil {
			return fmt.Errorf("failed to delete grades of %s: %w", entry.StudentID, err)
		}
		query = s.Converter(`DELETE FROM student_grade_list WHERE id = ?`)
		if _, err := tx.Exec(query, entry.ID); err != nil {
			return fmt.Errorf("failed to delete roster entry %d: %w", entry.ID, err)
		}
	}
	for _, entry := range b.Updates {
		query := s.Converter(`
			UPDATE student_grade_list
			SET name = ?, student_id = ?, email = ?
			WHERE id = ?
		`)
		if _, err := tx.Exec(query, entry.Name, entry.StudentID, entry.Email, entry.ID); err != nil {
			return fmt.Errorf("failed to update roster entry %d: %w", entry.ID, err)
		}
	}
	for _, id := range b.Reserves {
		if err := s.reserveStudentID(tx, id); err != nil {
			return err
		}
	}
	for _, entry := range b.Creates {
		if err := s.createRosterEntry(tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ApplyCompositionBatch replaces a classroom's grading scheme together with
// the finalize-flip announcements in one transaction.
func (s *BaseStore) ApplyCompositionBatch(b CompositionBatch) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin composition batch: %w", err)
	}
	defer tx.Rollback()

	for _, id := range b.Deletes {
		query := s.Converter(`
			DELETE FROM student_grade_details
			WHERE classroom_id = ? AND grade_category = ?
		`)
		if _, err := tx.Exec(query, b.ClassroomID, id); err != nil {
			return fmt.Errorf("failed to delete grades of composition %d: %w", id, err)
		}
		query = s.Converter(`DELETE FROM grade_compositions WHERE id = ?`)
		if _, err := tx.Exec(query, id); err != nil {
			return fmt.Errorf("failed to delete composition %d: %w", id, err)
		}
	}
	for _, comp := range b.Updates {
		query := s.Converter(`
			UPDATE grade_compositions
			SET name = ?, grade_percent = ?, is_finalized = ?, idx = ?
			WHERE id = ?
		`)
		if _, err := tx.Exec(query, comp.Name, comp.GradePercent, comp.IsFinalized, comp.Index, comp.ID); err != nil {
			return fmt.Errorf("failed to update composition %d: %w", comp.ID, err)
		}
	}
	for _, comp := range b.Creates {
		if _, err := tx.NamedExec(`
			INSERT INTO grade_compositions (classroom_id, name, grade_percent, is_finalized, idx)
			VALUES (:classroom_id, :name, :grade_percent, :is_finalized, :idx)
		`, comp); err != nil {
			return fmt.Errorf("failed to create composition %s: %w", comp.Name, err)
		}
	}
	for _, a := range b.Announcements {
		if _, err := tx.NamedExec(`
			INSERT INTO classroom_announcements (classroom_id, created_by, title, description, type, to_members, grade_category, expected_grade)
			VALUES (:classroom_id, :created_by, :title, :description, :type, :to_members, :grade_category, :expected_grade)
		`, a); err != nil {
			return fmt.Errorf("failed to create announcement: %w", err)
		}
	}
	for _, n := range b.Notifications {
		if _, err := tx.NamedExec(`
			INSERT INTO notifications (classroom_id, title, description, type, to_members, announcement_id)
			VALUES (:classroom_id, :title, :description, :type, :to_members, :announcement_id)
		`, n); err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
	}

	return tx.Commit()
}

// ApplyGradeBatch commits one grade sync: reservations and roster auto-adds
// first, then grade upserts, then grade deletes.
func (s *BaseStore) ApplyGradeBatch(b GradeBatch) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin grade batch: %w", err)
	}
	defer tx.Rollback()

	for _, id := range b.Reserves {
		if err := s.reserveStudentID(tx, id); err != nil {
			return err
		}
	}
	for _, entry := range b.RosterCreates {
		if err := s.createRosterEntry(tx, entry); err != nil {
			return err
		}
	}
	for _, grade := range b.Upserts {
		if _, err := tx.NamedExec(`
			INSERT INTO student_grade_details (student_id, classroom_id, grade_category, grade)
			VALUES (:student_id, :classroom_id, :grade_category, :grade)
			ON CONFLICT (student_id, classroom_id, grade_category) DO UPDATE SET
			grade = excluded.grade
		`, grade); err != nil {
			return fmt.Errorf("failed to upsert grade for %s: %w", grade.StudentID, err)
		}
	}
	for _, key := range b.Deletes {
		query := s.Converter(`
			DELETE FROM student_grade_details
			WHERE classroom_id = ? AND student_id = ? AND grade_category = ?
		`)
		if _, err := tx.Exec(query, b.ClassroomID, key.StudentID, key.GradeCategory); err != nil {
			return fmt.Errorf("failed to delete grade for %s: %w", key.StudentID, err)
		}
	}

	return tx.Commit()
}

// ApplyRemapBatch rewrites student ids. Per mapping: reserve the new id,
// rewrite the roster entry and its grade rows, release the old id. The whole
// batch is one transaction.
func (s *BaseStore) ApplyRemapBatch(b RemapBatch) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin remap batch: %w", err)
	}
	defer tx.Rollback()

	for _, m := range b.Remaps {
		if err := s.reserveStudentID(tx, m.NewStudentID); err != nil {
			return err
		}
		query := s.Converter(`UPDATE student_grade_list SET student_id = ? WHERE id = ?`)
		if _, err := tx.Exec(query, m.NewStudentID, m.EntryID); err != nil {
			return fmt.Errorf("failed to remap roster entry %d: %w", m.EntryID, err)
		}
		if m.OldStudentID != "" {
			query = s.Converter(`
				UPDATE student_grade_details
				SET student_id = ?
				WHERE classroom_id = ? AND student_id = ?
			`)
			if _, err := tx.Exec(query, m.NewStudentID, m.ClassroomID, m.OldStudentID); err != nil {
				return fmt.Errorf("failed to remap grades of %s: %w", m.OldStudentID, err)
			}
			if err := s.releaseStudentID(tx, m.OldStudentID); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *BaseStore) UpdateGradeReview(announcementID int64, description string, expectedGrade float64, toMembers string) error {
	query := s.Converter(`
		UPDATE classroom_announcements
		SET description = ?, expected_grade = ?, to_members = ?
		WHERE id = ?
	`)
	if _, err := s.DB.Exec(query, description, expectedGrade, toMembers, announcementID); err != nil {
		return fmt.Errorf("failed to update grade review %d: %w", announcementID, err)
	}
	return nil
}

func (s *BaseStore) FindGradeReview(classroomID, gradeCategory, createdBy int64) (*models.Announcement, error) {
	var a models.Announcement
	query := s.Converter(`
		SELECT id, classroom_id, created_by, title, description, type, to_members, grade_category, expected_grade
		FROM classroom_announcements
		WHERE classroom_id = ?
		AND grade_category = ?
		AND created_by = ?
		AND type = ?
	`)

	err := s.DB.Get(&a, query, classroomID, gradeCategory, createdBy, models.TypeGradeReview)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find grade review: %w", err)
	}
	return &a, nil
}

func (s *BaseStore) CreateNotification(n *models.Notification) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO notifications (classroom_id, title, description, type, to_members, announcement_id)
		VALUES (:classroom_id, :title, :description, :type, :to_members, :announcement_id)
	`, n)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *BaseStore) reserveStudentID(tx *sqlx.Tx, id string) error {
	query := s.Converter(`INSERT INTO reserved_student_ids (student_id) VALUES (?)`)
	if _, err := tx.Exec(query, id); err != nil {
		return fmt.Errorf("failed to reserve student id %s: %w", id, err)
	}
	return nil
}

func (s *BaseStore) releaseStudentID(tx *sqlx.Tx, id string) error {
	query := s.Converter(`DELETE FROM reserved_student_ids WHERE student_id = ?`)
	if _, err := tx.Exec(query, id); err != nil {
		return fmt.Errorf("failed to release student id %s: %w", id, err)
	}
	return nil
}

func (s *BaseStore) createRosterEntry(tx *sqlx.Tx, entry models.RosterEntry) error {
	_, err := tx.NamedExec(`
		INSERT INTO student_grade_list (classroom_id, name, student_id, email)
		VALUES (:classroom_id, :name, :student_id, :email)
	`, entry)
	if err != nil {
		return fmt.Errorf("failed to create roster entry %s: %w", entry.StudentID, err)
	}
	return nil
}
