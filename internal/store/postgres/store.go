package postgres

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/klurigast/griffel/internal/models"
	"github.com/klurigast/griffel/internal/store"
)

type PostgresStore struct {
	store.BaseStore
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PostgresStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			out := query
			for i := 1; strings.Contains(out, "?"); i++ {
				out = strings.Replace(out, "?", fmt.Sprintf("$%d", i), 1)
			}
			return out
		},
	}}

	return s, nil
}

func (s *PostgresStore) ApplyMigrations(dir string) error {
	return s.BaseStore.ApplyMigrations(dir, nil)
}

// CreateAnnouncement needs the generated id back for notification linking,
// which is dialect-specific, hence not in BaseStore.
func (s *PostgresStore) CreateAnnouncement(a *models.Announcement) error {
	err := s.DB.QueryRow(`
		INSERT INTO classroom_announcements (classroom_id, created_by, title, description, type, to_members, grade_category, expected_grade)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, a.ClassroomID, a.CreatedBy, a.Title, a.Description, a.Type, a.ToMembers, a.GradeCategory, a.ExpectedGrade).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	return nil
}
