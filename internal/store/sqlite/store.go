package sqlite

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/klurigast/griffel/internal/models"
	"github.com/klurigast/griffel/internal/store"
)

type SQLiteStore struct {
	store.BaseStore
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			return query
		},
	}}

	return s, nil
}

func (s *SQLiteStore) ApplyMigrations(dir string) error {
	return s.BaseStore.ApplyMigrations(dir, translateToSQLite)
}

// translateToSQLite converts Postgres SQL to SQLite dialect. Replacements
// are ordered: longer patterns first so BIGSERIAL PRIMARY KEY is not eaten
// by the bare BIGSERIAL rule.
func translateToSQLite(sql string) string {
	replacements := []struct {
		from, to string
	}{
		{"BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{"SERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{"BIGINT", "INTEGER"},
		{"DOUBLE PRECISION", "REAL"},
		{"TRUE", "1"},
		{"FALSE", "0"},
		{"VARCHAR(10)", "TEXT"},
		{"now()", "CURRENT_TIMESTAMP"},
	}
	result := sql
	for _, r := range replacements {
		result = strings.ReplaceAll(result, r.from, r.to)
	}
	return result
}

func (s *SQLiteStore) CreateAnnouncement(a *models.Announcement) error {
	res, err := s.DB.NamedExec(`
		INSERT INTO classroom_announcements (classroom_id, created_by, title, description, type, to_members, grade_category, expected_grade)
		VALUES (:classroom_id, :created_by, :title, :description, :type, :to_members, :grade_category, :expected_grade)
	`, a)
	if err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read announcement id: %w", err)
	}
	a.ID = id
	return nil
}
