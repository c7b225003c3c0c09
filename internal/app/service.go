package app

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/klurigast/griffel/internal/models"
	"github.com/klurigast/griffel/internal/store"
)

type Service struct {
	Config *Config
	Store  store.GradeStore
	Auth   *Auth
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := NewStore(config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	auth, err := NewAuth(config)
	if err != nil {
		return nil, fmt.Errorf("failed to init auth: %w", err)
	}

	return &Service{
		Config: config,
		Store:  store,
		Auth:   auth,
	}, nil
}

// Identify resolves the caller's user id from the request and, when auth is
// enabled, checks the bearer token against redis.
func (s *Service) Identify(r *http.Request) (int64, error) {
	raw := r.Header.Get(s.Config.API.UserIDHeader)
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("missing or malformed %s header", s.Config.API.UserIDHeader)
	}

	if !s.Config.Server.EnableAuth {
		return userID, nil
	}

	authHeader := r.Header.Get(s.Auth.tokenHeader)
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return 0, fmt.Errorf("Invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	if err := s.Auth.ValidateToken(r.Context(), raw, token); err != nil {
		return 0, err
	}
	return userID, nil
}

// IsTeacher reports whether the member holds a teaching role in the
// classroom. Owners and admins count.
func (s *Service) IsTeacher(classroomID, memberID int64) (bool, error) {
	role, err := s.Store.GetMemberRole(classroomID, memberID)
	if err != nil {
		return false, fmt.Errorf("failed to look up member role: %w", err)
	}
	return role >= models.RoleTeacher, nil
}

func (s *Service) IsStudent(classroomID, memberID int64) (bool, error) {
	role, err := s.Store.GetMemberRole(classroomID, memberID)
	if err != nil {
		return false, fmt.Errorf("failed to look up member role: %w", err)
	}
	return role == models.RoleStudent, nil
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Auth.Close(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
