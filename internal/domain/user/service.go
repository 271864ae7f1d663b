package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	users Repository
}

func NewService(users Repository) *Service {
	return &Service{users: users}
}

var validRoles = map[string]bool{
	RoleAdmin: true, RoleDoctor: true, RolePatient: true,
}

var validStatuses = map[string]bool{
	StatusActive: true, StatusInactive: true,
}

func (s *Service) Create(ctx context.Context, u *User) error {
	u.FullName = strings.TrimSpace(u.FullName)
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	if u.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !validRoles[u.Role] {
		return fmt.Errorf("invalid role: %s", u.Role)
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	if !validStatuses[u.Status] {
		return fmt.Errorf("invalid status: %s", u.Status)
	}
	if existing, err := s.users.GetByEmail(ctx, u.Email); err == nil && existing != nil {
		return fmt.Errorf("email already registered: %s", u.Email)
	}
	return s.users.Create(ctx, u)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, u *User) error {
	if u.Status != "" && !validStatuses[u.Status] {
		return fmt.Errorf("invalid status: %s", u.Status)
	}
	return s.users.Update(ctx, u)
}

func (s *Service) ListPatients(ctx context.Context, search string, limit, offset int) ([]*User, int, error) {
	return s.users.ListByRole(ctx, RolePatient, search, limit, offset)
}

func (s *Service) ListDoctors(ctx context.Context, search string, limit, offset int) ([]*User, int, error) {
	return s.users.ListByRole(ctx, RoleDoctor, search, limit, offset)
}
