package medication

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	medications Repository
}

func NewService(medications Repository) *Service {
	return &Service{medications: medications}
}

// normalize prepares a field for duplicate comparison. Missing and empty
// values compare equal.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizePtr(s *string) string {
	if s == nil {
		return ""
	}
	return normalize(*s)
}

// sameEntry reports whether two catalog entries are duplicates: every field
// of the name/strength/form/unit/description tuple matches after trimming
// and lower-casing.
func sameEntry(a, b *Medication) bool {
	return normalize(a.Name) == normalize(b.Name) &&
		normalize(a.Strength) == normalize(b.Strength) &&
		normalize(a.Form) == normalize(b.Form) &&
		normalize(a.Unit) == normalize(b.Unit) &&
		normalizePtr(a.Description) == normalizePtr(b.Description)
}

func (s *Service) findDuplicate(ctx context.Context, m *Medication) (*Medication, error) {
	candidates, err := s.medications.ListByName(ctx, m.Name)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if c.ID != m.ID && sameEntry(c, m) {
			return c, nil
		}
	}
	return nil, nil
}

func (s *Service) Create(ctx context.Context, m *Medication) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(m.Unit) == "" {
		return fmt.Errorf("unit is required")
	}
	dup, err := s.findDuplicate(ctx, m)
	if err != nil {
		return err
	}
	if dup != nil {
		return fmt.Errorf("medication already exists: %s %s %s", m.Name, m.Strength, m.Form)
	}
	m.IsActive = true
	return s.medications.Create(ctx, m)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.medications.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, m *Medication) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	dup, err := s.findDuplicate(ctx, m)
	if err != nil {
		return err
	}
	if dup != nil {
		return fmt.Errorf("medication already exists: %s %s %s", m.Name, m.Strength, m.Form)
	}
	return s.medications.Update(ctx, m)
}

// Deactivate hides a medication from new prescriptions without touching
// prescriptions that already reference it.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	m, err := s.medications.GetByID(ctx, id)
	if err != nil {
		return err
	}
	m.IsActive = false
	return s.medications.Update(ctx, m)
}

func (s *Service) List(ctx context.Context, search string, activeOnly bool, limit, offset int) ([]*Medication, int, error) {
	return s.medications.List(ctx, search, activeOnly, limit, offset)
}
