package medication

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	// ListByName returns catalog entries whose trimmed name matches
	// case-insensitively. Duplicate detection compares the remaining
	// fields in the service.
	ListByName(ctx context.Context, name string) ([]*Medication, error)
	Update(ctx context.Context, m *Medication) error
	List(ctx context.Context, search string, activeOnly bool, limit, offset int) ([]*Medication, int, error)
}
