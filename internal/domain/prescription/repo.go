package prescription

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create inserts the prescription and all of its items.
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	GetItems(ctx context.Context, prescriptionID uuid.UUID) ([]*Item, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Prescription, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, status string, limit, offset int) ([]*Prescription, int, error)
	// FirstActiveByPatient returns the patient's earliest-created ACTIVE
	// prescription, or nil when none exists.
	FirstActiveByPatient(ctx context.Context, patientID uuid.UUID) (*Prescription, error)
}
