package adherence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateDose is returned when a log for the same dose slot already
// exists, enforced by the unique dose_key constraint.
var ErrDuplicateDose = errors.New("dose already logged")

// ScheduleRepository reads the prescription schedule from the store.
type ScheduleRepository interface {
	// ItemsInScope returns every prescription item whose ACTIVE prescription
	// window covers the given day, joined with medication details.
	ItemsInScope(ctx context.Context, day time.Time) ([]*ScheduledItem, error)
	ItemsInScopeForPatient(ctx context.Context, patientID uuid.UUID, day time.Time) ([]*ScheduledItem, error)
	ItemByID(ctx context.Context, itemID uuid.UUID) (*ScheduledItem, error)
	// ActivePatients returns ACTIVE patients holding at least one ACTIVE
	// prescription, each paired with their earliest active prescription's
	// doctor.
	ActivePatients(ctx context.Context) ([]*PatientRef, error)
}

// LogRepository persists and queries adherence logs.
type LogRepository interface {
	Create(ctx context.Context, l *Log) error
	// DoseKeysInWindow returns the set of dose keys with a log whose taken_at
	// falls in [from, to).
	DoseKeysInWindow(ctx context.Context, from, to time.Time) (map[string]bool, error)
	// StatusByDoseKey maps dose key to log status for one patient in [from, to).
	StatusByDoseKey(ctx context.Context, patientID uuid.UUID, from, to time.Time) (map[string]string, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Log, int, error)
	// CountsSince returns the TAKEN count and the total log count for the
	// patient with taken_at >= since.
	CountsSince(ctx context.Context, patientID uuid.UUID, since time.Time) (taken, total int, err error)
}

// AlertFilter narrows alert existence checks and listings. Zero values mean
// no constraint on that field.
type AlertFilter struct {
	PatientID      uuid.UUID
	DoctorID       *uuid.UUID
	PrescriptionID *uuid.UUID
	Type           string
	Resolved       *bool
	CreatedAfter   time.Time
	CreatedBefore  time.Time
}

// AlertRepository persists and queries alerts.
type AlertRepository interface {
	Create(ctx context.Context, a *Alert) error
	// HasUnresolved reports whether an unresolved alert matching the filter
	// exists. This is the dedup check every alert-producing path runs first.
	HasUnresolved(ctx context.Context, f AlertFilter) (bool, error)
	List(ctx context.Context, f AlertFilter, limit, offset int) ([]*Alert, int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Alert, error)
	Resolve(ctx context.Context, id uuid.UUID) error
}
