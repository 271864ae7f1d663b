package prescription

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// TxRunner executes fn inside a store transaction. The production wiring uses
// db.WithTx; tests pass the function through directly.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PassthroughTx runs fn without a transaction.
func PassthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Service struct {
	prescriptions Repository
	tx            TxRunner
}

func NewService(prescriptions Repository, tx TxRunner) *Service {
	return &Service{prescriptions: prescriptions, tx: tx}
}

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidTimeOfDay reports whether s is a well-formed HH:MM dose time.
func ValidTimeOfDay(s string) bool {
	return timeOfDayRe.MatchString(s)
}

var validTransitions = map[string]map[string]bool{
	StatusActive: {StatusCompleted: true, StatusCancelled: true},
}

func (s *Service) Create(ctx context.Context, p *Prescription) error {
	if p.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if p.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if p.StartDate.IsZero() {
		return fmt.Errorf("start_date is required")
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("end_date before start_date")
	}
	if len(p.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	for i, it := range p.Items {
		if it.MedicationID == uuid.Nil {
			return fmt.Errorf("item %d: medication_id is required", i)
		}
		if it.Dosage == "" {
			return fmt.Errorf("item %d: dosage is required", i)
		}
		if len(it.TimesOfDay) == 0 {
			return fmt.Errorf("item %d: at least one time of day is required", i)
		}
		for _, tod := range it.TimesOfDay {
			if !ValidTimeOfDay(tod) {
				return fmt.Errorf("item %d: invalid time of day %q, want HH:MM", i, tod)
			}
		}
	}
	p.Status = StatusActive
	// The prescription row and its items must land together; a failed item
	// insert rolls back the whole create.
	return s.tx(ctx, func(ctx context.Context) error {
		return s.prescriptions.Create(ctx, p)
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}

// UpdateStatus enforces the ACTIVE -> COMPLETED/CANCELLED transitions.
// Terminal statuses never change again.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !validTransitions[p.Status][status] {
		return fmt.Errorf("cannot transition from %s to %s", p.Status, status)
	}
	return s.prescriptions.UpdateStatus(ctx, id, status)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.ListByPatient(ctx, patientID, status, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, status string, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.ListByDoctor(ctx, doctorID, status, limit, offset)
}
