package adherence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrItemNotFound = errors.New("prescription item not found")
var ErrNotPatientOfItem = errors.New("item does not belong to patient")

// TxRunner executes fn inside a store transaction. The production wiring uses
// db.WithTx; tests pass the function through directly.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PassthroughTx runs fn without a transaction.
func PassthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service exposes adherence operations to the HTTP layer: patient dose
// confirmation, history, the day view, the trailing rate and alert handling.
type Service struct {
	schedules ScheduleRepository
	logs      LogRepository
	alerts    AlertRepository
	notifier  Notifier
	tx        TxRunner

	now func() time.Time
	loc *time.Location
}

type ServiceOption func(*Service)

func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func WithServiceLocation(loc *time.Location) ServiceOption {
	return func(s *Service) { s.loc = loc }
}

func NewService(schedules ScheduleRepository, logs LogRepository, alerts AlertRepository, notifier Notifier, tx TxRunner, opts ...ServiceOption) *Service {
	s := &Service{
		schedules: schedules,
		logs:      logs,
		alerts:    alerts,
		notifier:  notifier,
		tx:        tx,
		now:       time.Now,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConfirmDoseRequest records one dose as taken or deliberately skipped.
// Day is a YYYY-MM-DD date; TimeOfDay an HH:MM schedule entry.
type ConfirmDoseRequest struct {
	PrescriptionItemID uuid.UUID `json:"prescription_item_id"`
	Day                string    `json:"day"`
	TimeOfDay          string    `json:"time_of_day"`
	Status             string    `json:"status"`
	Amount             *int      `json:"amount,omitempty"`
	Notes              *string   `json:"notes,omitempty"`
}

// ConfirmDose writes a TAKEN or SKIPPED log for the given dose slot. The
// dose key makes this idempotent against the missed-dose marker and against
// double submission; a second confirmation returns ErrDuplicateDose.
func (s *Service) ConfirmDose(ctx context.Context, patientID uuid.UUID, req ConfirmDoseRequest) (*Log, error) {
	if req.Status != StatusTaken && req.Status != StatusSkipped {
		return nil, fmt.Errorf("invalid status: %s, want TAKEN or SKIPPED", req.Status)
	}
	mins, ok := minutesOfDay(req.TimeOfDay)
	if !ok {
		return nil, fmt.Errorf("invalid time of day %q, want HH:MM", req.TimeOfDay)
	}
	day, err := time.ParseInLocation("2006-01-02", req.Day, s.loc)
	if err != nil {
		return nil, fmt.Errorf("invalid day %q, want YYYY-MM-DD", req.Day)
	}

	item, err := s.schedules.ItemByID(ctx, req.PrescriptionItemID)
	if err != nil {
		return nil, ErrItemNotFound
	}
	if item.PatientID != patientID {
		return nil, ErrNotPatientOfItem
	}

	l := &Log{
		PrescriptionID:     item.PrescriptionID,
		PrescriptionItemID: item.ItemID,
		PatientID:          patientID,
		Status:             req.Status,
		TakenAt:            day.Add(time.Duration(mins) * time.Minute),
		DoseKey:            DoseKey(item.ItemID, day, req.TimeOfDay),
		Notes:              req.Notes,
		Amount:             req.Amount,
	}
	err = s.tx(ctx, func(ctx context.Context) error {
		return s.logs.Create(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.BroadcastAdherenceUpdate(patientID, req.Status, []uuid.UUID{item.DoctorID})
	return l, nil
}

// History lists a patient's adherence logs, optionally bounded by [from, to).
func (s *Service) History(ctx context.Context, patientID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Log, int, error) {
	return s.logs.ListByPatient(ctx, patientID, from, to, limit, offset)
}

// DoseReminder is one slot of a patient's day view with its current status.
type DoseReminder struct {
	PrescriptionItemID uuid.UUID `json:"prescription_item_id"`
	PrescriptionID     uuid.UUID `json:"prescription_id"`
	MedicationName     string    `json:"medication_name"`
	MedicationStrength string    `json:"medication_strength"`
	Dosage             string    `json:"dosage"`
	TimeOfDay          string    `json:"time_of_day"`
	At                 time.Time `json:"at"`
	Status             string    `json:"status"`
}

// StatusPending marks a day-view slot with no log yet.
const StatusPending = "PENDING"

// DayReminders derives the patient's dose slots for one calendar day and
// resolves each against existing logs.
func (s *Service) DayReminders(ctx context.Context, patientID uuid.UUID, day time.Time) ([]*DoseReminder, error) {
	dayStart := DayStart(day, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	items, err := s.schedules.ItemsInScopeForPatient(ctx, patientID, dayStart)
	if err != nil {
		return nil, err
	}
	statuses, err := s.logs.StatusByDoseKey(ctx, patientID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	reminders := make([]*DoseReminder, 0)
	for _, item := range items {
		for _, slot := range SlotsForDay(item, dayStart, s.loc) {
			status := statuses[slot.Key]
			if status == "" {
				status = StatusPending
			}
			reminders = append(reminders, &DoseReminder{
				PrescriptionItemID: item.ItemID,
				PrescriptionID:     item.PrescriptionID,
				MedicationName:     item.MedicationName,
				MedicationStrength: item.MedicationStrength,
				Dosage:             item.Dosage,
				TimeOfDay:          slot.TimeOfDay,
				At:                 slot.At,
				Status:             status,
			})
		}
	}
	return reminders, nil
}

// RateResult is a patient's trailing adherence summary.
type RateResult struct {
	TakenCount int     `json:"taken_count"`
	TotalCount int     `json:"total_count"`
	Rate       float64 `json:"rate"`
}

// Rate computes the patient's taken/total percentage over the trailing
// window. With no logs the rate is reported as 100 with zero counts.
func (s *Service) Rate(ctx context.Context, patientID uuid.UUID, window time.Duration) (*RateResult, error) {
	taken, total, err := s.logs.CountsSince(ctx, patientID, s.now().Add(-window))
	if err != nil {
		return nil, err
	}
	r := &RateResult{TakenCount: taken, TotalCount: total, Rate: 100}
	if total > 0 {
		r.Rate = float64(taken) / float64(total) * 100
	}
	return r, nil
}

// ListAlerts returns alerts matching the filter, newest first.
func (s *Service) ListAlerts(ctx context.Context, f AlertFilter, limit, offset int) ([]*Alert, int, error) {
	return s.alerts.List(ctx, f, limit, offset)
}

// ResolveAlert marks an alert acknowledged.
func (s *Service) ResolveAlert(ctx context.Context, id uuid.UUID) (*Alert, error) {
	if err := s.alerts.Resolve(ctx, id); err != nil {
		return nil, err
	}
	return s.alerts.GetByID(ctx, id)
}
