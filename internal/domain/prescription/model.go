package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Prescription status values. Only ACTIVE prescriptions participate in
// reminders and missed-dose detection.
const (
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

type Prescription struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Status    string     `db:"status" json:"status"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`
	Notes     *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`

	Items []*Item `db:"-" json:"items,omitempty"`
}

// Item is one medication line on a prescription. TimesOfDay holds the
// scheduled dose times as HH:MM strings.
type Item struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	MedicationID   uuid.UUID `db:"medication_id" json:"medication_id"`
	Dosage         string    `db:"dosage" json:"dosage"`
	TimesOfDay     []string  `db:"times_of_day" json:"times_of_day"`
	Quantity       *int      `db:"quantity" json:"quantity,omitempty"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ActiveOn reports whether the prescription window covers the given day.
// The day is compared at date precision, end date inclusive.
func (p *Prescription) ActiveOn(day time.Time) bool {
	if p.Status != StatusActive {
		return false
	}
	d := day.Truncate(24 * time.Hour)
	start := p.StartDate.Truncate(24 * time.Hour)
	if d.Before(start) {
		return false
	}
	if p.EndDate != nil && d.After(p.EndDate.Truncate(24*time.Hour)) {
		return false
	}
	return true
}
