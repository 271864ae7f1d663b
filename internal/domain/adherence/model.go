package adherence

import (
	"time"

	"github.com/google/uuid"
)

// Log status values.
const (
	StatusTaken   = "TAKEN"
	StatusMissed  = "MISSED"
	StatusSkipped = "SKIPPED"
)

// Alert types.
const (
	AlertMissedDose       = "MISSED_DOSE"
	AlertLowAdherence     = "LOW_ADHERENCE"
	AlertUpcomingReminder = "UPCOMING_REMINDER"
)

// Log is one dose-taking event, or its recorded absence, for a single dose
// slot. Append-only; rows are never mutated after creation. DoseKey carries
// the slot identity and is unique across the table, which makes every
// logging path idempotent.
type Log struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	PrescriptionID     uuid.UUID `db:"prescription_id" json:"prescription_id"`
	PrescriptionItemID uuid.UUID `db:"prescription_item_id" json:"prescription_item_id"`
	PatientID          uuid.UUID `db:"patient_id" json:"patient_id"`
	Status             string    `db:"status" json:"status"`
	TakenAt            time.Time `db:"taken_at" json:"taken_at"`
	DoseKey            string    `db:"dose_key" json:"dose_key"`
	Notes              *string   `db:"notes" json:"notes,omitempty"`
	Amount             *int      `db:"amount" json:"amount,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Alert is a notification-worthy adherence event tied to a patient and,
// usually, the prescribing doctor.
type Alert struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID       *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	PrescriptionID *uuid.UUID `db:"prescription_id" json:"prescription_id,omitempty"`
	Type           string     `db:"type" json:"type"`
	Message        string     `db:"message" json:"message"`
	Resolved       bool       `db:"resolved" json:"resolved"`
	ResolvedAt     *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// ScheduledItem is a prescription item joined with the prescription and
// medication fields the jobs need, as loaded by the schedule repository.
type ScheduledItem struct {
	ItemID             uuid.UUID `db:"item_id" json:"item_id"`
	PrescriptionID     uuid.UUID `db:"prescription_id" json:"prescription_id"`
	PatientID          uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID           uuid.UUID `db:"doctor_id" json:"doctor_id"`
	MedicationName     string    `db:"medication_name" json:"medication_name"`
	MedicationStrength string    `db:"medication_strength" json:"medication_strength"`
	Dosage             string    `db:"dosage" json:"dosage"`
	TimesOfDay         []string  `db:"times_of_day" json:"times_of_day"`
}

// PatientRef is a patient row paired with the doctor of their earliest
// ACTIVE prescription, the target for low-adherence alerts.
type PatientRef struct {
	ID       uuid.UUID `db:"id" json:"id"`
	FullName string    `db:"full_name" json:"full_name"`
	DoctorID uuid.UUID `db:"doctor_id" json:"doctor_id"`
}

// DoseSlot is one expected dose instant derived from an item's schedule.
type DoseSlot struct {
	ItemID    uuid.UUID
	Day       time.Time
	TimeOfDay string
	At        time.Time
	Key       string
}
