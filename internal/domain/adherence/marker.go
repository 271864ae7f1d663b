package adherence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MarkMissedDoses scans yesterday's dose slots and writes a MISSED log for
// every slot without an existing log. Patients accumulating two or more new
// misses get one MISSED_DOSE alert for the day. The job is idempotent: dose
// keys make log creation a no-op on rerun, and the alert check is bounded by
// yesterday's day window.
func (e *Engine) MarkMissedDoses(ctx context.Context) error {
	now := e.now().In(e.loc)
	dayStart := DayStart(now, e.loc).AddDate(0, 0, -1)
	dayEnd := dayStart.AddDate(0, 0, 1)

	items, err := e.schedules.ItemsInScope(ctx, dayStart)
	if err != nil {
		return fmt.Errorf("load items in scope for %s: %w", dayStart.Format("2006-01-02"), err)
	}
	existing, err := e.logs.DoseKeysInWindow(ctx, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("load existing dose keys: %w", err)
	}

	missedByPatient := make(map[uuid.UUID]int)
	doctorByPatient := make(map[uuid.UUID]uuid.UUID)

	for _, item := range items {
		for _, slot := range SlotsForDay(item, dayStart, e.loc) {
			if existing[slot.Key] {
				continue
			}
			l := &Log{
				PrescriptionID:     item.PrescriptionID,
				PrescriptionItemID: item.ItemID,
				PatientID:          item.PatientID,
				Status:             StatusMissed,
				TakenAt:            slot.At,
				DoseKey:            slot.Key,
			}
			if err := e.logs.Create(ctx, l); err != nil {
				if errors.Is(err, ErrDuplicateDose) {
					continue
				}
				e.logger.Error().Err(err).Str("dose_key", slot.Key).Msg("failed to create missed log")
				continue
			}
			missedByPatient[item.PatientID]++
			doctorByPatient[item.PatientID] = item.DoctorID
		}
	}

	for patientID, count := range missedByPatient {
		if count < 2 {
			continue
		}
		if err := e.raiseMissedDoseAlert(ctx, patientID, doctorByPatient[patientID], count, dayStart, dayEnd); err != nil {
			e.logger.Error().Err(err).Stringer("patient_id", patientID).Msg("failed to raise missed-dose alert")
		}
	}
	return nil
}

func (e *Engine) raiseMissedDoseAlert(ctx context.Context, patientID, doctorID uuid.UUID, count int, dayStart, dayEnd time.Time) error {
	exists, err := e.alerts.HasUnresolved(ctx, AlertFilter{
		PatientID:     patientID,
		DoctorID:      &doctorID,
		Type:          AlertMissedDose,
		CreatedAfter:  dayStart,
		CreatedBefore: dayEnd,
	})
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	a := &Alert{
		PatientID: patientID,
		DoctorID:  &doctorID,
		Type:      AlertMissedDose,
		Message:   fmt.Sprintf("Patient missed %d doses on %s", count, dayStart.Format("2006-01-02")),
	}
	if err := e.alerts.Create(ctx, a); err != nil {
		return err
	}
	e.notifier.NotifyDoctorAdherenceUpdate(doctorID, patientID, StatusMissed)
	return nil
}
