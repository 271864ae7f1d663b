package adherence

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// CheckLowAdherence computes each active patient's trailing adherence rate
// and alerts the doctor of their earliest active prescription when it falls
// below the threshold. Patients with no logs in the window are skipped rather
// than penalized. One alert per (patient, doctor) per 24 hours.
func (e *Engine) CheckLowAdherence(ctx context.Context) error {
	now := e.now().In(e.loc)
	since := now.Add(-e.rateWindow)

	patients, err := e.schedules.ActivePatients(ctx)
	if err != nil {
		return fmt.Errorf("load active patients: %w", err)
	}

	for _, p := range patients {
		if err := e.checkPatient(ctx, p, since, now); err != nil {
			e.logger.Error().Err(err).Stringer("patient_id", p.ID).Msg("low-adherence check failed")
		}
	}
	return nil
}

func (e *Engine) checkPatient(ctx context.Context, p *PatientRef, since, now time.Time) error {
	taken, total, err := e.logs.CountsSince(ctx, p.ID, since)
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}
	rate := float64(taken) / float64(total) * 100
	if rate >= e.rateMinimum {
		return nil
	}
	return e.raiseLowAdherenceAlert(ctx, p.ID, p.DoctorID, rate, now)
}

func (e *Engine) raiseLowAdherenceAlert(ctx context.Context, patientID, doctorID uuid.UUID, rate float64, now time.Time) error {
	exists, err := e.alerts.HasUnresolved(ctx, AlertFilter{
		PatientID:    patientID,
		DoctorID:     &doctorID,
		Type:         AlertLowAdherence,
		CreatedAfter: now.Add(-24 * time.Hour),
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
		Type:      AlertLowAdherence,
		Message:   fmt.Sprintf("Adherence rate %d%% over the last %d days", int(math.Round(rate)), int(e.rateWindow.Hours()/24)),
	}
	if err := e.alerts.Create(ctx, a); err != nil {
		return err
	}
	e.notifier.NotifyDoctorAdherenceUpdate(doctorID, patientID, AlertLowAdherence)
	return nil
}
