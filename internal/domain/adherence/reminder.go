package adherence

import (
	"context"
	"fmt"
	"time"
)

// RemindUpcoming finds dose slots due within the reminder horizon and emits
// one UPCOMING_REMINDER alert per (prescription, patient), suppressed for an
// hour after the last one. A failed reminder is retried naturally on the next
// tick while the slot stays inside the horizon.
func (e *Engine) RemindUpcoming(ctx context.Context) error {
	now := e.now().In(e.loc)
	horizonEnd := now.Add(e.horizon)

	// Scope by calendar day so a prescription ending today still gets its
	// final reminders; end_date is a date compared at midnight.
	items, err := e.schedules.ItemsInScope(ctx, DayStart(now, e.loc))
	if err != nil {
		return fmt.Errorf("load items in scope: %w", err)
	}

	for _, item := range items {
		for _, slot := range SlotsForDay(item, now, e.loc) {
			if slot.At.Before(now) || slot.At.After(horizonEnd) {
				continue
			}
			if err := e.raiseReminder(ctx, item, slot, now); err != nil {
				e.logger.Error().Err(err).Str("dose_key", slot.Key).Msg("failed to raise reminder")
			}
		}
	}
	return nil
}

func (e *Engine) raiseReminder(ctx context.Context, item *ScheduledItem, slot DoseSlot, now time.Time) error {
	exists, err := e.alerts.HasUnresolved(ctx, AlertFilter{
		PatientID:      item.PatientID,
		PrescriptionID: &item.PrescriptionID,
		Type:           AlertUpcomingReminder,
		CreatedAfter:   now.Add(-time.Hour),
	})
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	message := fmt.Sprintf("Time to take %s %s (%s) at %s",
		item.MedicationName, item.MedicationStrength, item.Dosage, slot.TimeOfDay)
	a := &Alert{
		PatientID:      item.PatientID,
		DoctorID:       &item.DoctorID,
		PrescriptionID: &item.PrescriptionID,
		Type:           AlertUpcomingReminder,
		Message:        message,
	}
	if err := e.alerts.Create(ctx, a); err != nil {
		return err
	}
	e.notifier.NotifyPatientWarning(item.PatientID, item.DoctorID, message)
	return nil
}

// DispatchDueReminders pushes a realtime nudge for every dose slot landing on
// the current minute. Nothing is persisted; a patient who is offline simply
// misses the nudge and still has the persisted reminder from RemindUpcoming.
func (e *Engine) DispatchDueReminders(ctx context.Context) error {
	now := e.now().In(e.loc)
	minute := now.Truncate(time.Minute)

	items, err := e.schedules.ItemsInScope(ctx, DayStart(now, e.loc))
	if err != nil {
		return fmt.Errorf("load items in scope: %w", err)
	}

	for _, item := range items {
		for _, slot := range SlotsForDay(item, now, e.loc) {
			if !slot.At.Equal(minute) {
				continue
			}
			message := fmt.Sprintf("It is %s: take %s %s (%s)",
				slot.TimeOfDay, item.MedicationName, item.MedicationStrength, item.Dosage)
			e.notifier.NotifyPatientWarning(item.PatientID, item.DoctorID, message)
		}
	}
	return nil
}
