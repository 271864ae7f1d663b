package adherence

import "github.com/google/uuid"

// Notifier pushes adherence events to connected clients. Calls are
// fire-and-forget; implementations must never block on slow consumers and
// failures are at most logged.
type Notifier interface {
	NotifyDoctorAdherenceUpdate(doctorID, patientID uuid.UUID, status string)
	NotifyPatientWarning(patientID, doctorID uuid.UUID, message string)
	BroadcastAdherenceUpdate(patientID uuid.UUID, status string, doctorIDs []uuid.UUID)
}

// NopNotifier discards all events. Used when no realtime channel is wired.
type NopNotifier struct{}

func (NopNotifier) NotifyDoctorAdherenceUpdate(_, _ uuid.UUID, _ string)       {}
func (NopNotifier) NotifyPatientWarning(_, _ uuid.UUID, _ string)              {}
func (NopNotifier) BroadcastAdherenceUpdate(_ uuid.UUID, _ string, _ []uuid.UUID) {}
