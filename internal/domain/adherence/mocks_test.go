package adherence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repositories --

type mockScheduleRepo struct {
	items    []*ScheduledItem
	patients []*PatientRef

	scopeAsOf []time.Time
}

func (m *mockScheduleRepo) ItemsInScope(_ context.Context, asOf time.Time) ([]*ScheduledItem, error) {
	m.scopeAsOf = append(m.scopeAsOf, asOf)
	return m.items, nil
}

func (m *mockScheduleRepo) ItemsInScopeForPatient(_ context.Context, patientID uuid.UUID, _ time.Time) ([]*ScheduledItem, error) {
	var result []*ScheduledItem
	for _, it := range m.items {
		if it.PatientID == patientID {
			result = append(result, it)
		}
	}
	return result, nil
}

func (m *mockScheduleRepo) ItemByID(_ context.Context, itemID uuid.UUID) (*ScheduledItem, error) {
	for _, it := range m.items {
		if it.ItemID == itemID {
			return it, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockScheduleRepo) ActivePatients(_ context.Context) ([]*PatientRef, error) {
	return m.patients, nil
}

type mockLogRepo struct {
	logs map[string]*Log
}

func newMockLogRepo() *mockLogRepo {
	return &mockLogRepo{logs: make(map[string]*Log)}
}

func (m *mockLogRepo) Create(_ context.Context, l *Log) error {
	if _, ok := m.logs[l.DoseKey]; ok {
		return ErrDuplicateDose
	}
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	m.logs[l.DoseKey] = l
	return nil
}

func (m *mockLogRepo) DoseKeysInWindow(_ context.Context, from, to time.Time) (map[string]bool, error) {
	keys := make(map[string]bool)
	for key, l := range m.logs {
		if !l.TakenAt.Before(from) && l.TakenAt.Before(to) {
			keys[key] = true
		}
	}
	return keys, nil
}

func (m *mockLogRepo) StatusByDoseKey(_ context.Context, patientID uuid.UUID, from, to time.Time) (map[string]string, error) {
	statuses := make(map[string]string)
	for key, l := range m.logs {
		if l.PatientID == patientID && !l.TakenAt.Before(from) && l.TakenAt.Before(to) {
			statuses[key] = l.Status
		}
	}
	return statuses, nil
}

func (m *mockLogRepo) ListByPatient(_ context.Context, patientID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Log, int, error) {
	var result []*Log
	for _, l := range m.logs {
		if l.PatientID != patientID {
			continue
		}
		if from != nil && l.TakenAt.Before(*from) {
			continue
		}
		if to != nil && !l.TakenAt.Before(*to) {
			continue
		}
		result = append(result, l)
	}
	return result, len(result), nil
}

func (m *mockLogRepo) CountsSince(_ context.Context, patientID uuid.UUID, since time.Time) (int, int, error) {
	var taken, total int
	for _, l := range m.logs {
		if l.PatientID != patientID || l.TakenAt.Before(since) {
			continue
		}
		total++
		if l.Status == StatusTaken {
			taken++
		}
	}
	return taken, total, nil
}

type mockAlertRepo struct {
	alerts map[uuid.UUID]*Alert
	now    func() time.Time
}

func newMockAlertRepo() *mockAlertRepo {
	return &mockAlertRepo{alerts: make(map[uuid.UUID]*Alert), now: time.Now}
}

func (m *mockAlertRepo) Create(_ context.Context, a *Alert) error {
	a.ID = uuid.New()
	a.CreatedAt = m.now()
	m.alerts[a.ID] = a
	return nil
}

func (m *mockAlertRepo) matches(a *Alert, f AlertFilter) bool {
	if f.PatientID != uuid.Nil && a.PatientID != f.PatientID {
		return false
	}
	if f.DoctorID != nil && (a.DoctorID == nil || *a.DoctorID != *f.DoctorID) {
		return false
	}
	if f.PrescriptionID != nil && (a.PrescriptionID == nil || *a.PrescriptionID != *f.PrescriptionID) {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.Resolved != nil && a.Resolved != *f.Resolved {
		return false
	}
	if !f.CreatedAfter.IsZero() && a.CreatedAt.Before(f.CreatedAfter) {
		return false
	}
	if !f.CreatedBefore.IsZero() && !a.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	return true
}

func (m *mockAlertRepo) HasUnresolved(_ context.Context, f AlertFilter) (bool, error) {
	resolved := false
	f.Resolved = &resolved
	for _, a := range m.alerts {
		if m.matches(a, f) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAlertRepo) List(_ context.Context, f AlertFilter, limit, offset int) ([]*Alert, int, error) {
	var result []*Alert
	for _, a := range m.alerts {
		if m.matches(a, f) {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockAlertRepo) GetByID(_ context.Context, id uuid.UUID) (*Alert, error) {
	a, ok := m.alerts[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return a, nil
}

func (m *mockAlertRepo) Resolve(_ context.Context, id uuid.UUID) error {
	a, ok := m.alerts[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	now := time.Now()
	a.Resolved = true
	a.ResolvedAt = &now
	return nil
}

func (m *mockAlertRepo) byType(alertType string) []*Alert {
	var result []*Alert
	for _, a := range m.alerts {
		if a.Type == alertType {
			result = append(result, a)
		}
	}
	return result
}

// -- Recording Notifier --

type notifierEvent struct {
	Kind      string
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Status    string
	Message   string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifierEvent
}

func (n *recordingNotifier) NotifyDoctorAdherenceUpdate(doctorID, patientID uuid.UUID, status string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifierEvent{Kind: "doctor", DoctorID: doctorID, PatientID: patientID, Status: status})
}

func (n *recordingNotifier) NotifyPatientWarning(patientID, doctorID uuid.UUID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifierEvent{Kind: "patient", DoctorID: doctorID, PatientID: patientID, Message: message})
}

func (n *recordingNotifier) BroadcastAdherenceUpdate(patientID uuid.UUID, status string, doctorIDs []uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifierEvent{Kind: "broadcast", PatientID: patientID, Status: status})
}
