package prescription

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	prescriptions map[uuid.UUID]*Prescription
}

func newMockRepo() *mockRepo {
	return &mockRepo{prescriptions: make(map[uuid.UUID]*Prescription)}
}

func (m *mockRepo) Create(_ context.Context, p *Prescription) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	for _, it := range p.Items {
		it.ID = uuid.New()
		it.PrescriptionID = p.ID
	}
	m.prescriptions[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	p, ok := m.prescriptions[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockRepo) GetItems(_ context.Context, prescriptionID uuid.UUID) ([]*Item, error) {
	p, ok := m.prescriptions[prescriptionID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p.Items, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	p, ok := m.prescriptions[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	p.Status = status
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, status string, limit, offset int) ([]*Prescription, int, error) {
	var result []*Prescription
	for _, p := range m.prescriptions {
		if p.PatientID == patientID && (status == "" || p.Status == status) {
			result = append(result, p)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, status string, limit, offset int) ([]*Prescription, int, error) {
	var result []*Prescription
	for _, p := range m.prescriptions {
		if p.DoctorID == doctorID && (status == "" || p.Status == status) {
			result = append(result, p)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) FirstActiveByPatient(_ context.Context, patientID uuid.UUID) (*Prescription, error) {
	var first *Prescription
	for _, p := range m.prescriptions {
		if p.PatientID == patientID && p.Status == StatusActive {
			if first == nil || p.CreatedAt.Before(first.CreatedAt) {
				first = p
			}
		}
	}
	return first, nil
}

func validPrescription() *Prescription {
	return &Prescription{
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		StartDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Items: []*Item{
			{MedicationID: uuid.New(), Dosage: "1 tablet", TimesOfDay: []string{"08:00", "20:00"}},
		},
	}
}

func TestCreatePrescription(t *testing.T) {
	svc := NewService(newMockRepo(), PassthroughTx)

	p := validPrescription()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Status != StatusActive {
		t.Errorf("expected new prescription ACTIVE, got %s", p.Status)
	}
	if p.Items[0].PrescriptionID != p.ID {
		t.Error("expected item linked to prescription")
	}
}

type failingRepo struct {
	*mockRepo
}

func (m *failingRepo) Create(_ context.Context, _ *Prescription) error {
	return fmt.Errorf("item insert failed")
}

func TestCreatePrescription_RunsInTransaction(t *testing.T) {
	repo := newMockRepo()
	txCalls := 0
	tx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		txCalls++
		return fn(ctx)
	}
	svc := NewService(repo, tx)

	if err := svc.Create(context.Background(), validPrescription()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if txCalls != 1 {
		t.Errorf("expected create to run inside the tx runner once, got %d", txCalls)
	}

	// Validation failures never reach the store, so no transaction starts.
	bad := validPrescription()
	bad.Items = nil
	if err := svc.Create(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}
	if txCalls != 1 {
		t.Errorf("expected no tx for invalid input, got %d calls", txCalls)
	}
}

func TestCreatePrescription_StoreErrorPropagates(t *testing.T) {
	svc := NewService(&failingRepo{newMockRepo()}, PassthroughTx)

	if err := svc.Create(context.Background(), validPrescription()); err == nil {
		t.Fatal("expected store error to surface")
	}
}

func TestCreatePrescription_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), PassthroughTx)

	tests := []struct {
		name   string
		mutate func(*Prescription)
	}{
		{"missing patient", func(p *Prescription) { p.PatientID = uuid.Nil }},
		{"missing doctor", func(p *Prescription) { p.DoctorID = uuid.Nil }},
		{"missing start date", func(p *Prescription) { p.StartDate = time.Time{} }},
		{"end before start", func(p *Prescription) {
			end := p.StartDate.AddDate(0, 0, -1)
			p.EndDate = &end
		}},
		{"no items", func(p *Prescription) { p.Items = nil }},
		{"item missing medication", func(p *Prescription) { p.Items[0].MedicationID = uuid.Nil }},
		{"item missing dosage", func(p *Prescription) { p.Items[0].Dosage = "" }},
		{"item no times", func(p *Prescription) { p.Items[0].TimesOfDay = nil }},
		{"item bad time", func(p *Prescription) { p.Items[0].TimesOfDay = []string{"8am"} }},
		{"item hour out of range", func(p *Prescription) { p.Items[0].TimesOfDay = []string{"24:00"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPrescription()
			tt.mutate(p)
			if err := svc.Create(context.Background(), p); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidTimeOfDay(t *testing.T) {
	valid := []string{"00:00", "08:00", "12:30", "23:59"}
	invalid := []string{"24:00", "8:00", "08:60", "0800", "08:00:00", "noon", ""}
	for _, v := range valid {
		if !ValidTimeOfDay(v) {
			t.Errorf("expected %q valid", v)
		}
	}
	for _, v := range invalid {
		if ValidTimeOfDay(v) {
			t.Errorf("expected %q invalid", v)
		}
	}
}

func TestUpdateStatus_Transitions(t *testing.T) {
	svc := NewService(newMockRepo(), PassthroughTx)

	p := validPrescription()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.UpdateStatus(context.Background(), p.ID, StatusCompleted); err != nil {
		t.Fatalf("ACTIVE -> COMPLETED should succeed: %v", err)
	}
	if err := svc.UpdateStatus(context.Background(), p.ID, StatusCancelled); err == nil {
		t.Error("COMPLETED -> CANCELLED should fail")
	}
	if err := svc.UpdateStatus(context.Background(), p.ID, StatusActive); err == nil {
		t.Error("COMPLETED -> ACTIVE should fail")
	}

	p2 := validPrescription()
	if err := svc.Create(context.Background(), p2); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := svc.UpdateStatus(context.Background(), p2.ID, StatusCancelled); err != nil {
		t.Fatalf("ACTIVE -> CANCELLED should succeed: %v", err)
	}
}

func TestActiveOn(t *testing.T) {
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)

	p := &Prescription{Status: StatusActive, StartDate: start, EndDate: &end}

	tests := []struct {
		day  time.Time
		want bool
	}{
		{time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC), false},
		{time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC), true},
		{time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tt := range tests {
		if got := p.ActiveOn(tt.day); got != tt.want {
			t.Errorf("ActiveOn(%s) = %v, want %v", tt.day.Format("2006-01-02"), got, tt.want)
		}
	}

	open := &Prescription{Status: StatusActive, StartDate: start}
	if !open.ActiveOn(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("open-ended prescription should stay active")
	}

	cancelled := &Prescription{Status: StatusCancelled, StartDate: start}
	if cancelled.ActiveOn(start) {
		t.Error("cancelled prescription should never be active")
	}
}
