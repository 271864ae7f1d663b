package reports

import (
	"context"
	"testing"
	"time"
)

type mockRepo struct {
	overview *Overview
	gotSince time.Time
}

func (m *mockRepo) Overview(_ context.Context, since time.Time) (*Overview, error) {
	m.gotSince = since
	return m.overview, nil
}

func TestOverview(t *testing.T) {
	repo := &mockRepo{overview: &Overview{
		TotalPrescriptions:  10,
		ActivePrescriptions: 4,
		ActivePatients:      3,
		UnresolvedAlerts:    2,
		AdherenceRate:       82.5,
	}}
	svc := NewService(repo, 30)
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	o, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if o.WindowDays != 30 {
		t.Errorf("expected window days 30, got %d", o.WindowDays)
	}
	want := now.AddDate(0, 0, -30)
	if !repo.gotSince.Equal(want) {
		t.Errorf("expected since %s, got %s", want, repo.gotSince)
	}
	if o.AdherenceRate != 82.5 {
		t.Errorf("unexpected adherence rate %v", o.AdherenceRate)
	}
}
