package reports

import (
	"context"
	"time"
)

// Overview aggregates headline numbers for the admin dashboard.
type Overview struct {
	TotalPrescriptions  int     `json:"total_prescriptions"`
	ActivePrescriptions int     `json:"active_prescriptions"`
	ActivePatients      int     `json:"active_patients"`
	UnresolvedAlerts    int     `json:"unresolved_alerts"`
	AdherenceRate       float64 `json:"adherence_rate"`
	WindowDays          int     `json:"window_days"`
}

type Repository interface {
	Overview(ctx context.Context, since time.Time) (*Overview, error)
}

type Service struct {
	repo       Repository
	windowDays int
	now        func() time.Time
}

func NewService(repo Repository, windowDays int) *Service {
	return &Service{repo: repo, windowDays: windowDays, now: time.Now}
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	o, err := s.repo.Overview(ctx, s.now().AddDate(0, 0, -s.windowDays))
	if err != nil {
		return nil, err
	}
	o.WindowDays = s.windowDays
	return o, nil
}
