package adherence

import (
	"time"

	"github.com/rs/zerolog"
)

// Engine runs the scheduled adherence jobs: missed-dose marking, upcoming
// reminders and low-adherence aggregation. All time arithmetic uses the
// injected clock and location, which keeps the jobs deterministic in tests.
type Engine struct {
	schedules ScheduleRepository
	logs      LogRepository
	alerts    AlertRepository
	notifier  Notifier
	logger    zerolog.Logger

	now func() time.Time
	loc *time.Location

	horizon     time.Duration
	rateWindow  time.Duration
	rateMinimum float64
}

type EngineOption func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the timezone used for day boundaries and slot instants.
func WithLocation(loc *time.Location) EngineOption {
	return func(e *Engine) { e.loc = loc }
}

// WithHorizon sets how far ahead the reminder job looks.
func WithHorizon(d time.Duration) EngineOption {
	return func(e *Engine) { e.horizon = d }
}

// WithRateWindow sets the trailing window for adherence rate computation.
func WithRateWindow(d time.Duration) EngineOption {
	return func(e *Engine) { e.rateWindow = d }
}

// WithRateThreshold sets the percentage below which a low-adherence alert fires.
func WithRateThreshold(pct float64) EngineOption {
	return func(e *Engine) { e.rateMinimum = pct }
}

func NewEngine(schedules ScheduleRepository, logs LogRepository, alerts AlertRepository, notifier Notifier, logger zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		schedules:   schedules,
		logs:        logs,
		alerts:      alerts,
		notifier:    notifier,
		logger:      logger.With().Str("component", "adherence-engine").Logger(),
		now:         time.Now,
		loc:         time.UTC,
		horizon:     30 * time.Minute,
		rateWindow:  7 * 24 * time.Hour,
		rateMinimum: 70,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
