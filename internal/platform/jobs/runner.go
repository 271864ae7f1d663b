// Package jobs runs the periodic background jobs. Each job is registered
// with a cron expression; failures and panics are contained per job so one
// bad tick never takes the process down or blocks the other jobs.
package jobs

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a single unit of scheduled work. Implementations must be reentrant:
// a run that dies mid-way is retried from scratch on the next tick.
type Job func(ctx context.Context) error

// Runner schedules jobs on cron expressions. All expressions are evaluated
// in UTC.
type Runner struct {
	cron   *cron.Cron
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunner creates a Runner. Jobs registered on it do not start until
// Start is called.
func NewRunner(logger zerolog.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	return &Runner{
		cron:   cron.New(cron.WithLocation(time.UTC), cron.WithParser(parser)),
		logger: logger.With().Str("component", "jobs").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register schedules job under the given cron spec. The job's error is
// logged and swallowed; a panic inside the job is recovered and logged.
func (r *Runner) Register(spec, name string, job Job) error {
	_, err := r.cron.AddFunc(spec, func() {
		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				var stack [4096]byte
				n := runtime.Stack(stack[:], false)
				r.logger.Error().
					Str("job", name).
					Str("panic", fmt.Sprintf("%v", rec)).
					Str("stack", string(stack[:n])).
					Msg("job panicked")
			}
		}()

		if err := job(r.ctx); err != nil {
			r.logger.Error().Err(err).Str("job", name).Msg("job failed")
			return
		}
		r.logger.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job completed")
	})
	if err != nil {
		return fmt.Errorf("register job %s (%q): %w", name, spec, err)
	}
	return nil
}

// Start begins scheduling. Returns immediately; jobs fire on their own
// goroutines.
func (r *Runner) Start() {
	r.cron.Start()
	r.logger.Info().Int("jobs", len(r.cron.Entries())).Msg("job runner started")
}

// Stop cancels the job context and waits for running jobs to finish.
func (r *Runner) Stop() {
	r.cancel()
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	r.logger.Info().Msg("job runner stopped")
}
