package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Scheduler fires the runner on a standard five-field cron spec.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	spec     string
	runner   *Runner
	log      zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

type SchedulerDependencies struct {
	Spec   string
	Runner *Runner
}

func NewScheduler(deps SchedulerDependencies) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(deps.Spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", deps.Spec, err)
	}

	logger := log.With().Str("component", "scheduler").Logger()
	cronLog := cronLogger{log: logger}

	s := &Scheduler{
		schedule: schedule,
		spec:     deps.Spec,
		runner:   deps.Runner,
		log:      logger,
		ctx:      context.Background(),
	}

	s.cron = cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	s.cron.Schedule(schedule, cron.FuncJob(s.fire))

	return s, nil
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	_, err := s.runner.Trigger(ctx, domain.TriggerSchedule)
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		s.log.Warn().Msg("Previous run still in progress, skipping tick")
	case err != nil:
		s.log.Error().Err(err).Msg("Scheduled run failed")
	}
}

// Start begins firing. Runs started by the schedule see ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()

	s.log.Info().
		Str("schedule", s.spec).
		Time("next_run", s.Next(time.Now())).
		Msg("Scheduler started")
}

// Stop halts the schedule and waits for a running job until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()

	defer func() {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
	}()

	select {
	case <-stopped.Done():
		s.log.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop interrupted: %w", ctx.Err())
	}
}

func (s *Scheduler) Next(after time.Time) time.Time {
	return s.schedule.Next(after)
}
