package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"humanityclub/site/internal/config"
	"humanityclub/site/internal/queue"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload any) error
}

// Scheduler enqueues the nightly maintenance tasks; the worker runs them.
type Scheduler struct {
	cron  *cron.Cron
	queue Enqueuer
	cfg   config.JobsConfig
	log   zerolog.Logger
}

func NewScheduler(queue Enqueuer, cfg config.JobsConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:  c,
		queue: queue,
		cfg:   cfg,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.DedupeSchedule, s.enqueue(queue.TypeProjectsDedupe)); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.enqueue(queue.TypeObjectsSweep)); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for running jobs for at most five seconds.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueue(taskType string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.queue.Enqueue(ctx, taskType, nil); err != nil {
			s.log.Error().Err(err).Str("type", taskType).Msg("enqueue maintenance task failed")
			return
		}
		s.log.Info().Str("type", taskType).Msg("maintenance task enqueued")
	}
}
