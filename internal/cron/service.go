package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"github.com/petcare/vetclinic-backend/pkg/metrics"
)

const defaultInterval = 5 * time.Minute

type executionRecorder interface {
	Record(ctx context.Context, exec *models.JobExecution) error
}

type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.JobMetrics
	Executions executionRecorder
	Interval   time.Duration
	Clock      func() time.Time
}

// Service wakes every interval, takes the cluster lock when at least one job
// is due and runs the due jobs in registration order. A failing job never
// stops the ones after it.
type Service struct {
	logg       *logger.Logger
	jobs       *Registry
	lock       Lock
	metrics    *metrics.JobMetrics
	executions executionRecorder
	interval   time.Duration
	clock      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("cron: logger required")
	case params.Lock == nil:
		return nil, errors.New("cron: lock required")
	}
	s := &Service{
		logg:       params.Logger,
		jobs:       params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		executions: params.Executions,
		interval:   params.Interval,
		clock:      params.Clock,
	}
	if s.jobs == nil {
		s.jobs = &Registry{}
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s, nil
}

// Run blocks until ctx is done. The first cycle starts immediately.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"jobs": s.jobs.Len(), "interval": s.interval.String()}), "cron loop started")

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) dueJobs(now time.Time) []Job {
	var due []Job
	for _, job := range s.jobs.Jobs() {
		if gated, ok := job.(Scheduled); ok && !gated.Due(now) {
			continue
		}
		due = append(due, job)
	}
	return due
}

func (s *Service) runCycle(ctx context.Context) error {
	due := s.dueJobs(s.clock())
	if len(due) == 0 {
		return nil
	}

	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	if !held {
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "release cron lock", err)
		}
	}()

	cycleCtx := s.logg.WithField(ctx, "due_jobs", len(due))
	s.logg.Info(cycleCtx, "cron cycle starting")
	for _, job := range due {
		s.record(ctx, s.runJob(ctx, job))
	}
	s.logg.Info(cycleCtx, "cron cycle finished")
	return nil
}

// runJob runs one job and returns the execution row describing it.
func (s *Service) runJob(ctx context.Context, job Job) *models.JobExecution {
	name := job.Name()
	ctx = s.logg.WithFields(s.logg.WithJobName(ctx, name), map[string]any{"event": "cron.job"})

	started := s.clock()
	runErr := job.Run(ctx)
	finished := s.clock()
	elapsed := finished.Sub(started)
	s.metrics.Observe(name, elapsed, finished, runErr)

	exec := &models.JobExecution{
		JobName:    name,
		Status:     enums.JobExecutionStatusSucceeded,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
	}
	ctx = s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())
	if runErr != nil {
		msg := runErr.Error()
		exec.Status = enums.JobExecutionStatusFailed
		exec.Error = &msg
		s.logg.Error(ctx, "job failed", runErr)
		return exec
	}
	s.logg.Info(ctx, "job finished")
	return exec
}

func (s *Service) record(ctx context.Context, exec *models.JobExecution) {
	if s.executions == nil {
		return
	}
	if err := s.executions.Record(ctx, exec); err != nil {
		s.logg.Error(s.logg.WithJobName(ctx, exec.JobName), "record job execution", err)
	}
}
