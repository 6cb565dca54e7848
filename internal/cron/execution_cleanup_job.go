package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/petcare/vetclinic-backend/pkg/logger"
)

const (
	ExecutionCleanupJobName   = "job_execution_cleanup"
	defaultExecutionRetention = 7 * 24 * time.Hour
)

type executionCleanupRepo interface {
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ExecutionCleanupJobParams struct {
	Logger     *logger.Logger
	Repository executionCleanupRepo
	Retention  time.Duration
}

// NewExecutionCleanupJob prunes job_executions rows older than Retention.
func NewExecutionCleanupJob(params ExecutionCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("job execution repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultExecutionRetention
	}
	return &executionCleanupJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type executionCleanupJob struct {
	logg      *logger.Logger
	repo      executionCleanupRepo
	retention time.Duration
	now       func() time.Time
}

func (j *executionCleanupJob) Name() string { return ExecutionCleanupJobName }

func (j *executionCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("job execution cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "job execution cleanup complete")
	return nil
}
