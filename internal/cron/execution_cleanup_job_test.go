package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/petcare/vetclinic-backend/pkg/db/dbtest"
	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"github.com/petcare/vetclinic-backend/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestExecutionCleanupJobDeletesRowsPastRetention(t *testing.T) {
	client := dbtest.New(t)
	repo := NewExecutionRepository(client.DB())
	now := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for _, age := range []time.Duration{time.Hour, 6 * 24 * time.Hour, 8 * 24 * time.Hour, 30 * 24 * time.Hour} {
		finished := now.Add(-age)
		require.NoError(t, repo.Record(ctx, &models.JobExecution{
			JobName:    ReminderJobName,
			Status:     enums.JobExecutionStatusSucceeded,
			StartedAt:  finished.Add(-time.Second),
			FinishedAt: finished,
		}))
	}

	jobIface, err := NewExecutionCleanupJob(ExecutionCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
	})
	require.NoError(t, err)
	job := jobIface.(*executionCleanupJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(ctx))

	remaining, err := repo.ListByJob(ctx, ReminderJobName)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	require.True(t, remaining[0].FinishedAt.After(remaining[1].FinishedAt))
}

type failingCleanupRepo struct{}

func (failingCleanupRepo) DeleteFinishedBefore(context.Context, time.Time) (int64, error) {
	return 0, errors.New("boom")
}

func TestExecutionCleanupJobPropagatesErrors(t *testing.T) {
	job, err := NewExecutionCleanupJob(ExecutionCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: failingCleanupRepo{},
	})
	require.NoError(t, err)
	require.Error(t, job.Run(context.Background()))
}
