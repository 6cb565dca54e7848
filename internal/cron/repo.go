package cron

import (
	"context"
	"time"

	"github.com/petcare/vetclinic-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ExecutionRepository persists job_executions audit rows.
type ExecutionRepository struct {
	db *gorm.DB
}

func NewExecutionRepository(db *gorm.DB) *ExecutionRepository {
	return &ExecutionRepository{db: db}
}

func (r *ExecutionRepository) Record(ctx context.Context, exec *models.JobExecution) error {
	return r.db.WithContext(ctx).Create(exec).Error
}

// DeleteFinishedBefore removes rows whose run ended before cutoff.
func (r *ExecutionRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("finished_at < ?", cutoff).Delete(&models.JobExecution{})
	return res.RowsAffected, res.Error
}

// ListByJob returns the most recent executions first.
func (r *ExecutionRepository) ListByJob(ctx context.Context, jobName string) ([]models.JobExecution, error) {
	var out []models.JobExecution
	err := r.db.WithContext(ctx).
		Where("job_name = ?", jobName).
		Order("finished_at DESC").
		Find(&out).Error
	return out, err
}
