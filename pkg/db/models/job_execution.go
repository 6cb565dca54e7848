package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/petcare/vetclinic-backend/pkg/enums"
	"gorm.io/gorm"
)

// JobExecution is the audit row written for every periodic job run.
type JobExecution struct {
	ID         uuid.UUID                `gorm:"type:uuid;primaryKey"`
	JobName    string                   `gorm:"column:job_name;not null;index"`
	Status     enums.JobExecutionStatus `gorm:"column:status;type:text;not null"`
	Error      *string                  `gorm:"column:error"`
	StartedAt  time.Time                `gorm:"column:started_at;not null"`
	FinishedAt time.Time                `gorm:"column:finished_at;not null;index"`
}

func (JobExecution) TableName() string { return "job_executions" }

func (j *JobExecution) BeforeCreate(*gorm.DB) error {
	assignID(&j.ID)
	return nil
}
