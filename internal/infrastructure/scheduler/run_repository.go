package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobRunRecord is the scheduler_job_runs row
type JobRunRecord struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	JobName     string     `gorm:"column:job_name;size:100;not null"`
	Status      string     `gorm:"column:status;size:20;not null"`
	Attempts    int        `gorm:"column:attempts"`
	Processed   int        `gorm:"column:processed"`
	Error       string     `gorm:"column:error;type:text"`
	StartedAt   time.Time  `gorm:"column:started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
}

// TableName returns the table name for GORM
func (JobRunRecord) TableName() string {
	return "scheduler_job_runs"
}

// GormRunRecorder stores job runs in Postgres
type GormRunRecorder struct {
	db *gorm.DB
}

var _ RunRecorder = (*GormRunRecorder)(nil)

// NewGormRunRecorder creates the recorder
func NewGormRunRecorder(db *gorm.DB) *GormRunRecorder {
	return &GormRunRecorder{db: db}
}

// RecordStart inserts the running row
func (r *GormRunRecorder) RecordStart(ctx context.Context, run *JobRun) error {
	return r.db.WithContext(ctx).Create(&JobRunRecord{
		ID:        run.ID,
		JobName:   run.JobName,
		Status:    string(run.Status),
		StartedAt: run.StartedAt,
	}).Error
}

// RecordFinish stores the outcome
func (r *GormRunRecorder) RecordFinish(ctx context.Context, run *JobRun) error {
	return r.db.WithContext(ctx).
		Model(&JobRunRecord{}).
		Where("id = ?", run.ID).
		Updates(map[string]any{
			"status":       string(run.Status),
			"attempts":     run.Attempts,
			"processed":    run.Processed,
			"error":        run.Error,
			"completed_at": run.CompletedAt,
		}).Error
}

// LastRun returns the latest run of a job
func (r *GormRunRecorder) LastRun(ctx context.Context, jobName string) (*JobRunRecord, error) {
	var rec JobRunRecord
	if err := r.db.WithContext(ctx).
		Where("job_name = ?", jobName).
		Order("started_at DESC").
		First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}
