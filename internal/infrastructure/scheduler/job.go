package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the outcome of one job run
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// JobFunc does the work of a job and reports how many items it touched
type JobFunc func(ctx context.Context) (int, error)

// Job is a named task run on a fixed interval
type Job struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
}

// JobRun is the record of one execution, including retries
type JobRun struct {
	ID          uuid.UUID
	JobName     string
	Status      RunStatus
	Attempts    int
	Processed   int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

func newJobRun(name string) *JobRun {
	return &JobRun{
		ID:        uuid.New(),
		JobName:   name,
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}
}

func (r *JobRun) finish(processed int, err error) {
	now := time.Now()
	r.CompletedAt = &now
	r.Processed = processed
	if err != nil {
		r.Status = RunStatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = RunStatusSuccess
	r.Error = ""
}

// Duration returns how long the run took, or zero while running
func (r *JobRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// RunRecorder persists job runs
type RunRecorder interface {
	RecordStart(ctx context.Context, run *JobRun) error
	RecordFinish(ctx context.Context, run *JobRun) error
}
