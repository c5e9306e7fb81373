// Package scheduler runs periodic maintenance jobs with bounded concurrency,
// a per-run timeout and a fixed retry policy.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cloudpos/backend/internal/infrastructure/config"
	"github.com/cloudpos/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Config holds scheduler settings
type Config struct {
	Enabled           bool
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		MaxConcurrentJobs: 3,
		JobTimeout:        5 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        30 * time.Second,
	}
}

// ConfigFrom maps application configuration, filling defaults
func ConfigFrom(cfg config.SchedulerConfig) Config {
	c := DefaultConfig()
	c.Enabled = cfg.Enabled
	if cfg.MaxConcurrentJobs > 0 {
		c.MaxConcurrentJobs = cfg.MaxConcurrentJobs
	}
	if cfg.JobTimeout > 0 {
		c.JobTimeout = cfg.JobTimeout
	}
	if cfg.RetryAttempts >= 0 {
		c.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		c.RetryDelay = cfg.RetryDelay
	}
	return c
}

type jobState struct {
	job     Job
	mu      sync.Mutex
	running bool
	lastRun *JobRun
}

// Scheduler ticks each registered job on its own interval
type Scheduler struct {
	config   Config
	recorder RunRecorder
	logger   *zap.Logger
	sem      *semaphore.Weighted

	mu        sync.Mutex
	jobs      map[string]*jobState
	cancel    context.CancelFunc
	runCtx    context.Context
	wg        sync.WaitGroup
	isRunning bool
}

// NewScheduler creates a scheduler. recorder may be nil.
func NewScheduler(cfg Config, recorder RunRecorder, logger *zap.Logger) *Scheduler {
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:   cfg,
		recorder: recorder,
		logger:   logger,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs)),
		jobs:     make(map[string]*jobState),
	}
}

// Register adds a job. Jobs registered after Start begin ticking immediately.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Interval <= 0 || job.Run == nil {
		return fmt.Errorf("%w: %q", ErrInvalidJob, job.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("%w: duplicate %q", ErrInvalidJob, job.Name)
	}
	st := &jobState{job: job}
	s.jobs[job.Name] = st
	if s.isRunning {
		s.startLoop(s.runCtx, st)
	}
	return nil
}

// Start launches one ticker loop per job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	if !s.config.Enabled {
		s.logger.Info("Scheduler disabled")
		return nil
	}
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.isRunning = true
	for _, st := range s.jobs {
		s.startLoop(s.runCtx, st)
	}
	s.logger.Info("Scheduler started",
		zap.Int("jobs", len(s.jobs)),
		zap.Int("max_concurrent", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels the loops and waits for running jobs or ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger runs a job now and waits for the result
func (s *Scheduler) Trigger(ctx context.Context, name string) (*JobRun, error) {
	s.mu.Lock()
	st, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	return s.execute(ctx, st)
}

// Status returns the last run of each job, sorted by name
func (s *Scheduler) Status() []JobRun {
	s.mu.Lock()
	states := make([]*jobState, 0, len(s.jobs))
	for _, st := range s.jobs {
		states = append(states, st)
	}
	s.mu.Unlock()

	out := make([]JobRun, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		if st.lastRun != nil {
			out = append(out, *st.lastRun)
		} else {
			out = append(out, JobRun{JobName: st.job.Name})
		}
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobName < out[j].JobName })
	return out
}

// startLoop must be called with s.mu held
func (s *Scheduler) startLoop(ctx context.Context, st *jobState) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(st.job.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.execute(ctx, st); err != nil && !errors.Is(err, ErrJobAlreadyRunning) && ctx.Err() == nil {
					s.logger.Error("Scheduled job failed", zap.String("job", st.job.Name), zap.Error(err))
				}
			}
		}
	}()
}

// execute runs one job with retries. Overlapping runs of the same job are refused.
func (s *Scheduler) execute(ctx context.Context, st *jobState) (*JobRun, error) {
	st.mu.Lock()
	if st.running {
		st.mu.Unlock()
		return nil, ErrJobAlreadyRunning
	}
	st.running = true
	st.mu.Unlock()
	defer func() {
		st.mu.Lock()
		st.running = false
		st.mu.Unlock()
	}()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	ctx, span := telemetry.StartSpan(ctx, "scheduler."+st.job.Name)
	run := newJobRun(st.job.Name)
	if s.recorder != nil {
		if err := s.recorder.RecordStart(ctx, run); err != nil {
			s.logger.Warn("Failed to record job start", zap.String("job", run.JobName), zap.Error(err))
		}
	}

	var (
		processed int
		err       error
	)
	for attempt := 0; attempt <= s.config.RetryAttempts; attempt++ {
		run.Attempts = attempt + 1
		processed, err = s.attempt(ctx, st.job)
		if err == nil || ctx.Err() != nil {
			break
		}
		s.logger.Warn("Job attempt failed",
			zap.String("job", run.JobName),
			zap.Int("attempt", run.Attempts),
			zap.Error(err),
		)
		if attempt == s.config.RetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(s.config.RetryDelay):
		}
	}
	run.finish(processed, err)
	telemetry.EndSpan(span, err)

	if s.recorder != nil {
		// the run context may already be cancelled at shutdown
		if recErr := s.recorder.RecordFinish(context.WithoutCancel(ctx), run); recErr != nil {
			s.logger.Warn("Failed to record job finish", zap.String("job", run.JobName), zap.Error(recErr))
		}
	}

	st.mu.Lock()
	last := *run
	st.lastRun = &last
	st.mu.Unlock()

	if err != nil {
		return run, err
	}
	s.logger.Info("Job completed",
		zap.String("job", run.JobName),
		zap.Int("processed", processed),
		zap.Duration("duration", run.Duration()),
	)
	return run, nil
}

func (s *Scheduler) attempt(ctx context.Context, job Job) (n int, err error) {
	jobCtx := ctx
	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(jobCtx)
}
