package scheduler

import "errors"

var (
	// ErrJobNotFound is returned for an unregistered job name
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyRunning is returned when a run of the same job is in progress
	ErrJobAlreadyRunning = errors.New("job already running")

	// ErrInvalidJob is returned when registering a job without name, interval or func
	ErrInvalidJob = errors.New("invalid job definition")
)
