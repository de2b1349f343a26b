package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrUnknownJobType is returned by the executor for a job it cannot run
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrJobDisabled is returned when a job's collaborator is not configured
	ErrJobDisabled = errors.New("job is not configured")
)
