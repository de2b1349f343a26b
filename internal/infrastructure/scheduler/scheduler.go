package scheduler

import (
	"cmp"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobType names a ledger maintenance task
type JobType string

const (
	JobTypeRepair         JobType = "RECEIPT_REPAIR"
	JobTypeOverdueRefresh JobType = "OVERDUE_REFRESH"
	JobTypeCashCutArchive JobType = "CASH_CUT_ARCHIVE"
)

// Job is one run of a maintenance task. PeriodStart and PeriodEnd bound the
// cash cut window; AsOf is the reference instant for overdue refresh.
type Job struct {
	ID          uuid.UUID
	Type        JobType
	AsOf        time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
	Status      JobStatus
	Error       string
	Result      string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
}

// NewJob creates a pending job
func NewJob(jobType JobType, asOf time.Time, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		AsOf:       asOf,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// NewCashCutJob creates an archive job for [start, end)
func NewCashCutJob(start, end time.Time, maxRetries int) *Job {
	job := NewJob(JobTypeCashCutArchive, end, maxRetries)
	job.PeriodStart = start
	job.PeriodEnd = end
	return job
}

func (j *Job) start() {
	now := time.Now()
	j.Status, j.StartedAt, j.Error = JobStatusRunning, &now, ""
}

func (j *Job) finish(result string, err error) {
	now := time.Now()
	j.CompletedAt = &now
	if err != nil {
		j.Status, j.Error = JobStatusFailed, err.Error()
		return
	}
	j.Status, j.Result = JobStatusSuccess, result
}

func (j *Job) shouldRetry(err error) bool {
	return j.RetryCount < j.MaxRetries && !errors.Is(err, ErrUnknownJobType) && !errors.Is(err, ErrJobDisabled)
}

// JobExecutor runs a job and returns a short human-readable result
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) (string, error)
}

// Config holds worker pool settings
type Config struct {
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
	QueueSize         int
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrentJobs: 2,
		JobTimeout:        10 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        time.Minute,
		QueueSize:         32,
	}
}

// Scheduler runs maintenance jobs on a fixed worker pool
type Scheduler struct {
	config   Config
	executor JobExecutor
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRuns  map[JobType]Job
	retries   map[uuid.UUID]*time.Timer
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config Config, executor JobExecutor, logger *zap.Logger) *Scheduler {
	defaults := DefaultConfig()
	config.MaxConcurrentJobs = cmp.Or(max(config.MaxConcurrentJobs, 0), defaults.MaxConcurrentJobs)
	config.JobTimeout = cmp.Or(max(config.JobTimeout, 0), defaults.JobTimeout)
	config.QueueSize = cmp.Or(max(config.QueueSize, 0), defaults.QueueSize)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *Job, config.QueueSize),
		lastRuns: make(map[JobType]Job),
		retries:  make(map[uuid.UUID]*time.Timer),
	}
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := range s.config.MaxConcurrentJobs {
		s.wg.Go(func() { s.worker(ctx, i) })
	}

	s.logger.Info("Maintenance scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	for id, timer := range s.retries {
		timer.Stop()
		delete(s.retries, id)
	}
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Maintenance scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Maintenance scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues a job without blocking
func (s *Scheduler) Submit(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// LastRun returns a copy of the most recent finished run of jobType
func (s *Scheduler) LastRun(jobType JobType) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.lastRuns[jobType]
	return job, ok
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	job.start()
	logger := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
	)
	logger.Info("Processing job")

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	result, err := s.execute(jobCtx, job)
	job.finish(result, err)
	s.record(job)
	if err == nil {
		logger.Info("Job completed successfully", zap.String("result", result))
		return
	}
	logger.Error("Job failed", zap.Int("retry_count", job.RetryCount), zap.Error(err))
	if ctx.Err() == nil && job.shouldRetry(err) {
		s.scheduleRetry(job)
	}
}

func (s *Scheduler) execute(ctx context.Context, job *Job) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("job panicked")
			s.logger.Error("Job panicked", zap.String("job_id", job.ID.String()), zap.Any("panic", r))
		}
	}()
	return s.executor.Execute(ctx, job)
}

func (s *Scheduler) record(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRuns[job.Type] = *job
}

// scheduleRetry resubmits job after RetryDelay. The pending timer is dropped
// when the scheduler stops.
func (s *Scheduler) scheduleRetry(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}

	job.RetryCount++
	job.Status = JobStatusPending
	s.retries[job.ID] = time.AfterFunc(s.config.RetryDelay, func() {
		s.mu.Lock()
		delete(s.retries, job.ID)
		s.mu.Unlock()
		if err := s.Submit(job); err != nil {
			s.logger.Warn("Failed to re-queue job for retry",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	})
	s.logger.Info("Job scheduled for retry",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
	)
}
