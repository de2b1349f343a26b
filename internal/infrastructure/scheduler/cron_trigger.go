package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CronTriggerConfig holds the cadence of each maintenance job. A zero
// interval disables that job.
type CronTriggerConfig struct {
	RepairInterval         time.Duration
	OverdueRefreshInterval time.Duration

	// ArchiveEnabled turns on the daily cash cut archive at ArchiveHour:ArchiveMinute UTC
	ArchiveEnabled bool
	ArchiveHour    int
	ArchiveMinute  int

	// CheckInterval is how often the trigger wakes up
	CheckInterval time.Duration
	RetryAttempts int
}

// DefaultCronTriggerConfig returns default cron trigger configuration
func DefaultCronTriggerConfig() CronTriggerConfig {
	return CronTriggerConfig{
		RepairInterval:         time.Hour,
		OverdueRefreshInterval: 15 * time.Minute,
		ArchiveHour:            0,
		ArchiveMinute:          5,
		CheckInterval:          time.Minute,
		RetryAttempts:          3,
	}
}

// CronTrigger submits maintenance jobs to the Scheduler when they are due
type CronTrigger struct {
	config    CronTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger
	now       func() time.Time

	cancel          context.CancelFunc
	wg              sync.WaitGroup
	mu              sync.Mutex
	isRunning       bool
	lastRepair      time.Time
	lastOverdue     time.Time
	lastArchiveDate string
}

// NewCronTrigger creates a new cron trigger
func NewCronTrigger(config CronTriggerConfig, scheduler *Scheduler, logger *zap.Logger) *CronTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start starts the trigger loop. The interval jobs run once right away.
func (c *CronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Go(func() { c.runLoop(ctx) })

	c.logger.Info("Cron trigger started",
		zap.Duration("repair_interval", c.config.RepairInterval),
		zap.Duration("overdue_refresh_interval", c.config.OverdueRefreshInterval),
		zap.Bool("archive_enabled", c.config.ArchiveEnabled),
		zap.Int("archive_hour", c.config.ArchiveHour),
		zap.Int("archive_minute", c.config.ArchiveMinute),
	)
	return nil
}

// Stop stops the cron trigger
func (c *CronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTrigger) runLoop(ctx context.Context) {
	c.checkAndTrigger()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger()
		}
	}
}

// checkAndTrigger submits every job whose time has come
func (c *CronTrigger) checkAndTrigger() {
	now := c.now()

	c.mu.Lock()
	runRepair := due(c.config.RepairInterval, c.lastRepair, now)
	runOverdue := due(c.config.OverdueRefreshInterval, c.lastOverdue, now)
	today := now.Format(time.DateOnly)
	archiveAt := time.Date(now.Year(), now.Month(), now.Day(), c.config.ArchiveHour, c.config.ArchiveMinute, 0, 0, time.UTC)
	runArchive := c.config.ArchiveEnabled && c.lastArchiveDate != today && !now.Before(archiveAt)
	c.mu.Unlock()

	if runRepair && c.submit(NewJob(JobTypeRepair, now, c.config.RetryAttempts)) {
		c.mu.Lock()
		c.lastRepair = now
		c.mu.Unlock()
	}
	if runOverdue && c.submit(NewJob(JobTypeOverdueRefresh, now, c.config.RetryAttempts)) {
		c.mu.Lock()
		c.lastOverdue = now
		c.mu.Unlock()
	}
	if runArchive {
		// Archive the previous UTC day
		end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if c.submit(NewCashCutJob(end.AddDate(0, 0, -1), end, c.config.RetryAttempts)) {
			c.mu.Lock()
			c.lastArchiveDate = today
			c.mu.Unlock()
		}
	}
}

func (c *CronTrigger) submit(job *Job) bool {
	if err := c.scheduler.Submit(job); err != nil {
		c.logger.Warn("Failed to submit maintenance job",
			zap.String("job_type", string(job.Type)),
			zap.Error(err),
		)
		return false
	}
	return true
}

func due(interval time.Duration, last, now time.Time) bool {
	if interval <= 0 {
		return false
	}
	return last.IsZero() || now.Sub(last) >= interval
}

// TriggerNow submits a job of jobType immediately. Cash cut jobs cover the
// previous UTC day.
func (c *CronTrigger) TriggerNow(jobType JobType) error {
	now := c.now()
	if jobType == JobTypeCashCutArchive {
		end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return c.scheduler.Submit(NewCashCutJob(end.AddDate(0, 0, -1), end, c.config.RetryAttempts))
	}
	return c.scheduler.Submit(NewJob(jobType, now, c.config.RetryAttempts))
}
