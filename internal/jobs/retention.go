package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrScheduleRequired is returned when the retention job has no cron expression.
var ErrScheduleRequired = errors.New("retention schedule must be provided")

// AuditCleaner removes audit rows older than the retention window.
type AuditCleaner interface {
	CleanupOldLogs(ctx context.Context, daysToKeep int) (int64, error)
}

// RetentionJob runs audit cleanup on a cron schedule.
type RetentionJob struct {
	cleaner    AuditCleaner
	daysToKeep int
	timeout    time.Duration
	logger     zerolog.Logger

	cron    *cron.Cron
	running sync.Mutex
}

// NewRetentionJob registers the cleanup under schedule. The job is not started.
func NewRetentionJob(cleaner AuditCleaner, schedule string, daysToKeep int, logger zerolog.Logger) (*RetentionJob, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil, ErrScheduleRequired
	}

	job := &RetentionJob{
		cleaner:    cleaner,
		daysToKeep: daysToKeep,
		timeout:    10 * time.Minute,
		logger:     logger.With().Str("component", "audit_retention").Logger(),
		cron:       cron.New(cron.WithLocation(time.UTC)),
	}

	if _, err := job.cron.AddFunc(schedule, func() { job.Run(context.Background()) }); err != nil {
		return nil, err
	}
	return job, nil
}

// Start begins firing the schedule in the background.
func (j *RetentionJob) Start() {
	j.cron.Start()
	j.logger.Info().Int("days_to_keep", j.daysToKeep).Msg("audit retention scheduled")
}

// Stop halts the schedule and waits for an in-flight cleanup or ctx, whichever ends first.
func (j *RetentionJob) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run performs one cleanup pass. Overlapping runs are skipped.
func (j *RetentionJob) Run(ctx context.Context) (int64, error) {
	if !j.running.TryLock() {
		j.logger.Warn().Msg("audit retention skipped: previous run still active")
		return 0, nil
	}
	defer j.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	started := time.Now()
	deleted, err := j.cleaner.CleanupOldLogs(ctx, j.daysToKeep)
	if err != nil {
		j.logger.Error().Err(err).Msg("audit retention failed")
		return 0, err
	}

	j.logger.Info().
		Int64("deleted", deleted).
		Dur("duration", time.Since(started)).
		Msg("audit retention completed")
	return deleted, nil
}
