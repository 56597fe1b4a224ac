package scheduler

import (
	"context"
	"fmt"
	"time"

	"leadboard_backend/platform/config"
	"leadboard_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const scheduleLocation = "Europe/Lisbon"

// PeriodicScheduler enqueues the weekly KPI snapshot on a cron spec.
type PeriodicScheduler struct {
	scheduler *asynq.Scheduler
	entryID   string
	log       *logger.Logger
}

func NewPeriodicScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*PeriodicScheduler, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(scheduleLocation)
	if err != nil {
		log.Warn("schedule location unavailable, using UTC", "location", scheduleLocation, "error", err)
		loc = time.UTC
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: loc})

	task, err := NewKPISnapshotTask(KPISnapshotPayload{})
	if err != nil {
		return nil, err
	}

	spec := cfg.GetKPISnapshotCron()
	entryID, err := scheduler.Register(spec, task, asynq.Queue(queueName(cfg)), asynq.MaxRetry(3))
	if err != nil {
		return nil, fmt.Errorf("register kpi snapshot schedule %q: %w", spec, err)
	}
	log.Info("kpi snapshot scheduled", "cron", spec, "location", loc.String(), "entryId", entryID)

	return &PeriodicScheduler{scheduler: scheduler, entryID: entryID, log: log}, nil
}

// Run blocks until ctx is cancelled.
func (p *PeriodicScheduler) Run(ctx context.Context) error {
	if err := p.scheduler.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
	p.log.Info("periodic scheduler stopped")
	return nil
}
