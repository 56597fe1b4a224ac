package scheduler

import (
	"context"
	"fmt"
	"time"

	"leadboard_backend/internal/controlo/transport"
	"leadboard_backend/internal/email"
	"leadboard_backend/internal/kpi"
	"leadboard_backend/platform/config"
	"leadboard_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Snapshotter records weekly KPI snapshots.
type Snapshotter interface {
	RecordSnapshots(ctx context.Context, projectID *uuid.UUID) ([]transport.Snapshot, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, snapshots Snapshotter, sender email.Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.Handle(TaskKPISnapshot, NewKPISnapshotHandler(snapshots, sender, log))

	return &Worker{server: server, mux: mux, log: log}, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// KPISnapshotHandler records snapshots and mails the digest.
type KPISnapshotHandler struct {
	snapshots Snapshotter
	sender    email.Sender
	log       *logger.Logger
}

func NewKPISnapshotHandler(snapshots Snapshotter, sender email.Sender, log *logger.Logger) *KPISnapshotHandler {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &KPISnapshotHandler{snapshots: snapshots, sender: sender, log: log}
}

// ProcessTask implements asynq.Handler.
func (h *KPISnapshotHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseKPISnapshotPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	var projectID *uuid.UUID
	if payload.ProjectID != "" {
		id, err := uuid.Parse(payload.ProjectID)
		if err != nil {
			return fmt.Errorf("%w: invalid project id %q", asynq.SkipRetry, payload.ProjectID)
		}
		projectID = &id
	}

	snapshots, err := h.snapshots.RecordSnapshots(ctx, projectID)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return nil
	}

	reports := make([]kpi.ProjectReport, 0, len(snapshots))
	for _, s := range snapshots {
		reports = append(reports, s.Report)
	}

	// Snapshots are already stored; a digest failure does not fail the task.
	if err := h.sender.SendKPIDigest(ctx, weekOf(snapshots), reports); err != nil {
		h.log.Error("kpi digest delivery failed", "error", err, "projects", len(reports))
	}
	return nil
}

func weekOf(snapshots []transport.Snapshot) time.Time {
	return snapshots[0].WeekStart
}
