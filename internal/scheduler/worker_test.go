package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"leadboard_backend/internal/controlo/transport"
	"leadboard_backend/internal/kpi"
	"leadboard_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeSnapshotter struct {
	got       *uuid.UUID
	calls     int
	snapshots []transport.Snapshot
	err       error
}

func (f *fakeSnapshotter) RecordSnapshots(_ context.Context, projectID *uuid.UUID) ([]transport.Snapshot, error) {
	f.calls++
	f.got = projectID
	return f.snapshots, f.err
}

type fakeSender struct {
	week    time.Time
	reports []kpi.ProjectReport
	err     error
}

func (f *fakeSender) SendKPIDigest(_ context.Context, week time.Time, reports []kpi.ProjectReport) error {
	f.week = week
	f.reports = reports
	return f.err
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter("test", io.Discard)
}

func TestKPISnapshotHandlerSendsDigest(t *testing.T) {
	projectID := uuid.New()
	week := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	snap := &fakeSnapshotter{snapshots: []transport.Snapshot{{
		ProjectID: projectID.String(),
		WeekStart: week,
		Report:    kpi.ProjectReport{ProjectID: projectID.String()},
	}}}
	sender := &fakeSender{}

	task, err := NewKPISnapshotTask(KPISnapshotPayload{ProjectID: projectID.String()})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := NewKPISnapshotHandler(snap, sender, testLogger()).ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}

	if snap.got == nil || *snap.got != projectID {
		t.Fatalf("expected project scope %s, got %v", projectID, snap.got)
	}
	if len(sender.reports) != 1 || !sender.week.Equal(week) {
		t.Fatalf("unexpected digest week=%v reports=%d", sender.week, len(sender.reports))
	}
}

func TestKPISnapshotHandlerIgnoresDigestFailure(t *testing.T) {
	snap := &fakeSnapshotter{snapshots: []transport.Snapshot{{WeekStart: time.Now()}}}
	sender := &fakeSender{err: errors.New("smtp down")}

	task, _ := NewKPISnapshotTask(KPISnapshotPayload{})
	if err := NewKPISnapshotHandler(snap, sender, testLogger()).ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("digest failure must not fail the task: %v", err)
	}
	if snap.got != nil {
		t.Fatalf("expected all-project run")
	}
}

func TestKPISnapshotHandlerRetriesSnapshotFailure(t *testing.T) {
	snap := &fakeSnapshotter{err: errors.New("db down")}

	task, _ := NewKPISnapshotTask(KPISnapshotPayload{})
	err := NewKPISnapshotHandler(snap, nil, testLogger()).ProcessTask(context.Background(), task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected a retryable error, got %v", err)
	}
}

func TestKPISnapshotHandlerSkipsBadPayload(t *testing.T) {
	snap := &fakeSnapshotter{}

	task := asynq.NewTask(TaskKPISnapshot, []byte(`{"projectId":"not-a-uuid"}`))
	err := NewKPISnapshotHandler(snap, nil, testLogger()).ProcessTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
	if snap.calls != 0 {
		t.Fatalf("snapshots must not run for a bad payload")
	}
}

func TestParseEmptyPayload(t *testing.T) {
	payload, err := ParseKPISnapshotPayload(asynq.NewTask(TaskKPISnapshot, nil))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if payload.ProjectID != "" {
		t.Fatalf("expected empty scope, got %q", payload.ProjectID)
	}
}
