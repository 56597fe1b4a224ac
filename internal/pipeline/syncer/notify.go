package syncer

import (
	"context"
	"time"

	"leadboard_backend/internal/events"
	"leadboard_backend/internal/pipeline/domain"
	"leadboard_backend/platform/logger"
)

// Level is the severity of a sync notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const (
	msgSynced   = "changes saved"
	msgPending  = "saved locally, sync pending"
	msgRejected = "change rejected, correct it and try again"
	msgOffline  = "backend unreachable, showing local data"
)

// Notification is what the UI surfaces after a persistence attempt.
type Notification struct {
	Level     Level
	LeadID    string
	Namespace domain.Namespace
	Message   string
	At        time.Time
}

// Notifier receives sync notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the logger.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, note Notification) {
	args := []any{"leadId", note.LeadID, "namespace", note.Namespace, "message", note.Message}
	switch note.Level {
	case LevelError:
		n.log.WithContext(ctx).Error("board sync notification", args...)
	case LevelWarning:
		n.log.WithContext(ctx).Warn("board sync notification", args...)
	default:
		n.log.WithContext(ctx).Info("board sync notification", args...)
	}
}

// BusNotifier publishes notifications as events.BoardSyncNotified.
type BusNotifier struct {
	bus events.Bus
}

// NewBusNotifier creates a BusNotifier.
func NewBusNotifier(bus events.Bus) *BusNotifier {
	return &BusNotifier{bus: bus}
}

func (n *BusNotifier) Notify(ctx context.Context, note Notification) {
	n.bus.Publish(ctx, events.BoardSyncNotified{
		BaseEvent: events.NewBaseEvent(),
		Level:     string(note.Level),
		LeadID:    note.LeadID,
		Namespace: string(note.Namespace),
		Message:   note.Message,
	})
}
