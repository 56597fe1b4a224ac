// Package events defines the contact and controlo domain events. The bus
// itself lives in platform/events.
package events

import (
	"leadboard_backend/platform/events"

	"github.com/google/uuid"
)

// Bus types re-exported so modules import a single events package.
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Contact Domain Events
// =============================================================================

// ContactCreated is published when a public inquiry creates a contact.
type ContactCreated struct {
	BaseEvent
	ContactID uuid.UUID  `json:"contactId"`
	ProjectID *uuid.UUID `json:"projectId,omitempty"`
	UnitID    *uuid.UUID `json:"unitId,omitempty"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
}

func (e ContactCreated) EventName() string { return "contacts.contact.created" }

// ContactUpdated is published after any successful contact update.
type ContactUpdated struct {
	BaseEvent
	ContactID uuid.UUID  `json:"contactId"`
	ProjectID *uuid.UUID `json:"projectId,omitempty"`
	Fields    []string   `json:"fields"`
}

func (e ContactUpdated) EventName() string { return "contacts.contact.updated" }

// ContactStageChanged is published when a contact moves to another stage.
type ContactStageChanged struct {
	BaseEvent
	ContactID uuid.UUID  `json:"contactId"`
	ProjectID *uuid.UUID `json:"projectId,omitempty"`
	OldStage  string     `json:"oldStage"`
	NewStage  string     `json:"newStage"`
	ChangedBy *uuid.UUID `json:"changedBy,omitempty"`
}

func (e ContactStageChanged) EventName() string { return "contacts.contact.stage_changed" }

// =============================================================================
// Controlo Domain Events
// =============================================================================

// WeeklyLogChanged is published when a weekly log is created, updated or
// deleted.
type WeeklyLogChanged struct {
	BaseEvent
	WeeklyLogID uuid.UUID `json:"weeklyLogId"`
	ProjectID   uuid.UUID `json:"projectId"`
	UnitID      uuid.UUID `json:"unitId"`
}

func (e WeeklyLogChanged) EventName() string { return "controlo.weekly_log.changed" }

// CompetitorChanged is published when a competitor is created, updated or
// deleted.
type CompetitorChanged struct {
	BaseEvent
	CompetitorID uuid.UUID `json:"competitorId"`
	ProjectID    uuid.UUID `json:"projectId"`
}

func (e CompetitorChanged) EventName() string { return "controlo.competitor.changed" }

// TargetsChanged is published when project or unit targets are stored.
type TargetsChanged struct {
	BaseEvent
	ProjectID uuid.UUID `json:"projectId"`
}

func (e TargetsChanged) EventName() string { return "controlo.targets.changed" }

// KPISnapshotRecorded is published after a weekly snapshot is stored.
type KPISnapshotRecorded struct {
	BaseEvent
	ProjectID uuid.UUID `json:"projectId"`
	Status    string    `json:"status"`
}

func (e KPISnapshotRecorded) EventName() string { return "controlo.kpi_snapshot.recorded" }

// =============================================================================
// Board Events
// =============================================================================

// BoardSyncNotified carries a Sync Manager notification to subscribers on the
// client side (toasts, status bars).
type BoardSyncNotified struct {
	BaseEvent
	Level     string `json:"level"`
	LeadID    string `json:"leadId"`
	Namespace string `json:"namespace"`
	Message   string `json:"message"`
}

func (e BoardSyncNotified) EventName() string { return "board.sync.notified" }
