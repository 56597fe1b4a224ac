// Package syncer persists optimistic lead edits to the backend. Failed writes
// are kept in the fallback cache and replayed on the next edit of the same
// lead or on Reconcile.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadboard_backend/internal/pipeline/domain"
	"leadboard_backend/internal/pipeline/fallback"
	"leadboard_backend/internal/pipeline/remote"
	"leadboard_backend/internal/pipeline/store"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

const (
	outcomeSynced   = "synced"
	outcomePending  = "pending"
	outcomeRejected = "rejected"
	// outcomeDiscarded marks a pending write dropped because its lead is gone.
	outcomeDiscarded = "discarded"

	replayConcurrency = 4
)

// Remote is the part of the backend client the manager needs.
type Remote interface {
	ListContacts(ctx context.Context, projectID string) ([]domain.Lead, error)
	UpdateContact(ctx context.Context, leadID string, patch domain.Patch) (domain.Lead, error)
}

// Result reports how a persistence attempt ended. Synced is false when the
// write was queued in the fallback cache.
type Result struct {
	LeadID string
	Synced bool
	Lead   domain.Lead
}

// Manager coordinates the store, the fallback cache and the backend.
type Manager struct {
	store     *store.Store
	cache     *fallback.Cache
	remote    Remote
	notifier  Notifier
	log       *logger.Logger
	projectID string
	now       func() time.Time
}

// New creates a Manager. projectID scopes Reconcile; empty loads everything.
func New(st *store.Store, cache *fallback.Cache, rc Remote, notifier Notifier, projectID string, log *logger.Logger) *Manager {
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}
	return &Manager{
		store:     st,
		cache:     cache,
		remote:    rc,
		notifier:  notifier,
		log:       log,
		projectID: projectID,
		now:       time.Now,
	}
}

// Persist writes patch for leadID. The optimistic value must already be in
// the store. Fields still pending in the same namespace are sent along, the
// newer values winning.
//
// A 4xx answer returns a Validation error after reverting the fields of patch.
// Older pending fields that travelled with it stay queued and in the overlay.
// A 5xx or transport failure keeps the optimistic value, queues the fields and
// returns Result.Synced == false with a nil error.
func (m *Manager) Persist(ctx context.Context, leadID string, patch domain.Patch) (Result, error) {
	if patch.IsEmpty() {
		return Result{}, apperr.Validation("nothing to persist")
	}

	outgoing := domain.Patch{}
	for _, ns := range patch.Namespaces() {
		pending, err := m.cache.Pending(ctx, ns, leadID)
		if err != nil {
			m.log.Warn("read pending writes failed", "leadId", leadID, "namespace", ns, "error", err)
		}
		outgoing = outgoing.Merge(pending).Merge(patch.Only(ns))
	}

	confirmed, err := m.remote.UpdateContact(ctx, leadID, outgoing)
	switch {
	case err == nil:
		return m.onSynced(ctx, leadID, confirmed, outgoing), nil
	case remote.IsTransient(err):
		return m.onTransient(ctx, leadID, patch, err), nil
	default:
		return Result{LeadID: leadID}, m.onRejected(ctx, leadID, patch, err)
	}
}

func (m *Manager) onSynced(ctx context.Context, leadID string, confirmed domain.Lead, sent domain.Patch) Result {
	m.store.Confirm(leadID, confirmed, sent)
	for _, ns := range sent.Namespaces() {
		if err := m.cache.Clear(ctx, ns, leadID, sent); err != nil {
			m.log.Warn("clear pending writes failed", "leadId", leadID, "namespace", ns, "error", err)
		}
		m.log.SyncEvent(leadID, string(ns), outcomeSynced, nil)
		m.notify(ctx, LevelSuccess, leadID, ns, msgSynced)
	}
	lead, _ := m.store.Get(leadID)
	return Result{LeadID: leadID, Synced: true, Lead: lead}
}

func (m *Manager) onRejected(ctx context.Context, leadID string, rejected domain.Patch, cause error) error {
	m.store.Revert(leadID, rejected)
	for _, ns := range rejected.Namespaces() {
		if err := m.cache.Clear(ctx, ns, leadID, rejected); err != nil {
			m.log.Warn("clear rejected writes failed", "leadId", leadID, "namespace", ns, "error", err)
		}
		m.log.SyncEvent(leadID, string(ns), outcomeRejected, cause)
		m.notify(ctx, LevelError, leadID, ns, msgRejected)
	}
	return apperr.Wrap(apperr.KindValidation, rejectionMessage(cause), cause).WithOp("syncer.Persist")
}

func (m *Manager) onTransient(ctx context.Context, leadID string, patch domain.Patch, cause error) Result {
	for _, ns := range patch.Namespaces() {
		if err := m.cache.Put(ctx, ns, leadID, patch); err != nil {
			m.log.Error("queue pending write failed", "leadId", leadID, "namespace", ns, "error", err)
		}
		m.log.SyncEvent(leadID, string(ns), outcomePending, cause)
		m.notify(ctx, LevelWarning, leadID, ns, msgPending)
	}
	lead, _ := m.store.Get(leadID)
	return Result{LeadID: leadID, Synced: false, Lead: lead}
}

func (m *Manager) notify(ctx context.Context, level Level, leadID string, ns domain.Namespace, message string) {
	m.notifier.Notify(ctx, Notification{
		Level:     level,
		LeadID:    leadID,
		Namespace: ns,
		Message:   message,
		At:        m.now(),
	})
}

func rejectionMessage(err error) string {
	var statusErr *remote.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	return "change rejected by backend"
}

// discard drops pending writes of a lead the backend no longer lists.
func (m *Manager) discard(ctx context.Context, leadID string, entries []pendingEntry) {
	for _, e := range entries {
		if err := m.cache.Discard(ctx, e.ns, leadID); err != nil {
			m.log.Warn("discard orphaned write failed", "leadId", leadID, "namespace", e.ns, "error", err)
			continue
		}
		m.log.SyncEvent(leadID, string(e.ns), outcomeDiscarded, nil)
	}
}

// ReconcileReport summarizes a Reconcile run. Pending, Synced and Queued
// count fallback entries, one per lead and namespace.
type ReconcileReport struct {
	// Loaded is false when the backend could not be reached and the previous
	// records were kept.
	Loaded   bool
	Leads    int
	Pending  int
	Synced   int
	Queued   int
	Rejected []string
	Orphaned []string
}

type pendingEntry struct {
	ns    domain.Namespace
	patch domain.Patch
}

// Reconcile loads the board from the backend, overlays every pending write
// and, when the backend answered, replays them. Writes for leads the backend
// no longer lists are dropped. Each namespace is replayed
// on its own so a rejection in one never clears the other.
func (m *Manager) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	leads, err := m.remote.ListContacts(ctx, m.projectID)
	if err != nil {
		m.log.Warn("board load failed, keeping previous records", "error", err)
		m.notify(ctx, LevelWarning, "", "", msgOffline)
	} else {
		m.store.Replace(leads)
		report.Loaded = true
	}
	report.Leads = m.store.Len()

	pending := make(map[string][]pendingEntry)
	for _, ns := range domain.Namespaces() {
		entries, err := m.cache.All(ctx, ns)
		if err != nil {
			return report, fmt.Errorf("load pending %s writes: %w", ns, err)
		}
		for leadID, patch := range entries {
			pending[leadID] = append(pending[leadID], pendingEntry{ns: ns, patch: patch})
		}
	}

	replay := make(map[string][]pendingEntry, len(pending))
	for leadID, entries := range pending {
		known := true
		for _, e := range entries {
			if _, ok := m.store.ApplyLocal(leadID, e.patch); !ok {
				known = false
				break
			}
		}
		if !known {
			report.Orphaned = append(report.Orphaned, leadID)
			if report.Loaded {
				m.discard(ctx, leadID, entries)
			}
			continue
		}
		replay[leadID] = entries
		report.Pending += len(entries)
	}

	if !report.Loaded || len(replay) == 0 {
		return report, nil
	}

	type replayResult struct {
		leadID string
		synced bool
		err    error
	}
	results := make(chan replayResult, report.Pending)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(replayConcurrency)
	for leadID, entries := range replay {
		g.Go(func() error {
			for _, e := range entries {
				res, err := m.Persist(gctx, leadID, e.patch)
				results <- replayResult{leadID: leadID, synced: res.Synced, err: err}
			}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	for r := range results {
		switch {
		case r.err != nil:
			report.Rejected = append(report.Rejected, r.leadID)
		case r.synced:
			report.Synced++
		default:
			report.Queued++
		}
	}

	m.log.Info("board reconciled",
		"leads", report.Leads,
		"pending", report.Pending,
		"synced", report.Synced,
		"queued", report.Queued,
		"rejected", len(report.Rejected),
	)
	return report, nil
}
