// Package service holds the controlo use cases: automatic KPIs, weekly logs,
// competitors, targets and weekly snapshots.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"leadboard_backend/internal/controlo/importer"
	"leadboard_backend/internal/controlo/repository"
	"leadboard_backend/internal/controlo/transport"
	"leadboard_backend/internal/events"
	"leadboard_backend/internal/kpi"
	"leadboard_backend/internal/pipeline/domain"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/logger"
	"leadboard_backend/platform/sanitize"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSnapshotLimit = 12
	maxSnapshotLimit     = 104
)

// Repository is the storage the service needs.
type Repository interface {
	ListProjectIDs(ctx context.Context) ([]uuid.UUID, error)
	ListUnits(ctx context.Context, projectID uuid.UUID) ([]kpi.Unit, error)
	GetUnit(ctx context.Context, id uuid.UUID) (kpi.Unit, error)
	ListWeeklyLogs(ctx context.Context, projectID uuid.UUID, unitID *uuid.UUID) ([]kpi.WeeklyLog, error)
	GetWeeklyLog(ctx context.Context, id uuid.UUID) (repository.WeeklyLogRecord, error)
	CreateWeeklyLog(ctx context.Context, p repository.WeeklyLogParams) (repository.WeeklyLogRecord, error)
	UpdateWeeklyLog(ctx context.Context, id uuid.UUID, p repository.WeeklyLogParams) (repository.WeeklyLogRecord, error)
	DeleteWeeklyLog(ctx context.Context, id uuid.UUID) (repository.WeeklyLogRecord, error)
	ListCompetitors(ctx context.Context, projectID uuid.UUID) ([]kpi.Competitor, error)
	GetCompetitor(ctx context.Context, id uuid.UUID) (kpi.Competitor, error)
	CreateCompetitor(ctx context.Context, p repository.CompetitorParams) (kpi.Competitor, error)
	UpdateCompetitor(ctx context.Context, id uuid.UUID, p repository.CompetitorParams) (kpi.Competitor, error)
	DeleteCompetitor(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	GetTargets(ctx context.Context, projectID uuid.UUID) (repository.TargetsRecord, error)
	UpsertTargets(ctx context.Context, projectID uuid.UUID, unitID *uuid.UUID, t kpi.Targets) error
	UpsertSnapshot(ctx context.Context, projectID uuid.UUID, weekStart time.Time, status string, report []byte) (repository.SnapshotRecord, error)
	ListSnapshots(ctx context.Context, projectID uuid.UUID, limit int) ([]repository.SnapshotRecord, error)
}

// LeadReader supplies the lead records of a project.
type LeadReader interface {
	ListLeads(ctx context.Context, projectID uuid.UUID) ([]domain.Lead, error)
}

// ReportCache caches computed auto-kpis reports.
type ReportCache interface {
	Get(ctx context.Context, projectID string) (*kpi.ProjectReport, bool, error)
	Set(ctx context.Context, report kpi.ProjectReport) error
	Invalidate(ctx context.Context, projectID string) error
}

// ListingFetcher reads competitor listing pages.
type ListingFetcher interface {
	Fetch(ctx context.Context, listingURL string) (importer.Listing, error)
}

// SnapshotEnqueuer schedules an asynchronous snapshot run.
type SnapshotEnqueuer interface {
	EnqueueKPISnapshot(ctx context.Context, projectID *uuid.UUID) error
}

// Service holds the controlo use cases.
type Service struct {
	repo        Repository
	leads       LeadReader
	cache       ReportCache
	fetcher     ListingFetcher
	targetsFile *kpi.TargetsFile
	enqueuer    SnapshotEnqueuer
	eventBus    events.Bus
	log         *logger.Logger
	now         func() time.Time
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Repo        Repository
	Leads       LeadReader
	Cache       ReportCache
	Fetcher     ListingFetcher
	TargetsFile *kpi.TargetsFile
	EventBus    events.Bus
	Log         *logger.Logger
}

// New creates a Service.
func New(d Deps) *Service {
	return &Service{
		repo:        d.Repo,
		leads:       d.Leads,
		cache:       d.Cache,
		fetcher:     d.Fetcher,
		targetsFile: d.TargetsFile,
		eventBus:    d.EventBus,
		log:         d.Log,
		now:         time.Now,
	}
}

// SetSnapshotEnqueuer wires the asynq client used by RequestSnapshot.
func (s *Service) SetSnapshotEnqueuer(enqueuer SnapshotEnqueuer) {
	s.enqueuer = enqueuer
}

// =============================================================================
// Automatic KPIs
// =============================================================================

// AutoKPIs returns the project report, served from cache when fresh.
func (s *Service) AutoKPIs(ctx context.Context, projectID uuid.UUID) (kpi.ProjectReport, error) {
	key := projectID.String()
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn("kpi cache read failed", "projectId", key, "error", err)
		}
		if ok {
			return *cached, nil
		}
	}

	report, err := s.ComputeReport(ctx, projectID)
	if err != nil {
		return kpi.ProjectReport{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, report); err != nil {
			s.log.Warn("kpi cache write failed", "projectId", key, "error", err)
		}
	}
	return report, nil
}

// ComputeReport loads the inputs concurrently and computes a fresh report.
func (s *Service) ComputeReport(ctx context.Context, projectID uuid.UUID) (kpi.ProjectReport, error) {
	var (
		leads       []domain.Lead
		units       []kpi.Unit
		logs        []kpi.WeeklyLog
		competitors []kpi.Competitor
		stored      repository.TargetsRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		leads, err = s.leads.ListLeads(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		units, err = s.repo.ListUnits(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		logs, err = s.repo.ListWeeklyLogs(gctx, projectID, nil)
		return err
	})
	g.Go(func() (err error) {
		competitors, err = s.repo.ListCompetitors(gctx, projectID)
		return err
	})
	g.Go(func() (err error) {
		stored, err = s.repo.GetTargets(gctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return kpi.ProjectReport{}, fmt.Errorf("load kpi inputs: %w", err)
	}

	targets, unitTargets := s.effectiveTargets(projectID.String(), stored)
	return kpi.ComputeProject(kpi.ProjectInput{
		ProjectID:   projectID.String(),
		Leads:       leads,
		Units:       units,
		WeeklyLogs:  logs,
		Competitors: competitors,
		Targets:     targets,
		UnitTargets: unitTargets,
		Now:         s.now(),
	}), nil
}

// effectiveTargets layers stored targets over the targets file.
func (s *Service) effectiveTargets(projectID string, stored repository.TargetsRecord) (*kpi.Targets, map[string]kpi.Targets) {
	fileTargets, fileUnits := s.targetsFile.ForProject(projectID)

	targets := fileTargets
	if stored.Project != nil {
		targets = stored.Project
	}

	units := make(map[string]kpi.Targets, len(fileUnits)+len(stored.Units))
	for id, t := range fileUnits {
		units[id] = t
	}
	for id, t := range stored.Units {
		units[id] = t
	}
	return targets, units
}

// Invalidate drops the cached report of a project.
func (s *Service) Invalidate(ctx context.Context, projectID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, projectID.String()); err != nil {
		s.log.Warn("kpi cache invalidation failed", "projectId", projectID.String(), "error", err)
	}
}

// =============================================================================
// Units
// =============================================================================

// ListUnits returns the units of a project.
func (s *Service) ListUnits(ctx context.Context, projectID uuid.UUID) (transport.UnitListResponse, error) {
	units, err := s.repo.ListUnits(ctx, projectID)
	if err != nil {
		return transport.UnitListResponse{}, err
	}
	return transport.UnitListResponse{Items: units}, nil
}

// =============================================================================
// Weekly logs
// =============================================================================

// ListWeeklyLogs returns the weekly logs of a project, optionally for one unit.
func (s *Service) ListWeeklyLogs(ctx context.Context, projectID uuid.UUID, unitID *uuid.UUID) (transport.WeeklyLogListResponse, error) {
	logs, err := s.repo.ListWeeklyLogs(ctx, projectID, unitID)
	if err != nil {
		return transport.WeeklyLogListResponse{}, err
	}
	return transport.WeeklyLogListResponse{Items: logs}, nil
}

// CreateWeeklyLog stores a weekly log for the week containing req.WeekStart.
func (s *Service) CreateWeeklyLog(ctx context.Context, req transport.WeeklyLogRequest) (kpi.WeeklyLog, error) {
	params, err := weeklyLogParams(req)
	if err != nil {
		return kpi.WeeklyLog{}, err
	}
	rec, err := s.repo.CreateWeeklyLog(ctx, params)
	if err != nil {
		return kpi.WeeklyLog{}, err
	}
	s.publishWeeklyLogChanged(ctx, rec)
	return rec.WeeklyLog, nil
}

// UpdateWeeklyLog replaces a weekly log.
func (s *Service) UpdateWeeklyLog(ctx context.Context, id uuid.UUID, req transport.WeeklyLogRequest) (kpi.WeeklyLog, error) {
	params, err := weeklyLogParams(req)
	if err != nil {
		return kpi.WeeklyLog{}, err
	}
	previous, err := s.repo.GetWeeklyLog(ctx, id)
	if err != nil {
		return kpi.WeeklyLog{}, err
	}
	rec, err := s.repo.UpdateWeeklyLog(ctx, id, params)
	if err != nil {
		return kpi.WeeklyLog{}, err
	}
	if previous.ProjectID != rec.ProjectID {
		s.publishWeeklyLogChanged(ctx, previous)
	}
	s.publishWeeklyLogChanged(ctx, rec)
	return rec.WeeklyLog, nil
}

// DeleteWeeklyLog removes a weekly log.
func (s *Service) DeleteWeeklyLog(ctx context.Context, id uuid.UUID) error {
	rec, err := s.repo.DeleteWeeklyLog(ctx, id)
	if err != nil {
		return err
	}
	s.publishWeeklyLogChanged(ctx, rec)
	return nil
}

func (s *Service) publishWeeklyLogChanged(ctx context.Context, rec repository.WeeklyLogRecord) {
	logID, _ := uuid.Parse(rec.ID)
	unitID, _ := uuid.Parse(rec.UnitID)
	s.eventBus.Publish(ctx, events.WeeklyLogChanged{
		BaseEvent:   events.NewBaseEvent(),
		WeeklyLogID: logID,
		ProjectID:   rec.ProjectID,
		UnitID:      unitID,
	})
}

func weeklyLogParams(req transport.WeeklyLogRequest) (repository.WeeklyLogParams, error) {
	unitID, err := uuid.Parse(req.UnitID)
	if err != nil {
		return repository.WeeklyLogParams{}, apperr.Validation("invalid unit id")
	}
	if req.WeekStart.IsZero() {
		return repository.WeeklyLogParams{}, apperr.Validation("weekStart is required")
	}
	return repository.WeeklyLogParams{
		UnitID:         unitID,
		WeekStart:      kpi.WeekStart(req.WeekStart.UTC()),
		AskPrice:       req.AskPrice,
		TotalLeads:     req.TotalLeads,
		QualifiedLeads: req.QualifiedLeads,
		Contacts:       req.Contacts,
		VisitRequests:  req.VisitRequests,
		VisitsDone:     req.VisitsDone,
		Proposals:      req.Proposals,
		BestProposal:   req.BestProposal,
		AvgProposal:    req.AvgProposal,
		Objection:      sanitize.Text(req.Objection),
		NextStep:       sanitize.Text(req.NextStep),
	}, nil
}

// =============================================================================
// Competitors
// =============================================================================

// ListCompetitors returns a project's competitors with their summary.
func (s *Service) ListCompetitors(ctx context.Context, projectID uuid.UUID) (transport.CompetitorListResponse, error) {
	items, err := s.repo.ListCompetitors(ctx, projectID)
	if err != nil {
		return transport.CompetitorListResponse{}, err
	}
	return transport.CompetitorListResponse{
		Items:   items,
		Summary: kpi.SummarizeCompetitors(items, ""),
	}, nil
}

// CreateCompetitor stores a competitor listing.
func (s *Service) CreateCompetitor(ctx context.Context, req transport.CompetitorRequest) (kpi.Competitor, error) {
	params, err := s.competitorParams(req)
	if err != nil {
		return kpi.Competitor{}, err
	}
	c, err := s.repo.CreateCompetitor(ctx, params)
	if err != nil {
		return kpi.Competitor{}, err
	}
	s.publishCompetitorChanged(ctx, c.ID, params.ProjectID)
	return c, nil
}

// UpdateCompetitor replaces a competitor listing.
func (s *Service) UpdateCompetitor(ctx context.Context, id uuid.UUID, req transport.CompetitorRequest) (kpi.Competitor, error) {
	params, err := s.competitorParams(req)
	if err != nil {
		return kpi.Competitor{}, err
	}
	previous, err := s.repo.GetCompetitor(ctx, id)
	if err != nil {
		return kpi.Competitor{}, err
	}
	c, err := s.repo.UpdateCompetitor(ctx, id, params)
	if err != nil {
		return kpi.Competitor{}, err
	}
	if previous.ProjectID != c.ProjectID {
		if prevProject, err := uuid.Parse(previous.ProjectID); err == nil {
			s.publishCompetitorChanged(ctx, c.ID, prevProject)
		}
	}
	s.publishCompetitorChanged(ctx, c.ID, params.ProjectID)
	return c, nil
}

// DeleteCompetitor removes a competitor listing.
func (s *Service) DeleteCompetitor(ctx context.Context, id uuid.UUID) error {
	projectID, err := s.repo.DeleteCompetitor(ctx, id)
	if err != nil {
		return err
	}
	s.publishCompetitorChanged(ctx, id.String(), projectID)
	return nil
}

// ImportCompetitor reads a listing page into a draft competitor and stores it
// when req.Save is set.
func (s *Service) ImportCompetitor(ctx context.Context, req transport.ImportCompetitorRequest) (kpi.Competitor, error) {
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return kpi.Competitor{}, apperr.Validation("invalid project id")
	}
	if s.fetcher == nil {
		return kpi.Competitor{}, apperr.Unavailable("competitor import is not configured")
	}

	listing, err := s.fetcher.Fetch(ctx, strings.TrimSpace(req.URL))
	if err != nil {
		return kpi.Competitor{}, err
	}
	draft := listing.Competitor(projectID.String(), s.now().UTC().Truncate(24*time.Hour))
	if !req.Save {
		return draft, nil
	}

	c, err := s.repo.CreateCompetitor(ctx, repository.CompetitorParams{
		ProjectID:    projectID,
		ObservedAt:   draft.ObservedAt,
		Portal:       draft.Portal,
		Development:  draft.Development,
		Address:      draft.Address,
		Typology:     draft.Typology,
		Area:         draft.Area,
		Price:        draft.Price,
		HasGarage:    draft.HasGarage,
		HasExterior:  draft.HasExterior,
		DaysOnMarket: draft.DaysOnMarket,
		SourceURL:    draft.SourceURL,
	})
	if err != nil {
		return kpi.Competitor{}, err
	}
	s.publishCompetitorChanged(ctx, c.ID, projectID)
	return c, nil
}

func (s *Service) publishCompetitorChanged(ctx context.Context, competitorID string, projectID uuid.UUID) {
	id, _ := uuid.Parse(competitorID)
	s.eventBus.Publish(ctx, events.CompetitorChanged{
		BaseEvent:    events.NewBaseEvent(),
		CompetitorID: id,
		ProjectID:    projectID,
	})
}

func (s *Service) competitorParams(req transport.CompetitorRequest) (repository.CompetitorParams, error) {
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return repository.CompetitorParams{}, apperr.Validation("invalid project id")
	}
	observedAt := s.now().UTC()
	if req.ObservedAt != nil && !req.ObservedAt.IsZero() {
		observedAt = req.ObservedAt.UTC()
	}
	return repository.CompetitorParams{
		ProjectID:    projectID,
		ObservedAt:   observedAt.Truncate(24 * time.Hour),
		Portal:       sanitize.Text(req.Portal),
		Development:  sanitize.Text(req.Development),
		Address:      sanitize.Text(req.Address),
		Typology:     strings.ToUpper(sanitize.Text(req.Typology)),
		Area:         req.Area,
		Price:        req.Price,
		HasGarage:    req.HasGarage,
		HasExterior:  req.HasExterior,
		DaysOnMarket: req.DaysOnMarket,
		SourceURL:    strings.TrimSpace(req.SourceURL),
	}, nil
}

// =============================================================================
// Targets
// =============================================================================

// GetTargets returns the targets in effect for a project.
func (s *Service) GetTargets(ctx context.Context, projectID uuid.UUID) (transport.TargetsResponse, error) {
	stored, err := s.repo.GetTargets(ctx, projectID)
	if err != nil {
		return transport.TargetsResponse{}, err
	}
	targets, units := s.effectiveTargets(projectID.String(), stored)
	return transport.TargetsResponse{
		ProjectID: projectID.String(),
		Project:   targets,
		Units:     units,
	}, nil
}

// PutTargets stores targets for a project or one of its units.
func (s *Service) PutTargets(ctx context.Context, req transport.TargetsRequest) (transport.TargetsResponse, error) {
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		return transport.TargetsResponse{}, apperr.Validation("invalid project id")
	}
	targets := req.Targets()
	if err := targets.Validate(); err != nil {
		return transport.TargetsResponse{}, apperr.Validation(err.Error())
	}

	var unitID *uuid.UUID
	if req.UnitID != nil {
		id, err := uuid.Parse(*req.UnitID)
		if err != nil {
			return transport.TargetsResponse{}, apperr.Validation("invalid unit id")
		}
		unit, err := s.repo.GetUnit(ctx, id)
		if err != nil {
			return transport.TargetsResponse{}, err
		}
		if unit.ProjectID != projectID.String() {
			return transport.TargetsResponse{}, apperr.Validation("unit does not belong to project")
		}
		unitID = &id
	}

	if err := s.repo.UpsertTargets(ctx, projectID, unitID, targets); err != nil {
		return transport.TargetsResponse{}, err
	}
	s.eventBus.Publish(ctx, events.TargetsChanged{BaseEvent: events.NewBaseEvent(), ProjectID: projectID})
	return s.GetTargets(ctx, projectID)
}

// =============================================================================
// Snapshots
// =============================================================================

// RecordSnapshots computes and stores this week's report for one project, or
// for every project when projectID is nil.
func (s *Service) RecordSnapshots(ctx context.Context, projectID *uuid.UUID) ([]transport.Snapshot, error) {
	projectIDs := []uuid.UUID{}
	if projectID != nil {
		projectIDs = append(projectIDs, *projectID)
	} else {
		ids, err := s.repo.ListProjectIDs(ctx)
		if err != nil {
			return nil, err
		}
		projectIDs = ids
	}

	snapshots := make([]transport.Snapshot, 0, len(projectIDs))
	for _, id := range projectIDs {
		report, err := s.ComputeReport(ctx, id)
		if err != nil {
			return snapshots, fmt.Errorf("compute snapshot for %s: %w", id, err)
		}
		raw, err := json.Marshal(report)
		if err != nil {
			return snapshots, fmt.Errorf("encode snapshot: %w", err)
		}
		weekStart := kpi.WeekStart(report.GeneratedAt.UTC())
		rec, err := s.repo.UpsertSnapshot(ctx, id, weekStart, string(report.Overall.Status), raw)
		if err != nil {
			return snapshots, err
		}

		s.eventBus.Publish(ctx, events.KPISnapshotRecorded{
			BaseEvent: events.NewBaseEvent(),
			ProjectID: id,
			Status:    string(report.Overall.Status),
		})
		s.log.Info("kpi snapshot recorded", "projectId", id.String(), "status", report.Overall.Status)

		snapshots = append(snapshots, transport.Snapshot{
			ID:        fmt.Sprintf("%d", rec.ID),
			ProjectID: id.String(),
			WeekStart: rec.WeekStart,
			Report:    report,
			CreatedAt: rec.CreatedAt,
		})
	}
	return snapshots, nil
}

// ListSnapshots returns the stored snapshots of a project, newest first.
func (s *Service) ListSnapshots(ctx context.Context, projectID uuid.UUID, limit int) (transport.SnapshotListResponse, error) {
	if limit <= 0 {
		limit = defaultSnapshotLimit
	}
	limit = min(limit, maxSnapshotLimit)

	records, err := s.repo.ListSnapshots(ctx, projectID, limit)
	if err != nil {
		return transport.SnapshotListResponse{}, err
	}
	items := make([]transport.Snapshot, 0, len(records))
	for _, rec := range records {
		var report kpi.ProjectReport
		if err := json.Unmarshal(rec.Report, &report); err != nil {
			s.log.Warn("skipping unreadable kpi snapshot", "id", rec.ID, "error", err)
			continue
		}
		items = append(items, transport.Snapshot{
			ID:        fmt.Sprintf("%d", rec.ID),
			ProjectID: rec.ProjectID.String(),
			WeekStart: rec.WeekStart,
			Report:    report,
			CreatedAt: rec.CreatedAt,
		})
	}
	return transport.SnapshotListResponse{Items: items}, nil
}

// RequestSnapshot queues a snapshot run. Without a queue the run happens
// inline.
func (s *Service) RequestSnapshot(ctx context.Context, projectID *uuid.UUID) (transport.EnqueueSnapshotResponse, error) {
	if s.enqueuer == nil {
		if _, err := s.RecordSnapshots(ctx, projectID); err != nil {
			return transport.EnqueueSnapshotResponse{}, err
		}
		return transport.EnqueueSnapshotResponse{Status: "recorded"}, nil
	}
	if err := s.enqueuer.EnqueueKPISnapshot(ctx, projectID); err != nil {
		return transport.EnqueueSnapshotResponse{}, apperr.Wrap(apperr.KindUnavailable, "snapshot could not be queued", err)
	}
	return transport.EnqueueSnapshotResponse{Status: "queued"}, nil
}
