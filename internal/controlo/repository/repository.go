// Package repository is the controlo data access layer: units, weekly logs,
// competitors, targets and KPI snapshots.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadboard_backend/internal/kpi"
	"leadboard_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreateWeeklyLog = "controlo.weekly_log.create"
	opUpdateWeeklyLog = "controlo.weekly_log.update"

	pgUniqueViolation = "23505"
	pgFKViolation     = "23503"
)

var (
	errWeeklyLogNotFound  = apperr.NotFound("weekly log not found")
	errCompetitorNotFound = apperr.NotFound("competitor not found")
	errUnitNotFound       = apperr.NotFound("unit not found")
)

// WeeklyLogParams holds the writable weekly log fields.
type WeeklyLogParams struct {
	UnitID         uuid.UUID
	WeekStart      time.Time
	AskPrice       float64
	TotalLeads     int
	QualifiedLeads int
	Contacts       int
	VisitRequests  int
	VisitsDone     int
	Proposals      int
	BestProposal   float64
	AvgProposal    float64
	Objection      string
	NextStep       string
}

// WeeklyLogRecord is a stored weekly log with its owning project.
type WeeklyLogRecord struct {
	kpi.WeeklyLog
	ProjectID uuid.UUID
}

// CompetitorParams holds the writable competitor fields.
type CompetitorParams struct {
	ProjectID    uuid.UUID
	ObservedAt   time.Time
	Portal       string
	Development  string
	Address      string
	Typology     string
	Area         float64
	Price        float64
	HasGarage    bool
	HasExterior  bool
	DaysOnMarket *int
	SourceURL    string
}

// TargetsRecord lists a project's stored targets and unit overrides.
type TargetsRecord struct {
	Project *kpi.Targets
	Units   map[string]kpi.Targets
}

// SnapshotRecord is a stored weekly report.
type SnapshotRecord struct {
	ID        int64
	ProjectID uuid.UUID
	WeekStart time.Time
	Status    string
	Report    []byte
	CreatedAt time.Time
}

// Repository is the controlo data access layer.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListProjectIDs returns every project id.
func (r *Repository) ListProjectIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// Units
// =============================================================================

const unitColumns = `id, project_id, code, typology, ask_price::float8, listed_at`

func scanUnit(row pgx.Row) (kpi.Unit, error) {
	var (
		u         kpi.Unit
		id        uuid.UUID
		projectID uuid.UUID
	)
	if err := row.Scan(&id, &projectID, &u.Code, &u.Typology, &u.AskPrice, &u.ListedAt); err != nil {
		return kpi.Unit{}, err
	}
	u.ID = id.String()
	u.ProjectID = projectID.String()
	return u, nil
}

// ListUnits returns the units of a project ordered by code.
func (r *Repository) ListUnits(ctx context.Context, projectID uuid.UUID) ([]kpi.Unit, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+unitColumns+` FROM units WHERE project_id = $1 ORDER BY code`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	items := make([]kpi.Unit, 0)
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

// GetUnit returns one unit.
func (r *Repository) GetUnit(ctx context.Context, id uuid.UUID) (kpi.Unit, error) {
	u, err := scanUnit(r.pool.QueryRow(ctx, `SELECT `+unitColumns+` FROM units WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return kpi.Unit{}, errUnitNotFound
	}
	if err != nil {
		return kpi.Unit{}, fmt.Errorf("get unit: %w", err)
	}
	return u, nil
}

// =============================================================================
// Weekly logs
// =============================================================================

const weeklyLogColumns = `
	id, project_id, unit_id, week_start, ask_price::float8, total_leads, qualified_leads,
	contacts, visit_requests, visits_done, proposals, best_proposal::float8, avg_proposal::float8,
	objection, next_step, created_at, updated_at`

func scanWeeklyLog(row pgx.Row) (WeeklyLogRecord, error) {
	var (
		rec    WeeklyLogRecord
		id     uuid.UUID
		unitID uuid.UUID
	)
	err := row.Scan(
		&id, &rec.ProjectID, &unitID, &rec.WeekStart, &rec.AskPrice, &rec.TotalLeads, &rec.QualifiedLeads,
		&rec.Contacts, &rec.VisitRequests, &rec.VisitsDone, &rec.Proposals, &rec.BestProposal, &rec.AvgProposal,
		&rec.Objection, &rec.NextStep, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return WeeklyLogRecord{}, err
	}
	rec.ID = id.String()
	rec.UnitID = unitID.String()
	return rec, nil
}

// ListWeeklyLogs returns a project's weekly logs, newest week first,
// optionally narrowed to one unit.
func (r *Repository) ListWeeklyLogs(ctx context.Context, projectID uuid.UUID, unitID *uuid.UUID) ([]kpi.WeeklyLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+weeklyLogColumns+`
		FROM weekly_logs
		WHERE project_id = $1 AND ($2::uuid IS NULL OR unit_id = $2)
		ORDER BY week_start DESC, unit_id
	`, projectID, unitID)
	if err != nil {
		return nil, fmt.Errorf("list weekly logs: %w", err)
	}
	defer rows.Close()

	items := make([]kpi.WeeklyLog, 0)
	for rows.Next() {
		rec, err := scanWeeklyLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan weekly log: %w", err)
		}
		items = append(items, rec.WeeklyLog)
	}
	return items, rows.Err()
}

// GetWeeklyLog returns one weekly log.
func (r *Repository) GetWeeklyLog(ctx context.Context, id uuid.UUID) (WeeklyLogRecord, error) {
	rec, err := scanWeeklyLog(r.pool.QueryRow(ctx, `SELECT `+weeklyLogColumns+` FROM weekly_logs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return WeeklyLogRecord{}, errWeeklyLogNotFound
	}
	if err != nil {
		return WeeklyLogRecord{}, fmt.Errorf("get weekly log: %w", err)
	}
	return rec, nil
}

// CreateWeeklyLog inserts a weekly log under the unit's project. A second log
// for the same unit and week is a conflict.
func (r *Repository) CreateWeeklyLog(ctx context.Context, p WeeklyLogParams) (WeeklyLogRecord, error) {
	rec, err := scanWeeklyLog(r.pool.QueryRow(ctx, `
		INSERT INTO weekly_logs (
			project_id, unit_id, week_start, ask_price, total_leads, qualified_leads, contacts,
			visit_requests, visits_done, proposals, best_proposal, avg_proposal, objection, next_step
		)
		SELECT u.project_id, u.id, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		FROM units u
		WHERE u.id = $1
		RETURNING `+weeklyLogColumns,
		p.UnitID, p.WeekStart, p.AskPrice, p.TotalLeads, p.QualifiedLeads, p.Contacts,
		p.VisitRequests, p.VisitsDone, p.Proposals, p.BestProposal, p.AvgProposal, p.Objection, p.NextStep,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return WeeklyLogRecord{}, errUnitNotFound
	}
	if err != nil {
		return WeeklyLogRecord{}, mapWriteError(err, opCreateWeeklyLog)
	}
	return rec, nil
}

// UpdateWeeklyLog replaces the fields of a weekly log.
func (r *Repository) UpdateWeeklyLog(ctx context.Context, id uuid.UUID, p WeeklyLogParams) (WeeklyLogRecord, error) {
	rec, err := scanWeeklyLog(r.pool.QueryRow(ctx, `
		UPDATE weekly_logs w SET
			unit_id = u.id,
			project_id = u.project_id,
			week_start = $3,
			ask_price = $4,
			total_leads = $5,
			qualified_leads = $6,
			contacts = $7,
			visit_requests = $8,
			visits_done = $9,
			proposals = $10,
			best_proposal = $11,
			avg_proposal = $12,
			objection = $13,
			next_step = $14,
			updated_at = now()
		FROM units u
		WHERE w.id = $1 AND u.id = $2
		RETURNING w.id, w.project_id, w.unit_id, w.week_start, w.ask_price::float8, w.total_leads,
			w.qualified_leads, w.contacts, w.visit_requests, w.visits_done, w.proposals,
			w.best_proposal::float8, w.avg_proposal::float8, w.objection, w.next_step, w.created_at, w.updated_at
	`, id, p.UnitID, p.WeekStart, p.AskPrice, p.TotalLeads, p.QualifiedLeads, p.Contacts,
		p.VisitRequests, p.VisitsDone, p.Proposals, p.BestProposal, p.AvgProposal, p.Objection, p.NextStep,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return WeeklyLogRecord{}, errWeeklyLogNotFound
	}
	if err != nil {
		return WeeklyLogRecord{}, mapWriteError(err, opUpdateWeeklyLog)
	}
	return rec, nil
}

// DeleteWeeklyLog removes a weekly log and returns what was removed.
func (r *Repository) DeleteWeeklyLog(ctx context.Context, id uuid.UUID) (WeeklyLogRecord, error) {
	rec, err := scanWeeklyLog(r.pool.QueryRow(ctx, `DELETE FROM weekly_logs WHERE id = $1 RETURNING `+weeklyLogColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return WeeklyLogRecord{}, errWeeklyLogNotFound
	}
	if err != nil {
		return WeeklyLogRecord{}, fmt.Errorf("delete weekly log: %w", err)
	}
	return rec, nil
}

// =============================================================================
// Competitors
// =============================================================================

const competitorColumns = `
	id, project_id, observed_at, portal, development, address, typology,
	area_m2::float8, price::float8, has_garage, has_exterior, days_on_market, COALESCE(source_url, '')`

func scanCompetitor(row pgx.Row) (kpi.Competitor, error) {
	var (
		c         kpi.Competitor
		id        uuid.UUID
		projectID uuid.UUID
	)
	err := row.Scan(
		&id, &projectID, &c.ObservedAt, &c.Portal, &c.Development, &c.Address, &c.Typology,
		&c.Area, &c.Price, &c.HasGarage, &c.HasExterior, &c.DaysOnMarket, &c.SourceURL,
	)
	if err != nil {
		return kpi.Competitor{}, err
	}
	c.ID = id.String()
	c.ProjectID = projectID.String()
	c.PricePerM2 = kpi.PricePerM2(c.Price, c.Area)
	return c, nil
}

// ListCompetitors returns a project's competitors, most recently observed first.
func (r *Repository) ListCompetitors(ctx context.Context, projectID uuid.UUID) ([]kpi.Competitor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+competitorColumns+`
		FROM competitors
		WHERE project_id = $1
		ORDER BY observed_at DESC, created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list competitors: %w", err)
	}
	defer rows.Close()

	items := make([]kpi.Competitor, 0)
	for rows.Next() {
		c, err := scanCompetitor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan competitor: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// GetCompetitor returns one competitor.
func (r *Repository) GetCompetitor(ctx context.Context, id uuid.UUID) (kpi.Competitor, error) {
	c, err := scanCompetitor(r.pool.QueryRow(ctx, `SELECT `+competitorColumns+` FROM competitors WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return kpi.Competitor{}, errCompetitorNotFound
	}
	if err != nil {
		return kpi.Competitor{}, fmt.Errorf("get competitor: %w", err)
	}
	return c, nil
}

// CreateCompetitor inserts a competitor.
func (r *Repository) CreateCompetitor(ctx context.Context, p CompetitorParams) (kpi.Competitor, error) {
	c, err := scanCompetitor(r.pool.QueryRow(ctx, `
		INSERT INTO competitors (
			project_id, observed_at, portal, development, address, typology,
			area_m2, price, has_garage, has_exterior, days_on_market, source_url
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''))
		RETURNING `+competitorColumns,
		p.ProjectID, p.ObservedAt, p.Portal, p.Development, p.Address, p.Typology,
		p.Area, p.Price, p.HasGarage, p.HasExterior, p.DaysOnMarket, p.SourceURL,
	))
	if err != nil {
		return kpi.Competitor{}, mapWriteError(err, "controlo.competitor.create")
	}
	return c, nil
}

// UpdateCompetitor replaces the fields of a competitor.
func (r *Repository) UpdateCompetitor(ctx context.Context, id uuid.UUID, p CompetitorParams) (kpi.Competitor, error) {
	c, err := scanCompetitor(r.pool.QueryRow(ctx, `
		UPDATE competitors SET
			project_id = $2,
			observed_at = $3,
			portal = $4,
			development = $5,
			address = $6,
			typology = $7,
			area_m2 = $8,
			price = $9,
			has_garage = $10,
			has_exterior = $11,
			days_on_market = $12,
			source_url = NULLIF($13, ''),
			updated_at = now()
		WHERE id = $1
		RETURNING `+competitorColumns,
		id, p.ProjectID, p.ObservedAt, p.Portal, p.Development, p.Address, p.Typology,
		p.Area, p.Price, p.HasGarage, p.HasExterior, p.DaysOnMarket, p.SourceURL,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return kpi.Competitor{}, errCompetitorNotFound
	}
	if err != nil {
		return kpi.Competitor{}, mapWriteError(err, "controlo.competitor.update")
	}
	return c, nil
}

// DeleteCompetitor removes a competitor and returns its project.
func (r *Repository) DeleteCompetitor(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var projectID uuid.UUID
	err := r.pool.QueryRow(ctx, `DELETE FROM competitors WHERE id = $1 RETURNING project_id`, id).Scan(&projectID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, errCompetitorNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("delete competitor: %w", err)
	}
	return projectID, nil
}

// =============================================================================
// Targets
// =============================================================================

// GetTargets returns the stored targets of a project. Project is nil when
// only unit overrides, or nothing, are stored.
func (r *Repository) GetTargets(ctx context.Context, projectID uuid.UUID) (TargetsRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT unit_id, min_lead_to_visit_rate, min_visit_to_proposal_rate,
			min_qualified_leads_14d, max_offer_gap_pct, expected_days_on_market
		FROM kpi_targets
		WHERE project_id = $1
	`, projectID)
	if err != nil {
		return TargetsRecord{}, fmt.Errorf("get targets: %w", err)
	}
	defer rows.Close()

	rec := TargetsRecord{Units: make(map[string]kpi.Targets)}
	for rows.Next() {
		var (
			unitID *uuid.UUID
			t      kpi.Targets
		)
		if err := rows.Scan(&unitID, &t.MinLeadToVisitRate, &t.MinVisitToProposalRate,
			&t.MinQualifiedLeads14d, &t.MaxOfferGapPct, &t.ExpectedDaysOnMarket); err != nil {
			return TargetsRecord{}, fmt.Errorf("scan targets: %w", err)
		}
		if unitID == nil {
			project := t
			rec.Project = &project
			continue
		}
		rec.Units[unitID.String()] = t
	}
	return rec, rows.Err()
}

// UpsertTargets stores targets for a project, or for one of its units when
// unitID is set.
func (r *Repository) UpsertTargets(ctx context.Context, projectID uuid.UUID, unitID *uuid.UUID, t kpi.Targets) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO kpi_targets (
			project_id, unit_id, min_lead_to_visit_rate, min_visit_to_proposal_rate,
			min_qualified_leads_14d, max_offer_gap_pct, expected_days_on_market
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (project_id, (COALESCE(unit_id, '00000000-0000-0000-0000-000000000000'::uuid)))
		DO UPDATE SET
			min_lead_to_visit_rate = EXCLUDED.min_lead_to_visit_rate,
			min_visit_to_proposal_rate = EXCLUDED.min_visit_to_proposal_rate,
			min_qualified_leads_14d = EXCLUDED.min_qualified_leads_14d,
			max_offer_gap_pct = EXCLUDED.max_offer_gap_pct,
			expected_days_on_market = EXCLUDED.expected_days_on_market,
			updated_at = now()
	`, projectID, unitID, t.MinLeadToVisitRate, t.MinVisitToProposalRate,
		t.MinQualifiedLeads14d, t.MaxOfferGapPct, t.ExpectedDaysOnMarket)
	if err != nil {
		return mapWriteError(err, "controlo.targets.upsert")
	}
	return nil
}

// =============================================================================
// Snapshots
// =============================================================================

// UpsertSnapshot stores the report of a project for a week, replacing any
// earlier snapshot of the same week.
func (r *Repository) UpsertSnapshot(ctx context.Context, projectID uuid.UUID, weekStart time.Time, status string, report []byte) (SnapshotRecord, error) {
	rec := SnapshotRecord{ProjectID: projectID, Status: status, Report: report}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO kpi_snapshots (project_id, week_start, status, report)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, week_start)
		DO UPDATE SET status = EXCLUDED.status, report = EXCLUDED.report, created_at = now()
		RETURNING id, week_start, created_at
	`, projectID, weekStart, status, report).Scan(&rec.ID, &rec.WeekStart, &rec.CreatedAt)
	if err != nil {
		return SnapshotRecord{}, mapWriteError(err, "controlo.snapshot.upsert")
	}
	return rec, nil
}

// ListSnapshots returns the latest snapshots of a project, newest first.
func (r *Repository) ListSnapshots(ctx context.Context, projectID uuid.UUID, limit int) ([]SnapshotRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, project_id, week_start, status, report, created_at
		FROM kpi_snapshots
		WHERE project_id = $1
		ORDER BY week_start DESC
		LIMIT $2
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	items := make([]SnapshotRecord, 0)
	for rows.Next() {
		var rec SnapshotRecord
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.WeekStart, &rec.Status, &rec.Report, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

func mapWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Conflict("a weekly log already exists for this unit and week").WithOp(op)
		case pgFKViolation:
			return apperr.Validation("referenced project or unit does not exist").WithOp(op)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
