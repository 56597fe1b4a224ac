package service

import (
	"context"
	"io"
	"testing"
	"time"

	"leadboard_backend/internal/controlo/importer"
	"leadboard_backend/internal/controlo/repository"
	"leadboard_backend/internal/controlo/transport"
	"leadboard_backend/internal/kpi"
	"leadboard_backend/internal/pipeline/domain"
	"leadboard_backend/platform/apperr"
	platformevents "leadboard_backend/platform/events"
	"leadboard_backend/platform/logger"

	"github.com/google/uuid"
)

var testNow = time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)

type fakeRepo struct {
	projectID   uuid.UUID
	units       []kpi.Unit
	logs        []kpi.WeeklyLog
	competitors []kpi.Competitor
	targets     repository.TargetsRecord
	createdLogs []repository.WeeklyLogParams
	createdComp []repository.CompetitorParams
	upserted    []kpi.Targets
	snapshots   []repository.SnapshotRecord
}

func (f *fakeRepo) ListProjectIDs(context.Context) ([]uuid.UUID, error) {
	return []uuid.UUID{f.projectID}, nil
}

func (f *fakeRepo) ListUnits(context.Context, uuid.UUID) ([]kpi.Unit, error) { return f.units, nil }

func (f *fakeRepo) GetUnit(_ context.Context, id uuid.UUID) (kpi.Unit, error) {
	for _, u := range f.units {
		if u.ID == id.String() {
			return u, nil
		}
	}
	return kpi.Unit{}, apperr.NotFound("unit not found")
}

func (f *fakeRepo) ListWeeklyLogs(context.Context, uuid.UUID, *uuid.UUID) ([]kpi.WeeklyLog, error) {
	return f.logs, nil
}

func (f *fakeRepo) GetWeeklyLog(context.Context, uuid.UUID) (repository.WeeklyLogRecord, error) {
	return repository.WeeklyLogRecord{}, apperr.NotFound("weekly log not found")
}

func (f *fakeRepo) CreateWeeklyLog(_ context.Context, p repository.WeeklyLogParams) (repository.WeeklyLogRecord, error) {
	f.createdLogs = append(f.createdLogs, p)
	return repository.WeeklyLogRecord{
		WeeklyLog: kpi.WeeklyLog{ID: uuid.NewString(), UnitID: p.UnitID.String(), WeekStart: p.WeekStart},
		ProjectID: f.projectID,
	}, nil
}

func (f *fakeRepo) UpdateWeeklyLog(context.Context, uuid.UUID, repository.WeeklyLogParams) (repository.WeeklyLogRecord, error) {
	return repository.WeeklyLogRecord{}, apperr.NotFound("weekly log not found")
}

func (f *fakeRepo) DeleteWeeklyLog(context.Context, uuid.UUID) (repository.WeeklyLogRecord, error) {
	return repository.WeeklyLogRecord{}, apperr.NotFound("weekly log not found")
}

func (f *fakeRepo) ListCompetitors(context.Context, uuid.UUID) ([]kpi.Competitor, error) {
	return f.competitors, nil
}

func (f *fakeRepo) GetCompetitor(context.Context, uuid.UUID) (kpi.Competitor, error) {
	return kpi.Competitor{}, apperr.NotFound("competitor not found")
}

func (f *fakeRepo) CreateCompetitor(_ context.Context, p repository.CompetitorParams) (kpi.Competitor, error) {
	f.createdComp = append(f.createdComp, p)
	return kpi.Competitor{ID: uuid.NewString(), ProjectID: p.ProjectID.String(), Price: p.Price, Area: p.Area}, nil
}

func (f *fakeRepo) UpdateCompetitor(context.Context, uuid.UUID, repository.CompetitorParams) (kpi.Competitor, error) {
	return kpi.Competitor{}, apperr.NotFound("competitor not found")
}

func (f *fakeRepo) DeleteCompetitor(context.Context, uuid.UUID) (uuid.UUID, error) {
	return uuid.Nil, apperr.NotFound("competitor not found")
}

func (f *fakeRepo) GetTargets(context.Context, uuid.UUID) (repository.TargetsRecord, error) {
	return f.targets, nil
}

func (f *fakeRepo) UpsertTargets(_ context.Context, _ uuid.UUID, unitID *uuid.UUID, t kpi.Targets) error {
	f.upserted = append(f.upserted, t)
	if unitID == nil {
		f.targets.Project = &t
		return nil
	}
	if f.targets.Units == nil {
		f.targets.Units = map[string]kpi.Targets{}
	}
	f.targets.Units[unitID.String()] = t
	return nil
}

func (f *fakeRepo) UpsertSnapshot(_ context.Context, projectID uuid.UUID, weekStart time.Time, status string, report []byte) (repository.SnapshotRecord, error) {
	rec := repository.SnapshotRecord{
		ID:        int64(len(f.snapshots) + 1),
		ProjectID: projectID,
		WeekStart: weekStart,
		Status:    status,
		Report:    report,
		CreatedAt: testNow,
	}
	f.snapshots = append(f.snapshots, rec)
	return rec, nil
}

func (f *fakeRepo) ListSnapshots(context.Context, uuid.UUID, int) ([]repository.SnapshotRecord, error) {
	return f.snapshots, nil
}

type fakeLeads struct {
	leads []domain.Lead
	calls int
}

func (f *fakeLeads) ListLeads(context.Context, uuid.UUID) ([]domain.Lead, error) {
	f.calls++
	return f.leads, nil
}

type memoryCache struct {
	reports map[string]kpi.ProjectReport
}

func (m *memoryCache) Get(_ context.Context, projectID string) (*kpi.ProjectReport, bool, error) {
	r, ok := m.reports[projectID]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (m *memoryCache) Set(_ context.Context, report kpi.ProjectReport) error {
	m.reports[report.ProjectID] = report
	return nil
}

func (m *memoryCache) Invalidate(_ context.Context, projectID string) error {
	delete(m.reports, projectID)
	return nil
}

type stubFetcher struct {
	listing importer.Listing
}

func (s stubFetcher) Fetch(context.Context, string) (importer.Listing, error) {
	return s.listing, nil
}

func newTestService(repo *fakeRepo, leads *fakeLeads, cache ReportCache, file *kpi.TargetsFile) *Service {
	log := logger.NewWithWriter("test", io.Discard)
	svc := New(Deps{
		Repo:        repo,
		Leads:       leads,
		Cache:       cache,
		Fetcher:     stubFetcher{listing: importer.Listing{Portal: "idealista.pt", Price: 300000, Area: 100, Typology: "T2"}},
		TargetsFile: file,
		EventBus:    platformevents.NewInMemoryBus(log),
		Log:         log,
	})
	svc.now = func() time.Time { return testNow }
	return svc
}

func ptr[T any](v T) *T { return &v }

func TestAutoKPIsComputesAndCaches(t *testing.T) {
	projectID := uuid.New()
	unitID := uuid.NewString()
	repo := &fakeRepo{
		projectID: projectID,
		units:     []kpi.Unit{{ID: unitID, ProjectID: projectID.String(), Code: "A1", Typology: "T2", AskPrice: 300000}},
	}
	leads := &fakeLeads{leads: []domain.Lead{
		{ID: "1", Stage: domain.StageQualified, CreatedAt: testNow.Add(-48 * time.Hour), UnitID: &unitID},
		{ID: "2", Stage: domain.StageVisitScheduled, CreatedAt: testNow.Add(-24 * time.Hour), UnitID: &unitID},
		{ID: "3", Stage: domain.StageProposalSent, CreatedAt: testNow.Add(-24 * time.Hour), UnitID: &unitID, ProposalValue: ptr(270000.0)},
	}}
	cache := &memoryCache{reports: map[string]kpi.ProjectReport{}}
	svc := newTestService(repo, leads, cache, nil)

	report, err := svc.AutoKPIs(context.Background(), projectID)
	if err != nil {
		t.Fatalf("auto kpis: %v", err)
	}
	if report.Overall.QualifiedLeads14d != 3 || report.Overall.Visits14d != 2 || report.Overall.Proposals30d != 1 {
		t.Fatalf("unexpected metrics %+v", report.Overall.Metrics)
	}
	if len(report.Units) != 1 || report.Units[0].GapVsAsk == nil || *report.Units[0].GapVsAsk != -10 {
		t.Fatalf("expected unit gap of -10, got %+v", report.Units)
	}

	if _, err := svc.AutoKPIs(context.Background(), projectID); err != nil {
		t.Fatalf("auto kpis: %v", err)
	}
	if leads.calls != 1 {
		t.Fatalf("expected the second call to be served from cache, got %d loads", leads.calls)
	}

	svc.Invalidate(context.Background(), projectID)
	if _, err := svc.AutoKPIs(context.Background(), projectID); err != nil {
		t.Fatalf("auto kpis: %v", err)
	}
	if leads.calls != 2 {
		t.Fatalf("expected a reload after invalidation, got %d loads", leads.calls)
	}
}

func TestStoredTargetsOverrideFile(t *testing.T) {
	projectID := uuid.New()
	file := &kpi.TargetsFile{
		Default: &kpi.Targets{MinLeadToVisitRate: 20},
		Projects: map[string]kpi.ProjectTargets{
			projectID.String(): {Units: map[string]kpi.Targets{"u-1": {MinQualifiedLeads14d: 2}, "u-2": {MinQualifiedLeads14d: 3}}},
		},
	}
	repo := &fakeRepo{projectID: projectID, targets: repository.TargetsRecord{
		Units: map[string]kpi.Targets{"u-2": {MinQualifiedLeads14d: 9}},
	}}
	svc := newTestService(repo, &fakeLeads{}, nil, file)

	resp, err := svc.GetTargets(context.Background(), projectID)
	if err != nil {
		t.Fatalf("get targets: %v", err)
	}
	if resp.Project == nil || resp.Project.MinLeadToVisitRate != 20 {
		t.Fatalf("expected file default, got %+v", resp.Project)
	}
	if resp.Units["u-1"].MinQualifiedLeads14d != 2 || resp.Units["u-2"].MinQualifiedLeads14d != 9 {
		t.Fatalf("unexpected unit targets %+v", resp.Units)
	}

	_, err = svc.PutTargets(context.Background(), transport.TargetsRequest{ProjectID: projectID.String(), MinLeadToVisitRate: 35})
	if err != nil {
		t.Fatalf("put targets: %v", err)
	}
	resp, _ = svc.GetTargets(context.Background(), projectID)
	if resp.Project.MinLeadToVisitRate != 35 {
		t.Fatalf("expected stored project targets to win, got %+v", resp.Project)
	}
}

func TestPutTargetsRejectsForeignUnit(t *testing.T) {
	projectID := uuid.New()
	unitID := uuid.New()
	repo := &fakeRepo{projectID: projectID, units: []kpi.Unit{{ID: unitID.String(), ProjectID: uuid.NewString()}}}
	svc := newTestService(repo, &fakeLeads{}, nil, nil)

	unit := unitID.String()
	_, err := svc.PutTargets(context.Background(), transport.TargetsRequest{ProjectID: projectID.String(), UnitID: &unit})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.upserted) != 0 {
		t.Fatalf("targets must not be stored")
	}
}

func TestCreateWeeklyLogNormalizesWeek(t *testing.T) {
	repo := &fakeRepo{projectID: uuid.New()}
	svc := newTestService(repo, &fakeLeads{}, nil, nil)

	thursday := time.Date(2024, 6, 13, 15, 30, 0, 0, time.UTC)
	log, err := svc.CreateWeeklyLog(context.Background(), transport.WeeklyLogRequest{
		UnitID:    uuid.NewString(),
		WeekStart: thursday,
		Objection: "  preço  ",
	})
	if err != nil {
		t.Fatalf("create weekly log: %v", err)
	}
	want := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	if !log.WeekStart.Equal(want) {
		t.Fatalf("expected week start %v, got %v", want, log.WeekStart)
	}
	if repo.createdLogs[0].Objection != "preço" {
		t.Fatalf("expected trimmed objection, got %q", repo.createdLogs[0].Objection)
	}
}

func TestImportCompetitorDraftAndSave(t *testing.T) {
	projectID := uuid.New()
	repo := &fakeRepo{projectID: projectID}
	svc := newTestService(repo, &fakeLeads{}, nil, nil)

	draft, err := svc.ImportCompetitor(context.Background(), transport.ImportCompetitorRequest{
		ProjectID: projectID.String(),
		URL:       "https://www.idealista.pt/imovel/1/",
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if draft.ID != "" || draft.PricePerM2 != 3000 {
		t.Fatalf("unexpected draft %+v", draft)
	}
	if len(repo.createdComp) != 0 {
		t.Fatalf("draft import must not store")
	}

	if _, err := svc.ImportCompetitor(context.Background(), transport.ImportCompetitorRequest{
		ProjectID: projectID.String(),
		URL:       "https://www.idealista.pt/imovel/1/",
		Save:      true,
	}); err != nil {
		t.Fatalf("import and save: %v", err)
	}
	if len(repo.createdComp) != 1 || repo.createdComp[0].Typology != "T2" {
		t.Fatalf("expected one stored competitor, got %+v", repo.createdComp)
	}
}

func TestRecordSnapshotsForEveryProject(t *testing.T) {
	projectID := uuid.New()
	repo := &fakeRepo{projectID: projectID}
	svc := newTestService(repo, &fakeLeads{}, nil, nil)

	snapshots, err := svc.RecordSnapshots(context.Background(), nil)
	if err != nil {
		t.Fatalf("record snapshots: %v", err)
	}
	if len(snapshots) != 1 || snapshots[0].ProjectID != projectID.String() {
		t.Fatalf("unexpected snapshots %+v", snapshots)
	}
	if repo.snapshots[0].Status != string(kpi.StatusNoData) {
		t.Fatalf("expected SEM_DADOS for a project without leads, got %q", repo.snapshots[0].Status)
	}
	if !repo.snapshots[0].WeekStart.Equal(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected week start %v", repo.snapshots[0].WeekStart)
	}

	list, err := svc.ListSnapshots(context.Background(), projectID, 0)
	if err != nil {
		t.Fatalf("list snapshots: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Report.ProjectID != projectID.String() {
		t.Fatalf("unexpected snapshot list %+v", list.Items)
	}
}
