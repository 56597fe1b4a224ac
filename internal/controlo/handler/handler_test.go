package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"leadboard_backend/internal/controlo/transport"
	"leadboard_backend/internal/kpi"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeService struct {
	Service
	created  []transport.WeeklyLogRequest
	deleted  []uuid.UUID
	snapshot *uuid.UUID
}

func (f *fakeService) AutoKPIs(_ context.Context, projectID uuid.UUID) (kpi.ProjectReport, error) {
	return kpi.ProjectReport{ProjectID: projectID.String(), Overall: kpi.Report{Status: kpi.StatusKeep}}, nil
}

func (f *fakeService) CreateWeeklyLog(_ context.Context, req transport.WeeklyLogRequest) (kpi.WeeklyLog, error) {
	f.created = append(f.created, req)
	return kpi.WeeklyLog{ID: uuid.NewString(), UnitID: req.UnitID}, nil
}

func (f *fakeService) DeleteWeeklyLog(_ context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeService) PutTargets(_ context.Context, _ transport.TargetsRequest) (transport.TargetsResponse, error) {
	return transport.TargetsResponse{}, apperr.Conflict("unexpected")
}

func (f *fakeService) RequestSnapshot(_ context.Context, projectID *uuid.UUID) (transport.EnqueueSnapshotResponse, error) {
	f.snapshot = projectID
	return transport.EnqueueSnapshotResponse{Status: "queued"}, nil
}

func newRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	New(svc, validator.New()).RegisterRoutes(engine.Group("/controlo"))
	return engine
}

func serve(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestAutoKPIsRequiresProject(t *testing.T) {
	engine := newRouter(&fakeService{})

	if rec := serve(engine, http.MethodGet, "/controlo/auto-kpis", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without projectId, got %d", rec.Code)
	}

	rec := serve(engine, http.MethodGet, "/controlo/auto-kpis?projectId="+uuid.NewString(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"MANTER"`) {
		t.Fatalf("expected status in body, got %s", rec.Body.String())
	}
}

func TestCreateWeeklyLogValidation(t *testing.T) {
	svc := &fakeService{}
	engine := newRouter(svc)

	rec := serve(engine, http.MethodPost, "/controlo/weekly-logs", `{"unitId":"nope","weekStart":"2024-06-10T00:00:00Z"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad unit id, got %d", rec.Code)
	}

	rec = serve(engine, http.MethodPost, "/controlo/weekly-logs", `{"unitId":"`+uuid.NewString()+`","weekStart":"2024-06-10T00:00:00Z","totalLeads":-1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative count, got %d", rec.Code)
	}

	rec = serve(engine, http.MethodPost, "/controlo/weekly-logs", `{"unitId":"`+uuid.NewString()+`","weekStart":"2024-06-12T00:00:00Z","totalLeads":4}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.created) != 1 || svc.created[0].TotalLeads != 4 {
		t.Fatalf("unexpected created logs %+v", svc.created)
	}
}

func TestDeleteWeeklyLog(t *testing.T) {
	svc := &fakeService{}
	engine := newRouter(svc)
	id := uuid.New()

	rec := serve(engine, http.MethodDelete, "/controlo/weekly-logs/"+id.String(), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != id {
		t.Fatalf("unexpected deletes %v", svc.deleted)
	}
}

func TestPutTargetsMapsDomainErrors(t *testing.T) {
	engine := newRouter(&fakeService{})

	rec := serve(engine, http.MethodPut, "/controlo/targets", `{"projectId":"`+uuid.NewString()+`","minLeadToVisitRate":150}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range rate, got %d", rec.Code)
	}

	rec = serve(engine, http.MethodPut, "/controlo/targets", `{"projectId":"`+uuid.NewString()+`","minLeadToVisitRate":30}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected service error to map to 409, got %d", rec.Code)
	}
}

func TestRequestSnapshotWithoutBody(t *testing.T) {
	svc := &fakeService{}
	engine := newRouter(svc)

	rec := serve(engine, http.MethodPost, "/controlo/kpi-snapshots", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if svc.snapshot != nil {
		t.Fatalf("expected all-project snapshot, got %v", svc.snapshot)
	}
}
