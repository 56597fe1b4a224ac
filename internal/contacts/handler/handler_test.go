package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"leadboard_backend/internal/contacts"
	"leadboard_backend/internal/contacts/handler"
	"leadboard_backend/internal/contacts/repository"
	"leadboard_backend/internal/contacts/transport"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeService struct {
	contact transport.ContactResponse
	updates []transport.UpdateContactRequest
	created []transport.CreateInquiryRequest
	err     error
}

func (f *fakeService) List(_ context.Context, _ *uuid.UUID) (transport.ContactListResponse, error) {
	return transport.ContactListResponse{Items: []transport.ContactResponse{f.contact}, Total: 1}, nil
}

func (f *fakeService) GetByID(_ context.Context, id uuid.UUID) (transport.ContactResponse, error) {
	if id != f.contact.ID {
		return transport.ContactResponse{}, apperr.NotFound("contact not found")
	}
	return f.contact, nil
}

func (f *fakeService) StageHistory(_ context.Context, _ uuid.UUID) ([]repository.StageHistoryEntry, error) {
	return nil, nil
}

func (f *fakeService) Update(_ context.Context, id uuid.UUID, req transport.UpdateContactRequest, _ *uuid.UUID) (transport.ContactResponse, error) {
	if id != f.contact.ID {
		return transport.ContactResponse{}, apperr.NotFound("contact not found")
	}
	f.updates = append(f.updates, req)
	if f.err != nil {
		return transport.ContactResponse{}, f.err
	}
	if req.PipelineStage != nil {
		f.contact.PipelineStage = *req.PipelineStage
	}
	return f.contact, nil
}

func (f *fakeService) CreateInquiry(_ context.Context, req transport.CreateInquiryRequest) (transport.ContactResponse, error) {
	f.created = append(f.created, req)
	return f.contact, nil
}

func newRouter(t *testing.T, svc handler.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	val := validator.New()
	if err := contacts.RegisterValidations(val); err != nil {
		t.Fatalf("register validations: %v", err)
	}

	engine := gin.New()
	h := handler.New(svc, val)
	h.RegisterRoutes(engine.Group("/contacts"))
	h.RegisterPublicRoutes(engine.Group("/public/contacts"))
	return engine
}

func do(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestUpdateRejectsUnknownStage(t *testing.T) {
	svc := &fakeService{contact: transport.ContactResponse{ID: uuid.New(), PipelineStage: "new"}}
	engine := newRouter(t, svc)

	rec := do(engine, http.MethodPut, "/contacts/"+svc.contact.ID.String(), `{"pipelineStage":"archived"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "validation failed" {
		t.Fatalf("unexpected error body: %v", body)
	}
	details, _ := body["details"].(map[string]interface{})
	if details["pipelineStage"] != "pipeline_stage" {
		t.Fatalf("expected pipelineStage detail, got %v", body["details"])
	}
	if len(svc.updates) != 0 {
		t.Fatalf("service must not be called, got %d updates", len(svc.updates))
	}
}

func TestUpdateAppliesStage(t *testing.T) {
	svc := &fakeService{contact: transport.ContactResponse{ID: uuid.New(), PipelineStage: "new"}}
	engine := newRouter(t, svc)

	rec := do(engine, http.MethodPut, "/contacts/"+svc.contact.ID.String(), `{"pipelineStage":"qualified"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp transport.ContactResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.PipelineStage != "qualified" {
		t.Fatalf("expected qualified, got %q", resp.PipelineStage)
	}
	if len(svc.updates) != 1 || svc.updates[0].MaxBudget != nil {
		t.Fatalf("expected a stage-only update, got %+v", svc.updates)
	}
}

func TestUpdateDanglingUnitIsBadRequest(t *testing.T) {
	svc := &fakeService{
		contact: transport.ContactResponse{ID: uuid.New()},
		err:     apperr.Validation("unknown project or unit").WithOp("update contact"),
	}
	engine := newRouter(t, svc)

	rec := do(engine, http.MethodPut, "/contacts/"+svc.contact.ID.String(), `{"unitId":"`+uuid.NewString()+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateUnknownContact(t *testing.T) {
	svc := &fakeService{contact: transport.ContactResponse{ID: uuid.New()}}
	engine := newRouter(t, svc)

	rec := do(engine, http.MethodPut, "/contacts/"+uuid.NewString(), `{"notes":"call back"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUpdateRejectsMalformedID(t *testing.T) {
	engine := newRouter(t, &fakeService{})

	rec := do(engine, http.MethodPut, "/contacts/not-a-uuid", `{"notes":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateInquiryValidatesEmail(t *testing.T) {
	svc := &fakeService{contact: transport.ContactResponse{ID: uuid.New()}}
	engine := newRouter(t, svc)

	rec := do(engine, http.MethodPost, "/public/contacts", `{"name":"Ana","email":"nope"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = do(engine, http.MethodPost, "/public/contacts", `{"name":"Ana","email":"ana@example.pt","phone":"912345678"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.created) != 1 {
		t.Fatalf("expected one inquiry, got %d", len(svc.created))
	}
}
