package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"leadboard_backend/internal/controlo/transport"
	"leadboard_backend/internal/kpi"
	"leadboard_backend/platform/httpkit"
	"leadboard_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidProjectID = "invalid project id"
	msgInvalidID        = "invalid id"
)

// Service is the controlo use-case surface the handler needs.
type Service interface {
	AutoKPIs(ctx context.Context, projectID uuid.UUID) (kpi.ProjectReport, error)
	ListUnits(ctx context.Context, projectID uuid.UUID) (transport.UnitListResponse, error)
	ListWeeklyLogs(ctx context.Context, projectID uuid.UUID, unitID *uuid.UUID) (transport.WeeklyLogListResponse, error)
	CreateWeeklyLog(ctx context.Context, req transport.WeeklyLogRequest) (kpi.WeeklyLog, error)
	UpdateWeeklyLog(ctx context.Context, id uuid.UUID, req transport.WeeklyLogRequest) (kpi.WeeklyLog, error)
	DeleteWeeklyLog(ctx context.Context, id uuid.UUID) error
	ListCompetitors(ctx context.Context, projectID uuid.UUID) (transport.CompetitorListResponse, error)
	CreateCompetitor(ctx context.Context, req transport.CompetitorRequest) (kpi.Competitor, error)
	UpdateCompetitor(ctx context.Context, id uuid.UUID, req transport.CompetitorRequest) (kpi.Competitor, error)
	DeleteCompetitor(ctx context.Context, id uuid.UUID) error
	ImportCompetitor(ctx context.Context, req transport.ImportCompetitorRequest) (kpi.Competitor, error)
	GetTargets(ctx context.Context, projectID uuid.UUID) (transport.TargetsResponse, error)
	PutTargets(ctx context.Context, req transport.TargetsRequest) (transport.TargetsResponse, error)
	ListSnapshots(ctx context.Context, projectID uuid.UUID, limit int) (transport.SnapshotListResponse, error)
	RequestSnapshot(ctx context.Context, projectID *uuid.UUID) (transport.EnqueueSnapshotResponse, error)
}

// Handler serves the controlo endpoints.
type Handler struct {
	svc Service
	val *validator.Validator
}

// New creates a Handler.
func New(svc Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the controlo routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auto-kpis", h.AutoKPIs)
	rg.GET("/units", h.ListUnits)

	rg.GET("/weekly-logs", h.ListWeeklyLogs)
	rg.POST("/weekly-logs", h.CreateWeeklyLog)
	rg.PUT("/weekly-logs/:id", h.UpdateWeeklyLog)
	rg.DELETE("/weekly-logs/:id", h.DeleteWeeklyLog)

	rg.GET("/competitors", h.ListCompetitors)
	rg.POST("/competitors", h.CreateCompetitor)
	rg.POST("/competitors/import", h.ImportCompetitor)
	rg.PUT("/competitors/:id", h.UpdateCompetitor)
	rg.DELETE("/competitors/:id", h.DeleteCompetitor)

	rg.GET("/targets", h.GetTargets)
	rg.PUT("/targets", h.PutTargets)

	rg.GET("/kpi-snapshots", h.ListSnapshots)
	rg.POST("/kpi-snapshots", h.RequestSnapshot)
}

func (h *Handler) AutoKPIs(c *gin.Context) {
	projectID, ok := requireProjectID(c)
	if !ok {
		return
	}
	report, err := h.svc.AutoKPIs(c.Request.Context(), projectID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

func (h *Handler) ListUnits(c *gin.Context) {
	projectID, ok := requireProjectID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListUnits(c.Request.Context(), projectID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) ListWeeklyLogs(c *gin.Context) {
	projectID, ok := requireProjectID(c)
	if !ok {
		return
	}
	var unitID *uuid.UUID
	if raw := strings.TrimSpace(c.Query("unitId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid unit id", nil)
			return
		}
		unitID = &id
	}
	resp, err := h.svc.ListWeeklyLogs(c.Request.Context(), projectID, unitID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) CreateWeeklyLog(c *gin.Context) {
	var req transport.WeeklyLogRequest
	if !h.bind(c, &req) {
		return
	}
	log, err := h.svc.CreateWeeklyLog(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, log)
}

func (h *Handler) UpdateWeeklyLog(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	var req transport.WeeklyLogRequest
	if !h.bind(c, &req) {
		return
	}
	log, err := h.svc.UpdateWeeklyLog(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, log)
}

func (h *Handler) DeleteWeeklyLog(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteWeeklyLog(c.Request.Context(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListCompetitors(c *gin.Context) {
	projectID, ok := requireProjectID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListCompetitors(c.Request.Context(), projectID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) CreateCompetitor(c *gin.Context) {
	var req transport.CompetitorRequest
	if !h.bind(c, &req) {
		return
	}
	comp, err := h.svc.CreateCompetitor(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, comp)
}

func (h *Handler) UpdateCompetitor(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	var req transport.CompetitorRequest
	if !h.bind(c, &req) {
		return
	}
	comp, err := h.svc.UpdateCompetitor(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, comp)
}

func (h *Handler) DeleteCompetitor(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteCompetitor(c.Request.Context(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ImportCompetitor(c *gin.Context) {
	var req transport.ImportCompetitorRequest
	if !h.bind(c, &req) {
		return
	}
	comp, err := h.svc.ImportCompetitor(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	status := http.StatusOK
	if req.Save {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, comp)
}

func (h *Handler) GetTargets(c *gin.Context) {
	projectID, ok := requireProjectID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetTargets(c.Request.Context(), projectID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) PutTargets(c *gin.Context) {
	var req transport.TargetsRequest
	if !h.bind(c, &req) {
		return
	}
	resp, err := h.svc.PutTargets(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) ListSnapshots(c *gin.Context) {
	projectID, ok := requireProjectID(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httpkit.Error(c, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = parsed
	}
	resp, err := h.svc.ListSnapshots(c.Request.Context(), projectID, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

type snapshotRequest struct {
	ProjectID *string `json:"projectId,omitempty" validate:"omitempty,uuid"`
}

func (h *Handler) RequestSnapshot(c *gin.Context) {
	var req snapshotRequest
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	var projectID *uuid.UUID
	if req.ProjectID != nil {
		id, err := uuid.Parse(*req.ProjectID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidProjectID, nil)
			return
		}
		projectID = &id
	}
	resp, err := h.svc.RequestSnapshot(c.Request.Context(), projectID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, resp)
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return false
	}
	return true
}

func requireProjectID(c *gin.Context) (uuid.UUID, bool) {
	projectID, err := uuid.Parse(strings.TrimSpace(c.Query("projectId")))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidProjectID, nil)
		return uuid.Nil, false
	}
	return projectID, true
}

func requireID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}
