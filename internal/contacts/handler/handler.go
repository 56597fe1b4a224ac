package handler

import (
	"context"
	"net/http"
	"strings"

	"leadboard_backend/internal/contacts/repository"
	"leadboard_backend/internal/contacts/transport"
	"leadboard_backend/platform/httpkit"
	"leadboard_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid contact id"
)

// Service is the contact use-case surface the handler needs.
type Service interface {
	List(ctx context.Context, projectID *uuid.UUID) (transport.ContactListResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (transport.ContactResponse, error)
	StageHistory(ctx context.Context, id uuid.UUID) ([]repository.StageHistoryEntry, error)
	Update(ctx context.Context, id uuid.UUID, req transport.UpdateContactRequest, actor *uuid.UUID) (transport.ContactResponse, error)
	CreateInquiry(ctx context.Context, req transport.CreateInquiryRequest) (transport.ContactResponse, error)
}

// Handler serves the contacts endpoints.
type Handler struct {
	svc Service
	val *validator.Validator
}

// New creates a Handler.
func New(svc Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the authenticated contact routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/stage-history", h.StageHistory)
	rg.PUT("/:id", h.Update)
}

// RegisterPublicRoutes mounts the inquiry intake route.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreateInquiry)
}

func (h *Handler) List(c *gin.Context) {
	var projectID *uuid.UUID
	if raw := strings.TrimSpace(c.Query("projectId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid project id", nil)
			return
		}
		projectID = &id
	}

	resp, err := h.svc.List(c.Request.Context(), projectID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) StageHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	items, err := h.svc.StageHistory(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), id, req, httpkit.ActorID(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) CreateInquiry(c *gin.Context) {
	var req transport.CreateInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Details(err))
		return
	}

	resp, err := h.svc.CreateInquiry(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}
