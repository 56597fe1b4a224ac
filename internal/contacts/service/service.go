package service

import (
	"context"
	"strings"

	"leadboard_backend/internal/contacts/repository"
	"leadboard_backend/internal/contacts/transport"
	"leadboard_backend/internal/events"
	"leadboard_backend/internal/pipeline/domain"
	"leadboard_backend/platform/apperr"
	"leadboard_backend/platform/phone"
	"leadboard_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository is the storage the service needs.
type Repository interface {
	List(ctx context.Context, projectID *uuid.UUID) ([]repository.Contact, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Contact, error)
	Create(ctx context.Context, p repository.CreateParams) (repository.Contact, error)
	Update(ctx context.Context, p repository.UpdateParams) (repository.Contact, *repository.StageChange, error)
	StageHistory(ctx context.Context, contactID uuid.UUID) ([]repository.StageHistoryEntry, error)
}

// Service holds the contact use cases.
type Service struct {
	repo     Repository
	eventBus events.Bus
}

// New creates a Service.
func New(repo Repository, eventBus events.Bus) *Service {
	return &Service{repo: repo, eventBus: eventBus}
}

// List returns the contacts of a project, or all when projectID is nil.
func (s *Service) List(ctx context.Context, projectID *uuid.UUID) (transport.ContactListResponse, error) {
	contacts, err := s.repo.List(ctx, projectID)
	if err != nil {
		return transport.ContactListResponse{}, err
	}
	items := make([]transport.ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		items = append(items, ToResponse(c))
	}
	return transport.ContactListResponse{Items: items, Total: len(items)}, nil
}

// ListLeads returns the contacts of a project as domain leads.
func (s *Service) ListLeads(ctx context.Context, projectID uuid.UUID) ([]domain.Lead, error) {
	contacts, err := s.repo.List(ctx, &projectID)
	if err != nil {
		return nil, err
	}
	leads := make([]domain.Lead, 0, len(contacts))
	for _, c := range contacts {
		leads = append(leads, ToLead(c))
	}
	return leads, nil
}

// GetByID returns one contact.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.ContactResponse, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ContactResponse{}, err
	}
	return ToResponse(c), nil
}

// StageHistory returns the recorded transitions of a contact.
func (s *Service) StageHistory(ctx context.Context, id uuid.UUID) ([]repository.StageHistoryEntry, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.StageHistory(ctx, id)
}

// Update applies a partial update and returns the stored record.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateContactRequest, actor *uuid.UUID) (transport.ContactResponse, error) {
	if req.IsEmpty() {
		return transport.ContactResponse{}, apperr.Validation("no fields to update")
	}

	params := repository.UpdateParams{
		ID:            id,
		MaxBudget:     sanitize.TextPtr(req.MaxBudget),
		Typology:      normalizeTypology(req.Typology),
		Notes:         sanitize.TextPtr(req.Notes),
		ProposalValue: req.ProposalValue,
		ChangedBy:     actor,
	}
	if req.PipelineStage != nil {
		stage, err := domain.ParseStage(*req.PipelineStage)
		if err != nil {
			return transport.ContactResponse{}, apperr.Validation(err.Error())
		}
		value := string(stage)
		params.PipelineStage = &value
	}
	if req.DesiredLocations != nil {
		params.SetDesiredLocations = true
		params.DesiredLocations = sanitize.List(*req.DesiredLocations)
	}
	if req.UnitID != nil {
		unitID, err := uuid.Parse(*req.UnitID)
		if err != nil {
			return transport.ContactResponse{}, apperr.Validation("invalid unit id")
		}
		params.UnitID = &unitID
	}

	c, change, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.ContactResponse{}, err
	}

	if change != nil {
		s.eventBus.Publish(ctx, events.ContactStageChanged{
			BaseEvent: events.NewBaseEvent(),
			ContactID: c.ID,
			ProjectID: c.ProjectID,
			OldStage:  change.From,
			NewStage:  change.To,
			ChangedBy: actor,
		})
	}
	s.eventBus.Publish(ctx, events.ContactUpdated{
		BaseEvent: events.NewBaseEvent(),
		ContactID: c.ID,
		ProjectID: c.ProjectID,
		Fields:    changedFields(req),
	})

	return ToResponse(c), nil
}

// CreateInquiry stores a contact submitted through the public form.
func (s *Service) CreateInquiry(ctx context.Context, req transport.CreateInquiryRequest) (transport.ContactResponse, error) {
	params := repository.CreateParams{
		Name:     sanitize.Text(req.Name),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:    phone.NormalizeE164(req.Phone),
		Interest: sanitize.Text(req.Interest),
		Message:  sanitize.Text(req.Message),
	}
	if params.Name == "" {
		return transport.ContactResponse{}, apperr.Validation("name is required")
	}
	var err error
	if params.ProjectID, err = parseOptionalUUID(req.ProjectID); err != nil {
		return transport.ContactResponse{}, apperr.Validation("invalid project id")
	}
	if params.UnitID, err = parseOptionalUUID(req.UnitID); err != nil {
		return transport.ContactResponse{}, apperr.Validation("invalid unit id")
	}

	c, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.ContactResponse{}, err
	}

	s.eventBus.Publish(ctx, events.ContactCreated{
		BaseEvent: events.NewBaseEvent(),
		ContactID: c.ID,
		ProjectID: c.ProjectID,
		UnitID:    c.UnitID,
		Name:      c.Name,
		Email:     c.Email,
	})
	return ToResponse(c), nil
}

func parseOptionalUUID(value *string) (*uuid.UUID, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*value))
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func normalizeTypology(value *string) *string {
	v := sanitize.TextPtr(value)
	if v == nil {
		return nil
	}
	upper := strings.ToUpper(*v)
	return &upper
}

func changedFields(req transport.UpdateContactRequest) []string {
	var fields []string
	if req.PipelineStage != nil {
		fields = append(fields, string(domain.FieldStage))
	}
	if req.DesiredLocations != nil {
		fields = append(fields, string(domain.FieldDesiredLocations))
	}
	if req.MaxBudget != nil {
		fields = append(fields, string(domain.FieldMaxBudget))
	}
	if req.Typology != nil {
		fields = append(fields, string(domain.FieldTypology))
	}
	if req.Notes != nil {
		fields = append(fields, string(domain.FieldNotes))
	}
	if req.ProposalValue != nil {
		fields = append(fields, "proposalValue")
	}
	if req.UnitID != nil {
		fields = append(fields, "unitId")
	}
	return fields
}
