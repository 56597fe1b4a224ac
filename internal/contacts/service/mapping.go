package service

import (
	"leadboard_backend/internal/contacts/repository"
	"leadboard_backend/internal/contacts/transport"
	"leadboard_backend/internal/pipeline/domain"
)

// ToResponse maps a stored contact to its wire shape.
func ToResponse(c repository.Contact) transport.ContactResponse {
	locations := c.DesiredLocations
	if locations == nil {
		locations = []string{}
	}
	return transport.ContactResponse{
		ID:               c.ID,
		Name:             c.Name,
		Email:            c.Email,
		Phone:            c.Phone,
		Interest:         c.Interest,
		Message:          c.Message,
		PipelineStage:    string(domain.NormalizeStage(c.PipelineStage)),
		StageChangedAt:   c.StageChangedAt,
		UnitID:           c.UnitID,
		ProjectID:        c.ProjectID,
		DesiredLocations: locations,
		MaxBudget:        c.MaxBudget,
		Typology:         c.Typology,
		Notes:            c.Notes,
		ProposalValue:    c.ProposalValue,
		CreatedAt:        c.CreatedAt,
		CreatedAtMs:      c.CreatedAt.UnixMilli(),
		UpdatedAt:        c.UpdatedAt,
	}
}

// ToLead maps a stored contact to the domain lead used by the KPI aggregator.
func ToLead(c repository.Contact) domain.Lead {
	lead := domain.Lead{
		ID:             c.ID.String(),
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Interest:       c.Interest,
		Message:        c.Message,
		CreatedAt:      c.CreatedAt,
		CreatedAtMs:    c.CreatedAt.UnixMilli(),
		Stage:          domain.NormalizeStage(c.PipelineStage),
		StageChangedAt: c.StageChangedAt,
		ProposalValue:  c.ProposalValue,
		Preferences: domain.Preferences{
			DesiredLocations: c.DesiredLocations,
			MaxBudget:        c.MaxBudget,
			Typology:         c.Typology,
			Notes:            c.Notes,
		},
	}
	if c.UnitID != nil {
		id := c.UnitID.String()
		lead.UnitID = &id
	}
	if c.ProjectID != nil {
		id := c.ProjectID.String()
		lead.ProjectID = &id
	}
	return lead
}
