package remote

import (
	"time"

	"leadboard_backend/internal/contacts/transport"
	"leadboard_backend/internal/pipeline/domain"
)

func toLead(c transport.ContactResponse) domain.Lead {
	lead := domain.Lead{
		ID:             c.ID.String(),
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		Interest:       c.Interest,
		Message:        c.Message,
		CreatedAt:      c.CreatedAt,
		CreatedAtMs:    c.CreatedAtMs,
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
	if lead.CreatedAt.IsZero() && c.CreatedAtMs > 0 {
		lead.CreatedAt = time.UnixMilli(c.CreatedAtMs)
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

func toUpdateRequest(p domain.Patch) transport.UpdateContactRequest {
	req := transport.UpdateContactRequest{
		MaxBudget: p.MaxBudget,
		Typology:  p.Typology,
		Notes:     p.Notes,
	}
	if p.Stage != nil {
		stage := string(*p.Stage)
		req.PipelineStage = &stage
	}
	if p.DesiredLocations != nil {
		locations := p.DesiredLocations
		req.DesiredLocations = &locations
	}
	return req
}
