// Package adapters holds the anti-corruption layer between bounded contexts.
package adapters

import (
	"context"
	"fmt"

	contactsrepo "leadboard_backend/internal/contacts/repository"
	contactsvc "leadboard_backend/internal/contacts/service"
	"leadboard_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// ContactLister is the narrow read side of the contacts repository.
type ContactLister interface {
	List(ctx context.Context, projectID *uuid.UUID) ([]contactsrepo.Contact, error)
}

// ControloLeadReader adapts the contacts repository to provide the lead
// records the KPI aggregation needs.
// It implements controlo/service.LeadReader.
type ControloLeadReader struct {
	contacts ContactLister
}

// NewControloLeadReader creates a new lead reader adapter.
func NewControloLeadReader(contacts ContactLister) *ControloLeadReader {
	return &ControloLeadReader{contacts: contacts}
}

// ListLeads returns the contacts of a project as domain leads.
func (a *ControloLeadReader) ListLeads(ctx context.Context, projectID uuid.UUID) ([]domain.Lead, error) {
	contacts, err := a.contacts.List(ctx, &projectID)
	if err != nil {
		return nil, fmt.Errorf("list leads for kpis: %w", err)
	}
	leads := make([]domain.Lead, 0, len(contacts))
	for _, c := range contacts {
		leads = append(leads, contactsvc.ToLead(c))
	}
	return leads, nil
}
