package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	contactsrepo "leadboard_backend/internal/contacts/repository"
	"leadboard_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

type stubLister struct {
	contacts []contactsrepo.Contact
	err      error
	got      *uuid.UUID
}

func (s *stubLister) List(_ context.Context, projectID *uuid.UUID) ([]contactsrepo.Contact, error) {
	s.got = projectID
	return s.contacts, s.err
}

func TestControloLeadReaderMapsContacts(t *testing.T) {
	projectID := uuid.New()
	unitID := uuid.New()
	lister := &stubLister{contacts: []contactsrepo.Contact{
		{ID: uuid.New(), UnitID: &unitID, PipelineStage: "visit_scheduled", CreatedAt: time.Now()},
		{ID: uuid.New(), PipelineStage: "archived", CreatedAt: time.Now()},
	}}

	leads, err := NewControloLeadReader(lister).ListLeads(context.Background(), projectID)
	if err != nil {
		t.Fatalf("list leads: %v", err)
	}
	if lister.got == nil || *lister.got != projectID {
		t.Fatalf("expected project filter %s, got %v", projectID, lister.got)
	}
	if len(leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(leads))
	}
	if leads[0].Stage != domain.StageVisitScheduled || !leads[0].BelongsToUnit(unitID.String()) {
		t.Fatalf("unexpected first lead %+v", leads[0])
	}
	if leads[1].Stage != domain.StageNew {
		t.Fatalf("unknown stage should read as new, got %q", leads[1].Stage)
	}
}

func TestControloLeadReaderWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewControloLeadReader(&stubLister{err: boom}).ListLeads(context.Background(), uuid.New())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
