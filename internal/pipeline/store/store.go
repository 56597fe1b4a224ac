// Package store keeps the in-memory lead records of the board: the last
// record confirmed by the backend plus a session overlay of optimistic
// local edits.
package store

import (
	"sync"

	"leadboard_backend/internal/pipeline/domain"
)

// Store is safe for concurrent use. Readers always see the merged view.
type Store struct {
	mu        sync.RWMutex
	order     []string
	confirmed map[string]domain.Lead
	local     map[string]domain.Patch
}

// New creates an empty store.
func New() *Store {
	return &Store{
		confirmed: make(map[string]domain.Lead),
		local:     make(map[string]domain.Patch),
	}
}

// Replace swaps the confirmed records with a fresh backend load. Overlay
// entries for leads still present are kept.
func (s *Store) Replace(leads []domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()

	confirmed := make(map[string]domain.Lead, len(leads))
	order := make([]string, 0, len(leads))
	for _, lead := range leads {
		if _, seen := confirmed[lead.ID]; !seen {
			order = append(order, lead.ID)
		}
		lead.Stage = domain.NormalizeStage(string(lead.Stage))
		confirmed[lead.ID] = lead.Clone()
	}
	for id := range s.local {
		if _, ok := confirmed[id]; !ok {
			delete(s.local, id)
		}
	}
	s.confirmed = confirmed
	s.order = order
}

// Len returns the number of leads.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Get returns the merged record for id.
func (s *Store) Get(id string) (domain.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, ok := s.confirmed[id]
	if !ok {
		return domain.Lead{}, false
	}
	return s.local[id].Apply(lead), true
}

// Confirmed returns the last backend-confirmed record for id.
func (s *Store) Confirmed(id string) (domain.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lead, ok := s.confirmed[id]
	if !ok {
		return domain.Lead{}, false
	}
	return lead.Clone(), true
}

// Local returns the session overlay for id.
func (s *Store) Local(id string) domain.Patch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.local[id].Clone()
}

// All returns every merged record in load order.
func (s *Store) All() []domain.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Lead, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.local[id].Apply(s.confirmed[id]))
	}
	return out
}

// ApplyLocal records an optimistic edit and returns the merged record.
func (s *Store) ApplyLocal(id string, patch domain.Patch) (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.confirmed[id]
	if !ok {
		return domain.Lead{}, false
	}
	overlay := s.local[id].Merge(patch)
	s.local[id] = overlay
	return overlay.Apply(lead), true
}

// Confirm stores the backend's view of a lead after a successful write.
// Overlay fields are dropped only while they still hold the value that was
// sent, so a newer local edit made during the request stays visible.
func (s *Store) Confirm(id string, lead domain.Lead, sent domain.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.confirmed[id]; !ok {
		s.order = append(s.order, id)
	}
	lead.Stage = domain.NormalizeStage(string(lead.Stage))
	s.confirmed[id] = lead.Clone()
	s.setLocal(id, s.local[id].Without(sent))
}

// Revert drops overlay fields holding the rejected values so the record falls
// back to its confirmed state.
func (s *Store) Revert(id string, rejected domain.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocal(id, s.local[id].Without(rejected))
}

func (s *Store) setLocal(id string, overlay domain.Patch) {
	if overlay.IsEmpty() {
		delete(s.local, id)
		return
	}
	s.local[id] = overlay
}
