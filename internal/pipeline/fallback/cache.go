package fallback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"leadboard_backend/internal/pipeline/domain"
)

// preferenceRecord is the stored shape of the preferences namespace. Absent
// fields are not pending.
type preferenceRecord struct {
	DesiredLocations *[]string `json:"desiredLocations,omitempty"`
	MaxBudget        *string   `json:"maxBudget,omitempty"`
	Typology         *string   `json:"typology,omitempty"`
	Notes            *string   `json:"notes,omitempty"`
}

// Cache is the typed pending-write queue on top of a Backend. The stage
// namespace stores {leadId: stage}; the preferences namespace stores
// {leadId: {field: value}}.
type Cache struct {
	backend Backend
	// mu serializes read-modify-write cycles on entries.
	mu sync.Mutex
}

// New wraps backend.
func New(backend Backend) *Cache {
	return &Cache{backend: backend}
}

// Close closes the backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}

// Pending returns the pending fields of one namespace for a lead.
func (c *Cache) Pending(ctx context.Context, ns domain.Namespace, leadID string) (domain.Patch, error) {
	raw, err := c.backend.Fetch(ctx, string(ns), leadID)
	if errors.Is(err, ErrNotFound) {
		return domain.Patch{}, nil
	}
	if err != nil {
		return domain.Patch{}, err
	}
	return decode(ns, raw)
}

// All returns every pending entry of a namespace keyed by lead id.
func (c *Cache) All(ctx context.Context, ns domain.Namespace) (map[string]domain.Patch, error) {
	entries, err := c.backend.Load(ctx, string(ns))
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Patch, len(entries))
	for leadID, raw := range entries {
		patch, err := decode(ns, raw)
		if err != nil {
			return nil, fmt.Errorf("lead %s: %w", leadID, err)
		}
		if !patch.IsEmpty() {
			out[leadID] = patch
		}
	}
	return out, nil
}

// Put merges the namespace's fields of patch into the lead's pending entry.
func (c *Cache) Put(ctx context.Context, ns domain.Namespace, leadID string, patch domain.Patch) error {
	patch = patch.Only(ns)
	if patch.IsEmpty() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.Pending(ctx, ns, leadID)
	if err != nil {
		return err
	}
	return c.write(ctx, ns, leadID, current.Merge(patch))
}

// Clear drops pending fields that still hold the values in sent. Fields
// rewritten after sent was captured are kept.
func (c *Cache) Clear(ctx context.Context, ns domain.Namespace, leadID string, sent domain.Patch) error {
	sent = sent.Only(ns)
	if sent.IsEmpty() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.Pending(ctx, ns, leadID)
	if err != nil {
		return err
	}
	if current.IsEmpty() {
		return nil
	}
	return c.write(ctx, ns, leadID, current.Without(sent))
}

// Discard removes the lead's pending entry in ns.
func (c *Cache) Discard(ctx context.Context, ns domain.Namespace, leadID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend.Remove(ctx, string(ns), leadID)
}

func (c *Cache) write(ctx context.Context, ns domain.Namespace, leadID string, patch domain.Patch) error {
	if patch.IsEmpty() {
		return c.backend.Remove(ctx, string(ns), leadID)
	}
	raw, err := encode(ns, patch)
	if err != nil {
		return err
	}
	return c.backend.Save(ctx, string(ns), leadID, raw)
}

func encode(ns domain.Namespace, patch domain.Patch) ([]byte, error) {
	switch ns {
	case domain.NamespaceStage:
		return json.Marshal(string(*patch.Stage))
	case domain.NamespacePreferences:
		record := preferenceRecord{
			MaxBudget: patch.MaxBudget,
			Typology:  patch.Typology,
			Notes:     patch.Notes,
		}
		if patch.DesiredLocations != nil {
			locations := patch.DesiredLocations
			record.DesiredLocations = &locations
		}
		return json.Marshal(record)
	default:
		return nil, fmt.Errorf("unknown fallback namespace %q", ns)
	}
}

func decode(ns domain.Namespace, raw []byte) (domain.Patch, error) {
	switch ns {
	case domain.NamespaceStage:
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return domain.Patch{}, fmt.Errorf("decode pending stage: %w", err)
		}
		stage, err := domain.ParseStage(value)
		if err != nil {
			// Corrupt entries are ignored rather than replayed.
			return domain.Patch{}, nil
		}
		return domain.StagePatch(stage), nil
	case domain.NamespacePreferences:
		var record preferenceRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return domain.Patch{}, fmt.Errorf("decode pending preferences: %w", err)
		}
		patch := domain.Patch{
			MaxBudget: record.MaxBudget,
			Typology:  record.Typology,
			Notes:     record.Notes,
		}
		if record.DesiredLocations != nil {
			patch.DesiredLocations = *record.DesiredLocations
			if patch.DesiredLocations == nil {
				patch.DesiredLocations = []string{}
			}
		}
		return patch, nil
	default:
		return domain.Patch{}, fmt.Errorf("unknown fallback namespace %q", ns)
	}
}
