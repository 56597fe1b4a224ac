package domain

import (
	"slices"
	"time"
)

// Preferences are the buyer attributes edited from the lead modal. Every field
// is independently optional; nil means unknown.
type Preferences struct {
	DesiredLocations []string
	MaxBudget        *string
	Typology         *string
	Notes            *string
}

// IsEmpty reports whether no field carries a value.
func (p Preferences) IsEmpty() bool {
	return p.DesiredLocations == nil && p.MaxBudget == nil && p.Typology == nil && p.Notes == nil
}

// Clone returns a deep copy.
func (p Preferences) Clone() Preferences {
	return Preferences{
		DesiredLocations: cloneList(p.DesiredLocations),
		MaxBudget:        cloneString(p.MaxBudget),
		Typology:         cloneString(p.Typology),
		Notes:            cloneString(p.Notes),
	}
}

// Lead is a contact captured from an inquiry form.
type Lead struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	Interest    string
	Message     string
	CreatedAt   time.Time
	CreatedAtMs int64

	Stage Stage
	// StageChangedAt is set by the backend on every stage transition. Older
	// records do not carry it.
	StageChangedAt *time.Time
	UnitID         *string
	ProjectID      *string
	ProposalValue  *float64

	Preferences Preferences
}

// ActivityAt is the timestamp used for stage-based windows: the last
// transition when known, otherwise the creation time.
func (l Lead) ActivityAt() time.Time {
	if l.StageChangedAt != nil && !l.StageChangedAt.IsZero() {
		return *l.StageChangedAt
	}
	return l.CreatedAt
}

// BelongsToUnit reports whether the lead is associated with unitID.
func (l Lead) BelongsToUnit(unitID string) bool {
	return l.UnitID != nil && *l.UnitID == unitID
}

// Clone returns a deep copy.
func (l Lead) Clone() Lead {
	out := l
	out.StageChangedAt = cloneTime(l.StageChangedAt)
	out.UnitID = cloneString(l.UnitID)
	out.ProjectID = cloneString(l.ProjectID)
	if l.ProposalValue != nil {
		v := *l.ProposalValue
		out.ProposalValue = &v
	}
	out.Preferences = l.Preferences.Clone()
	return out
}

func cloneList(values []string) []string {
	if values == nil {
		return nil
	}
	return slices.Clone(values)
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
