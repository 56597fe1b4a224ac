package transport

import (
	"time"

	"github.com/google/uuid"
)

// ContactResponse is the wire shape of a lead record.
type ContactResponse struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	Interest         string     `json:"interest"`
	Message          string     `json:"message"`
	PipelineStage    string     `json:"pipelineStage"`
	StageChangedAt   *time.Time `json:"stageChangedAt,omitempty"`
	UnitID           *uuid.UUID `json:"unitId,omitempty"`
	ProjectID        *uuid.UUID `json:"projectId,omitempty"`
	DesiredLocations []string   `json:"desiredLocations"`
	MaxBudget        *string    `json:"maxBudget"`
	Typology         *string    `json:"typology"`
	Notes            *string    `json:"notes"`
	ProposalValue    *float64   `json:"proposalValue,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	CreatedAtMs      int64      `json:"createdAtMs"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ContactListResponse wraps a list of contacts.
type ContactListResponse struct {
	Items []ContactResponse `json:"items"`
	Total int               `json:"total"`
}

// UpdateContactRequest is a partial update. Omitted fields are left as they
// are; an empty string or list clears the field.
type UpdateContactRequest struct {
	PipelineStage    *string   `json:"pipelineStage,omitempty" validate:"omitempty,pipeline_stage"`
	DesiredLocations *[]string `json:"desiredLocations,omitempty" validate:"omitempty,max=20,dive,max=120"`
	MaxBudget        *string   `json:"maxBudget,omitempty" validate:"omitempty,max=64"`
	Typology         *string   `json:"typology,omitempty" validate:"omitempty,max=16"`
	Notes            *string   `json:"notes,omitempty" validate:"omitempty,max=4000"`
	ProposalValue    *float64  `json:"proposalValue,omitempty" validate:"omitempty,gte=0"`
	UnitID           *string   `json:"unitId,omitempty" validate:"omitempty,uuid"`
}

// IsEmpty reports whether the request carries no field.
func (r UpdateContactRequest) IsEmpty() bool {
	return r.PipelineStage == nil && r.DesiredLocations == nil && r.MaxBudget == nil &&
		r.Typology == nil && r.Notes == nil && r.ProposalValue == nil && r.UnitID == nil
}

// CreateInquiryRequest is submitted by the public inquiry form.
type CreateInquiryRequest struct {
	ProjectID *string `json:"projectId,omitempty" validate:"omitempty,uuid"`
	UnitID    *string `json:"unitId,omitempty" validate:"omitempty,uuid"`
	Name      string  `json:"name" validate:"required,min=1,max=120"`
	Email     string  `json:"email" validate:"required,email,max=254"`
	Phone     string  `json:"phone" validate:"omitempty,max=32"`
	Interest  string  `json:"interest" validate:"omitempty,max=120"`
	Message   string  `json:"message" validate:"omitempty,max=4000"`
}
