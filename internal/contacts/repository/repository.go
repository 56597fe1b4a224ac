package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadboard_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgFKViolation = "23503"

// Contact is a lead record as stored.
type Contact struct {
	ID               uuid.UUID
	ProjectID        *uuid.UUID
	UnitID           *uuid.UUID
	Name             string
	Email            string
	Phone            string
	Interest         string
	Message          string
	PipelineStage    string
	StageChangedAt   *time.Time
	DesiredLocations []string
	MaxBudget        *string
	Typology         *string
	Notes            *string
	ProposalValue    *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreateParams holds the fields of a new contact.
type CreateParams struct {
	ProjectID *uuid.UUID
	UnitID    *uuid.UUID
	Name      string
	Email     string
	Phone     string
	Interest  string
	Message   string
}

// UpdateParams is a partial update. Nil fields are left untouched.
// DesiredLocations is applied when SetDesiredLocations is true.
type UpdateParams struct {
	ID                  uuid.UUID
	PipelineStage       *string
	SetDesiredLocations bool
	DesiredLocations    []string
	MaxBudget           *string
	Typology            *string
	Notes               *string
	ProposalValue       *float64
	UnitID              *uuid.UUID
	ChangedBy           *uuid.UUID
}

// StageChange describes a transition recorded by Update.
type StageChange struct {
	From string
	To   string
}

// StageHistoryEntry is one recorded transition.
type StageHistoryEntry struct {
	ID        int64
	ContactID uuid.UUID
	FromStage *string
	ToStage   string
	ChangedBy *uuid.UUID
	ChangedAt time.Time
}

// Repository is the contacts data access layer.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const contactColumns = `
	id, project_id, unit_id, name, email, phone, interest, message,
	pipeline_stage, stage_changed_at, desired_locations, max_budget, typology, notes,
	proposal_value::float8, created_at, updated_at`

func scanContact(row pgx.Row) (Contact, error) {
	var c Contact
	err := row.Scan(
		&c.ID, &c.ProjectID, &c.UnitID, &c.Name, &c.Email, &c.Phone, &c.Interest, &c.Message,
		&c.PipelineStage, &c.StageChangedAt, &c.DesiredLocations, &c.MaxBudget, &c.Typology, &c.Notes,
		&c.ProposalValue, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// List returns contacts, newest first. A nil projectID returns all.
func (r *Repository) List(ctx context.Context, projectID *uuid.UUID) ([]Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts
		WHERE ($1::uuid IS NULL OR project_id = $1)
		ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	items := make([]Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// GetByID returns one contact.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, apperr.NotFound("contact not found")
	}
	if err != nil {
		return Contact{}, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// Create inserts a contact in the new stage.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx, `
		INSERT INTO contacts (project_id, unit_id, name, email, phone, interest, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+contactColumns,
		p.ProjectID, p.UnitID, p.Name, p.Email, p.Phone, p.Interest, p.Message,
	))
	if err != nil {
		return Contact{}, mapWriteError(err, "create contact")
	}
	return c, nil
}

// Update applies a partial update in one transaction. A stage change stamps
// stage_changed_at and appends to contact_stage_history.
func (r *Repository) Update(ctx context.Context, p UpdateParams) (Contact, *StageChange, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Contact{}, nil, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var currentStage string
	err = tx.QueryRow(ctx, `SELECT pipeline_stage FROM contacts WHERE id = $1 FOR UPDATE`, p.ID).Scan(&currentStage)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, nil, apperr.NotFound("contact not found")
	}
	if err != nil {
		return Contact{}, nil, fmt.Errorf("lock contact: %w", err)
	}

	var change *StageChange
	if p.PipelineStage != nil && *p.PipelineStage != currentStage {
		change = &StageChange{From: currentStage, To: *p.PipelineStage}
	}

	c, err := scanContact(tx.QueryRow(ctx, `
		UPDATE contacts SET
			pipeline_stage = COALESCE($2, pipeline_stage),
			stage_changed_at = CASE WHEN $3 THEN now() ELSE stage_changed_at END,
			desired_locations = CASE WHEN $4 THEN $5::text[] ELSE desired_locations END,
			max_budget = COALESCE($6, max_budget),
			typology = COALESCE($7, typology),
			notes = COALESCE($8, notes),
			proposal_value = COALESCE($9::float8::numeric, proposal_value),
			unit_id = COALESCE($10, unit_id),
			updated_at = now()
		WHERE id = $1
		RETURNING `+contactColumns,
		p.ID, p.PipelineStage, change != nil, p.SetDesiredLocations, p.DesiredLocations,
		p.MaxBudget, p.Typology, p.Notes, p.ProposalValue, p.UnitID,
	))
	if err != nil {
		return Contact{}, nil, mapWriteError(err, "update contact")
	}

	if change != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO contact_stage_history (contact_id, from_stage, to_stage, changed_by)
			VALUES ($1, $2, $3, $4)
		`, p.ID, change.From, change.To, p.ChangedBy); err != nil {
			return Contact{}, nil, fmt.Errorf("record stage history: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Contact{}, nil, fmt.Errorf("commit update: %w", err)
	}
	return c, change, nil
}

// StageHistory lists the transitions of a contact, newest first.
func (r *Repository) StageHistory(ctx context.Context, contactID uuid.UUID) ([]StageHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contact_id, from_stage, to_stage, changed_by, changed_at
		FROM contact_stage_history
		WHERE contact_id = $1
		ORDER BY changed_at DESC, id DESC
	`, contactID)
	if err != nil {
		return nil, fmt.Errorf("list stage history: %w", err)
	}
	defer rows.Close()

	items := make([]StageHistoryEntry, 0)
	for rows.Next() {
		var e StageHistoryEntry
		if err := rows.Scan(&e.ID, &e.ContactID, &e.FromStage, &e.ToStage, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan stage history: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// mapWriteError turns a dangling project or unit reference into a
// validation error.
func mapWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgFKViolation {
		return apperr.Validation("unknown project or unit").WithOp(op)
	}
	return fmt.Errorf("%s: %w", op, err)
}
