package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coldfire85/neurolog/internal/server/database"
)

var (
	ErrInvalidRole              = errors.New("invalid role")
	ErrInvalidProcedureCategory = errors.New("invalid procedure category")
	ErrMissingName              = errors.New("name is required")
)

var validRoles = map[string]bool{
	"lead": true, "assistant": true, "observed": true,
}

var validProcedureCategories = map[string]bool{
	"cranial": true, "spinal": true, "functional": true, "other": true,
}

// ProcedureRepo is the persistence surface the procedure service needs.
type ProcedureRepo interface {
	CreateProcedure(ctx context.Context, p *database.Procedure) error
	GetProcedure(ctx context.Context, userID, id string) (*database.Procedure, error)
	ListProcedures(ctx context.Context, userID string) ([]*database.Procedure, error)
	UpdateProcedure(ctx context.Context, p *database.Procedure) error
	DeleteProcedure(ctx context.Context, userID, id string) error
	CreateTemplate(ctx context.Context, t *database.Template) error
	GetTemplate(ctx context.Context, userID, id string) (*database.Template, error)
	ListTemplates(ctx context.Context, userID string) ([]*database.Template, error)
	UpdateTemplate(ctx context.Context, t *database.Template) error
	DeleteTemplate(ctx context.Context, userID, id string) error
}

// ProcedureInput carries the user-editable fields of a procedure.
type ProcedureInput struct {
	Name        string    `json:"name"`
	PerformedAt time.Time `json:"performedAt"`
	Hospital    string    `json:"hospital"`
	Role        string    `json:"role"`
	Category    string    `json:"category"`
	Notes       string    `json:"notes"`
}

// TemplateInput carries the user-editable fields of a template.
type TemplateInput struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Role     string `json:"role"`
	Notes    string `json:"notes"`
}

// ProcedureService contains the business logic for the procedure logbook
// and its templates.
type ProcedureService struct {
	repo ProcedureRepo
}

// NewProcedureService creates a new procedure service.
func NewProcedureService(repo ProcedureRepo) *ProcedureService {
	return &ProcedureService{repo: repo}
}

func validateProcedureInput(in *ProcedureInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrMissingName
	}
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if !validRoles[in.Role] {
		return fmt.Errorf("%w: %q (expected lead, assistant or observed)", ErrInvalidRole, in.Role)
	}
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if !validProcedureCategories[in.Category] {
		return fmt.Errorf("%w: %q (expected cranial, spinal, functional or other)", ErrInvalidProcedureCategory, in.Category)
	}
	if in.PerformedAt.IsZero() {
		in.PerformedAt = time.Now().UTC()
	}
	return nil
}

// Create records a new procedure.
func (s *ProcedureService) Create(ctx context.Context, userID string, in ProcedureInput) (*database.Procedure, error) {
	if err := validateProcedureInput(&in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &database.Procedure{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        in.Name,
		PerformedAt: in.PerformedAt,
		Hospital:    strings.TrimSpace(in.Hospital),
		Role:        in.Role,
		Category:    in.Category,
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProcedure(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get loads one owned procedure.
func (s *ProcedureService) Get(ctx context.Context, userID, id string) (*database.Procedure, error) {
	p, err := s.repo.GetProcedure(ctx, userID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns the user's procedures, newest first.
func (s *ProcedureService) List(ctx context.Context, userID string) ([]*database.Procedure, error) {
	return s.repo.ListProcedures(ctx, userID)
}

// Update modifies an owned procedure.
func (s *ProcedureService) Update(ctx context.Context, userID, id string, in ProcedureInput) (*database.Procedure, error) {
	if err := validateProcedureInput(&in); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	p.Name = in.Name
	p.PerformedAt = in.PerformedAt
	p.Hospital = strings.TrimSpace(in.Hospital)
	p.Role = in.Role
	p.Category = in.Category
	p.Notes = in.Notes
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateProcedure(ctx, p); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Delete removes an owned procedure. Attached media are detached, not
// deleted.
func (s *ProcedureService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteProcedure(ctx, userID, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// --- Templates ---

// CreateTemplate records a reusable procedure skeleton.
func (s *ProcedureService) CreateTemplate(ctx context.Context, userID string, in TemplateInput) (*database.Template, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrMissingName
	}
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if !validRoles[in.Role] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, in.Role)
	}
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if !validProcedureCategories[in.Category] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProcedureCategory, in.Category)
	}

	t := &database.Template{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Category:  in.Category,
		Role:      in.Role,
		Notes:     in.Notes,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTemplates returns the user's templates.
func (s *ProcedureService) ListTemplates(ctx context.Context, userID string) ([]*database.Template, error) {
	return s.repo.ListTemplates(ctx, userID)
}

// UpdateTemplate modifies an owned template.
func (s *ProcedureService) UpdateTemplate(ctx context.Context, userID, id string, in TemplateInput) (*database.Template, error) {
	t, err := s.repo.GetTemplate(ctx, userID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		t.Name = name
	}
	if role := strings.ToLower(strings.TrimSpace(in.Role)); role != "" {
		if !validRoles[role] {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
		}
		t.Role = role
	}
	if cat := strings.ToLower(strings.TrimSpace(in.Category)); cat != "" {
		if !validProcedureCategories[cat] {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProcedureCategory, cat)
		}
		t.Category = cat
	}
	if in.Notes != "" {
		t.Notes = in.Notes
	}

	if err := s.repo.UpdateTemplate(ctx, t); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// DeleteTemplate removes an owned template.
func (s *ProcedureService) DeleteTemplate(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteTemplate(ctx, userID, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// FromTemplate instantiates a new procedure from an owned template.
func (s *ProcedureService) FromTemplate(ctx context.Context, userID, templateID string, performedAt time.Time, hospital string) (*database.Procedure, error) {
	t, err := s.repo.GetTemplate(ctx, userID, templateID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return s.Create(ctx, userID, ProcedureInput{
		Name:        t.Name,
		PerformedAt: performedAt,
		Hospital:    hospital,
		Role:        t.Role,
		Category:    t.Category,
		Notes:       t.Notes,
	})
}
