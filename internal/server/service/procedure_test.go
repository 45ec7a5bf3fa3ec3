package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coldfire85/neurolog/internal/server/database"
)

// fakeProcedureRepo is an in-memory ProcedureRepo.
type fakeProcedureRepo struct {
	procedures map[string]*database.Procedure
	templates  map[string]*database.Template
}

func newFakeProcedureRepo() *fakeProcedureRepo {
	return &fakeProcedureRepo{
		procedures: make(map[string]*database.Procedure),
		templates:  make(map[string]*database.Template),
	}
}

func (r *fakeProcedureRepo) CreateProcedure(_ context.Context, p *database.Procedure) error {
	r.procedures[p.ID] = p
	return nil
}

func (r *fakeProcedureRepo) GetProcedure(_ context.Context, userID, id string) (*database.Procedure, error) {
	p, ok := r.procedures[id]
	if !ok || p.UserID != userID {
		return nil, database.ErrNotFound
	}
	return p, nil
}

func (r *fakeProcedureRepo) ListProcedures(_ context.Context, userID string) ([]*database.Procedure, error) {
	var out []*database.Procedure
	for _, p := range r.procedures {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProcedureRepo) UpdateProcedure(_ context.Context, p *database.Procedure) error {
	existing, ok := r.procedures[p.ID]
	if !ok || existing.UserID != p.UserID {
		return database.ErrNotFound
	}
	r.procedures[p.ID] = p
	return nil
}

func (r *fakeProcedureRepo) DeleteProcedure(_ context.Context, userID, id string) error {
	p, ok := r.procedures[id]
	if !ok || p.UserID != userID {
		return database.ErrNotFound
	}
	delete(r.procedures, id)
	return nil
}

func (r *fakeProcedureRepo) CreateTemplate(_ context.Context, t *database.Template) error {
	r.templates[t.ID] = t
	return nil
}

func (r *fakeProcedureRepo) GetTemplate(_ context.Context, userID, id string) (*database.Template, error) {
	t, ok := r.templates[id]
	if !ok || t.UserID != userID {
		return nil, database.ErrNotFound
	}
	return t, nil
}

func (r *fakeProcedureRepo) ListTemplates(_ context.Context, userID string) ([]*database.Template, error) {
	var out []*database.Template
	for _, t := range r.templates {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeProcedureRepo) UpdateTemplate(_ context.Context, t *database.Template) error {
	existing, ok := r.templates[t.ID]
	if !ok || existing.UserID != t.UserID {
		return database.ErrNotFound
	}
	r.templates[t.ID] = t
	return nil
}

func (r *fakeProcedureRepo) DeleteTemplate(_ context.Context, userID, id string) error {
	t, ok := r.templates[id]
	if !ok || t.UserID != userID {
		return database.ErrNotFound
	}
	delete(r.templates, id)
	return nil
}

func TestProcedureCreate(t *testing.T) {
	t.Run("creates a valid procedure", func(t *testing.T) {
		svc := NewProcedureService(newFakeProcedureRepo())

		p, err := svc.Create(context.Background(), "user1", ProcedureInput{
			Name:        "Craniotomy for tumour resection",
			PerformedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
			Hospital:    "St Mary's",
			Role:        "Lead",
			Category:    "Cranial",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Role != "lead" || p.Category != "cranial" {
			t.Errorf("expected normalized role/category, got %s/%s", p.Role, p.Category)
		}
		if p.ID == "" {
			t.Error("expected generated ID")
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		svc := NewProcedureService(newFakeProcedureRepo())

		_, err := svc.Create(context.Background(), "user1", ProcedureInput{
			Name: "   ", Role: "lead", Category: "cranial",
		})
		if !errors.Is(err, ErrMissingName) {
			t.Errorf("expected ErrMissingName, got %v", err)
		}
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		svc := NewProcedureService(newFakeProcedureRepo())

		_, err := svc.Create(context.Background(), "user1", ProcedureInput{
			Name: "Laminectomy", Role: "spectator", Category: "spinal",
		})
		if !errors.Is(err, ErrInvalidRole) {
			t.Errorf("expected ErrInvalidRole, got %v", err)
		}
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		svc := NewProcedureService(newFakeProcedureRepo())

		_, err := svc.Create(context.Background(), "user1", ProcedureInput{
			Name: "Laminectomy", Role: "lead", Category: "orthopedic",
		})
		if !errors.Is(err, ErrInvalidProcedureCategory) {
			t.Errorf("expected ErrInvalidProcedureCategory, got %v", err)
		}
	})

	t.Run("defaults zero date to now", func(t *testing.T) {
		svc := NewProcedureService(newFakeProcedureRepo())

		p, err := svc.Create(context.Background(), "user1", ProcedureInput{
			Name: "EVD insertion", Role: "lead", Category: "cranial",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.PerformedAt.IsZero() {
			t.Error("expected PerformedAt to default to now")
		}
	})
}

func TestProcedureOwnership(t *testing.T) {
	repo := newFakeProcedureRepo()
	svc := NewProcedureService(repo)

	p, err := svc.Create(context.Background(), "user1", ProcedureInput{
		Name: "Laminectomy", Role: "assistant", Category: "spinal",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("other user cannot read", func(t *testing.T) {
		if _, err := svc.Get(context.Background(), "user2", p.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("other user cannot delete", func(t *testing.T) {
		if err := svc.Delete(context.Background(), "user2", p.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, ok := repo.procedures[p.ID]; !ok {
			t.Error("procedure should still exist")
		}
	})

	t.Run("owner can update", func(t *testing.T) {
		updated, err := svc.Update(context.Background(), "user1", p.ID, ProcedureInput{
			Name: "Laminectomy L4/5", Role: "lead", Category: "spinal",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Name != "Laminectomy L4/5" || updated.Role != "lead" {
			t.Errorf("unexpected update result: %+v", updated)
		}
	})
}

func TestTemplates(t *testing.T) {
	t.Run("instantiates a procedure from a template", func(t *testing.T) {
		svc := NewProcedureService(newFakeProcedureRepo())

		tpl, err := svc.CreateTemplate(context.Background(), "user1", TemplateInput{
			Name:     "Burr hole evacuation",
			Category: "cranial",
			Role:     "lead",
			Notes:    "standard approach",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		performed := time.Date(2026, 5, 2, 14, 30, 0, 0, time.UTC)
		p, err := svc.FromTemplate(context.Background(), "user1", tpl.ID, performed, "City General")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Name != tpl.Name || p.Role != tpl.Role || p.Category != tpl.Category {
			t.Errorf("procedure should inherit template fields: %+v", p)
		}
		if !p.PerformedAt.Equal(performed) || p.Hospital != "City General" {
			t.Errorf("procedure should take provided date and hospital: %+v", p)
		}
	})

	t.Run("from missing template fails", func(t *testing.T) {
		svc := NewProcedureService(newFakeProcedureRepo())

		_, err := svc.FromTemplate(context.Background(), "user1", "nope", time.Now(), "")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("template rejects invalid role", func(t *testing.T) {
		svc := NewProcedureService(newFakeProcedureRepo())

		_, err := svc.CreateTemplate(context.Background(), "user1", TemplateInput{
			Name: "X", Category: "cranial", Role: "boss",
		})
		if !errors.Is(err, ErrInvalidRole) {
			t.Errorf("expected ErrInvalidRole, got %v", err)
		}
	})
}
