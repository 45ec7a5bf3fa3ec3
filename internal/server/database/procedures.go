package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateProcedure inserts a new procedure record.
func (r *Repository) CreateProcedure(ctx context.Context, p *Procedure) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO procedures (
			id, user_id, name, performed_at, hospital, role, category,
			notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		p.ID, p.UserID, p.Name, p.PerformedAt, p.Hospital, p.Role,
		p.Category, p.Notes, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create procedure: %w", err)
	}
	return nil
}

// GetProcedure retrieves one procedure owned by the given user.
func (r *Repository) GetProcedure(ctx context.Context, userID, id string) (*Procedure, error) {
	p := &Procedure{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, name, performed_at, hospital, role, category,
			   notes, created_at, updated_at
		FROM procedures WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&p.ID, &p.UserID, &p.Name, &p.PerformedAt, &p.Hospital, &p.Role,
		&p.Category, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get procedure: %w", err)
	}
	return p, nil
}

// ListProcedures returns all procedures for a user, newest first.
func (r *Repository) ListProcedures(ctx context.Context, userID string) ([]*Procedure, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, name, performed_at, hospital, role, category,
			   notes, created_at, updated_at
		FROM procedures WHERE user_id = $1
		ORDER BY performed_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query procedures: %w", err)
	}
	defer rows.Close()

	var procedures []*Procedure
	for rows.Next() {
		p := &Procedure{}
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Name, &p.PerformedAt, &p.Hospital, &p.Role,
			&p.Category, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan procedure: %w", err)
		}
		procedures = append(procedures, p)
	}
	return procedures, rows.Err()
}

// UpdateProcedure updates mutable fields of an owned procedure.
func (r *Repository) UpdateProcedure(ctx context.Context, p *Procedure) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE procedures
		SET name = $3, performed_at = $4, hospital = $5, role = $6,
			category = $7, notes = $8, updated_at = $9
		WHERE id = $1 AND user_id = $2
	`,
		p.ID, p.UserID, p.Name, p.PerformedAt, p.Hospital, p.Role,
		p.Category, p.Notes, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update procedure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProcedure removes an owned procedure. Attached media rows are
// detached (procedure_id set to NULL) by the foreign key, not deleted.
func (r *Repository) DeleteProcedure(ctx context.Context, userID, id string) error {
	tag, err := r.db.Pool.Exec(ctx,
		"DELETE FROM procedures WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete procedure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountMediaForProcedures returns the number of media files attached to
// each of the given procedures.
func (r *Repository) CountMediaForProcedures(ctx context.Context, userID string) (map[string]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT procedure_id, COUNT(*)
		FROM media_files
		WHERE user_id = $1 AND procedure_id IS NOT NULL
		GROUP BY procedure_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count procedure media: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var id string
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan media count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// --- Templates ---

// CreateTemplate inserts a new template record.
func (r *Repository) CreateTemplate(ctx context.Context, t *Template) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO templates (id, user_id, name, category, role, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.UserID, t.Name, t.Category, t.Role, t.Notes, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// GetTemplate retrieves one template owned by the given user.
func (r *Repository) GetTemplate(ctx context.Context, userID, id string) (*Template, error) {
	t := &Template{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, name, category, role, notes, created_at
		FROM templates WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&t.ID, &t.UserID, &t.Name, &t.Category, &t.Role, &t.Notes, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return t, nil
}

// ListTemplates returns all templates for a user, newest first.
func (r *Repository) ListTemplates(ctx context.Context, userID string) ([]*Template, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, name, category, role, notes, created_at
		FROM templates WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t := &Template{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Category, &t.Role, &t.Notes, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// UpdateTemplate updates mutable fields of an owned template.
func (r *Repository) UpdateTemplate(ctx context.Context, t *Template) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE templates
		SET name = $3, category = $4, role = $5, notes = $6
		WHERE id = $1 AND user_id = $2
	`, t.ID, t.UserID, t.Name, t.Category, t.Role, t.Notes)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTemplate removes an owned template.
func (r *Repository) DeleteTemplate(ctx context.Context, userID, id string) error {
	tag, err := r.db.Pool.Exec(ctx,
		"DELETE FROM templates WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
