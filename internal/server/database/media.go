package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// CreateMedia inserts a new media file record.
func (r *Repository) CreateMedia(ctx context.Context, m *MediaFile) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO media_files (
			id, user_id, procedure_id, category, file_name, stored_name,
			file_type, size_bytes, public_path, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		m.ID, m.UserID, m.ProcedureID, m.Category, m.FileName, m.StoredName,
		m.FileType, m.SizeBytes, m.PublicPath, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create media record: %w", err)
	}
	return nil
}

// GetMedia retrieves one media record owned by the given user.
func (r *Repository) GetMedia(ctx context.Context, userID, id string) (*MediaFile, error) {
	m := &MediaFile{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, procedure_id, category, file_name, stored_name,
			   file_type, size_bytes, public_path, created_at
		FROM media_files WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&m.ID, &m.UserID, &m.ProcedureID, &m.Category, &m.FileName, &m.StoredName,
		&m.FileType, &m.SizeBytes, &m.PublicPath, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get media record: %w", err)
	}
	return m, nil
}

// ListMedia returns all media records for a user, newest first.
func (r *Repository) ListMedia(ctx context.Context, userID string) ([]*MediaFile, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, procedure_id, category, file_name, stored_name,
			   file_type, size_bytes, public_path, created_at
		FROM media_files WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query media records: %w", err)
	}
	defer rows.Close()

	return scanMediaRows(rows)
}

// ListMediaForProcedure returns media attached to one owned procedure.
func (r *Repository) ListMediaForProcedure(ctx context.Context, userID, procedureID string) ([]*MediaFile, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, procedure_id, category, file_name, stored_name,
			   file_type, size_bytes, public_path, created_at
		FROM media_files WHERE user_id = $1 AND procedure_id = $2
		ORDER BY created_at
	`, userID, procedureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query procedure media: %w", err)
	}
	defer rows.Close()

	return scanMediaRows(rows)
}

// AttachMediaToProcedure links an owned media record to an owned procedure.
func (r *Repository) AttachMediaToProcedure(ctx context.Context, userID, mediaID, procedureID string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE media_files SET procedure_id = $3
		WHERE id = $1 AND user_id = $2
	`, mediaID, userID, procedureID)
	if err != nil {
		return fmt.Errorf("failed to attach media: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMedia removes an owned media record.
func (r *Repository) DeleteMedia(ctx context.Context, userID, id string) error {
	tag, err := r.db.Pool.Exec(ctx,
		"DELETE FROM media_files WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete media record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOrphanedMedia returns media records not attached to any procedure
// and created before the cutoff.
func (r *Repository) ListOrphanedMedia(ctx context.Context, before time.Time) ([]*MediaFile, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, user_id, procedure_id, category, file_name, stored_name,
			   file_type, size_bytes, public_path, created_at
		FROM media_files
		WHERE procedure_id IS NULL AND created_at < $1
	`, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphaned media: %w", err)
	}
	defer rows.Close()

	return scanMediaRows(rows)
}

func scanMediaRows(rows pgx.Rows) ([]*MediaFile, error) {
	var files []*MediaFile
	for rows.Next() {
		m := &MediaFile{}
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.ProcedureID, &m.Category, &m.FileName, &m.StoredName,
			&m.FileType, &m.SizeBytes, &m.PublicPath, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan media record: %w", err)
		}
		files = append(files, m)
	}
	return files, rows.Err()
}
