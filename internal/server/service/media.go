package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coldfire85/neurolog/internal/media"
	"github.com/coldfire85/neurolog/internal/server/database"
	"github.com/coldfire85/neurolog/internal/server/storage"
)

// Sentinel errors for the service layer.
var (
	ErrNotFound    = errors.New("record not found")
	ErrMissingFile = errors.New("no file provided")
)

// MediaRepo is the persistence surface the media service needs.
type MediaRepo interface {
	CreateMedia(ctx context.Context, m *database.MediaFile) error
	GetMedia(ctx context.Context, userID, id string) (*database.MediaFile, error)
	ListMedia(ctx context.Context, userID string) ([]*database.MediaFile, error)
	ListMediaForProcedure(ctx context.Context, userID, procedureID string) ([]*database.MediaFile, error)
	AttachMediaToProcedure(ctx context.Context, userID, mediaID, procedureID string) error
	DeleteMedia(ctx context.Context, userID, id string) error
	ListOrphanedMedia(ctx context.Context, before time.Time) ([]*database.MediaFile, error)
	GetUserStats(ctx context.Context, userID string) (*database.UserStats, error)
}

// UploadRequest describes one incoming file upload.
type UploadRequest struct {
	Filename     string
	Category     string // raw form value
	FileTypeHint string // optional explicit type, e.g. "dicom"
	Size         int64
	Data         io.Reader
	ProcedureID  string // optional; attaches the media to a procedure
}

// UploadResult is returned after a successful upload.
type UploadResult struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Type     string `json:"type"`
	FileType string `json:"fileType"`
	Size     int64  `json:"size"`
}

// MediaService contains the business logic for media uploads.
type MediaService struct {
	repo  MediaRepo
	store storage.Store
}

// NewMediaService creates a new media service.
func NewMediaService(repo MediaRepo, store storage.Store) *MediaService {
	return &MediaService{repo: repo, store: store}
}

// ProcessUpload validates and stores one file, then records it.
// Validation runs before any disk I/O; on any failure no file is
// referenced by a returned path.
func (s *MediaService) ProcessUpload(ctx context.Context, userID string, req UploadRequest) (*UploadResult, error) {
	if req.Data == nil {
		return nil, ErrMissingFile
	}

	category, err := media.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	if err := media.Validate(req.Size, category, req.Filename); err != nil {
		return nil, err
	}

	saved, err := s.store.Save(userID, category, media.Ext(req.Filename), req.Data)
	if err != nil {
		return nil, err
	}

	record := &database.MediaFile{
		ID:         uuid.NewString(),
		UserID:     userID,
		Category:   string(category),
		FileName:   sanitizeFilename(req.Filename),
		StoredName: saved.StoredName,
		FileType:   media.ResolveFileType(req.FileTypeHint, req.Filename),
		SizeBytes:  saved.Size,
		PublicPath: saved.PublicPath,
		CreatedAt:  time.Now().UTC(),
	}
	if req.ProcedureID != "" {
		record.ProcedureID = &req.ProcedureID
	}

	if err := s.repo.CreateMedia(ctx, record); err != nil {
		// Clean up stored file on DB failure
		if derr := s.store.Delete(userID, category, saved.StoredName); derr != nil {
			slog.Error("failed to remove stored file after insert failure",
				"user", userID, "stored_name", saved.StoredName, "error", derr)
		}
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	slog.Info("upload processed",
		"id", record.ID,
		"user", userID,
		"category", record.Category,
		"filename", record.FileName,
		"stored_name", record.StoredName,
		"size", record.SizeBytes,
	)

	return &UploadResult{
		ID:       record.ID,
		URL:      record.PublicPath,
		FileName: record.FileName,
		Type:     record.Category,
		FileType: record.FileType,
		Size:     record.SizeBytes,
	}, nil
}

// OpenFile returns a reader for a stored file owned by the user.
func (s *MediaService) OpenFile(userID string, category media.Category, storedName string) (io.ReadCloser, error) {
	return s.store.Open(userID, category, storedName)
}

// List returns all media records for a user.
func (s *MediaService) List(ctx context.Context, userID string) ([]*database.MediaFile, error) {
	return s.repo.ListMedia(ctx, userID)
}

// ListForProcedure returns media attached to one owned procedure.
func (s *MediaService) ListForProcedure(ctx context.Context, userID, procedureID string) ([]*database.MediaFile, error) {
	return s.repo.ListMediaForProcedure(ctx, userID, procedureID)
}

// Attach links an uploaded file to a procedure.
func (s *MediaService) Attach(ctx context.Context, userID, mediaID, procedureID string) error {
	if err := s.repo.AttachMediaToProcedure(ctx, userID, mediaID, procedureID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Delete removes a media record and its file.
func (s *MediaService) Delete(ctx context.Context, userID, id string) error {
	record, err := s.repo.GetMedia(ctx, userID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.repo.DeleteMedia(ctx, userID, id); err != nil {
		return err
	}

	// Best-effort file removal; the record is already gone.
	if err := s.store.Delete(userID, media.Category(record.Category), record.StoredName); err != nil {
		slog.Error("failed to delete media file", "id", id, "error", err)
	}

	slog.Info("media deleted", "id", id, "user", userID, "filename", record.FileName)
	return nil
}

// Stats returns aggregate logbook statistics for the user.
func (s *MediaService) Stats(ctx context.Context, userID string) (*database.UserStats, error) {
	return s.repo.GetUserStats(ctx, userID)
}

// sanitizeFilename strips directory components and limits length.
// The original name is kept for display only; stored names are generated.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	if len(name) > 255 {
		ext := filepath.Ext(name)
		name = name[:255-len(ext)] + ext
	}

	if name == "" || name == "." || name == "/" {
		name = "upload"
	}

	return name
}
