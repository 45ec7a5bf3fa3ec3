package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/coldfire85/neurolog/internal/media"
	"github.com/coldfire85/neurolog/internal/server/database"
	"github.com/coldfire85/neurolog/internal/server/service"
	"github.com/coldfire85/neurolog/internal/server/storage"
)

// Handler contains the HTTP handlers for the NeuroLog API.
type Handler struct {
	accounts   *service.AccountService
	mediaSvc   *service.MediaService
	procedures *service.ProcedureService
	export     *service.ExportService
	db         *database.DB
}

// NewHandler creates a new handler with the given service dependencies.
func NewHandler(
	accounts *service.AccountService,
	mediaSvc *service.MediaService,
	procedures *service.ProcedureService,
	export *service.ExportService,
	db *database.DB,
) *Handler {
	return &Handler{
		accounts:   accounts,
		mediaSvc:   mediaSvc,
		procedures: procedures,
		export:     export,
		db:         db,
	}
}

// --- Auth ---

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister handles POST /api/auth/register.
func (h *Handler) HandleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	user, err := h.accounts.Register(c.Request().Context(), req.Email, req.Name, req.Password)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
	})
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	token, user, err := h.accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user": echo.Map{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
	})
}

// --- Media ---

// HandleMediaUpload handles POST /api/media.
// Accepts a multipart form with a "file" field, a required "type" field
// (image, video or radiology) and an optional "fileType" hint.
func (h *Handler) HandleMediaUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "file is required (use form field 'file')",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to read uploaded file",
		})
	}
	defer src.Close()

	result, err := h.mediaSvc.ProcessUpload(c.Request().Context(), currentUserID(c), service.UploadRequest{
		Filename:     fileHeader.Filename,
		Category:     c.FormValue("type"),
		FileTypeHint: c.FormValue("fileType"),
		Size:         fileHeader.Size,
		Data:         src,
		ProcedureID:  c.FormValue("procedureId"),
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success":  true,
		"id":       result.ID,
		"url":      result.URL,
		"fileName": result.FileName,
		"type":     result.Type,
		"fileType": result.FileType,
		"size":     result.Size,
	})
}

// HandleMediaList handles GET /api/media.
func (h *Handler) HandleMediaList(c echo.Context) error {
	files, err := h.mediaSvc.List(c.Request().Context(), currentUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, mediaListResponse(files))
}

// HandleMediaAttach handles POST /api/media/:id/attach.
func (h *Handler) HandleMediaAttach(c echo.Context) error {
	var req struct {
		ProcedureID string `json:"procedureId"`
	}
	if err := c.Bind(&req); err != nil || req.ProcedureID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "procedureId is required"})
	}

	if err := h.mediaSvc.Attach(c.Request().Context(), currentUserID(c), c.Param("id"), req.ProcedureID); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// HandleMediaDelete handles DELETE /api/media/:id.
func (h *Handler) HandleMediaDelete(c echo.Context) error {
	if err := h.mediaSvc.Delete(c.Request().Context(), currentUserID(c), c.Param("id")); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "media deleted successfully"})
}

// HandleMediaServe handles GET /uploads/:userID/:category/:name.
// Only the owner may fetch their stored files.
func (h *Handler) HandleMediaServe(c echo.Context) error {
	userID := c.Param("userID")
	if userID != currentUserID(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var category media.Category
	switch c.Param("category") {
	case "images":
		category = media.CategoryImage
	case "videos":
		category = media.CategoryVideo
	case "radiology":
		category = media.CategoryRadiology
	default:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown category"})
	}

	name := c.Param("name")
	rc, err := h.mediaSvc.OpenFile(userID, category, name)
	if err != nil {
		if errors.Is(err, storage.ErrStorageFailure) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read file"})
		}
		return c.JSON(http.StatusNotFound, echo.Map{"error": "file not found"})
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.Stream(http.StatusOK, contentType, rc)
}

// --- Health & stats ---

// HandleHealth handles GET /health.
// Returns the health status of the server, including database connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.db.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
	})
}

// HandleStats handles GET /api/stats.
// Returns the caller's aggregate logbook statistics.
func (h *Handler) HandleStats(c echo.Context) error {
	stats, err := h.mediaSvc.Stats(c.Request().Context(), currentUserID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to retrieve stats",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"procedures":         stats.ProcedureCount,
		"images":             stats.ImageCount,
		"videos":             stats.VideoCount,
		"radiology":          stats.RadiologyCount,
		"storage_used_bytes": stats.StorageUsed,
		"storage_used_human": humanizeBytes(stats.StorageUsed),
	})
}

// --- Helpers ---

type mediaResponse struct {
	ID          string  `json:"id"`
	ProcedureID *string `json:"procedureId,omitempty"`
	Category    string  `json:"category"`
	FileName    string  `json:"fileName"`
	FileType    string  `json:"fileType"`
	Size        int64   `json:"size"`
	URL         string  `json:"url"`
}

func mediaListResponse(files []*database.MediaFile) []mediaResponse {
	out := make([]mediaResponse, 0, len(files))
	for _, m := range files {
		out = append(out, mediaResponse{
			ID:          m.ID,
			ProcedureID: m.ProcedureID,
			Category:    m.Category,
			FileName:    m.FileName,
			FileType:    m.FileType,
			Size:        m.SizeBytes,
			URL:         m.PublicPath,
		})
	}
	return out
}

// mapServiceError translates service-layer errors into appropriate HTTP responses.
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
	case errors.Is(err, service.ErrEmailTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	case errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrMissingName),
		errors.Is(err, service.ErrMissingFile),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidProcedureCategory),
		errors.Is(err, media.ErrInvalidCategory),
		errors.Is(err, media.ErrFileTooLarge),
		errors.Is(err, media.ErrUnsupportedFormat):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, storage.ErrStorageFailure):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store file"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

// humanizeBytes formats a byte count into a human-readable string.
func humanizeBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
