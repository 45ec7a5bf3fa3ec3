package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coldfire85/neurolog/internal/server/database"
	"github.com/coldfire85/neurolog/internal/server/service"
)

// HandleProcedureCreate handles POST /api/procedures.
func (h *Handler) HandleProcedureCreate(c echo.Context) error {
	var in service.ProcedureInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	p, err := h.procedures.Create(c.Request().Context(), currentUserID(c), in)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// HandleProcedureList handles GET /api/procedures.
func (h *Handler) HandleProcedureList(c echo.Context) error {
	procedures, err := h.procedures.List(c.Request().Context(), currentUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	if procedures == nil {
		procedures = []*database.Procedure{}
	}
	return c.JSON(http.StatusOK, procedures)
}

// HandleProcedureGet handles GET /api/procedures/:id, including attached media.
func (h *Handler) HandleProcedureGet(c echo.Context) error {
	userID := currentUserID(c)
	p, err := h.procedures.Get(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}

	files, err := h.mediaSvc.ListForProcedure(c.Request().Context(), userID, p.ID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"procedure": p,
		"media":     mediaListResponse(files),
	})
}

// HandleProcedureUpdate handles PUT /api/procedures/:id.
func (h *Handler) HandleProcedureUpdate(c echo.Context) error {
	var in service.ProcedureInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	p, err := h.procedures.Update(c.Request().Context(), currentUserID(c), c.Param("id"), in)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// HandleProcedureDelete handles DELETE /api/procedures/:id.
func (h *Handler) HandleProcedureDelete(c echo.Context) error {
	if err := h.procedures.Delete(c.Request().Context(), currentUserID(c), c.Param("id")); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "procedure deleted successfully"})
}

// HandleProcedureFromTemplate handles POST /api/procedures/from-template/:id.
func (h *Handler) HandleProcedureFromTemplate(c echo.Context) error {
	var req struct {
		PerformedAt time.Time `json:"performedAt"`
		Hospital    string    `json:"hospital"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	p, err := h.procedures.FromTemplate(c.Request().Context(), currentUserID(c), c.Param("id"), req.PerformedAt, req.Hospital)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// --- Templates ---

// HandleTemplateCreate handles POST /api/templates.
func (h *Handler) HandleTemplateCreate(c echo.Context) error {
	var in service.TemplateInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	t, err := h.procedures.CreateTemplate(c.Request().Context(), currentUserID(c), in)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// HandleTemplateList handles GET /api/templates.
func (h *Handler) HandleTemplateList(c echo.Context) error {
	templates, err := h.procedures.ListTemplates(c.Request().Context(), currentUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, templates)
}

// HandleTemplateUpdate handles PUT /api/templates/:id.
func (h *Handler) HandleTemplateUpdate(c echo.Context) error {
	var in service.TemplateInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	t, err := h.procedures.UpdateTemplate(c.Request().Context(), currentUserID(c), c.Param("id"), in)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// HandleTemplateDelete handles DELETE /api/templates/:id.
func (h *Handler) HandleTemplateDelete(c echo.Context) error {
	if err := h.procedures.DeleteTemplate(c.Request().Context(), currentUserID(c), c.Param("id")); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "template deleted successfully"})
}

// --- Export ---

// HandleExportPDF handles GET /api/export/pdf.
// Streams the caller's logbook as a PDF attachment.
func (h *Handler) HandleExportPDF(c echo.Context) error {
	pdfBytes, err := h.export.BuildLogbookPDF(c.Request().Context(), currentUserID(c))
	if err != nil {
		return mapServiceError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="neurolog-logbook.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", pdfBytes)
}
