package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/coldfire85/neurolog/internal/server/database"
)

// ExportRepo is the persistence surface the export service needs.
type ExportRepo interface {
	GetUserByID(ctx context.Context, id string) (*database.User, error)
	ListProcedures(ctx context.Context, userID string) ([]*database.Procedure, error)
	CountMediaForProcedures(ctx context.Context, userID string) (map[string]int64, error)
}

// ExportService renders a user's logbook as a PDF document.
type ExportService struct {
	repo ExportRepo
}

// NewExportService creates a new export service.
func NewExportService(repo ExportRepo) *ExportService {
	return &ExportService{repo: repo}
}

// BuildLogbookPDF generates the full logbook PDF for one user: a title
// page, the procedure table with per-procedure media counts, and summary
// totals by role and category.
func (s *ExportService) BuildLogbookPDF(ctx context.Context, userID string) ([]byte, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	procedures, err := s.repo.ListProcedures(ctx, userID)
	if err != nil {
		return nil, err
	}

	mediaCounts, err := s.repo.CountMediaForProcedures(ctx, userID)
	if err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("NeuroLog Procedure Logbook", false)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Title block
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 14, "NeuroLog Procedure Logbook", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, user.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", time.Now().Format("2 January 2006")), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(8)

	// Procedure table
	headers := []string{"Date", "Procedure", "Hospital", "Role", "Category", "Media"}
	widths := []float64{22, 54, 42, 24, 28, 16}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 238, 245)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	roleTotals := make(map[string]int)
	categoryTotals := make(map[string]int)

	for _, p := range procedures {
		row := []string{
			p.PerformedAt.Format("2006-01-02"),
			truncate(p.Name, 34),
			truncate(p.Hospital, 26),
			p.Role,
			p.Category,
			fmt.Sprintf("%d", mediaCounts[p.ID]),
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)

		roleTotals[p.Role]++
		categoryTotals[p.Category]++
	}

	// Summary
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Summary - %d procedures", len(procedures)), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, role := range []string{"lead", "assistant", "observed"} {
		if n := roleTotals[role]; n > 0 {
			pdf.CellFormat(0, 6, fmt.Sprintf("As %s: %d", role, n), "", 1, "L", false, 0, "")
		}
	}
	for _, cat := range []string{"cranial", "spinal", "functional", "other"} {
		if n := categoryTotals[cat]; n > 0 {
			pdf.CellFormat(0, 6, fmt.Sprintf("%s: %d", cat, n), "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
