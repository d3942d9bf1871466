// Package export renders submissions and batch reconcile runs as XLSX workbooks.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/policy-intake/internal/entity"
	"github.com/joseph-ayodele/policy-intake/internal/repository"
)

const (
	SubmissionsSheet = "Submissions"
	BatchSheet       = "Batch"
)

// Service produces XLSX bytes for exports.
type Service struct {
	submissions repository.SubmissionRepository
	logger      *slog.Logger
}

func NewService(submissions repository.SubmissionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{submissions: submissions, logger: logger}
}

// ExportSubmissionsXLSX returns the submissions created in [from, to) as a workbook.
// If only from is provided -> from..now.
// If neither is provided   -> every submission.
func (s *Service) ExportSubmissionsXLSX(ctx context.Context, from, to time.Time) ([]byte, error) {
	start := time.Now()
	if !from.IsZero() {
		from = startOfDay(from)
	}
	if !to.IsZero() {
		to = startOfDay(to).AddDate(0, 0, 1)
	}

	subs, err := s.submissions.List(ctx, from, to, 0)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}

	headers := []string{
		"Created At",
		"Policy Number",
		"Client",
		"Company",
		"Operation",
		"Processed With AI",
		"Status",
		"Velneo ID",
		"Error",
	}
	rows := make([][]any, 0, len(subs))
	for _, sub := range subs {
		rows = append(rows, submissionRow(sub))
	}

	buf, err := writeSheet(SubmissionsSheet, headers, rows, map[string]float64{"A": 20, "B": 18, "I": 60})
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.submissions.ok",
		"rows", len(subs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}

func submissionRow(sub entity.Submission) []any {
	ai := "no"
	if sub.ProcessedWithAI {
		ai = "yes"
	}
	return []any{
		sub.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		sub.PolicyNumber,
		sub.ClientID,
		sub.CompanyID,
		sub.Operation,
		ai,
		string(sub.Status),
		sub.VelneoID,
		truncate(sub.ErrorMessage, 200),
	}
}

// BatchRow is one file of an offline reconcile run.
type BatchRow struct {
	File         string
	PolicyNumber string
	Completeness float64
	Mapped       int
	Unmapped     int
	Errors       []string
	Warnings     []string
	Failure      string
}

// BatchReportXLSX renders a batch run, one row per file.
func BatchReportXLSX(rows []BatchRow) ([]byte, error) {
	headers := []string{
		"File",
		"Policy Number",
		"Completeness %",
		"Mapped",
		"Unmapped",
		"Errors",
		"Warnings",
		"Failure",
	}
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{
			r.File,
			r.PolicyNumber,
			r.Completeness,
			r.Mapped,
			r.Unmapped,
			truncate(strings.Join(r.Errors, "; "), 500),
			truncate(strings.Join(r.Warnings, "; "), 500),
			r.Failure,
		})
	}
	return writeSheet(BatchSheet, headers, out, map[string]float64{"A": 48, "B": 18, "F": 60, "G": 60, "H": 40})
}

func writeSheet(sheet string, headers []string, rows [][]any, widths map[string]float64) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	for col, w := range widths {
		_ = f.SetColWidth(sheet, col, col, w)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
