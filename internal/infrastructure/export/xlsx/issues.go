package xlsx

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/manuscript-review/internal/core/domain"
)

const (
	IssuesSheet  = "Issues"
	SummarySheet = "Summary"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var issueHeader = []any{"Severity", "Category", "Location", "Description", "Suggestion"}

// WriteIssues renders the review's issue list, most severe first, plus a
// short summary sheet.
func WriteIssues(w io.Writer, review *domain.SeniorAgentReview) error {
	if review == nil {
		return domain.WrapError(domain.ErrInvalidInput, "export issues", fmt.Errorf("review is nil"))
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", IssuesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeIssueRows(f, sortedIssues(review.Issues)); err != nil {
		return err
	}
	if err := writeSummary(f, review); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeIssueRows(f *excelize.File, issues []domain.IssueAndSuggestion) error {
	if err := f.SetSheetRow(IssuesSheet, "A1", &issueHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(IssuesSheet, "A1", "E1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, issue := range issues {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{string(issue.Severity), issue.Category, issue.Location, issue.Description, issue.Suggestion}
		if err := f.SetSheetRow(IssuesSheet, cell, &row); err != nil {
			return fmt.Errorf("write issue %d: %w", i, err)
		}
	}

	widths := map[string]float64{"A": 10, "B": 14, "C": 22, "D": 60, "E": 60}
	for col, width := range widths {
		if err := f.SetColWidth(IssuesSheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	if len(issues) > 0 {
		last, err := excelize.CoordinatesToCellName(len(issueHeader), len(issues)+1)
		if err != nil {
			return err
		}
		if err := f.AutoFilter(IssuesSheet, "A1:"+last, nil); err != nil {
			return fmt.Errorf("set auto filter: %w", err)
		}
	}
	return nil
}

func writeSummary(f *excelize.File, review *domain.SeniorAgentReview) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	counts := map[domain.Severity]int{}
	for _, issue := range review.Issues {
		counts[issue.Severity]++
	}
	reviewedAt := ""
	if !review.ReviewedAt.IsZero() {
		reviewedAt = review.ReviewedAt.UTC().Format(time.RFC3339)
	}
	rows := [][]any{
		{"Document", review.DocumentID},
		{"Title", review.Title},
		{"Genre", review.Genre},
		{"Reviewed at", reviewedAt},
		{"Chunks", review.ChunkCount},
		{"Critical issues", counts[domain.SeverityCritical]},
		{"Major issues", counts[domain.SeverityMajor]},
		{"Minor issues", counts[domain.SeverityMinor]},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	return f.SetColWidth(SummarySheet, "A", "A", 18)
}

func sortedIssues(issues []domain.IssueAndSuggestion) []domain.IssueAndSuggestion {
	out := append([]domain.IssueAndSuggestion(nil), issues...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() < out[j].Severity.Rank()
	})
	return out
}
