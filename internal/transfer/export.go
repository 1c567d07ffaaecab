// Package transfer moves task collections in and out of the store as
// JSON, CSV, and (export only) PDF report documents.
package transfer

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jung-kurt/gofpdf"

	"github.com/taskmasterpro/taskmaster-api/internal/tasks"
)

var ErrUnknownFormat = errors.New("unknown export format")

var csvHeader = []string{
	"id", "title", "description", "priority", "status",
	"due_date", "tags", "completed_at", "created_at", "updated_at",
}

type Exporter struct {
	repo tasks.Repository
}

func NewExporter(repo tasks.Repository) *Exporter { return &Exporter{repo: repo} }

// Export renders the full store snapshot in the requested format and
// returns the body plus its content type.
func (e *Exporter) Export(ctx context.Context, format string) ([]byte, string, error) {
	all, err := e.repo.List(ctx, tasks.Filter{})
	if err != nil {
		return nil, "", err
	}
	switch strings.ToLower(format) {
	case "", "json":
		body, err := json.MarshalIndent(all, "", "  ")
		return body, "application/json", err
	case "csv":
		body, err := marshalCSV(all)
		return body, "text/csv", err
	case "pdf":
		body, err := renderPDF(all, time.Now())
		return body, "application/pdf", err
	default:
		return nil, "", fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
}

func marshalCSV(all []tasks.Task) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, t := range all {
		rec := []string{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			t.Description,
			string(t.Priority),
			string(t.Status),
			formatTime(t.DueDate),
			strings.Join(t.Tags, ","),
			formatTime(t.CompletedAt),
			t.CreatedAt.Format(time.RFC3339),
			t.UpdatedAt.Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// renderPDF produces the summary report: aggregate counts up top, then one
// line per task with a humanized due hint.
func renderPDF(all []tasks.Task, now time.Time) ([]byte, error) {
	s := tasks.Summarize(all, now)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "TaskMaster Report")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 6, fmt.Sprintf("Generated %s", now.Format("Jan 2, 2006 15:04")), "0", "L", false)
	pdf.MultiCell(0, 6, fmt.Sprintf(
		"Total: %d  Completed: %d  In progress: %d  Overdue: %d  Due today: %d",
		s.Total, s.ByStatus[tasks.StatusCompleted], s.ByStatus[tasks.StatusInProgress],
		s.Overdue, s.DueToday), "0", "L", false)

	priorities := make([]string, 0, len(s.ByPriority))
	for p, n := range s.ByPriority {
		priorities = append(priorities, fmt.Sprintf("%s=%d", p, n))
	}
	sort.Strings(priorities)
	pdf.MultiCell(0, 6, "By priority: "+strings.Join(priorities, " "), "0", "L", false)
	pdf.Ln(4)

	for _, t := range all {
		line := fmt.Sprintf("[%s] %s (%s)", t.Status, t.Title, t.Priority)
		if t.DueDate != nil {
			line += fmt.Sprintf(" due %s (%s)", t.DueDate.Format("2006-01-02"), humanize.Time(*t.DueDate))
		}
		if len(t.Tags) > 0 {
			line += " #" + strings.Join(t.Tags, " #")
		}
		pdf.MultiCell(0, 6, line, "0", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
