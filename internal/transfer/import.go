package transfer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmasterpro/taskmaster-api/internal/tasks"
)

// record is the interchange row shared by the JSON and CSV codecs. Field
// names follow the export schema; id and timestamps are accepted but
// ignored on import, the store assigns fresh ones.
type record struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Status      string   `json:"status"`
	DueDate     string   `json:"due_date"`
	Tags        []string `json:"tags"`
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult reports one import call. Rows that fail validation are
// skipped and reported; valid rows are still inserted.
type ImportResult struct {
	BatchID  string     `json:"batch_id"`
	Imported int        `json:"imported"`
	Errors   []RowError `json:"errors,omitempty"`
}

type Importer struct {
	repo tasks.Repository
}

func NewImporter(repo tasks.Repository) *Importer { return &Importer{repo: repo} }

func (i *Importer) ImportJSON(ctx context.Context, r io.Reader) (ImportResult, error) {
	var rows []record
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return ImportResult{}, fmt.Errorf("decode import body: %w", err)
	}
	return i.insert(ctx, rows)
}

func (i *Importer) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for idx, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	if _, ok := col["title"]; !ok {
		return ImportResult{}, errors.New("csv header missing title column")
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var rows []record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ImportResult{}, fmt.Errorf("read csv row: %w", err)
		}
		rec := record{
			Title:       field(row, "title"),
			Description: field(row, "description"),
			Priority:    field(row, "priority"),
			Status:      field(row, "status"),
			DueDate:     field(row, "due_date"),
		}
		if raw := field(row, "tags"); raw != "" {
			rec.Tags = strings.Split(raw, ",")
		}
		rows = append(rows, rec)
	}
	return i.insert(ctx, rows)
}

func (i *Importer) insert(ctx context.Context, rows []record) (ImportResult, error) {
	res := ImportResult{BatchID: uuid.NewString()}
	for n, rec := range rows {
		p, err := rec.toParams()
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: n + 1, Message: err.Error()})
			continue
		}
		if _, err := i.repo.Create(ctx, p); err != nil {
			res.Errors = append(res.Errors, RowError{Row: n + 1, Message: err.Error()})
			continue
		}
		res.Imported++
		tasksImportedTotal.Inc()
	}
	return res, nil
}

func (rec record) toParams() (tasks.CreateParams, error) {
	if strings.TrimSpace(rec.Title) == "" {
		return tasks.CreateParams{}, tasks.ErrTitleRequired
	}
	p := tasks.CreateParams{
		Title:       rec.Title,
		Description: rec.Description,
		Tags:        rec.Tags,
	}
	var err error
	if p.Priority, err = tasks.ParsePriority(rec.Priority); err != nil {
		return tasks.CreateParams{}, err
	}
	if p.Status, err = tasks.ParseStatus(rec.Status); err != nil {
		return tasks.CreateParams{}, err
	}
	if rec.DueDate != "" {
		due, err := time.Parse(time.RFC3339, rec.DueDate)
		if err != nil {
			return tasks.CreateParams{}, fmt.Errorf("due_date: %w", err)
		}
		p.DueDate = &due
	}
	return p, nil
}
