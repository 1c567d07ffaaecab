package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTempDB(t *testing.T) *SQLiteRepo {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	dsn, err := SQLiteFileDSN(dbPath)
	if err != nil {
		t.Fatalf("dsn error: %v", err)
	}
	repo, err := NewSQLiteRepo(dsn)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
		_ = os.RemoveAll(dir)
	})
	if err := repo.ApplyMigrations(context.Background()); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return repo
}

func TestSQLiteRepo_CreateAndGet(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateParams{Title: ""}) // validation
	if !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}

	due := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	a, err := repo.Create(ctx, CreateParams{
		Title:       "Buy milk",
		Description: "2 liters",
		Priority:    PriorityLow,
		DueDate:     &due,
		Tags:        []string{"errands", "home"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == 0 {
		t.Fatalf("expected assigned ID")
	}

	got, err := repo.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Buy milk" || got.Description != "2 liters" || got.Priority != PriorityLow {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("due date mismatch: %v", got.DueDate)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "errands" || got.Tags[1] != "home" {
		t.Fatalf("tags mismatch: %v", got.Tags)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not persisted: %+v", got)
	}

	b, err := repo.Create(ctx, CreateParams{Title: "second"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if b.ID <= a.ID {
		t.Fatalf("expected monotonic IDs: a=%d b=%d", a.ID, b.ID)
	}
}

func TestSQLiteRepo_GetMissing(t *testing.T) {
	repo := newTempDB(t)

	if _, err := repo.Get(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteRepo_UpdateAndCompletion(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateParams{Title: "task", Tags: []string{"old"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	done := StatusCompleted
	title := "renamed"
	updated, err := repo.Update(ctx, created.ID, UpdateParams{Title: &title, Status: &done, Tags: []string{"new", "fresh"}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID {
		t.Errorf("ID changed on update")
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt changed on update")
	}
	if updated.CompletedAt == nil {
		t.Errorf("expected completion timestamp")
	}

	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Title != "renamed" || got.Status != StatusCompleted || got.CompletedAt == nil {
		t.Fatalf("update not persisted: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "fresh" || got.Tags[1] != "new" {
		t.Fatalf("tags not replaced: %v", got.Tags)
	}

	// partial update without tags keeps the tag set
	pr := PriorityHigh
	if _, err := repo.Update(ctx, created.ID, UpdateParams{Priority: &pr}); err != nil {
		t.Fatalf("partial update: %v", err)
	}
	got, err = repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("partial update clobbered tags: %v", got.Tags)
	}

	reopen := StatusTodo
	got, err = repo.Update(ctx, created.ID, UpdateParams{Status: &reopen})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got.CompletedAt != nil {
		t.Fatalf("reopen must clear completion timestamp")
	}

	if _, err := repo.Update(ctx, 12345, UpdateParams{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}

func TestSQLiteRepo_DeleteAndList(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, CreateParams{Title: "keep", Tags: []string{"work"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err := repo.Create(ctx, CreateParams{Title: "drop"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.Delete(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	list, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("expected only the kept task, got %+v", list)
	}
	if len(list[0].Tags) != 1 || list[0].Tags[0] != "work" {
		t.Fatalf("list must hydrate tags, got %v", list[0].Tags)
	}

	filtered, err := repo.List(ctx, Filter{Tag: "missing"})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 0 {
		t.Fatalf("expected empty result, got %+v", filtered)
	}
}

func TestSQLiteRepo_CompletedView(t *testing.T) {
	repo := newTempDB(t)
	ctx := context.Background()

	past := time.Now().AddDate(0, 0, -2)
	task, err := repo.Create(ctx, CreateParams{Title: "late", DueDate: &past})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	overdue, err := repo.List(ctx, Filter{View: ViewOverdue})
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if len(overdue) != 1 {
		t.Fatalf("expected task in overdue view, got %+v", overdue)
	}

	done := StatusCompleted
	if _, err := repo.Update(ctx, task.ID, UpdateParams{Status: &done}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	overdue, err = repo.List(ctx, Filter{View: ViewOverdue})
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if len(overdue) != 0 {
		t.Fatalf("completed task must leave overdue view, got %+v", overdue)
	}

	completed, err := repo.List(ctx, Filter{View: ViewCompleted})
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != task.ID {
		t.Fatalf("expected task in completed view, got %+v", completed)
	}
}
