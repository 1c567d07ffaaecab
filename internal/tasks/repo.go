package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrTitleRequired = errors.New("title required")
	ErrNotFound      = errors.New("task not found")
)

// CreateParams carries the caller-supplied fields for a new task. Zero
// values for Priority/Status fall back to the defaults.
type CreateParams struct {
	Title       string
	Description string
	Priority    Priority
	Status      Status
	DueDate     *time.Time
	Tags        []string
}

// UpdateParams is a partial update: nil pointer fields are left untouched.
// A nil Tags slice leaves tags alone; an empty non-nil slice clears them.
// RemoveDueDate clears the due date (DueDate nil alone means "keep").
type UpdateParams struct {
	Title         *string
	Description   *string
	Priority      *Priority
	Status        *Status
	DueDate       *time.Time
	RemoveDueDate bool
	Tags          []string
}

type Repository interface {
	Create(ctx context.Context, p CreateParams) (Task, error)
	Get(ctx context.Context, id int64) (Task, error)
	Update(ctx context.Context, id int64, p UpdateParams) (Task, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f Filter) ([]Task, error)
}

// newTask validates CreateParams and builds the record both repo
// implementations persist. The identifier is left for the store to assign.
func newTask(p CreateParams, now time.Time) (Task, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return Task{}, ErrTitleRequired
	}
	t := Task{
		Title:       title,
		Description: p.Description,
		Priority:    p.Priority,
		Status:      p.Status,
		DueDate:     p.DueDate,
		Tags:        NormalizeTags(p.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Priority == "" {
		t.Priority = DefaultPriority
	}
	if t.Status == "" {
		t.Status = DefaultStatus
	}
	if t.Status == StatusCompleted {
		t.CompletedAt = &now
	}
	return t, nil
}

// applyUpdate mutates a copy of the stored task. Identifier and creation
// timestamp are never touched; the completion timestamp tracks the status
// transition in both directions.
func applyUpdate(t Task, p UpdateParams, now time.Time) (Task, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return Task{}, ErrTitleRequired
		}
		t.Title = title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		was := t.Status
		t.Status = *p.Status
		if t.Status == StatusCompleted && was != StatusCompleted {
			ts := now
			t.CompletedAt = &ts
		}
		if t.Status != StatusCompleted {
			t.CompletedAt = nil
		}
	}
	if p.RemoveDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	if p.Tags != nil {
		t.Tags = NormalizeTags(p.Tags)
	}
	t.UpdatedAt = now
	return t, nil
}

// InMemoryRepo backs tests and the ephemeral server mode.
type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[int64]Task
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[int64]Task),
	}
}

func (r *InMemoryRepo) Create(_ context.Context, p CreateParams) (Task, error) {
	t, err := newTask(p, time.Now().UTC())
	if err != nil {
		return Task{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	t.ID = r.seq
	r.store[t.ID] = t
	return t, nil
}

func (r *InMemoryRepo) Get(_ context.Context, id int64) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (r *InMemoryRepo) Update(_ context.Context, id int64, p UpdateParams) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	t, err := applyUpdate(t, p, time.Now().UTC())
	if err != nil {
		return Task{}, err
	}
	r.store[id] = t
	return t, nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return ErrNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *InMemoryRepo) List(_ context.Context, f Filter) ([]Task, error) {
	r.mu.Lock()
	all := make([]Task, 0, len(r.store))
	for _, t := range r.store {
		all = append(all, t)
	}
	r.mu.Unlock()

	// Map iteration order is random; give the filter a stable base order.
	sortByID(all)
	return f.Apply(all, time.Now()), nil
}
