package tasks

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Priority orders tasks by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"

	DefaultPriority = PriorityMedium
)

// ParsePriority accepts the wire form, case-insensitive. Empty input maps
// to the default.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultPriority, nil
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// rank gives a sortable weight, higher is more urgent.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"

	DefaultStatus = StatusTodo
)

func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultStatus, nil
	case "todo", "to_do":
		return StatusTodo, nil
	case "in_progress":
		return StatusInProgress, nil
	case "completed", "done":
		return StatusCompleted, nil
	case "archived":
		return StatusArchived, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (t Task) Completed() bool { return t.Status == StatusCompleted }

// Overdue means the due date has passed and the task is still open.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && !t.Completed()
}

// DueToday means the due date falls within the current calendar day,
// regardless of status.
func (t Task) DueToday(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	return sameDay(t.DueDate.In(now.Location()), now)
}

// Upcoming means the due date is on a later calendar day and the task is
// still open.
func (t Task) Upcoming(now time.Time) bool {
	if t.DueDate == nil || t.Completed() {
		return false
	}
	due := t.DueDate.In(now.Location())
	return dayOf(due).After(dayOf(now))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NormalizeTags drops blanks and duplicates and sorts for stable
// comparison. Tags keep their original casing.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
