package tasks

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// View names a derived subset of the store, recomputed on every query.
type View string

const (
	ViewAll       View = ""
	ViewToday     View = "today"
	ViewUpcoming  View = "upcoming"
	ViewOverdue   View = "overdue"
	ViewCompleted View = "completed"
)

func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return ViewAll, nil
	case "today":
		return ViewToday, nil
	case "upcoming":
		return ViewUpcoming, nil
	case "overdue":
		return ViewOverdue, nil
	case "completed":
		return ViewCompleted, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

type SortOrder string

const (
	SortDue      SortOrder = "due"
	SortPriority SortOrder = "priority"
	SortTitle    SortOrder = "title"
)

func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "due", "due_date":
		return SortDue, nil
	case "priority":
		return SortPriority, nil
	case "title":
		return SortTitle, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// Filter is an AND-combination of predicates plus an output order. The
// zero value matches everything sorted by due date.
type Filter struct {
	View      View
	Status    *Status
	Priority  *Priority
	Tag       string
	Search    string
	DueAfter  *time.Time
	DueBefore *time.Time
	Sort      SortOrder
}

// Apply evaluates the filter against a snapshot of tasks. Overdue open
// tasks are promoted to the front of the result after sorting.
func (f Filter) Apply(ts []Task, now time.Time) []Task {
	out := make([]Task, 0, len(ts))
	for _, t := range ts {
		if f.matches(t, now) {
			out = append(out, t)
		}
	}
	f.sortTasks(out)
	return promoteOverdue(out, now)
}

func (f Filter) matches(t Task, now time.Time) bool {
	switch f.View {
	case ViewToday:
		if !t.DueToday(now) {
			return false
		}
	case ViewUpcoming:
		if !t.Upcoming(now) {
			return false
		}
	case ViewOverdue:
		if !t.Overdue(now) {
			return false
		}
	case ViewCompleted:
		if !t.Completed() {
			return false
		}
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Tag != "" && !hasTag(t.Tags, f.Tag) {
		return false
	}
	if f.DueAfter != nil && (t.DueDate == nil || t.DueDate.Before(*f.DueAfter)) {
		return false
	}
	if f.DueBefore != nil && (t.DueDate == nil || t.DueDate.After(*f.DueBefore)) {
		return false
	}
	if f.Search != "" && !matchesSearch(t, f.Search) {
		return false
	}
	return true
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, want) {
			return true
		}
	}
	return false
}

func matchesSearch(t Task, q string) bool {
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(t.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func (f Filter) sortTasks(ts []Task) {
	switch f.Sort {
	case SortPriority:
		sort.SliceStable(ts, func(i, j int) bool {
			return ts[i].Priority.rank() > ts[j].Priority.rank()
		})
	case SortTitle:
		sort.SliceStable(ts, func(i, j int) bool {
			return strings.ToLower(ts[i].Title) < strings.ToLower(ts[j].Title)
		})
	default: // SortDue: tasks without a due date go last
		sort.SliceStable(ts, func(i, j int) bool {
			a, b := ts[i].DueDate, ts[j].DueDate
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return a.Before(*b)
			}
		})
	}
}

// promoteOverdue pins open past-due tasks to the top, preserving relative
// order within both partitions.
func promoteOverdue(ts []Task, now time.Time) []Task {
	overdue := make([]Task, 0, len(ts))
	rest := make([]Task, 0, len(ts))
	for _, t := range ts {
		if t.Overdue(now) {
			overdue = append(overdue, t)
		} else {
			rest = append(rest, t)
		}
	}
	return append(overdue, rest...)
}

func sortByID(ts []Task) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].ID < ts[j].ID })
}
