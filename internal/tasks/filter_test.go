package tasks

import (
	"testing"
	"time"
)

func mkTask(id int64, title string, status Status, priority Priority, due *time.Time, tags ...string) Task {
	return Task{
		ID:       id,
		Title:    title,
		Status:   status,
		Priority: priority,
		DueDate:  due,
		Tags:     tags,
	}
}

func tp(t time.Time) *time.Time { return &t }

func ids(ts []Task) []int64 {
	out := make([]int64, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func TestViews(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fixtures := []Task{
		mkTask(1, "due this morning", StatusTodo, PriorityMedium, tp(now.Add(-2*time.Hour))),
		mkTask(2, "due tonight", StatusInProgress, PriorityMedium, tp(now.Add(6*time.Hour))),
		mkTask(3, "due next week", StatusTodo, PriorityMedium, tp(now.AddDate(0, 0, 7))),
		mkTask(4, "long gone", StatusTodo, PriorityMedium, tp(now.AddDate(0, 0, -3))),
		mkTask(5, "done and past due", StatusCompleted, PriorityMedium, tp(now.AddDate(0, 0, -1))),
		mkTask(6, "no due date", StatusTodo, PriorityMedium, nil),
		mkTask(7, "done future", StatusCompleted, PriorityMedium, tp(now.AddDate(0, 0, 2))),
	}

	cases := []struct {
		view View
		want map[int64]bool
	}{
		// "today" includes anything due this calendar day, done or not
		{ViewToday, map[int64]bool{1: true, 2: true}},
		// "upcoming" is strictly after today and still open
		{ViewUpcoming, map[int64]bool{3: true}},
		// "overdue" never includes completed tasks
		{ViewOverdue, map[int64]bool{1: true, 4: true}},
		{ViewCompleted, map[int64]bool{5: true, 7: true}},
	}

	for _, tc := range cases {
		got := Filter{View: tc.view}.Apply(fixtures, now)
		if len(got) != len(tc.want) {
			t.Errorf("view %q: expected %d tasks, got %v", tc.view, len(tc.want), ids(got))
			continue
		}
		for _, task := range got {
			if !tc.want[task.ID] {
				t.Errorf("view %q: unexpected task %d", tc.view, task.ID)
			}
		}
	}
}

func TestFilter_CombinedPredicates(t *testing.T) {
	now := time.Now()
	fixtures := []Task{
		mkTask(1, "Write report", StatusTodo, PriorityHigh, nil, "work"),
		mkTask(2, "Write novel", StatusTodo, PriorityLow, nil, "hobby"),
		mkTask(3, "Review report", StatusCompleted, PriorityHigh, nil, "work"),
	}

	high := PriorityHigh
	todo := StatusTodo
	got := Filter{Priority: &high, Status: &todo, Tag: "work", Search: "report"}.Apply(fixtures, now)
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only task 1, got %v", ids(got))
	}
}

func TestFilter_SearchCoversTitleDescriptionTags(t *testing.T) {
	now := time.Now()
	fixtures := []Task{
		{ID: 1, Title: "Groceries", Status: StatusTodo, Priority: PriorityLow},
		{ID: 2, Title: "Chores", Description: "buy groceries and clean", Status: StatusTodo, Priority: PriorityLow},
		{ID: 3, Title: "Other", Status: StatusTodo, Priority: PriorityLow, Tags: []string{"groceries"}},
		{ID: 4, Title: "Unrelated", Status: StatusTodo, Priority: PriorityLow},
	}

	got := Filter{Search: "GROCERIES"}.Apply(fixtures, now)
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %v", ids(got))
	}
}

func TestFilter_DueRange(t *testing.T) {
	now := time.Now()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	fixtures := []Task{
		mkTask(1, "early", StatusCompleted, PriorityLow, tp(base)),
		mkTask(2, "mid", StatusCompleted, PriorityLow, tp(base.AddDate(0, 0, 5))),
		mkTask(3, "late", StatusCompleted, PriorityLow, tp(base.AddDate(0, 0, 10))),
		mkTask(4, "undated", StatusCompleted, PriorityLow, nil),
	}

	after := base.AddDate(0, 0, 1)
	before := base.AddDate(0, 0, 9)
	got := Filter{DueAfter: &after, DueBefore: &before}.Apply(fixtures, now)
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected only task 2 in range, got %v", ids(got))
	}
}

func TestFilter_SortOrders(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fixtures := []Task{
		mkTask(1, "bravo", StatusTodo, PriorityLow, tp(now.AddDate(0, 0, 5))),
		mkTask(2, "alpha", StatusTodo, PriorityHigh, nil),
		mkTask(3, "Charlie", StatusTodo, PriorityMedium, tp(now.AddDate(0, 0, 1))),
	}

	byDue := Filter{Sort: SortDue}.Apply(fixtures, now)
	if got := ids(byDue); got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Errorf("due sort: nil due date must go last, got %v", got)
	}

	byPriority := Filter{Sort: SortPriority}.Apply(fixtures, now)
	if got := ids(byPriority); got[0] != 2 || got[1] != 3 || got[2] != 1 {
		t.Errorf("priority sort: expected high first, got %v", got)
	}

	byTitle := Filter{Sort: SortTitle}.Apply(fixtures, now)
	if got := ids(byTitle); got[0] != 2 || got[1] != 1 || got[2] != 3 {
		t.Errorf("title sort: expected case-insensitive order, got %v", got)
	}
}

func TestFilter_OverduePromotion(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fixtures := []Task{
		mkTask(1, "future", StatusTodo, PriorityLow, tp(now.AddDate(0, 0, 3))),
		mkTask(2, "past due", StatusTodo, PriorityLow, tp(now.AddDate(0, 0, -3))),
		mkTask(3, "past but done", StatusCompleted, PriorityLow, tp(now.AddDate(0, 0, -5))),
	}

	got := Filter{Sort: SortDue}.Apply(fixtures, now)
	if got[0].ID != 2 {
		t.Errorf("expected open overdue task first, got %v", ids(got))
	}
	// completed tasks are never promoted, even when past due
	if got[1].ID == 3 && got[0].ID != 2 {
		t.Errorf("completed task was promoted: %v", ids(got))
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	fixtures := []Task{
		mkTask(1, "a", StatusTodo, PriorityHigh, tp(now.Add(-time.Hour))),
		mkTask(2, "b", StatusInProgress, PriorityMedium, tp(now.Add(2*time.Hour))),
		mkTask(3, "c", StatusCompleted, PriorityLow, tp(now.AddDate(0, 0, -1))),
		mkTask(4, "d", StatusCompleted, PriorityHigh, nil),
	}

	s := Summarize(fixtures, now)
	if s.Total != 4 {
		t.Errorf("total: got %d", s.Total)
	}
	if s.ByStatus[StatusCompleted] != 2 || s.ByStatus[StatusTodo] != 1 || s.ByStatus[StatusInProgress] != 1 {
		t.Errorf("by_status: %v", s.ByStatus)
	}
	if s.ByPriority[PriorityHigh] != 2 {
		t.Errorf("by_priority: %v", s.ByPriority)
	}
	if s.Overdue != 1 {
		t.Errorf("overdue: got %d, completed tasks must not count", s.Overdue)
	}
	if s.DueToday != 2 {
		t.Errorf("due_today: got %d", s.DueToday)
	}
	if s.CompletionRate != 0.5 {
		t.Errorf("completion_rate: got %v", s.CompletionRate)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, time.Now())
	if s.Total != 0 || s.CompletionRate != 0 {
		t.Fatalf("empty summary: %+v", s)
	}
}
