package tasks

import "time"

// Summary holds the dashboard aggregates derived from a snapshot of the
// store. It is computed per request and never cached.
type Summary struct {
	Total          int              `json:"total"`
	ByStatus       map[Status]int   `json:"by_status"`
	ByPriority     map[Priority]int `json:"by_priority"`
	Overdue        int              `json:"overdue"`
	DueToday       int              `json:"due_today"`
	Upcoming       int              `json:"upcoming"`
	CompletionRate float64          `json:"completion_rate"`
}

func Summarize(ts []Task, now time.Time) Summary {
	s := Summary{
		Total:      len(ts),
		ByStatus:   make(map[Status]int),
		ByPriority: make(map[Priority]int),
	}
	for _, t := range ts {
		s.ByStatus[t.Status]++
		s.ByPriority[t.Priority]++
		if t.Overdue(now) {
			s.Overdue++
		}
		if t.DueToday(now) {
			s.DueToday++
		}
		if t.Upcoming(now) {
			s.Upcoming++
		}
	}
	if s.Total > 0 {
		s.CompletionRate = float64(s.ByStatus[StatusCompleted]) / float64(s.Total)
	}
	return s
}
