package tasks

import "testing"

func TestParsePriority(t *testing.T) {
	cases := []struct {
		in      string
		want    Priority
		wantErr bool
	}{
		{"low", PriorityLow, false},
		{"HIGH", PriorityHigh, false},
		{" medium ", PriorityMedium, false},
		{"", DefaultPriority, false},
		{"urgent", "", true},
	}
	for _, tc := range cases {
		got, err := ParsePriority(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParsePriority(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParsePriority(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"todo", StatusTodo, false},
		{"to_do", StatusTodo, false},
		{"in_progress", StatusInProgress, false},
		{"done", StatusCompleted, false},
		{"Archived", StatusArchived, false},
		{"", DefaultStatus, false},
		{"pending", "", true},
	}
	for _, tc := range cases {
		got, err := ParseStatus(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseStatus(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" work ", "", "home", "work", "  "})
	if len(got) != 2 || got[0] != "home" || got[1] != "work" {
		t.Fatalf("NormalizeTags: got %v", got)
	}
	if NormalizeTags(nil) != nil {
		t.Fatalf("nil tags must stay nil")
	}
	if NormalizeTags([]string{"", "  "}) != nil {
		t.Fatalf("all-blank tags must collapse to nil")
	}
}
