package buckets

import (
	"testing"
	"time"

	"github.com/baiirun/yepdone/internal/model"
)

func due(y int, m time.Month, d, hh, mm, ss int) *string {
	s := model.FormatDueDate(time.Date(y, m, d, hh, mm, ss, 0, time.Local))
	return &s
}

func TestClassify_Boundaries(t *testing.T) {
	// Spec boundary scenario: midnight reference moment.
	now := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		due  *string
		want ID
	}{
		{"no due date", nil, OverdueToday},
		{"unparseable due date", strPtr("06/10/2024 2pm"), OverdueToday},
		{"one second before today", due(2024, time.June, 9, 23, 59, 59), OverdueToday},
		{"long overdue", due(2023, time.January, 1, 0, 0, 0), OverdueToday},
		{"later today", due(2024, time.June, 10, 23, 0, 0), OverdueToday},
		{"tomorrow", due(2024, time.June, 11, 0, 0, 0), NextSevenDays},
		{"six days out late", due(2024, time.June, 16, 23, 59, 59), NextSevenDays},
		{"seventh day", due(2024, time.June, 17, 12, 0, 0), NextSevenDays},
		{"eighth day start", due(2024, time.June, 18, 0, 0, 1), Upcoming},
		{"far future", due(2025, time.June, 10, 0, 0, 0), Upcoming},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			todo := model.Todo{ID: "t1", Title: "x", DueDate: tt.due}
			if got := Classify(todo, now); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCategorize_PartitionIsTotalAndDisjoint(t *testing.T) {
	now := time.Date(2024, time.June, 10, 15, 0, 0, 0, time.Local)

	todos := []model.Todo{
		{ID: "a", DueDate: nil},
		{ID: "b", DueDate: due(2024, time.June, 9, 10, 0, 0)},
		{ID: "c", DueDate: due(2024, time.June, 12, 9, 0, 0)},
		{ID: "d", DueDate: due(2024, time.July, 1, 9, 0, 0)},
		{ID: "e", Completed: true, DueDate: due(2024, time.June, 12, 9, 0, 0)},
		{ID: "f", DueDate: strPtr("garbage")},
	}

	b := Categorize(todos, now)

	seen := map[string]int{}
	for _, todo := range b.OverdueToday {
		seen[todo.ID]++
	}
	for _, todo := range b.NextSevenDays {
		seen[todo.ID]++
	}
	for _, todo := range b.Upcoming {
		seen[todo.ID]++
	}

	for _, todo := range todos {
		if todo.Completed {
			if seen[todo.ID] != 0 {
				t.Errorf("completed todo %s appeared in a bucket", todo.ID)
			}
			continue
		}
		if seen[todo.ID] != 1 {
			t.Errorf("todo %s appeared in %d buckets, want exactly 1", todo.ID, seen[todo.ID])
		}
	}
}

func TestCategorize_PreservesInputOrder(t *testing.T) {
	now := time.Date(2024, time.June, 10, 15, 0, 0, 0, time.Local)

	todos := []model.Todo{
		{ID: "first", DueDate: due(2024, time.June, 12, 9, 0, 0)},
		{ID: "second", DueDate: due(2024, time.June, 13, 9, 0, 0)},
		{ID: "third", DueDate: due(2024, time.June, 11, 9, 0, 0)},
	}

	b := Categorize(todos, now)
	if len(b.NextSevenDays) != 3 {
		t.Fatalf("expected 3 todos in next seven days, got %d", len(b.NextSevenDays))
	}
	for i, want := range []string{"first", "second", "third"} {
		if b.NextSevenDays[i].ID != want {
			t.Errorf("position %d = %s, want %s", i, b.NextSevenDays[i].ID, want)
		}
	}
}

func TestDropDueDate(t *testing.T) {
	now := time.Date(2024, time.June, 10, 15, 30, 0, 0, time.Local)

	if got := DropDueDate(OverdueToday, now); !got.Equal(now) {
		t.Errorf("OverdueToday drop = %v, want now", got)
	}

	want7 := time.Date(2024, time.June, 17, 9, 0, 0, 0, time.Local)
	if got := DropDueDate(NextSevenDays, now); !got.Equal(want7) {
		t.Errorf("NextSevenDays drop = %v, want %v", got, want7)
	}

	want8 := time.Date(2024, time.June, 18, 9, 0, 0, 0, time.Local)
	if got := DropDueDate(Upcoming, now); !got.Equal(want8) {
		t.Errorf("Upcoming drop = %v, want %v", got, want8)
	}
}

// Dropping into a bucket must land the todo in that bucket on the next
// categorization pass.
func TestDropDueDate_RoundTripsThroughClassify(t *testing.T) {
	now := time.Date(2024, time.June, 10, 15, 30, 0, 0, time.Local)

	for _, target := range All() {
		s := model.FormatDueDate(DropDueDate(target, now))
		todo := model.Todo{ID: "x", DueDate: &s}
		if got := Classify(todo, now); got != target {
			t.Errorf("drop into %s classified as %s", target, got)
		}
	}
}

func strPtr(s string) *string { return &s }
