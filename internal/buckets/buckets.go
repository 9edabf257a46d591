// Package buckets partitions a workspace's open todos into the three
// board columns: overdue-or-today, next seven days, and upcoming. The
// partition is a pure projection over the todo list and a reference
// moment; it is recomputed on every render and never stored.
package buckets

import (
	"time"

	"github.com/baiirun/yepdone/internal/model"
)

// ID names a board column. These double as drag-and-drop targets.
type ID string

const (
	OverdueToday  ID = "overdue_today"
	NextSevenDays ID = "next_seven_days"
	Upcoming      ID = "upcoming"
)

// All lists the bucket ids in display order.
func All() []ID {
	return []ID{OverdueToday, NextSevenDays, Upcoming}
}

// Title returns the column heading for a bucket.
func (id ID) Title() string {
	switch id {
	case OverdueToday:
		return "Overdue / Today"
	case NextSevenDays:
		return "Next 7 Days"
	case Upcoming:
		return "Upcoming"
	default:
		return string(id)
	}
}

// Buckets holds the partition result. Each slice preserves the relative
// order todos had in the input.
type Buckets struct {
	OverdueToday  []model.Todo
	NextSevenDays []model.Todo
	Upcoming      []model.Todo
}

// Get returns the todos in the named bucket.
func (b Buckets) Get(id ID) []model.Todo {
	switch id {
	case OverdueToday:
		return b.OverdueToday
	case NextSevenDays:
		return b.NextSevenDays
	default:
		return b.Upcoming
	}
}

// Categorize partitions todos relative to now. Completed todos are
// excluded entirely; every non-completed todo lands in exactly one
// bucket. A todo with no due date (or one whose stored due date does
// not parse) belongs to OverdueToday.
func Categorize(todos []model.Todo, now time.Time) Buckets {
	var b Buckets
	for _, todo := range todos {
		if todo.Completed {
			continue
		}
		switch Classify(todo, now) {
		case OverdueToday:
			b.OverdueToday = append(b.OverdueToday, todo)
		case NextSevenDays:
			b.NextSevenDays = append(b.NextSevenDays, todo)
		case Upcoming:
			b.Upcoming = append(b.Upcoming, todo)
		}
	}
	return b
}

// Classify returns the bucket a single todo belongs to. Completion is
// not considered here; callers filter completed todos first.
func Classify(todo model.Todo, now time.Time) ID {
	due := model.ParseDueDate(todo.DueDate)
	if due == nil {
		return OverdueToday
	}

	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if due.Before(startOfToday) {
		return OverdueToday
	}
	if sameDay(*due, now) {
		return OverdueToday
	}

	// End of day seven days out: anything strictly before it is "soon".
	endOfDayPlus7 := startOfToday.AddDate(0, 0, 8).Add(-time.Second)
	if due.Before(endOfDayPlus7) {
		return NextSevenDays
	}
	return Upcoming
}

// DropDueDate synthesizes the due date for a todo dropped onto a
// bucket: the current moment for OverdueToday, 9am seven days out for
// NextSevenDays, and 9am eight days out for Upcoming.
func DropDueDate(target ID, now time.Time) time.Time {
	switch target {
	case NextSevenDays:
		return at9(now.AddDate(0, 0, 7))
	case Upcoming:
		return at9(now.AddDate(0, 0, 8))
	default:
		return now
	}
}

func at9(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 9, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
