package task

import (
	"fmt"
	"strings"
	"time"
)

type View string

const (
	ViewAll       View = "all"
	ViewToday     View = "today"
	ViewOverdue   View = "overdue"
	ViewPending   View = "pending"
	ViewCompleted View = "completed"
)

// CategoryAll disables the category predicate.
const CategoryAll = "all"

var views = []View{ViewAll, ViewToday, ViewOverdue, ViewPending, ViewCompleted}

// Views returns the selectable views in display order.
func Views() []View {
	out := make([]View, len(views))
	copy(out, views)
	return out
}

func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range views {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Step moves delta positions through Views, wrapping around.
func (v View) Step(delta int) View {
	idx := 0
	for i, known := range views {
		if known == v {
			idx = i
			break
		}
	}
	n := len(views)
	idx = ((idx+delta)%n + n) % n
	return views[idx]
}

// Matches applies the view and category predicates to a single task.
func Matches(t Task, view View, category string, now time.Time) bool {
	if category != CategoryAll && t.Category != category {
		return false
	}
	switch view {
	case ViewToday:
		return IsTodayDue(t, now)
	case ViewOverdue:
		return IsOverdue(t, now)
	case ViewPending:
		return !t.Completed
	case ViewCompleted:
		return t.Completed
	default:
		return true
	}
}

// Filter returns the tasks visible under view and category, keeping their
// relative order. The input slice is not modified.
func Filter(tasks []Task, view View, category string, now time.Time) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if Matches(t, view, category, now) {
			out = append(out, t)
		}
	}
	return out
}
