package ui

import (
	"time"

	"github.com/dustin/go-humanize"

	"taskdeck/internal/task"
)

// dueLabel renders a due date relative to now's calendar day.
func dueLabel(due *time.Time, now time.Time) string {
	if due == nil {
		return ""
	}
	d := due.In(now.Location())
	switch {
	case task.SameDay(d, now):
		return "Today " + d.Format("15:04")
	case task.SameDay(d, now.AddDate(0, 0, 1)):
		return "Tomorrow " + d.Format("15:04")
	default:
		return d.Format("01-02 15:04")
	}
}

func createdLabel(created, now time.Time) string {
	if created.IsZero() {
		return "unknown"
	}
	return humanize.RelTime(created, now, "ago", "from now")
}

func priorityMarker(p task.Priority) string {
	switch p {
	case task.PriorityHigh:
		return "!!!"
	case task.PriorityMedium:
		return "!! "
	case task.PriorityLow:
		return "!  "
	default:
		return "   "
	}
}

func emptyPlaceholder(v string) string {
	if v == "" {
		return "(empty)"
	}
	return v
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}
