package task

import "time"

// IsOverdue reports whether an open task's due instant is strictly before now.
func IsOverdue(t Task, now time.Time) bool {
	if t.Due == nil || t.Completed {
		return false
	}
	return t.Due.Before(now)
}

// IsTodayDue reports whether an open task is due on now's calendar day.
// The comparison happens in now's location, so callers pass local time.
func IsTodayDue(t Task, now time.Time) bool {
	if t.Due == nil || t.Completed {
		return false
	}
	return SameDay(*t.Due, now)
}

// SameDay compares calendar dates in b's location.
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
