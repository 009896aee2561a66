// Package task holds the todo record, its derived views and the pure
// predicates the UI filters with.
package task

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTextLen        = 500
	MaxDescriptionLen = 1000
)

type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Task is the client copy of a server record. Due is nil when unset.
type Task struct {
	ID          string
	Text        string
	Category    string
	Priority    Priority
	Description string
	Due         *time.Time
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Draft is the payload of an add operation.
type Draft struct {
	Text        string
	Category    string
	Priority    Priority
	Description string
	Due         *time.Time
}

// Normalize trims the free-text fields.
func (d Draft) Normalize() Draft {
	d.Text = strings.TrimSpace(d.Text)
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	return d
}

func (d Draft) Validate() error {
	if err := validateText(d.Text); err != nil {
		return err
	}
	if !d.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "must be 1, 2 or 3"}
	}
	return validateDescription(d.Description)
}

// Patch is a partial update. Nil fields are left unchanged by the server.
// ClearDue sends an explicit null for the due date and wins over Due.
type Patch struct {
	Text        *string
	Category    *string
	Priority    *Priority
	Description *string
	Completed   *bool
	Due         *time.Time
	ClearDue    bool
}

func (p Patch) Validate() error {
	if p.Text != nil {
		if err := validateText(*p.Text); err != nil {
			return err
		}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "must be 1, 2 or 3"}
	}
	if p.Description != nil {
		return validateDescription(*p.Description)
	}
	return nil
}

// Apply returns t with the patch applied.
func (p Patch) Apply(t Task) Task {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	switch {
	case p.ClearDue:
		t.Due = nil
	case p.Due != nil:
		due := *p.Due
		t.Due = &due
	}
	return t
}

// ValidationError is returned for input rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validateText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return &ValidationError{Field: "task", Reason: "cannot be empty"}
	}
	if utf8.RuneCountInString(text) > MaxTextLen {
		return &ValidationError{Field: "task", Reason: fmt.Sprintf("longer than %d characters", MaxTextLen)}
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLen {
		return &ValidationError{Field: "description", Reason: fmt.Sprintf("longer than %d characters", MaxDescriptionLen)}
	}
	return nil
}

// Stats mirrors the server aggregate counters.
type Stats struct {
	Total          int
	Completed      int
	Pending        int
	Overdue        int
	TodayDue       int
	CompletionRate float64
}

// Count computes Stats locally from tasks, the way the server does.
func Count(tasks []Task, now time.Time) Stats {
	var s Stats
	for _, t := range tasks {
		s.Total++
		if t.Completed {
			s.Completed++
		}
		if IsOverdue(t, now) {
			s.Overdue++
		}
		if IsTodayDue(t, now) {
			s.TodayDue++
		}
	}
	s.Pending = s.Total - s.Completed
	if s.Total > 0 {
		s.CompletionRate = float64(s.Completed) / float64(s.Total) * 100
	}
	return s
}
