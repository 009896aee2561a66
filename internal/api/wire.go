package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"taskdeck/internal/task"
)

// DueLayout is the wire format for due dates: local wall time with
// explicit seconds and no zone.
const DueLayout = "2006-01-02T15:04:05"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	DueLayout,
	"2006-01-02T15:04",
}

// parseTime accepts the server's zone-less timestamps as local time and
// RFC 3339 strings as given.
func parseTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatDue(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DueLayout)
}

// opaqueID decodes an identifier sent either as a JSON number or a string.
type opaqueID string

func (id *opaqueID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = opaqueID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = opaqueID(n.String())
	return nil
}

type todoDTO struct {
	ID          opaqueID `json:"id"`
	Task        string   `json:"task"`
	Category    string   `json:"category"`
	Priority    int      `json:"priority"`
	Description *string  `json:"description"`
	DueDate     *string  `json:"dueDate"`
	Completed   bool     `json:"completed"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// toTask never fails: unparseable timestamps are dropped, so a malformed
// due date reads as no due date.
func (d todoDTO) toTask(loc *time.Location) task.Task {
	t := task.Task{
		ID:        string(d.ID),
		Text:      d.Task,
		Category:  d.Category,
		Priority:  task.Priority(d.Priority),
		Completed: d.Completed,
	}
	if d.Description != nil {
		t.Description = *d.Description
	}
	if d.DueDate != nil {
		if due, ok := parseTime(*d.DueDate, loc); ok {
			t.Due = &due
		}
	}
	if created, ok := parseTime(d.CreatedAt, loc); ok {
		t.CreatedAt = created
	}
	if updated, ok := parseTime(d.UpdatedAt, loc); ok {
		t.UpdatedAt = updated
	}
	return t
}

type createDTO struct {
	Task        string  `json:"task"`
	Category    string  `json:"category"`
	Priority    int     `json:"priority"`
	Description string  `json:"description"`
	DueDate     *string `json:"dueDate,omitempty"`
}

func newCreateDTO(d task.Draft, loc *time.Location) createDTO {
	body := createDTO{
		Task:        d.Text,
		Category:    d.Category,
		Priority:    int(d.Priority),
		Description: d.Description,
	}
	if d.Due != nil {
		due := formatDue(*d.Due, loc)
		body.DueDate = &due
	}
	return body
}

// patchBody renders only the fields the patch sets. A cleared due date is
// kept as a nil map value so it encodes as null.
func patchBody(p task.Patch, loc *time.Location) map[string]any {
	body := make(map[string]any)
	if p.Text != nil {
		body["task"] = strings.TrimSpace(*p.Text)
	}
	if p.Category != nil {
		body["category"] = *p.Category
	}
	if p.Priority != nil {
		body["priority"] = int(*p.Priority)
	}
	if p.Description != nil {
		body["description"] = strings.TrimSpace(*p.Description)
	}
	if p.Completed != nil {
		body["completed"] = *p.Completed
	}
	switch {
	case p.ClearDue:
		body["dueDate"] = nil
	case p.Due != nil:
		body["dueDate"] = formatDue(*p.Due, loc)
	}
	return body
}

type statsDTO struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Pending        int     `json:"pending"`
	Overdue        int     `json:"overdue"`
	TodayDue       int     `json:"todayDue"`
	CompletionRate float64 `json:"completionRate"`
}

func (s statsDTO) toStats() task.Stats {
	return task.Stats{
		Total:          s.Total,
		Completed:      s.Completed,
		Pending:        s.Pending,
		Overdue:        s.Overdue,
		TodayDue:       s.TodayDue,
		CompletionRate: s.CompletionRate,
	}
}

type errorDTO struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
