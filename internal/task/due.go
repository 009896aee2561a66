package task

import (
	"fmt"
	"strings"
	"time"
)

// InputLayout is the minute-precision format used by the edit forms.
const InputLayout = "2006-01-02 15:04"

var inputLayouts = []string{
	InputLayout,
	"2006-01-02T15:04",
	"2006-01-02",
}

// FormatInput renders a due date for editing in loc. Nil renders empty.
func FormatInput(due *time.Time, loc *time.Location) string {
	if due == nil {
		return ""
	}
	return due.In(loc).Format(InputLayout)
}

// ParseInput reads a due date typed by the user in loc. Empty input means
// no due date and returns nil. A bare date resolves to midnight.
func ParseInput(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t, nil
		}
	}
	return nil, &ValidationError{Field: "due date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD HH:MM", s)}
}
