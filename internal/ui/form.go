package ui

import (
	"fmt"
	"strings"

	"taskdeck/internal/state"
)

type field int

const (
	fieldText field = iota
	fieldCategory
	fieldPriority
	fieldDescription
	fieldDue
	fieldCount
)

func (f field) label() string {
	switch f {
	case fieldText:
		return "task"
	case fieldCategory:
		return "category"
	case fieldPriority:
		return "priority (1-3)"
	case fieldDescription:
		return "description"
	case fieldDue:
		return "due (YYYY-MM-DD HH:MM)"
	default:
		return ""
	}
}

// form edits a scratch copy one field at a time. The text input holds the
// current field's value until the cursor leaves it.
type form struct {
	scratch    *state.Scratch
	index      field
	submitting bool
}

func (f *form) value() string {
	return *f.slot(f.index)
}

func (f *form) setValue(v string) {
	*f.slot(f.index) = v
}

func (f *form) slot(i field) *string {
	switch i {
	case fieldCategory:
		return &f.scratch.Category
	case fieldPriority:
		return &f.scratch.Priority
	case fieldDescription:
		return &f.scratch.Description
	case fieldDue:
		return &f.scratch.Due
	default:
		return &f.scratch.Text
	}
}

func (f *form) move(delta int) {
	f.index = field(wrapIndex(int(f.index)+delta, int(fieldCount)))
}

func (f *form) last() bool {
	return f.index == fieldCount-1
}

func (f *form) render(title string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for i := field(0); i < fieldCount; i++ {
		prefix := " "
		if i == f.index {
			prefix = cursorStyle.Render(">")
		}
		fmt.Fprintf(&b, "%s %-24s : %s\n", prefix, i.label(), emptyPlaceholder(*f.slot(i)))
	}
	return strings.TrimRight(b.String(), "\n")
}
