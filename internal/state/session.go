package state

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskdeck/internal/task"
)

var ErrInvalidTransition = errors.New("invalid session transition")

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseEditing
	PhaseSaving
	PhaseConfirmingDelete
	PhaseDeleting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseEditing:
		return "editing"
	case PhaseSaving:
		return "saving"
	case PhaseConfirmingDelete:
		return "confirming-delete"
	case PhaseDeleting:
		return "deleting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Scratch is the text-form copy of a task being composed or edited. Every
// field is kept as typed so half-finished input survives field switches.
type Scratch struct {
	ID          string
	Text        string
	Category    string
	Priority    string
	Description string
	Due         string
}

// NewScratch returns an empty form for a new task.
func NewScratch(category string, priority task.Priority) *Scratch {
	return &Scratch{Category: category, Priority: strconv.Itoa(int(priority))}
}

// ScratchFrom snapshots t, rendering the due date in the input format.
func ScratchFrom(t task.Task, loc *time.Location) *Scratch {
	return &Scratch{
		ID:          t.ID,
		Text:        t.Text,
		Category:    t.Category,
		Priority:    strconv.Itoa(int(t.Priority)),
		Description: t.Description,
		Due:         task.FormatInput(t.Due, loc),
	}
}

func (s *Scratch) priority() (task.Priority, error) {
	v := strings.TrimSpace(s.Priority)
	if v == "" {
		return task.PriorityMedium, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || !task.Priority(n).Valid() {
		return 0, &task.ValidationError{Field: "priority", Reason: "must be 1, 2 or 3"}
	}
	return task.Priority(n), nil
}

// Draft converts the form into a validated add payload.
func (s *Scratch) Draft(loc *time.Location) (task.Draft, error) {
	p, err := s.priority()
	if err != nil {
		return task.Draft{}, err
	}
	due, err := task.ParseInput(s.Due, loc)
	if err != nil {
		return task.Draft{}, err
	}
	d := task.Draft{
		Text:        s.Text,
		Category:    s.Category,
		Priority:    p,
		Description: s.Description,
		Due:         due,
	}.Normalize()
	if err := d.Validate(); err != nil {
		return task.Draft{}, err
	}
	return d, nil
}

// Patch converts the form into a full-field update. An empty due input
// becomes an explicit clear rather than an omitted field.
func (s *Scratch) Patch(loc *time.Location) (task.Patch, error) {
	d, err := s.Draft(loc)
	if err != nil {
		return task.Patch{}, err
	}
	p := task.Patch{
		Text:        &d.Text,
		Category:    &d.Category,
		Priority:    &d.Priority,
		Description: &d.Description,
		Due:         d.Due,
		ClearDue:    d.Due == nil,
	}
	return p, nil
}

// Session tracks the edit and delete dialogs for one task at a time.
type Session struct {
	phase   Phase
	scratch *Scratch
	target  task.Task
	loc     *time.Location
}

func NewSession(loc *time.Location) *Session {
	if loc == nil {
		loc = time.Local
	}
	return &Session{loc: loc}
}

func (s *Session) Phase() Phase { return s.phase }

// Scratch returns the editable copy, or nil outside the edit phases.
func (s *Session) Scratch() *Scratch { return s.scratch }

// Target is the task the session was opened on.
func (s *Session) Target() task.Task { return s.target }

func (s *Session) transition(from, to Phase) error {
	if s.phase != from {
		return fmt.Errorf("%w: %s -> %s from %s", ErrInvalidTransition, from, to, s.phase)
	}
	s.phase = to
	return nil
}

func (s *Session) BeginEdit(t task.Task) error {
	if err := s.transition(PhaseIdle, PhaseEditing); err != nil {
		return err
	}
	s.target = t
	s.scratch = ScratchFrom(t, s.loc)
	return nil
}

// Save validates the scratch copy and moves to saving. A validation error
// leaves the session editing so the user can fix the input.
func (s *Session) Save() (string, task.Patch, error) {
	if s.phase != PhaseEditing {
		return "", task.Patch{}, fmt.Errorf("%w: save from %s", ErrInvalidTransition, s.phase)
	}
	p, err := s.scratch.Patch(s.loc)
	if err != nil {
		return "", task.Patch{}, err
	}
	s.phase = PhaseSaving
	return s.scratch.ID, p, nil
}

func (s *Session) Saved() error {
	if err := s.transition(PhaseSaving, PhaseIdle); err != nil {
		return err
	}
	s.reset()
	return nil
}

// SaveFailed reopens the editor with the scratch copy intact.
func (s *Session) SaveFailed() error {
	return s.transition(PhaseSaving, PhaseEditing)
}

func (s *Session) BeginDelete(t task.Task) error {
	if err := s.transition(PhaseIdle, PhaseConfirmingDelete); err != nil {
		return err
	}
	s.target = t
	return nil
}

func (s *Session) ConfirmDelete() (string, error) {
	if err := s.transition(PhaseConfirmingDelete, PhaseDeleting); err != nil {
		return "", err
	}
	return s.target.ID, nil
}

func (s *Session) Deleted() error {
	if err := s.transition(PhaseDeleting, PhaseIdle); err != nil {
		return err
	}
	s.reset()
	return nil
}

// DeleteFailed goes back to the confirmation prompt.
func (s *Session) DeleteFailed() error {
	return s.transition(PhaseDeleting, PhaseConfirmingDelete)
}

// Cancel discards the dialog. Requests already sent cannot be cancelled.
func (s *Session) Cancel() error {
	switch s.phase {
	case PhaseEditing, PhaseConfirmingDelete:
		s.reset()
		return nil
	default:
		return fmt.Errorf("%w: cancel from %s", ErrInvalidTransition, s.phase)
	}
}

func (s *Session) reset() {
	s.phase = PhaseIdle
	s.scratch = nil
	s.target = task.Task{}
}
