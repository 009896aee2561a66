// Package state holds the client-side application state: the cached task
// list, the last server statistics, the known categories and the current
// view selection. It is mutated only from the UI event loop.
package state

import (
	"errors"
	"fmt"
	"time"

	"taskdeck/internal/task"
)

var (
	ErrNotFound = errors.New("task not found")
	ErrBusy     = errors.New("task has a request in flight")
)

type App struct {
	tasks      []task.Task
	stats      task.Stats
	categories task.CategorySet
	inflight   map[string]struct{}
	gen        uint64

	View     task.View
	Category string
}

// New returns an empty state selecting view and category. seed is the
// initial category list, shown before the server reports its own.
func New(view task.View, category string, seed []string) *App {
	if category == "" {
		category = task.CategoryAll
	}
	a := &App{
		inflight: make(map[string]struct{}),
		View:     view,
		Category: category,
	}
	a.categories.Add(seed...)
	return a
}

// Tasks returns a copy of the full task list in server order.
func (a *App) Tasks() []task.Task {
	out := make([]task.Task, len(a.tasks))
	copy(out, a.tasks)
	return out
}

func (a *App) Len() int { return len(a.tasks) }

// Replace swaps in a freshly fetched list.
func (a *App) Replace(tasks []task.Task) {
	a.tasks = make([]task.Task, len(tasks))
	copy(a.tasks, tasks)
	for _, t := range tasks {
		a.categories.Add(t.Category)
	}
}

func (a *App) Find(id string) (task.Task, bool) {
	i := a.index(id)
	if i < 0 {
		return task.Task{}, false
	}
	return a.tasks[i], true
}

// Upsert replaces the task with the same id, or appends it.
func (a *App) Upsert(t task.Task) {
	a.Touch()
	a.categories.Add(t.Category)
	if i := a.index(t.ID); i >= 0 {
		a.tasks[i] = t
		return
	}
	a.tasks = append(a.tasks, t)
}

func (a *App) Remove(id string) bool {
	i := a.index(id)
	if i < 0 {
		return false
	}
	a.Touch()
	a.tasks = append(a.tasks[:i], a.tasks[i+1:]...)
	return true
}

func (a *App) index(id string) int {
	for i := range a.tasks {
		if a.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (a *App) Stats() task.Stats { return a.stats }

func (a *App) SetStats(s task.Stats) { a.stats = s }

// Categories returns the known categories in the order they were learned.
func (a *App) Categories() []string { return a.categories.Names() }

// MergeCategories adds server-reported names; categories are never removed.
func (a *App) MergeCategories(names []string) int {
	return a.categories.Add(names...)
}

// SetCategory selects a category filter. Unknown names are rejected so the
// selection always points at something the sidebar can show.
func (a *App) SetCategory(name string) error {
	if name != task.CategoryAll && !a.categories.Has(name) {
		return fmt.Errorf("unknown category %q", name)
	}
	a.Category = name
	return nil
}

// StepCategory cycles through "all" followed by the known categories.
func (a *App) StepCategory(delta int) {
	options := append([]string{task.CategoryAll}, a.Categories()...)
	idx := 0
	for i, name := range options {
		if name == a.Category {
			idx = i
			break
		}
	}
	n := len(options)
	a.Category = options[((idx+delta)%n+n)%n]
}

// Visible is the list the UI renders right now.
func (a *App) Visible(now time.Time) []task.Task {
	return task.Filter(a.tasks, a.View, a.Category, now)
}

// ScopedStats returns the server counters when no category is selected and
// counts the selected category locally otherwise.
func (a *App) ScopedStats(now time.Time) task.Stats {
	if a.Category == task.CategoryAll {
		return a.stats
	}
	return task.Count(task.Filter(a.tasks, task.ViewAll, a.Category, now), now)
}

// Begin marks id as having a mutation in flight. A second mutation on the
// same id fails with ErrBusy until End is called.
func (a *App) Begin(id string) error {
	if _, ok := a.inflight[id]; ok {
		return ErrBusy
	}
	if a.inflight == nil {
		a.inflight = make(map[string]struct{})
	}
	a.inflight[id] = struct{}{}
	a.Touch()
	return nil
}

func (a *App) End(id string) {
	if _, ok := a.inflight[id]; !ok {
		return
	}
	delete(a.inflight, id)
	a.Touch()
}

func (a *App) Busy(id string) bool {
	_, ok := a.inflight[id]
	return ok
}

// InFlight counts tasks with an outstanding mutation.
func (a *App) InFlight() int { return len(a.inflight) }

// Generation changes whenever a mutation is issued or lands. A fetched
// list is only safe to apply if the generation it was requested at is
// still current.
func (a *App) Generation() uint64 { return a.gen }

// Touch advances the generation for mutations that are not tracked per
// task, such as a create.
func (a *App) Touch() { a.gen++ }

// Rollback restores the completion flag a tentative toggle replaced.
type Rollback struct {
	ID        string
	Completed bool
}

// Undo puts the previous value back. It reports false when the task is gone.
func (r Rollback) Undo(a *App) bool {
	i := a.index(r.ID)
	if i < 0 {
		return false
	}
	a.tasks[i].Completed = r.Completed
	a.Touch()
	return true
}

// SetCompleted applies a tentative completion flag and returns the inverse.
func (a *App) SetCompleted(id string, completed bool) (Rollback, error) {
	i := a.index(id)
	if i < 0 {
		return Rollback{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rb := Rollback{ID: id, Completed: a.tasks[i].Completed}
	a.tasks[i].Completed = completed
	a.Touch()
	return rb, nil
}
