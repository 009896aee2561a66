package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"taskdeck/internal/api"
	"taskdeck/internal/state"
	"taskdeck/internal/task"
)

// Backend is the remote side of the UI. *api.Client implements it.
type Backend interface {
	Snapshot(ctx context.Context) (api.Snapshot, error)
	Get(ctx context.Context, id string) (task.Task, error)
	Stats(ctx context.Context) (task.Stats, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, d task.Draft) (task.Task, error)
	Update(ctx context.Context, id string, p task.Patch) (task.Task, error)
	SetCompleted(ctx context.Context, id string, completed bool) (task.Task, error)
	Delete(ctx context.Context, id string) error
}

// Cache persists what the last refresh returned. *cache.Store implements it.
type Cache interface {
	SaveTasks(ctx context.Context, tasks []task.Task) error
	AddCategories(ctx context.Context, names []string) error
}

type snapshotMsg struct {
	snap       api.Snapshot
	background bool
	// gen is the state generation the request was issued at.
	gen uint64
	err error
}

type reloadedMsg struct {
	id   string
	task task.Task
	err  error
}

type createdMsg struct {
	task task.Task
	err  error
}

type savedMsg struct {
	id   string
	task task.Task
	err  error
}

type toggledMsg struct {
	rollback state.Rollback
	task     task.Task
	err      error
}

type deletedMsg struct {
	id  string
	err error
}

type statsMsg struct {
	stats task.Stats
	err   error
}

type categoriesMsg struct {
	names []string
	err   error
}

type cacheMsg struct {
	what string
	err  error
}

type refreshTickMsg time.Time

func (m Model) snapshotCmd(background bool) tea.Cmd {
	ctx, backend, gen := m.ctx, m.backend, m.app.Generation()
	return func() tea.Msg {
		snap, err := backend.Snapshot(ctx)
		return snapshotMsg{snap: snap, background: background, gen: gen, err: err}
	}
}

func (m Model) reloadCmd(id string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		t, err := backend.Get(ctx, id)
		return reloadedMsg{id: id, task: t, err: err}
	}
}

func (m Model) createCmd(d task.Draft) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		t, err := backend.Create(ctx, d)
		return createdMsg{task: t, err: err}
	}
}

func (m Model) saveCmd(id string, p task.Patch) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		t, err := backend.Update(ctx, id, p)
		return savedMsg{id: id, task: t, err: err}
	}
}

func (m Model) toggleCmd(rb state.Rollback, completed bool) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		t, err := backend.SetCompleted(ctx, rb.ID, completed)
		return toggledMsg{rollback: rb, task: t, err: err}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		return deletedMsg{id: id, err: backend.Delete(ctx, id)}
	}
}

// refreshAggregatesCmd reloads the counters and categories after a
// successful mutation.
func (m Model) refreshAggregatesCmd() tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return tea.Batch(
		func() tea.Msg {
			st, err := backend.Stats(ctx)
			return statsMsg{stats: st, err: err}
		},
		func() tea.Msg {
			names, err := backend.Categories(ctx)
			return categoriesMsg{names: names, err: err}
		},
	)
}

func (m Model) cacheTasksCmd(tasks []task.Task) tea.Cmd {
	if m.cache == nil {
		return nil
	}
	ctx, c := m.ctx, m.cache
	return func() tea.Msg {
		return cacheMsg{what: "tasks", err: c.SaveTasks(ctx, tasks)}
	}
}

func (m Model) cacheCategoriesCmd(names []string) tea.Cmd {
	if m.cache == nil || len(names) == 0 {
		return nil
	}
	ctx, c := m.ctx, m.cache
	return func() tea.Msg {
		return cacheMsg{what: "categories", err: c.AddCategories(ctx, names)}
	}
}

func (m Model) scheduleRefresh() tea.Cmd {
	if m.refreshEvery <= 0 {
		return nil
	}
	return tea.Tick(m.refreshEvery, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}
