package state

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/task"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func seeded() *App {
	yesterday := now.AddDate(0, 0, -1)
	a := New(task.ViewAll, task.CategoryAll, []string{"Work", "Shopping"})
	a.Replace([]task.Task{
		{ID: "1", Text: "Buy milk", Category: "Shopping", Priority: task.PriorityLow, Due: &yesterday},
		{ID: "2", Text: "Report", Category: "Work", Priority: task.PriorityHigh},
		{ID: "3", Text: "Gym", Category: "Health", Priority: task.PriorityMedium, Completed: true},
	})
	return a
}

func TestReplace_LearnsCategories(t *testing.T) {
	a := seeded()
	assert.Equal(t, []string{"Work", "Shopping", "Health"}, a.Categories())
	assert.Equal(t, 3, a.Len())
}

func TestReplace_CopiesInput(t *testing.T) {
	in := []task.Task{{ID: "1", Text: "a"}}
	a := New(task.ViewAll, "", nil)
	a.Replace(in)
	in[0].Text = "changed"

	got, ok := a.Find("1")
	require.True(t, ok)
	assert.Equal(t, "a", got.Text)
	assert.Equal(t, task.CategoryAll, a.Category)
}

func TestUpsertAndRemove(t *testing.T) {
	a := seeded()

	a.Upsert(task.Task{ID: "2", Text: "Report v2", Category: "Work"})
	a.Upsert(task.Task{ID: "9", Text: "New", Category: "Errands"})

	got, ok := a.Find("2")
	require.True(t, ok)
	assert.Equal(t, "Report v2", got.Text)
	assert.Equal(t, []string{"1", "2", "3", "9"}, idsOf(a.Tasks()))
	assert.Contains(t, a.Categories(), "Errands")

	assert.True(t, a.Remove("1"))
	assert.False(t, a.Remove("1"))
	assert.Equal(t, []string{"2", "3", "9"}, idsOf(a.Tasks()))
}

func TestVisible_UsesSelection(t *testing.T) {
	a := seeded()

	a.View = task.ViewOverdue
	assert.Equal(t, []string{"1"}, idsOf(a.Visible(now)))

	a.View = task.ViewAll
	require.NoError(t, a.SetCategory("Work"))
	assert.Equal(t, []string{"2"}, idsOf(a.Visible(now)))

	assert.Error(t, a.SetCategory("Nope"))
	assert.Equal(t, "Work", a.Category)
}

func TestStepCategory(t *testing.T) {
	a := seeded()

	a.StepCategory(1)
	assert.Equal(t, "Work", a.Category)
	a.StepCategory(1)
	a.StepCategory(1)
	assert.Equal(t, "Health", a.Category)
	a.StepCategory(1)
	assert.Equal(t, task.CategoryAll, a.Category)
	a.StepCategory(-1)
	assert.Equal(t, "Health", a.Category)
}

func TestScopedStats(t *testing.T) {
	a := seeded()
	server := task.Stats{Total: 40, Completed: 10, Pending: 30}
	a.SetStats(server)

	assert.Equal(t, server, a.ScopedStats(now))

	require.NoError(t, a.SetCategory("Shopping"))
	got := a.ScopedStats(now)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, 1, got.Overdue)
	assert.Equal(t, 1, got.Pending)
}

func TestSetCompleted_Rollback(t *testing.T) {
	a := seeded()

	rb, err := a.SetCompleted("1", true)
	require.NoError(t, err)
	got, _ := a.Find("1")
	assert.True(t, got.Completed)

	assert.True(t, rb.Undo(a))
	got, _ = a.Find("1")
	assert.False(t, got.Completed)
	assert.NotNil(t, got.Due, "toggle must not touch the due date")
}

func TestSetCompleted_Unknown(t *testing.T) {
	a := seeded()
	_, err := a.SetCompleted("404", true)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRollback_TaskRemovedMeanwhile(t *testing.T) {
	a := seeded()
	rb, err := a.SetCompleted("2", true)
	require.NoError(t, err)
	a.Remove("2")

	assert.False(t, rb.Undo(a))
}

func TestInflight(t *testing.T) {
	a := seeded()

	require.NoError(t, a.Begin("1"))
	assert.True(t, a.Busy("1"))
	assert.ErrorIs(t, a.Begin("1"), ErrBusy)
	assert.NoError(t, a.Begin("2"))
	assert.Equal(t, 2, a.InFlight())

	a.End("1")
	assert.False(t, a.Busy("1"))
	assert.NoError(t, a.Begin("1"))
}

func TestGeneration_AdvancesOnMutation(t *testing.T) {
	a := seeded()
	steps := []struct {
		name string
		do   func()
	}{
		{"begin", func() { require.NoError(t, a.Begin("1")) }},
		{"set completed", func() { _, err := a.SetCompleted("1", true); require.NoError(t, err) }},
		{"end", func() { a.End("1") }},
		{"upsert", func() { a.Upsert(task.Task{ID: "4", Text: "New"}) }},
		{"remove", func() { a.Remove("4") }},
		{"touch", a.Touch},
	}
	for _, step := range steps {
		before := a.Generation()
		step.do()
		assert.Greater(t, a.Generation(), before, step.name)
	}

	before := a.Generation()
	a.Replace(a.Tasks())
	a.End("missing")
	a.Remove("missing")
	assert.Equal(t, before, a.Generation())
}

func TestZeroApp(t *testing.T) {
	var a App
	a.Replace([]task.Task{{ID: "1", Text: "Buy milk", Category: "Shopping"}})
	a.Upsert(task.Task{ID: "2", Text: "Report", Category: "Work"})
	assert.Equal(t, []string{"Shopping", "Work"}, a.Categories())
	require.NoError(t, a.Begin("1"))
	assert.True(t, a.Busy("1"))
	assert.NoError(t, a.SetCategory("Work"))
}

func idsOf(tasks []task.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}
