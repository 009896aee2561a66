package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(tasks []Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func sample(now time.Time) []Task {
	yesterday := now.AddDate(0, 0, -1)
	laterToday := time.Date(now.Year(), now.Month(), now.Day(), 23, 0, 0, 0, now.Location())
	nextWeek := now.AddDate(0, 0, 7)
	return []Task{
		{ID: "1", Text: "Buy milk", Category: "Shopping", Priority: PriorityLow, Due: &yesterday},
		{ID: "2", Text: "Report", Category: "Work", Priority: PriorityHigh, Due: &laterToday},
		{ID: "3", Text: "Gym", Category: "Health", Priority: PriorityMedium, Completed: true, Due: &yesterday},
		{ID: "4", Text: "Read", Category: "Study", Priority: PriorityMedium},
		{ID: "5", Text: "Plan trip", Category: "Work", Priority: PriorityMedium, Due: &nextWeek},
		{ID: "6", Text: "Shoes", Category: "Shopping", Priority: PriorityLow, Completed: true},
	}
}

func TestFilter_Views(t *testing.T) {
	now := *at(2026, 3, 10, 12, 0)
	tasks := sample(now)

	tests := []struct {
		view View
		want []string
	}{
		{ViewAll, []string{"1", "2", "3", "4", "5", "6"}},
		{ViewToday, []string{"2"}},
		{ViewOverdue, []string{"1"}},
		{ViewPending, []string{"1", "2", "4", "5"}},
		{ViewCompleted, []string{"3", "6"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(tasks, tt.view, CategoryAll, now)))
		})
	}
}

func TestFilter_CategoryAppliesInEveryView(t *testing.T) {
	now := *at(2026, 3, 10, 12, 0)
	tasks := sample(now)

	assert.Equal(t, []string{"1", "6"}, ids(Filter(tasks, ViewAll, "Shopping", now)))
	assert.Equal(t, []string{"1"}, ids(Filter(tasks, ViewPending, "Shopping", now)))
	assert.Equal(t, []string{"6"}, ids(Filter(tasks, ViewCompleted, "Shopping", now)))
	assert.Equal(t, []string{"2"}, ids(Filter(tasks, ViewToday, "Work", now)))
	assert.Empty(t, Filter(tasks, ViewOverdue, "Work", now))
	assert.Empty(t, Filter(tasks, ViewAll, "Unknown", now))
}

func TestFilter_AllAllIsIdentity(t *testing.T) {
	now := *at(2026, 3, 10, 12, 0)
	tasks := sample(now)

	assert.Equal(t, tasks, Filter(tasks, ViewAll, CategoryAll, now))
}

func TestFilter_Idempotent(t *testing.T) {
	now := *at(2026, 3, 10, 12, 0)
	tasks := sample(now)

	for _, view := range Views() {
		for _, category := range []string{CategoryAll, "Work", "Shopping", "Health"} {
			once := Filter(tasks, view, category, now)
			twice := Filter(once, view, category, now)
			assert.Equal(t, once, twice, "view=%s category=%s", view, category)
		}
	}
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	now := *at(2026, 3, 10, 12, 0)
	tasks := sample(now)
	before := ids(tasks)

	_ = Filter(tasks, ViewCompleted, CategoryAll, now)

	assert.Equal(t, before, ids(tasks))
}

func TestFilter_BuyMilkScenario(t *testing.T) {
	now := *at(2026, 3, 10, 12, 0)
	yesterday := now.AddDate(0, 0, -1)
	milk := Task{ID: "m", Text: "Buy milk", Category: "Shopping", Priority: PriorityLow, Due: &yesterday}

	assert.True(t, Matches(milk, ViewOverdue, CategoryAll, now))
	assert.True(t, Matches(milk, ViewPending, CategoryAll, now))
	assert.False(t, Matches(milk, ViewCompleted, CategoryAll, now))
	assert.False(t, Matches(milk, ViewToday, CategoryAll, now))
}

func TestParseView(t *testing.T) {
	for _, v := range Views() {
		got, err := ParseView(string(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	got, err := ParseView(" Today ")
	require.NoError(t, err)
	assert.Equal(t, ViewToday, got)

	_, err = ParseView("someday")
	assert.Error(t, err)
}

func TestViewStep(t *testing.T) {
	assert.Equal(t, ViewToday, ViewAll.Step(1))
	assert.Equal(t, ViewCompleted, ViewAll.Step(-1))
	assert.Equal(t, ViewAll, ViewCompleted.Step(1))
	assert.Equal(t, ViewOverdue, ViewAll.Step(7))
}

func TestCategorySet(t *testing.T) {
	s := NewCategorySet("Work", "Study", "Work")
	assert.Equal(t, []string{"Work", "Study"}, s.Names())

	added := s.Add("Life", "Study", "", "  ", "Shopping")
	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"Work", "Study", "Life", "Shopping"}, s.Names())
	assert.True(t, s.Has("Life"))
	assert.False(t, s.Has("life"))
	assert.Equal(t, 4, s.Len())

	names := s.Names()
	names[0] = "mutated"
	assert.Equal(t, "Work", s.Names()[0])
}

func TestCategorySet_ZeroValue(t *testing.T) {
	var s CategorySet
	assert.False(t, s.Has("Work"))
	assert.Equal(t, 1, s.Add("Work", ""))
	assert.True(t, s.Has("Work"))
	assert.Equal(t, []string{"Work"}, s.Names())
}
