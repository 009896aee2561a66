package task

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loc = time.FixedZone("test", 8*3600)

func at(y int, m time.Month, d, h, min int) *time.Time {
	t := time.Date(y, m, d, h, min, 0, 0, loc)
	return &t
}

func TestIsOverdue(t *testing.T) {
	now := *at(2026, 3, 10, 12, 0)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{name: "no due date", task: Task{}, want: false},
		{name: "due an hour ago", task: Task{Due: at(2026, 3, 10, 11, 0)}, want: true},
		{name: "due exactly now", task: Task{Due: at(2026, 3, 10, 12, 0)}, want: false},
		{name: "due tomorrow", task: Task{Due: at(2026, 3, 11, 9, 0)}, want: false},
		{name: "completed and past due", task: Task{Due: at(2026, 3, 1, 9, 0), Completed: true}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOverdue(tt.task, now))
		})
	}
}

func TestIsTodayDue(t *testing.T) {
	now := *at(2026, 3, 10, 12, 0)

	tests := []struct {
		name string
		task Task
		want bool
	}{
		{name: "no due date", task: Task{}, want: false},
		{name: "start of day", task: Task{Due: at(2026, 3, 10, 0, 0)}, want: true},
		{name: "end of day", task: Task{Due: at(2026, 3, 10, 23, 59)}, want: true},
		{name: "yesterday", task: Task{Due: at(2026, 3, 9, 23, 59)}, want: false},
		{name: "tomorrow", task: Task{Due: at(2026, 3, 11, 0, 0)}, want: false},
		{name: "completed today", task: Task{Due: at(2026, 3, 10, 18, 0), Completed: true}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTodayDue(tt.task, now))
		})
	}
}

func TestIsTodayDue_ComparesInNowLocation(t *testing.T) {
	// 2026-03-10 20:00 UTC is 2026-03-11 04:00 in the test zone.
	due := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	now := *at(2026, 3, 11, 9, 0)

	assert.True(t, IsTodayDue(Task{Due: &due}, now))
	// Same instants, but in UTC the due date falls on the previous day.
	assert.False(t, IsTodayDue(Task{Due: &due}, now.In(time.UTC)))
}

func TestCompletedNeverClassified(t *testing.T) {
	now := *at(2026, 3, 10, 12, 0)
	for _, due := range []*time.Time{at(2020, 1, 1, 0, 0), at(2026, 3, 10, 1, 0), at(2026, 3, 10, 18, 0), at(2030, 1, 1, 0, 0)} {
		tk := Task{Due: due, Completed: true}
		assert.False(t, IsOverdue(tk, now))
		assert.False(t, IsTodayDue(tk, now))
	}
}

func TestDraftValidate(t *testing.T) {
	tests := []struct {
		name    string
		draft   Draft
		wantErr string
	}{
		{name: "valid", draft: Draft{Text: "Buy milk", Priority: PriorityLow}},
		{name: "empty text", draft: Draft{Text: "", Priority: PriorityLow}, wantErr: "invalid task: cannot be empty"},
		{name: "whitespace text", draft: Draft{Text: " \t\n", Priority: PriorityLow}, wantErr: "invalid task: cannot be empty"},
		{name: "text too long", draft: Draft{Text: strings.Repeat("x", MaxTextLen+1), Priority: PriorityLow}, wantErr: "invalid task: longer than 500 characters"},
		{name: "priority zero", draft: Draft{Text: "x"}, wantErr: "invalid priority: must be 1, 2 or 3"},
		{name: "priority four", draft: Draft{Text: "x", Priority: 4}, wantErr: "invalid priority: must be 1, 2 or 3"},
		{name: "description too long", draft: Draft{Text: "x", Priority: PriorityHigh, Description: strings.Repeat("d", MaxDescriptionLen+1)}, wantErr: "invalid description: longer than 1000 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
}

func TestDraftNormalize(t *testing.T) {
	d := Draft{Text: "  Buy milk ", Description: "\n2 litres  ", Category: " Shopping"}.Normalize()
	assert.Equal(t, "Buy milk", d.Text)
	assert.Equal(t, "2 litres", d.Description)
	assert.Equal(t, "Shopping", d.Category)
}

func TestPatchApply_ToggleKeepsDates(t *testing.T) {
	created := time.Date(2026, 1, 1, 8, 0, 0, 0, loc)
	orig := Task{ID: "1", Text: "a", Due: at(2026, 3, 10, 9, 0), CreatedAt: created}
	done := true

	got := Patch{Completed: &done}.Apply(orig)

	assert.True(t, got.Completed)
	assert.Equal(t, orig.Due, got.Due)
	assert.Equal(t, created, got.CreatedAt)
}

func TestPatchApply_ClearDue(t *testing.T) {
	orig := Task{ID: "1", Due: at(2026, 3, 10, 9, 0)}
	got := Patch{ClearDue: true, Due: at(2026, 4, 1, 0, 0)}.Apply(orig)
	assert.Nil(t, got.Due)
}

func TestPatchValidate(t *testing.T) {
	empty := "   "
	assert.Error(t, Patch{Text: &empty}.Validate())

	bad := Priority(9)
	assert.Error(t, Patch{Priority: &bad}.Validate())

	done := true
	assert.NoError(t, Patch{Completed: &done}.Validate())
}

func TestCount(t *testing.T) {
	now := *at(2026, 3, 10, 12, 0)
	tasks := []Task{
		{ID: "1", Due: at(2026, 3, 9, 9, 0)},
		{ID: "2", Due: at(2026, 3, 10, 18, 0)},
		{ID: "3", Due: at(2026, 3, 10, 8, 0)},
		{ID: "4", Completed: true},
	}

	s := Count(tasks, now)

	assert.Equal(t, Stats{Total: 4, Completed: 1, Pending: 3, Overdue: 2, TodayDue: 2, CompletionRate: 25}, s)
	assert.Equal(t, Stats{}, Count(nil, now))
}

func TestParseInput(t *testing.T) {
	got, err := ParseInput("2026-03-10 14:30", loc)
	require.NoError(t, err)
	assert.Equal(t, *at(2026, 3, 10, 14, 30), *got)

	got, err = ParseInput("2026-03-10T14:30", loc)
	require.NoError(t, err)
	assert.Equal(t, *at(2026, 3, 10, 14, 30), *got)

	got, err = ParseInput("2026-03-10", loc)
	require.NoError(t, err)
	assert.Equal(t, *at(2026, 3, 10, 0, 0), *got)

	got, err = ParseInput("  ", loc)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseInput("tomorrow", loc)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestFormatInput(t *testing.T) {
	assert.Equal(t, "", FormatInput(nil, loc))
	due := time.Date(2026, 3, 10, 6, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-10 14:30", FormatInput(&due, loc))
}

func TestPriorityString(t *testing.T) {
	assert.Equal(t, "low", PriorityLow.String())
	assert.Equal(t, "medium", PriorityMedium.String())
	assert.Equal(t, "high", PriorityHigh.String())
	assert.Equal(t, "priority(7)", Priority(7).String())
}
