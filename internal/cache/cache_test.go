package cache

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/task"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestTasksRoundTrip(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	due := time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC)
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	in := []task.Task{
		{ID: "2", Text: "Report", Category: "Work", Priority: task.PriorityHigh, Due: &due, CreatedAt: created},
		{ID: "1", Text: "Buy milk", Category: "Shopping", Priority: task.PriorityLow, Description: "2L", Completed: true},
	}
	require.NoError(t, s.SaveTasks(ctx, in))

	out, err := s.LoadTasks(ctx, time.UTC)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "2", out[0].ID, "order is preserved")
	assert.Equal(t, "Report", out[0].Text)
	assert.Equal(t, task.PriorityHigh, out[0].Priority)
	require.NotNil(t, out[0].Due)
	assert.True(t, due.Equal(*out[0].Due))
	assert.True(t, created.Equal(out[0].CreatedAt))

	assert.Equal(t, "2L", out[1].Description)
	assert.True(t, out[1].Completed)
	assert.Nil(t, out[1].Due)
	assert.True(t, out[1].CreatedAt.IsZero())
}

func TestSaveTasks_Replaces(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.SaveTasks(ctx, []task.Task{{ID: "1", Text: "a"}, {ID: "2", Text: "b"}}))
	require.NoError(t, s.SaveTasks(ctx, []task.Task{{ID: "3", Text: "c"}}))

	out, err := s.LoadTasks(ctx, time.UTC)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "3", out[0].ID)

	require.NoError(t, s.SaveTasks(ctx, nil))
	out, err = s.LoadTasks(ctx, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCategories_FirstSeenOrder(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.AddCategories(ctx, []string{"Work", " ", "Life"}))
	require.NoError(t, s.AddCategories(ctx, []string{"Life", "Shopping", "Work"}))

	names, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Work", "Life", "Shopping"}, names)
}

func TestReopenKeepsData(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.SaveTasks(ctx, []task.Task{{ID: "1", Text: "keep"}}))
	require.NoError(t, s.AddCategories(ctx, []string{"Work"}))
	require.NoError(t, s.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()

	out, err := again.LoadTasks(ctx, time.UTC)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "keep", out[0].Text)

	names, err := again.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Work"}, names)
}

func TestOpen_UpgradesOlderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite", sqliteDSN(path))
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE tasks (
		pos INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		text TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL DEFAULT 2,
		description TEXT NOT NULL DEFAULT '',
		due TEXT DEFAULT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT ''
	);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	cols, err := s.taskColumns()
	require.NoError(t, err)
	assert.True(t, cols["updated_at"])

	ctx := context.Background()
	require.NoError(t, s.SaveTasks(ctx, []task.Task{{ID: "1", Text: "kept"}}))
	out, err := s.LoadTasks(ctx, time.UTC)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "kept", out[0].Text)
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "file:memdb?mode=memory", sqliteDSN("file:memdb?mode=memory"))

	dsn := sqliteDSN("/tmp/x/cache.db")
	assert.Contains(t, dsn, "file:///tmp/x/cache.db?")
	assert.Contains(t, dsn, "mode=rwc")
}
