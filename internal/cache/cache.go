// Package cache keeps the last task list and known categories in a local
// sqlite file so the next launch has something to draw before the server
// answers.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"taskdeck/internal/task"
)

const timeLayout = time.RFC3339Nano

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tasks (
	pos INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	text TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	priority INTEGER NOT NULL DEFAULT 2,
	description TEXT NOT NULL DEFAULT '',
	due TEXT DEFAULT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS categories (
	name TEXT PRIMARY KEY
);`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.ensureTaskColumns()
}

// addedColumns are applied to cache files written by older releases.
var addedColumns = []struct{ name, ddl string }{
	{"updated_at", `ALTER TABLE tasks ADD COLUMN updated_at TEXT NOT NULL DEFAULT '';`},
}

func (s *Store) ensureTaskColumns() error {
	have, err := s.taskColumns()
	if err != nil {
		return fmt.Errorf("read task columns: %w", err)
	}
	for _, col := range addedColumns {
		if have[col.name] {
			continue
		}
		if _, err := s.db.Exec(col.ddl); err != nil {
			return fmt.Errorf("add column %s: %w", col.name, err)
		}
	}
	return nil
}

// taskColumns must release its rows before returning: the pool holds a
// single connection and an open cursor would block the ALTER statements.
func (s *Store) taskColumns() (map[string]bool, error) {
	rows, err := s.db.Query(`PRAGMA table_info(tasks);`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	have := map[string]bool{}
	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		have[name] = true
	}
	return have, rows.Err()
}

// SaveTasks replaces the cached list with tasks, keeping their order.
func (s *Store) SaveTasks(ctx context.Context, tasks []task.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks;`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tasks
		(pos, id, text, category, priority, description, due, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range tasks {
		due := sql.NullString{}
		if t.Due != nil {
			due = sql.NullString{String: t.Due.Format(timeLayout), Valid: true}
		}
		done := 0
		if t.Completed {
			done = 1
		}
		if _, err := stmt.ExecContext(ctx, i, t.ID, t.Text, t.Category, int(t.Priority), t.Description,
			due, done, formatTime(t.CreatedAt), formatTime(t.UpdatedAt)); err != nil {
			return fmt.Errorf("cache task %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// LoadTasks returns the cached list in the order it was saved. Timestamps
// come back in loc.
func (s *Store) LoadTasks(ctx context.Context, loc *time.Location) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, category, priority, description, due, completed, created_at, updated_at
		FROM tasks ORDER BY pos;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var t task.Task
		var priority, done int
		var due sql.NullString
		var created, updated string
		if err := rows.Scan(&t.ID, &t.Text, &t.Category, &priority, &t.Description, &due, &done, &created, &updated); err != nil {
			return nil, err
		}
		t.Priority = task.Priority(priority)
		t.Completed = done == 1
		if due.Valid {
			if parsed, err := time.Parse(timeLayout, due.String); err == nil {
				parsed = parsed.In(loc)
				t.Due = &parsed
			}
		}
		t.CreatedAt = parseTime(created, loc)
		t.UpdatedAt = parseTime(updated, loc)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// AddCategories records names not seen before. Blank names are skipped.
func (s *Store) AddCategories(ctx context.Context, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO categories (name) VALUES (?);`, name); err != nil {
			return err
		}
	}
	return nil
}

// Categories returns every recorded name in first-seen order.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY rowid;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func parseTime(s string, loc *time.Location) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t.In(loc)
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
