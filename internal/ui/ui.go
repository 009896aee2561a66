package ui

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"taskdeck/internal/config"
	"taskdeck/internal/state"
	"taskdeck/internal/task"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
	modeConfirmDelete
)

type Options struct {
	Backend  Backend
	Cache    Cache
	Config   config.Config
	Logger   *log.Logger
	Location *time.Location
	Now      func() time.Time
	// Cached is shown until the first snapshot arrives.
	Cached []task.Task
	// Categories are merged after the configured seed list.
	Categories []string
}

type Model struct {
	ctx          context.Context
	backend      Backend
	cache        Cache
	keys         config.Keymap
	logger       *log.Logger
	loc          *time.Location
	now          func() time.Time
	refreshEvery time.Duration
	defaultPrio  task.Priority

	app     *state.App
	session *state.Session
	form    *form
	cursor  int
	mode    mode
	input   textinput.Model
	status  string
	alert   string
	loading bool
}

func New(ctx context.Context, opts Options) Model {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	app := state.New(cfg.View(), task.CategoryAll, cfg.UI.Categories)
	app.MergeCategories(opts.Categories)
	app.Replace(opts.Cached)
	if err := app.SetCategory(cfg.UI.DefaultCategory); err != nil {
		logger.Warn("ignoring default category", "err", err)
	}

	ti := textinput.New()
	ti.CharLimit = task.MaxDescriptionLen
	ti.Width = 48
	ti.Cursor.SetMode(cursor.CursorStatic)

	return Model{
		ctx:          ctx,
		backend:      opts.Backend,
		cache:        opts.Cache,
		keys:         cfg.Keys,
		logger:       logger,
		loc:          loc,
		now:          now,
		refreshEvery: cfg.RefreshInterval(),
		defaultPrio:  cfg.Priority(),
		app:          app,
		session:      state.NewSession(loc),
		input:        ti,
		mode:         modeList,
		status:       "Loading tasks...",
		loading:      true,
	}
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	program := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.snapshotCmd(false), m.scheduleRefresh())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.alert != "" {
			m.alert = ""
			return m, nil
		}
		switch m.mode {
		case modeAdd, modeEdit:
			return m.updateFormMode(msg)
		case modeConfirmDelete:
			return m.updateDeleteConfirm(msg.String())
		default:
			return m.updateListMode(msg.String())
		}
	case tea.WindowSizeMsg:
		m.input.Width = max(msg.Width-32, 16)
	case snapshotMsg:
		return m.handleSnapshot(msg)
	case reloadedMsg:
		if msg.err != nil {
			return m.fail("reload failed", msg.err), nil
		}
		m.app.Upsert(msg.task)
		m.status = fmt.Sprintf("Reloaded %q", msg.task.Text)
	case createdMsg:
		return m.handleCreated(msg)
	case savedMsg:
		return m.handleSaved(msg)
	case toggledMsg:
		return m.handleToggled(msg)
	case deletedMsg:
		return m.handleDeleted(msg)
	case statsMsg:
		if msg.err != nil {
			m.logger.Warn("stats refresh failed", "err", msg.err)
			return m, nil
		}
		m.app.SetStats(msg.stats)
	case categoriesMsg:
		if msg.err != nil {
			m.logger.Warn("category refresh failed", "err", msg.err)
			return m, nil
		}
		if m.app.MergeCategories(msg.names) > 0 {
			return m, m.cacheCategoriesCmd(m.app.Categories())
		}
	case cacheMsg:
		if msg.err != nil {
			m.logger.Warn("cache write failed", "what", msg.what, "err", msg.err)
		}
	case refreshTickMsg:
		cmds := []tea.Cmd{m.scheduleRefresh()}
		if m.mode == modeList && !m.loading && m.app.InFlight() == 0 {
			m.loading = true
			cmds = append(cmds, m.snapshotCmd(true))
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	switch key {
	case m.keys.Quit:
		return m, tea.Quit
	case m.keys.Down, "down":
		m.cursor = clampCursor(m.cursor+1, len(m.visible()))
	case m.keys.Up, "up":
		m.cursor = clampCursor(m.cursor-1, len(m.visible()))
	case "1", "2", "3", "4", "5":
		n, _ := strconv.Atoi(key)
		m.selectView(task.Views()[n-1])
	case m.keys.NextView, "right":
		m.selectView(m.app.View.Step(1))
	case m.keys.PrevView, "left":
		m.selectView(m.app.View.Step(-1))
	case m.keys.NextCategory:
		m.app.StepCategory(1)
		m.cursor = 0
		m.status = "Category: " + m.app.Category
	case m.keys.PrevCategory:
		m.app.StepCategory(-1)
		m.cursor = 0
		m.status = "Category: " + m.app.Category
	case m.keys.Refresh:
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.status = "Refreshing..."
		return m, m.snapshotCmd(false)
	case m.keys.Reload:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.status = fmt.Sprintf("Reloading %q...", t.Text)
		return m, m.reloadCmd(t.ID)
	case m.keys.Add:
		return m.startAdd()
	case m.keys.Edit:
		return m.startEdit()
	case m.keys.Toggle:
		return m.toggle()
	case m.keys.Delete:
		return m.startDelete()
	}
	return m, nil
}

func (m *Model) selectView(v task.View) {
	m.app.View = v
	m.cursor = 0
	m.status = "View: " + string(v)
}

func (m Model) visible() []task.Task {
	return m.app.Visible(m.now().In(m.loc))
}

func (m Model) selected() (task.Task, bool) {
	tasks := m.visible()
	if len(tasks) == 0 {
		return task.Task{}, false
	}
	return tasks[clampCursor(m.cursor, len(tasks))], true
}

// follow moves the cursor onto id if it is visible.
func (m *Model) follow(id string) {
	for i, t := range m.visible() {
		if t.ID == id {
			m.cursor = i
			return
		}
	}
	m.cursor = clampCursor(m.cursor, len(m.visible()))
}

// fail shows a blocking error until the next key press.
func (m Model) fail(what string, err error) Model {
	m.alert = fmt.Sprintf("%s: %v", what, err)
	m.status = what
	m.logger.Error(what, "err", err)
	return m
}

func (m Model) handleSnapshot(msg snapshotMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		if msg.background {
			m.logger.Warn("background refresh failed", "err", msg.err)
			m.status = "Background refresh failed"
			return m, nil
		}
		return m.fail("load failed", msg.err), nil
	}
	if msg.gen != m.app.Generation() {
		// A mutation was issued or landed after the list was requested.
		if m.app.InFlight() > 0 {
			m.logger.Debug("dropping stale snapshot", "inflight", m.app.InFlight())
			if !msg.background {
				m.status = "Refresh skipped while changes are pending"
			}
			return m, nil
		}
		m.loading = true
		return m, m.snapshotCmd(msg.background)
	}

	keep, hadSelection := m.selected()
	m.app.Replace(msg.snap.Tasks)
	m.app.SetStats(msg.snap.Stats)
	m.app.MergeCategories(msg.snap.Categories)
	if hadSelection {
		m.follow(keep.ID)
	} else {
		m.cursor = 0
	}
	if !msg.background {
		m.status = fmt.Sprintf("Loaded %d tasks", m.app.Len())
	}
	return m, tea.Batch(
		m.cacheTasksCmd(m.app.Tasks()),
		m.cacheCategoriesCmd(m.app.Categories()),
	)
}

func (m Model) startAdd() (tea.Model, tea.Cmd) {
	category := m.app.Category
	if category == task.CategoryAll {
		category = ""
		if names := m.app.Categories(); len(names) > 0 {
			category = names[0]
		}
	}
	m.form = &form{scratch: state.NewScratch(category, m.defaultPrio)}
	m.mode = modeAdd
	m.openForm()
	m.status = "New task: tab to move, enter on the last field or ctrl+s to save, esc to cancel"
	return m, nil
}

func (m Model) startEdit() (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		m.status = "No task to edit"
		return m, nil
	}
	if m.app.Busy(t.ID) {
		m.status = state.ErrBusy.Error()
		return m, nil
	}
	if err := m.session.BeginEdit(t); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.form = &form{scratch: m.session.Scratch()}
	m.mode = modeEdit
	m.openForm()
	m.status = fmt.Sprintf("Editing %q", t.Text)
	return m, nil
}

func (m *Model) openForm() {
	m.input.SetValue(m.form.value())
	m.input.Placeholder = m.form.index.label()
	m.input.Focus()
}

func (m *Model) closeForm() {
	m.form = nil
	m.mode = modeList
	m.input.SetValue("")
	m.input.Blur()
}

func (m Model) updateFormMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		m.mode = modeList
		return m, nil
	}
	if m.form.submitting {
		return m, nil
	}
	switch msg.String() {
	case m.keys.Cancel, "esc":
		if m.mode == modeEdit {
			if err := m.session.Cancel(); err != nil {
				m.status = err.Error()
				return m, nil
			}
		}
		m.closeForm()
		m.status = "Cancelled"
		return m, nil
	case "tab", "down":
		m.shiftField(1)
		return m, nil
	case "shift+tab", "up":
		m.shiftField(-1)
		return m, nil
	case "ctrl+s":
		m.form.setValue(m.input.Value())
		return m.submit()
	case "enter":
		m.form.setValue(m.input.Value())
		if m.form.last() {
			return m.submit()
		}
		m.shiftField(1)
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) shiftField(delta int) {
	m.form.setValue(m.input.Value())
	m.form.move(delta)
	m.input.SetValue(m.form.value())
	m.input.Placeholder = m.form.index.label()
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.mode == modeAdd {
		d, err := m.form.scratch.Draft(m.loc)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.form.submitting = true
		m.status = "Saving..."
		m.app.Touch()
		return m, m.createCmd(d)
	}

	id, p, err := m.session.Save()
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	if err := m.app.Begin(id); err != nil {
		_ = m.session.SaveFailed()
		m.status = err.Error()
		return m, nil
	}
	m.form.submitting = true
	m.status = "Saving..."
	return m, m.saveCmd(id, p)
}

func (m Model) handleCreated(msg createdMsg) (tea.Model, tea.Cmd) {
	m.app.Touch()
	if msg.err != nil {
		if m.form != nil {
			m.form.submitting = false
		}
		return m.fail("create failed", msg.err), nil
	}
	m.app.Upsert(msg.task)
	if m.mode == modeAdd {
		m.closeForm()
	}
	m.follow(msg.task.ID)
	m.status = fmt.Sprintf("Added %q", msg.task.Text)
	return m, tea.Batch(m.refreshAggregatesCmd(), m.cacheTasksCmd(m.app.Tasks()))
}

func (m Model) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	m.app.End(msg.id)
	if msg.err != nil {
		if err := m.session.SaveFailed(); err != nil {
			m.logger.Warn("save failed outside a session", "id", msg.id, "err", err)
		}
		if m.form != nil {
			m.form.submitting = false
		}
		return m.fail("save failed", msg.err), nil
	}
	if err := m.session.Saved(); err != nil {
		m.logger.Warn("save completed outside a session", "id", msg.id, "err", err)
	}
	m.app.Upsert(msg.task)
	if m.mode == modeEdit {
		m.closeForm()
	}
	m.follow(msg.id)
	m.status = "Saved"
	return m, tea.Batch(m.refreshAggregatesCmd(), m.cacheTasksCmd(m.app.Tasks()))
}

// toggle flips completion locally and sends the change. The request's
// completion message either confirms it or carries the rollback.
func (m Model) toggle() (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	if err := m.app.Begin(t.ID); err != nil {
		m.status = err.Error()
		return m, nil
	}
	rb, err := m.app.SetCompleted(t.ID, !t.Completed)
	if err != nil {
		m.app.End(t.ID)
		m.status = err.Error()
		return m, nil
	}
	m.cursor = clampCursor(m.cursor, len(m.visible()))
	return m, m.toggleCmd(rb, !t.Completed)
}

func (m Model) handleToggled(msg toggledMsg) (tea.Model, tea.Cmd) {
	m.app.End(msg.rollback.ID)
	if msg.err != nil {
		msg.rollback.Undo(m.app)
		return m.fail("toggle failed", msg.err), nil
	}
	m.app.Upsert(msg.task)
	if msg.task.Completed {
		m.status = fmt.Sprintf("Completed %q", msg.task.Text)
	} else {
		m.status = fmt.Sprintf("Reopened %q", msg.task.Text)
	}
	return m, tea.Batch(m.refreshAggregatesCmd(), m.cacheTasksCmd(m.app.Tasks()))
}

func (m Model) startDelete() (tea.Model, tea.Cmd) {
	t, ok := m.selected()
	if !ok {
		return m, nil
	}
	if m.app.Busy(t.ID) {
		m.status = state.ErrBusy.Error()
		return m, nil
	}
	if err := m.session.BeginDelete(t); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.mode = modeConfirmDelete
	m.status = fmt.Sprintf("Delete %q? y/n", t.Text)
	return m, nil
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	if m.session.Phase() == state.PhaseDeleting {
		return m, nil
	}
	switch key {
	case m.keys.Cancel, "n", "N", "esc":
		_ = m.session.Cancel()
		m.mode = modeList
		m.status = "Delete cancelled"
	case m.keys.Confirm, "y", "Y":
		target := m.session.Target()
		if err := m.app.Begin(target.ID); err != nil {
			_ = m.session.Cancel()
			m.mode = modeList
			m.status = err.Error()
			return m, nil
		}
		id, err := m.session.ConfirmDelete()
		if err != nil {
			m.app.End(target.ID)
			m.status = err.Error()
			return m, nil
		}
		m.status = "Deleting..."
		return m, m.deleteCmd(id)
	}
	return m, nil
}

func (m Model) handleDeleted(msg deletedMsg) (tea.Model, tea.Cmd) {
	m.app.End(msg.id)
	if msg.err != nil {
		if err := m.session.DeleteFailed(); err != nil {
			m.logger.Warn("delete failed outside a session", "id", msg.id, "err", err)
		}
		return m.fail("delete failed", msg.err), nil
	}
	if err := m.session.Deleted(); err != nil {
		m.logger.Warn("delete completed outside a session", "id", msg.id, "err", err)
	}
	m.app.Remove(msg.id)
	m.mode = modeList
	m.cursor = clampCursor(m.cursor, len(m.visible()))
	m.status = "Deleted task"
	return m, tea.Batch(m.refreshAggregatesCmd(), m.cacheTasksCmd(m.app.Tasks()))
}
