package ui

import (
	"fmt"
	"strings"
	"time"

	"taskdeck/internal/config"
	"taskdeck/internal/state"
	"taskdeck/internal/task"
)

func (m Model) View() string {
	now := m.now().In(m.loc)
	var b strings.Builder

	b.WriteString(titleStyle.Render("taskdeck"))
	b.WriteString("\n\n")
	b.WriteString(m.renderViews())
	b.WriteString("\n")
	b.WriteString(m.renderCategories())
	b.WriteString("\n")
	b.WriteString(statsStyle.Render(renderStats(m.app.ScopedStats(now))))
	b.WriteString("\n\n")

	tasks := m.app.Visible(now)
	switch {
	case len(tasks) == 0 && m.loading:
		b.WriteString(mutedStyle.Render("Loading..."))
	case len(tasks) == 0:
		b.WriteString(mutedStyle.Render(fmt.Sprintf("No tasks in this view. Press '%s' to add one.", m.keys.Add)))
	default:
		b.WriteString(m.renderTaskList(tasks, now))
	}
	b.WriteString("\n\n")

	switch m.mode {
	case modeAdd:
		b.WriteString(panelStyle.Render(m.form.render("New task") + "\n\n" + m.input.View()))
	case modeEdit:
		b.WriteString(panelStyle.Render(m.form.render("Edit task") + "\n\n" + m.input.View()))
	case modeConfirmDelete:
		b.WriteString(panelStyle.Render(m.renderDeletePrompt()))
	default:
		if t, ok := m.selected(); ok {
			b.WriteString(panelStyle.Render(renderDetail(t, now)))
		}
	}
	b.WriteString("\n")

	if m.alert != "" {
		b.WriteString(alertStyle.Render("Error: " + m.alert + "\n(press any key)"))
		b.WriteString("\n")
	}

	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(renderHelp(m.keys)))
	return b.String()
}

func (m Model) renderViews() string {
	var parts []string
	for i, v := range task.Views() {
		label := fmt.Sprintf("%d %s", i+1, v)
		if v == m.app.View {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) renderCategories() string {
	names := append([]string{task.CategoryAll}, m.app.Categories()...)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if name == m.app.Category {
			parts = append(parts, categoryStyle.Render("["+name+"]"))
		} else {
			parts = append(parts, mutedStyle.Render(name))
		}
	}
	return "Category: " + strings.Join(parts, " ")
}

func renderStats(s task.Stats) string {
	return fmt.Sprintf("Total %d • Pending %d • Done %d • Overdue %d • Due today %d • %.0f%% complete",
		s.Total, s.Pending, s.Completed, s.Overdue, s.TodayDue, s.CompletionRate)
}

func (m Model) renderTaskList(tasks []task.Task, now time.Time) string {
	cur := clampCursor(m.cursor, len(tasks))
	var b strings.Builder
	for i, t := range tasks {
		pointer := " "
		if i == cur && m.mode == modeList {
			pointer = cursorStyle.Render(">")
		}
		checkbox := "[ ]"
		if t.Completed {
			checkbox = "[x]"
		}
		if m.app.Busy(t.ID) {
			checkbox = "[~]"
		}

		text := t.Text
		switch {
		case t.Completed:
			text = completedStyle.Render(text)
		case t.Priority == task.PriorityHigh:
			text = highStyle.Render(text)
		}

		row := fmt.Sprintf("%s %s %s %s", pointer, checkbox, priorityMarker(t.Priority), text)
		if t.Category != "" {
			row += " " + categoryStyle.Render("#"+t.Category)
		}
		if due := dueLabel(t.Due, now); due != "" {
			switch {
			case task.IsOverdue(t, now):
				due = overdueStyle.Render(due + " overdue")
			case task.IsTodayDue(t, now):
				due = todayStyle.Render(due)
			default:
				due = mutedStyle.Render(due)
			}
			row += "  " + due
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDetail(t task.Task, now time.Time) string {
	status := "pending"
	if t.Completed {
		status = "done"
	}
	due := dueLabel(t.Due, now)
	if due == "" {
		due = "none"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Task        : %s\n", t.Text)
	fmt.Fprintf(&b, "Status      : %s\n", status)
	fmt.Fprintf(&b, "Category    : %s\n", emptyPlaceholder(t.Category))
	fmt.Fprintf(&b, "Priority    : %s\n", t.Priority)
	fmt.Fprintf(&b, "Due         : %s\n", due)
	fmt.Fprintf(&b, "Created     : %s\n", createdLabel(t.CreatedAt, now))
	fmt.Fprintf(&b, "Description : %s", emptyPlaceholder(t.Description))
	return b.String()
}

func (m Model) renderDeletePrompt() string {
	t := m.session.Target()
	if m.session.Phase() == state.PhaseDeleting {
		return fmt.Sprintf("Deleting %q...", t.Text)
	}
	return fmt.Sprintf("Delete %q?\n\n%s confirm • n/%s cancel", t.Text, m.keys.Confirm, m.keys.Cancel)
}

func keyLabel(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • 1-5 or %s/%s view • %s/%s category • %s add • %s edit • %s toggle • %s delete • %s refresh • %s reload • %s quit",
		k.Up, k.Down, k.NextView, k.PrevView, k.NextCategory, k.PrevCategory,
		k.Add, k.Edit, keyLabel(k.Toggle), k.Delete, k.Refresh, k.Reload, k.Quit)
}
