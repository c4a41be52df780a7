package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/timebox/internal/plan"
	"github.com/sadopc/timebox/internal/session"
)

// boxRef addresses one time box inside the session.
type boxRef struct {
	block int
	box   int
}

type todayModel struct {
	sessions *session.Store
	manager  *session.Manager
	width    int
	height   int

	session    *plan.Session
	violations []session.Violation
	refs       []boxRef
	cursor     int
}

func newTodayModel(sessions *session.Store, manager *session.Manager) todayModel {
	return todayModel{sessions: sessions, manager: manager}
}

func (t *todayModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

func (t todayModel) refresh() tea.Cmd {
	return func() tea.Msg {
		date := plan.DateOf(time.Now())
		sess, _ := t.sessions.Get(date)
		var violations []session.Violation
		if sess != nil {
			violations = t.manager.Validate(sess)
		}
		return sessionDataMsg{session: sess, violations: violations}
	}
}

func (t todayModel) update(msg tea.Msg) (todayModel, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionDataMsg:
		t.session = msg.session
		t.violations = msg.violations
		t.refs = t.refs[:0]
		if t.session != nil {
			for i := range t.session.StoryBlocks {
				for j := range t.session.StoryBlocks[i].TimeBoxes {
					t.refs = append(t.refs, boxRef{block: i, box: j})
				}
			}
		}
		if t.cursor >= len(t.refs) {
			t.cursor = max(0, len(t.refs)-1)
		}
		return t, nil

	case closeoutDoneMsg:
		return t, tea.Batch(t.refresh(), func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Closed out, %d tasks returned to backlog", msg.extracted)}
		})

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if t.cursor > 0 {
				t.cursor--
			}
		case key.Matches(msg, keys.Down):
			if t.cursor < len(t.refs)-1 {
				t.cursor++
			}
		case key.Matches(msg, keys.Toggle), key.Matches(msg, keys.Enter):
			return t, t.toggleCursor()
		case key.Matches(msg, keys.Closeout):
			if t.session != nil {
				return t, t.closeout()
			}
		}
	}
	return t, nil
}

// toggleCursor cycles the selected box todo -> in-progress ->
// completed -> todo via a whole-record read-modify-write.
func (t todayModel) toggleCursor() tea.Cmd {
	if t.session == nil || t.cursor >= len(t.refs) {
		return nil
	}
	ref := t.refs[t.cursor]
	date := t.session.Date
	return func() tea.Msg {
		sess, err := t.sessions.Get(date)
		if err != nil || sess == nil {
			return statusMsg{text: "Session not found", isError: true}
		}
		if ref.block >= len(sess.StoryBlocks) || ref.box >= len(sess.StoryBlocks[ref.block].TimeBoxes) {
			return statusMsg{text: "Box out of range", isError: true}
		}
		box := &sess.StoryBlocks[ref.block].TimeBoxes[ref.box]
		switch box.Status {
		case plan.BoxTodo:
			box.Status = plan.BoxInProgress
			now := time.Now().UTC()
			box.StartedAt = &now
		case plan.BoxInProgress:
			box.Status = plan.BoxCompleted
			if box.StartedAt != nil {
				actual := int(time.Since(*box.StartedAt).Minutes())
				if actual > 0 {
					box.ActualDuration = &actual
				}
			}
		default:
			box.Status = plan.BoxTodo
			box.StartedAt = nil
			box.ActualDuration = nil
		}
		sess.Recalc()
		if err := t.sessions.Put(sess); err != nil {
			return statusMsg{text: fmt.Sprintf("Save error: %v", err), isError: true}
		}
		date := plan.DateOf(time.Now())
		fresh, _ := t.sessions.Get(date)
		var violations []session.Violation
		if fresh != nil {
			violations = t.manager.Validate(fresh)
		}
		return sessionDataMsg{session: fresh, violations: violations}
	}
}

func (t todayModel) closeout() tea.Cmd {
	date := t.session.Date
	return func() tea.Msg {
		ids, err := t.manager.Closeout(date, true)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Closeout error: %v", err), isError: true}
		}
		return closeoutDoneMsg{extracted: len(ids)}
	}
}

func (t todayModel) view() string {
	w := t.width - 4
	date := plan.DateOf(time.Now())

	if t.session == nil {
		content := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Today — "+date),
			"",
			mutedStyle.Render("No session planned for today."),
			mutedStyle.Render("Head to the Plan view (3) to build one."),
		)
		return panelStyle.Width(w).Render(content)
	}

	header := fmt.Sprintf("Today — %s  %s  %s work  %d%%",
		date,
		statusBadge(t.session.Status),
		formatMinutes(t.session.TotalDuration),
		t.session.Progress(),
	)

	var rows []string
	rows = append(rows, titleStyle.Render(header))

	for _, v := range t.violations {
		style := mutedStyle
		switch v.Severity {
		case session.SeverityError:
			style = errorStyle
		case session.SeverityWarning:
			style = warningStyle
		}
		rows = append(rows, style.Render("  ! "+v.Message))
	}
	rows = append(rows, "")

	idx := 0
	for i := range t.session.StoryBlocks {
		block := &t.session.StoryBlocks[i]
		rows = append(rows, highlightStyle.Render(fmt.Sprintf("%s  (%s, %d%%)",
			block.Title, formatMinutes(block.TotalDuration), block.Progress)))

		for _, box := range block.TimeBoxes {
			cursor := "  "
			style := normalItemStyle
			if idx == t.cursor {
				cursor = "> "
				style = selectedItemStyle
			}
			label := boxLabel(box)
			if box.Type.IsBreak() {
				rows = append(rows, breakStyle.Render(fmt.Sprintf("%s  %s %s (%s)",
					cursor, statusGlyph(box.Status), label, formatMinutes(box.Duration))))
			} else {
				line := fmt.Sprintf("%s  %s %s (%s)", cursor, statusGlyph(box.Status), label, formatMinutes(box.Duration))
				if box.ActualDuration != nil {
					line += mutedStyle.Render(fmt.Sprintf(" actual %s", formatMinutes(*box.ActualDuration)))
				}
				rows = append(rows, style.Render(line))
			}
			idx++
		}
		rows = append(rows, "")
	}

	rows = append(rows, mutedStyle.Render("  space: toggle  c: closeout  j/k: move"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func statusBadge(status plan.SessionStatus) string {
	switch status {
	case plan.StatusCompleted:
		return successStyle.Render("[" + string(status) + "]")
	case plan.StatusInProgress:
		return warningStyle.Render("[" + string(status) + "]")
	case plan.StatusArchived, plan.StatusIncomplete:
		return mutedStyle.Render("[" + string(status) + "]")
	default:
		return highlightStyle.Render("[" + string(status) + "]")
	}
}
