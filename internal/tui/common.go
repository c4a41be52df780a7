package tui

import (
	"fmt"

	"github.com/sadopc/timebox/internal/plan"
	"github.com/sadopc/timebox/internal/queue"
	"github.com/sadopc/timebox/internal/session"
)

// viewState represents the currently active view.
type viewState int

const (
	viewToday viewState = iota
	viewBacklog
	viewPlan
	viewStats
	viewSettings
)

var viewNames = []string{"Today", "Backlog", "Plan", "Stats", "Settings"}

// --- Messages ---

type sessionDataMsg struct {
	session    *plan.Session
	violations []session.Violation
}

type backlogDataMsg struct {
	tasks []queue.QueueTask
}

type suggestionMsg struct {
	suggestion *queue.Suggestion
}

type sessionBuiltMsg struct {
	session *plan.Session
}

type closeoutDoneMsg struct {
	extracted int
}

type statsDataMsg struct {
	sessions []*plan.Session
}

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatMinutes(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}

func boxLabel(box plan.TimeBox) string {
	switch box.Type {
	case plan.BoxShortBreak:
		return "Short break"
	case plan.BoxLongBreak:
		return "Long break"
	default:
		if len(box.Tasks) > 0 {
			return box.Tasks[0].Title
		}
		return "Work"
	}
}

func statusGlyph(status plan.BoxStatus) string {
	switch status {
	case plan.BoxCompleted:
		return "●"
	case plan.BoxInProgress:
		return "◐"
	default:
		return "○"
	}
}
