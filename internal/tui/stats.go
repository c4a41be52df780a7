package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/timebox/internal/plan"
	"github.com/sadopc/timebox/internal/session"
)

const statsDays = 14

type statsModel struct {
	sessions *session.Store
	width    int
	height   int

	data   []*plan.Session
	offset int // 14-day blocks back from today (0 = current)

	chart barchart.Model
}

func newStatsModel(s *session.Store) statsModel {
	return statsModel{
		sessions: s,
		chart:    barchart.New(60, 12),
	}
}

func (s *statsModel) setSize(w, h int) {
	s.width = w
	s.height = h
	s.rebuildChart()
}

func (s statsModel) dateRange() (time.Time, time.Time) {
	to := time.Now().AddDate(0, 0, 1-statsDays*s.offset)
	from := to.AddDate(0, 0, -statsDays)
	return from, to
}

func (s statsModel) refresh() tea.Cmd {
	from, to := s.dateRange()
	return func() tea.Msg {
		sessions, err := s.sessions.Range(plan.DateOf(from), plan.DateOf(to))
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Stats error: %v", err), isError: true}
		}
		return statsDataMsg{sessions: sessions}
	}
}

func (s statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statsDataMsg:
		s.data = msg.sessions
		s.rebuildChart()
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			s.offset++
			return s, s.refresh()
		case key.Matches(msg, keys.Down):
			if s.offset > 0 {
				s.offset--
				return s, s.refresh()
			}
		}
	}
	return s, nil
}

func (s *statsModel) rebuildChart() {
	chartWidth := s.width - 8
	if chartWidth < 30 {
		chartWidth = 30
	}
	chartHeight := 12
	if s.height > 30 {
		chartHeight = 16
	}

	s.chart = barchart.New(chartWidth, chartHeight)

	from, to := s.dateRange()

	doneStyle := lipgloss.NewStyle().Foreground(colorSuccess)
	remainingStyle := lipgloss.NewStyle().Foreground(colorSubtle)

	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		date := d.Format(plan.DateFormat)
		label := d.Format("02")

		done, planned := 0, 0
		for _, sess := range s.data {
			if sess.Date == date {
				planned = sess.TotalDuration
				done = planned * sess.Progress() / 100
			}
		}

		values := []barchart.BarValue{
			{Name: "done", Value: float64(done) / 60.0, Style: doneStyle},
			{Name: "planned", Value: float64(planned-done) / 60.0, Style: remainingStyle},
		}
		bars = append(bars, barchart.BarData{Label: label, Values: values})
	}

	s.chart.PushAll(bars)
	s.chart.Draw()
}

func (s statsModel) view() string {
	w := s.width - 4

	from, to := s.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s — %s",
		from.Format("Jan 02"), to.Add(-24*time.Hour).Format("Jan 02, 2006")))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Stats"), "  ", dateLabel,
	)

	chartView := s.chart.View()
	tableView := s.renderSummaryTable(w)
	legend := fmt.Sprintf("%s done  %s remaining",
		successStyle.Render("●"), mutedStyle.Render("●"))
	nav := mutedStyle.Render("  k: older  j: newer")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", chartView, "", legend, "", tableView, "", nav,
		),
	)
}

func (s statsModel) renderSummaryTable(w int) string {
	if len(s.data) == 0 {
		return mutedStyle.Render("  No sessions in this period")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %-12s %9s %9s %6s", "Date", "Status", "Planned", "Done", "Prog")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 54))))

	for _, sess := range s.data {
		progress := sess.Progress()
		done := sess.TotalDuration * progress / 100
		rows = append(rows, fmt.Sprintf("  %-12s %-12s %9s %9s %5d%%",
			sess.Date, sess.Status, formatMinutes(sess.TotalDuration), formatMinutes(done), progress,
		))
	}

	return strings.Join(rows, "\n")
}
