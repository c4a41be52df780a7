package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/sadopc/timebox/internal/plan"
	"github.com/sadopc/timebox/internal/queue"
)

type settingsDataMsg struct {
	settings queue.Settings
}

type settingsModel struct {
	queue  *queue.Service
	width  int
	height int

	settings queue.Settings

	form         *huh.Form
	formActive   bool
	formStrategy string
	formDuration string
	formAging    string
}

func newSettingsModel(q *queue.Service) settingsModel {
	return settingsModel{queue: q}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		settings, err := s.queue.Settings()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Settings error: %v", err), isError: true}
		}
		return settingsDataMsg{settings: settings}
	}
}

func (s *settingsModel) startForm() {
	s.formStrategy = string(s.settings.DefaultStrategy)
	s.formDuration = strconv.Itoa(s.settings.DefaultDuration)
	s.formAging = strconv.FormatFloat(s.settings.AgingRate, 'f', -1, 64)

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Default suggestion strategy").
				Options(
					huh.NewOption("Priority", string(queue.StrategyPriority)),
					huh.NewOption("Quick wins", string(queue.StrategyQuickWins)),
					huh.NewOption("Due date", string(queue.StrategyDueDate)),
					huh.NewOption("Balanced", string(queue.StrategyBalanced)),
				).
				Value(&s.formStrategy),
			huh.NewInput().
				Title("Default import duration (minutes)").
				Value(&s.formDuration).
				Validate(func(v string) error {
					n, err := strconv.Atoi(strings.TrimSpace(v))
					if err != nil || n < plan.MinDuration {
						return fmt.Errorf("enter at least %d minutes", plan.MinDuration)
					}
					return nil
				}),
			huh.NewInput().
				Title("Aging rate (priority points per day)").
				Value(&s.formAging).
				Validate(func(v string) error {
					n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
					if err != nil || n < 0 {
						return fmt.Errorf("enter a non-negative number")
					}
					return nil
				}),
		),
	)
	s.formActive = true
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Enter) || key.Matches(msg, keys.New) {
			s.startForm()
			return s, s.form.Init()
		}
	}
	return s, nil
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		s.formActive = false
		return s, nil
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		duration, _ := strconv.Atoi(strings.TrimSpace(s.formDuration))
		aging, _ := strconv.ParseFloat(strings.TrimSpace(s.formAging), 64)
		next := queue.Settings{
			DefaultStrategy: queue.Strategy(s.formStrategy),
			DefaultDuration: plan.RoundToBlock(duration),
			AgingRate:       aging,
		}
		return s, func() tea.Msg {
			if err := s.queue.SaveSettings(next); err != nil {
				return statusMsg{text: fmt.Sprintf("Save settings: %v", err), isError: true}
			}
			settings, _ := s.queue.Settings()
			return settingsDataMsg{settings: settings}
		}
	}
	return s, cmd
}

func (s settingsModel) isFormActive() bool {
	return s.formActive
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive {
		return panelStyle.Width(w).Render(s.form.View())
	}

	rows := []string{
		titleStyle.Render("Settings"),
		"",
		fmt.Sprintf("  %-32s %s", "Default suggestion strategy", highlightStyle.Render(string(s.settings.DefaultStrategy))),
		fmt.Sprintf("  %-32s %s", "Default import duration", highlightStyle.Render(formatMinutes(s.settings.DefaultDuration))),
		fmt.Sprintf("  %-32s %s", "Aging rate", highlightStyle.Render(fmt.Sprintf("%.1f/day", s.settings.AgingRate))),
		"",
		mutedStyle.Render("  enter: edit"),
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
