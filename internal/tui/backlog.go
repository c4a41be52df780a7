package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/sadopc/timebox/internal/plan"
	"github.com/sadopc/timebox/internal/queue"
	"github.com/sadopc/timebox/internal/session"
)

type backlogModel struct {
	queue    *queue.Service
	sessions *session.Store
	width    int
	height   int

	tasks  []queue.QueueTask
	cursor int

	// New-task form state. Field values live on the model so they
	// survive the Update value copies.
	form         *huh.Form
	formActive   bool
	formTitle    string
	formDuration string
	formPriority string
	formFrog     bool

	// Suggestion overlay state.
	suggestForm   *huh.Form
	suggestActive bool
	suggestBudget string
	strategy      string
	suggestion    *queue.Suggestion
}

func newBacklogModel(q *queue.Service, sessions *session.Store) backlogModel {
	return backlogModel{queue: q, sessions: sessions}
}

func (b *backlogModel) setSize(w, h int) {
	b.width = w
	b.height = h
}

func (b backlogModel) refresh() tea.Cmd {
	return func() tea.Msg {
		tasks, err := b.queue.Pending()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Backlog error: %v", err), isError: true}
		}
		return backlogDataMsg{tasks: tasks}
	}
}

func (b *backlogModel) startNewTaskForm() {
	b.formTitle = ""
	b.formDuration = "30"
	b.formPriority = string(plan.PriorityMedium)
	b.formFrog = false

	b.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Task title").
				Value(&b.formTitle).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Duration (minutes)").
				Value(&b.formDuration).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n <= 0 {
						return fmt.Errorf("enter a positive number of minutes")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Priority").
				Options(
					huh.NewOption("Urgent", string(plan.PriorityUrgent)),
					huh.NewOption("High", string(plan.PriorityHigh)),
					huh.NewOption("Medium", string(plan.PriorityMedium)),
					huh.NewOption("Low", string(plan.PriorityLow)),
				).
				Value(&b.formPriority),
			huh.NewConfirm().
				Title("Frog? (hardest task of the day)").
				Value(&b.formFrog),
		),
	)
	b.formActive = true
}

func (b *backlogModel) startSuggestForm() {
	settings, err := b.queue.Settings()
	if err == nil {
		b.strategy = string(settings.DefaultStrategy)
	}
	b.suggestBudget = "120"

	b.suggestForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Available minutes").
				Value(&b.suggestBudget).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n <= 0 {
						return fmt.Errorf("enter a positive number of minutes")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Strategy").
				Options(
					huh.NewOption("Priority", string(queue.StrategyPriority)),
					huh.NewOption("Quick wins", string(queue.StrategyQuickWins)),
					huh.NewOption("Due date", string(queue.StrategyDueDate)),
					huh.NewOption("Balanced", string(queue.StrategyBalanced)),
				).
				Value(&b.strategy),
		),
	)
	b.suggestActive = true
}

func (b backlogModel) update(msg tea.Msg) (backlogModel, tea.Cmd) {
	if b.formActive {
		return b.updateForm(msg)
	}
	if b.suggestActive {
		return b.updateSuggestForm(msg)
	}

	switch msg := msg.(type) {
	case backlogDataMsg:
		b.tasks = msg.tasks
		if b.cursor >= len(b.tasks) {
			b.cursor = max(0, len(b.tasks)-1)
		}
		return b, nil

	case suggestionMsg:
		b.suggestion = msg.suggestion
		return b, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if b.cursor > 0 {
				b.cursor--
			}
		case key.Matches(msg, keys.Down):
			if b.cursor < len(b.tasks)-1 {
				b.cursor++
			}
		case key.Matches(msg, keys.New):
			b.startNewTaskForm()
			return b, b.form.Init()
		case key.Matches(msg, keys.Suggest):
			b.startSuggestForm()
			return b, b.suggestForm.Init()
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Toggle):
			if task := b.selected(); task != nil {
				id := task.ID
				return b, func() tea.Msg {
					if _, err := b.queue.Complete(id); err != nil {
						return statusMsg{text: fmt.Sprintf("Complete error: %v", err), isError: true}
					}
					tasks, _ := b.queue.Pending()
					return backlogDataMsg{tasks: tasks}
				}
			}
		case key.Matches(msg, keys.Delete):
			if task := b.selected(); task != nil {
				id := task.ID
				return b, func() tea.Msg {
					if _, err := b.queue.Discard(id); err != nil {
						return statusMsg{text: fmt.Sprintf("Discard error: %v", err), isError: true}
					}
					tasks, _ := b.queue.Pending()
					return backlogDataMsg{tasks: tasks}
				}
			}
		case key.Matches(msg, keys.Schedule):
			if task := b.selected(); task != nil {
				return b, b.scheduleToday(*task)
			}
		case key.Matches(msg, keys.Back):
			b.suggestion = nil
		}
	}
	return b, nil
}

// scheduleToday drops the task into today's session (frogs into the
// frog block, everything else into focus work) and marks it scheduled
// in the backlog.
func (b backlogModel) scheduleToday(task queue.QueueTask) tea.Cmd {
	return func() tea.Msg {
		title := blockTitleFocus
		if task.Frog {
			title = blockTitleFrog
		}
		ok, err := b.sessions.ScheduleTask(plan.DateOf(time.Now()), title, task.Task)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Schedule error: %v", err), isError: true}
		}
		if !ok {
			return statusMsg{text: "No session for today yet. Build one first", isError: true}
		}
		if _, err := b.queue.MarkScheduled(task.ID); err != nil {
			return statusMsg{text: fmt.Sprintf("Mark scheduled: %v", err), isError: true}
		}
		tasks, _ := b.queue.Pending()
		return backlogDataMsg{tasks: tasks}
	}
}

func (b backlogModel) updateForm(msg tea.Msg) (backlogModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		b.formActive = false
		return b, nil
	}

	form, cmd := b.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		b.form = f
	}

	if b.form.State == huh.StateCompleted {
		b.formActive = false
		title := strings.TrimSpace(b.formTitle)
		duration, _ := strconv.Atoi(strings.TrimSpace(b.formDuration))
		priority := plan.Priority(b.formPriority)
		frog := b.formFrog
		return b, func() tea.Msg {
			if _, err := b.queue.Add(title, duration, priority, frog, plan.SourceManual); err != nil {
				return statusMsg{text: fmt.Sprintf("Add error: %v", err), isError: true}
			}
			tasks, _ := b.queue.Pending()
			return backlogDataMsg{tasks: tasks}
		}
	}
	return b, cmd
}

func (b backlogModel) updateSuggestForm(msg tea.Msg) (backlogModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		b.suggestActive = false
		return b, nil
	}

	form, cmd := b.suggestForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		b.suggestForm = f
	}

	if b.suggestForm.State == huh.StateCompleted {
		b.suggestActive = false
		budget, _ := strconv.Atoi(strings.TrimSpace(b.suggestBudget))
		strategy := queue.Strategy(b.strategy)
		return b, func() tea.Msg {
			suggestion, err := b.queue.Suggest(budget, strategy)
			if err != nil {
				return statusMsg{text: fmt.Sprintf("Suggest error: %v", err), isError: true}
			}
			return suggestionMsg{suggestion: suggestion}
		}
	}
	return b, cmd
}

func (b backlogModel) selected() *queue.QueueTask {
	if b.cursor < 0 || b.cursor >= len(b.tasks) {
		return nil
	}
	return &b.tasks[b.cursor]
}

func (b backlogModel) isFormActive() bool {
	return b.formActive || b.suggestActive
}

func (b backlogModel) view() string {
	w := b.width - 4

	if b.formActive {
		return panelStyle.Width(w).Render(b.form.View())
	}
	if b.suggestActive {
		return panelStyle.Width(w).Render(b.suggestForm.View())
	}

	var rows []string
	rows = append(rows, titleStyle.Render(fmt.Sprintf("Backlog — %d pending", len(b.tasks))))
	rows = append(rows, "")

	if len(b.tasks) == 0 {
		rows = append(rows, mutedStyle.Render("Backlog is empty. Press n to add a task."))
	}

	for i, task := range b.tasks {
		cursor := "  "
		style := normalItemStyle
		if i == b.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		frog := " "
		if task.Frog {
			frog = "F"
		}
		line := fmt.Sprintf("%s%s %-8s %5s  %s", cursor, frog, task.Priority, formatMinutes(task.Duration), task.Title)
		if task.DueDate != "" {
			line += mutedStyle.Render("  due " + task.DueDate)
		}
		line += mutedStyle.Render(fmt.Sprintf("  [%.0f]", task.EffectivePriority))
		rows = append(rows, style.Render(line))
	}

	if b.suggestion != nil {
		rows = append(rows, "")
		rows = append(rows, highlightStyle.Render(fmt.Sprintf("Suggested (%s, %.0f%% of budget):",
			formatMinutes(b.suggestion.TotalMinutes), b.suggestion.Utilization)))
		for _, task := range b.suggestion.Tasks {
			marker := "  -"
			if task.Frog {
				marker = "  F"
			}
			rows = append(rows, fmt.Sprintf("%s %s (%s)", marker, task.Title, formatMinutes(task.Duration)))
		}
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  n: new  s: suggest  t: schedule today  enter: complete  d: discard"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
