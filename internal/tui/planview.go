package tui

import (
	"context"
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

const buildTimeout = 30 * time.Second

// Block titles shared by the builder flow and ad-hoc scheduling, so
// tasks placed later land in the same blocks.
const (
	blockTitleFrog  = "Eat the frog"
	blockTitleFocus = "Focus work"
)

type planModel struct {
	queue    *queue.Service
	builder  *plan.Builder
	sessions *session.Store
	width    int
	height   int

	tasks []queue.QueueTask
	built *plan.Session

	// Bulk import form.
	importForm   *huh.Form
	importActive bool
	importText   string

	// Build form.
	buildForm   *huh.Form
	buildActive bool
	buildDate   string
	buildBudget string
	strategy    string
}

func newPlanModel(q *queue.Service, builder *plan.Builder, sessions *session.Store) planModel {
	return planModel{queue: q, builder: builder, sessions: sessions}
}

func (p *planModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p planModel) refresh() tea.Cmd {
	return func() tea.Msg {
		tasks, err := p.queue.Pending()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Backlog error: %v", err), isError: true}
		}
		return backlogDataMsg{tasks: tasks}
	}
}

func (p *planModel) startImportForm() {
	p.importText = ""
	p.importForm = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Paste tasks, one per line").
				Description("Optional suffixes: \"- 45m\", \"(1.5h)\". Prefix \"frog:\" marks the day's hardest task.").
				Value(&p.importText),
		),
	)
	p.importActive = true
}

func (p *planModel) startBuildForm() {
	settings, err := p.queue.Settings()
	if err == nil {
		p.strategy = string(settings.DefaultStrategy)
	}
	p.buildDate = plan.DateOf(time.Now())
	p.buildBudget = "240"

	p.buildForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Session date").
				Value(&p.buildDate).
				Validate(func(s string) error {
					if _, err := time.Parse(plan.DateFormat, plan.NormalizeDate(strings.TrimSpace(s))); err != nil {
						return fmt.Errorf("enter a date like %s", plan.DateOf(time.Now()))
					}
					return nil
				}),
			huh.NewInput().
				Title("Available minutes").
				Value(&p.buildBudget).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n < plan.MinDuration {
						return fmt.Errorf("enter at least %d minutes", plan.MinDuration)
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
				Value(&p.strategy),
		),
	)
	p.buildActive = true
}

func (p planModel) update(msg tea.Msg) (planModel, tea.Cmd) {
	if p.importActive {
		return p.updateImportForm(msg)
	}
	if p.buildActive {
		return p.updateBuildForm(msg)
	}

	switch msg := msg.(type) {
	case backlogDataMsg:
		p.tasks = msg.tasks
		return p, nil

	case sessionBuiltMsg:
		p.built = msg.session
		return p, tea.Batch(p.refresh(), func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Session built for %s (%s work)",
				msg.session.Date, formatMinutes(msg.session.TotalDuration))}
		})

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.New):
			p.startImportForm()
			return p, p.importForm.Init()
		case key.Matches(msg, keys.Enter):
			p.startBuildForm()
			return p, p.buildForm.Init()
		}
	}
	return p, nil
}

func (p planModel) updateImportForm(msg tea.Msg) (planModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		p.importActive = false
		return p, nil
	}

	form, cmd := p.importForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.importForm = f
	}

	if p.importForm.State == huh.StateCompleted {
		p.importActive = false
		text := p.importText
		return p, func() tea.Msg {
			added, err := p.queue.Import(text)
			if err != nil {
				return statusMsg{text: fmt.Sprintf("Import error: %v", err), isError: true}
			}
			if len(added) == 0 {
				return statusMsg{text: "Nothing to import"}
			}
			tasks, _ := p.queue.Pending()
			return backlogDataMsg{tasks: tasks}
		}
	}
	return p, cmd
}

func (p planModel) updateBuildForm(msg tea.Msg) (planModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		p.buildActive = false
		return p, nil
	}

	form, cmd := p.buildForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.buildForm = f
	}

	if p.buildForm.State == huh.StateCompleted {
		p.buildActive = false
		date := plan.NormalizeDate(strings.TrimSpace(p.buildDate))
		budget, _ := strconv.Atoi(strings.TrimSpace(p.buildBudget))
		strategy := queue.Strategy(p.strategy)
		return p, p.buildSession(date, budget, strategy)
	}
	return p, cmd
}

// buildSession packs a suggestion into story blocks and runs the
// builder. Frogs get their own leading block so the hardest work lands
// first in the day.
func (p planModel) buildSession(date string, budget int, strategy queue.Strategy) tea.Cmd {
	return func() tea.Msg {
		suggestion, err := p.queue.Suggest(budget, strategy)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Suggest error: %v", err), isError: true}
		}
		if len(suggestion.Tasks) == 0 {
			return statusMsg{text: "No pending tasks fit the budget", isError: true}
		}

		stories := storiesFromTasks(suggestion.Tasks)

		ctx, cancel := context.WithTimeout(context.Background(), buildTimeout)
		defer cancel()

		built, err := p.builder.Build(ctx, date, stories)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Build error: %v", err), isError: true}
		}

		for _, task := range suggestion.Tasks {
			if _, err := p.queue.MarkScheduled(task.ID); err != nil {
				return statusMsg{text: fmt.Sprintf("Mark scheduled: %v", err), isError: true}
			}
		}
		return sessionBuiltMsg{session: built}
	}
}

func storiesFromTasks(tasks []queue.QueueTask) []plan.StoryBlock {
	var frogs, rest []plan.TimeBox
	for _, task := range tasks {
		box := plan.TimeBox{
			Type:     plan.BoxWork,
			Duration: task.Duration,
			Status:   plan.BoxTodo,
			Tasks:    []plan.Task{task.Task},
		}
		if task.Frog {
			frogs = append(frogs, box)
		} else {
			rest = append(rest, box)
		}
	}

	var stories []plan.StoryBlock
	if len(frogs) > 0 {
		stories = append(stories, plan.StoryBlock{ID: "frog", Title: blockTitleFrog, TimeBoxes: frogs})
	}
	if len(rest) > 0 {
		stories = append(stories, plan.StoryBlock{ID: "focus", Title: blockTitleFocus, TimeBoxes: rest})
	}
	return stories
}

func (p planModel) isFormActive() bool {
	return p.importActive || p.buildActive
}

func (p planModel) view() string {
	w := p.width - 4

	if p.importActive {
		return panelStyle.Width(w).Render(p.importForm.View())
	}
	if p.buildActive {
		return panelStyle.Width(w).Render(p.buildForm.View())
	}

	var rows []string
	rows = append(rows, titleStyle.Render("Plan"))
	rows = append(rows, "")

	pendingMinutes := 0
	for _, task := range p.tasks {
		pendingMinutes += task.Duration
	}
	rows = append(rows, fmt.Sprintf("Pending backlog: %d tasks, %s of work",
		len(p.tasks), formatMinutes(pendingMinutes)))
	rows = append(rows, "")

	if p.built != nil {
		rows = append(rows, highlightStyle.Render("Last built: "+p.built.Date))
		for i := range p.built.StoryBlocks {
			block := &p.built.StoryBlocks[i]
			rows = append(rows, fmt.Sprintf("  %s (%s)", block.Title, formatMinutes(block.TotalDuration)))
			for _, box := range block.TimeBoxes {
				if box.Type.IsBreak() {
					rows = append(rows, breakStyle.Render(fmt.Sprintf("    %s (%s)", boxLabel(box), formatMinutes(box.Duration))))
				} else {
					rows = append(rows, fmt.Sprintf("    %s (%s)", boxLabel(box), formatMinutes(box.Duration)))
				}
			}
		}
		rows = append(rows, "")
	}

	rows = append(rows, mutedStyle.Render("  n: bulk import  enter: build session"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
