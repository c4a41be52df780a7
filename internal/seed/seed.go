// Package seed fills an empty development database with sample data.
// It is wired up only when dev mode is on; the production path never
// reaches it.
package seed

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/sadopc/timebox/internal/plan"
	"github.com/sadopc/timebox/internal/queue"
	"github.com/sadopc/timebox/internal/session"
)

// Provider seeds stores with sample data.
type Provider interface {
	Seed(ctx context.Context) error
}

type devProvider struct {
	builder  *plan.Builder
	sessions *session.Store
	queue    *queue.Service
	logger   *log.Logger
	today    func() string
}

// NewDev returns the development seed provider.
func NewDev(builder *plan.Builder, sessions *session.Store, q *queue.Service, logger *log.Logger, today func() string) Provider {
	return &devProvider{builder: builder, sessions: sessions, queue: q, logger: logger, today: today}
}

func (p *devProvider) Seed(ctx context.Context) error {
	existing, err := p.sessions.Get(p.today())
	if err != nil {
		return err
	}
	backlog, err := p.queue.List()
	if err != nil {
		return err
	}
	if existing != nil || len(backlog) > 0 {
		p.logger.Debug("seed skipped, data already present")
		return nil
	}

	if _, err := p.queue.Import(
		"frog: Finish quarterly review - 45m\n" +
			"Reply to support tickets - 30m\n" +
			"Plan next sprint (1h)\n" +
			"Water the plants - 5m",
	); err != nil {
		return fmt.Errorf("seed backlog: %w", err)
	}

	stories := []plan.StoryBlock{
		{
			ID:    "seed-writing",
			Title: "Writing",
			TimeBoxes: []plan.TimeBox{{
				Type:     plan.BoxWork,
				Duration: 130,
				Status:   plan.BoxTodo,
				Tasks: []plan.Task{{
					ID:       "seed-draft",
					Title:    "Draft project proposal",
					Duration: 130,
					Priority: plan.PriorityHigh,
					Source:   plan.SourceGenerated,
					Status:   plan.TaskScheduled,
				}},
			}},
		},
	}
	if _, err := p.builder.Build(ctx, p.today(), stories); err != nil {
		return fmt.Errorf("seed session: %w", err)
	}

	p.logger.Info("development data seeded")
	return nil
}
