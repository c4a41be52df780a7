package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/timebox/internal/plan"
	"github.com/sadopc/timebox/internal/queue"
)

type jsonExport struct {
	ExportedAt string        `json:"exported_at"`
	Sessions   []jsonSession `json:"sessions,omitempty"`
	Backlog    []jsonTask    `json:"backlog,omitempty"`
}

type jsonSession struct {
	Date        string            `json:"date"`
	Status      string            `json:"status"`
	WorkMinutes int               `json:"work_minutes"`
	Work        string            `json:"work"`
	Progress    int               `json:"progress"`
	StoryBlocks []plan.StoryBlock `json:"story_blocks"`
}

type jsonTask struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	DurationMinutes   int     `json:"duration_minutes"`
	Priority          string  `json:"priority"`
	Frog              bool    `json:"frog,omitempty"`
	DueDate           string  `json:"due_date,omitempty"`
	Status            string  `json:"status"`
	Source            string  `json:"source"`
	AgeDays           int     `json:"age_days"`
	EffectivePriority float64 `json:"effective_priority"`
}

func ToJSON(sessions []*plan.Session, backlog []queue.QueueTask, path string) error {
	out := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
	}

	for _, s := range sessions {
		out.Sessions = append(out.Sessions, jsonSession{
			Date:        s.Date,
			Status:      string(s.Status),
			WorkMinutes: s.TotalDuration,
			Work:        formatMinutes(s.TotalDuration),
			Progress:    s.Progress(),
			StoryBlocks: s.StoryBlocks,
		})
	}

	for _, t := range backlog {
		out.Backlog = append(out.Backlog, jsonTask{
			ID:                t.ID,
			Title:             t.Title,
			DurationMinutes:   t.Duration,
			Priority:          string(t.Priority),
			Frog:              t.Frog,
			DueDate:           t.DueDate,
			Status:            string(t.Status),
			Source:            string(t.Source),
			AgeDays:           t.AgeDays,
			EffectivePriority: t.EffectivePriority,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
