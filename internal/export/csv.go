// Package export writes sessions and backlog tasks to CSV or JSON
// files for use outside the tool.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sadopc/timebox/internal/plan"
	"github.com/sadopc/timebox/internal/queue"
)

func SessionsToCSV(sessions []*plan.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Date", "Status", "Block", "Box Type", "Box Status", "Duration (m)", "Tasks"}); err != nil {
		return err
	}

	for _, s := range sessions {
		for _, block := range s.StoryBlocks {
			for _, box := range block.TimeBoxes {
				var titles []string
				for _, task := range box.Tasks {
					titles = append(titles, task.Title)
				}
				row := []string{
					s.Date,
					string(s.Status),
					block.Title,
					string(box.Type),
					string(box.Status),
					strconv.Itoa(box.Duration),
					strings.Join(titles, "; "),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
	}

	return w.Error()
}

func BacklogToCSV(tasks []queue.QueueTask, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"ID", "Title", "Duration (m)", "Priority", "Frog", "Due", "Status", "Source", "Age (d)"}); err != nil {
		return err
	}

	for _, t := range tasks {
		row := []string{
			t.ID,
			t.Title,
			strconv.Itoa(t.Duration),
			string(t.Priority),
			strconv.FormatBool(t.Frog),
			t.DueDate,
			string(t.Status),
			string(t.Source),
			strconv.Itoa(t.AgeDays),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func formatMinutes(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}
