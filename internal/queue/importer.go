package queue

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sadopc/timebox/internal/plan"
)

// Bulk-import grammar, one task per line:
//
//	line     = [frog] title [duration]
//	frog     = "frog" [":" | "-"]        (leading, case-insensitive)
//	duration = "-" N unit | "(" N unit ")"   (trailing)
//	unit     = "m" | "min" | "minutes" | "h" | "hr" | "hour" | "hours"
//
// Frog-marked tasks are promoted to high priority. Lines without a
// duration marker use the configured default. Blank lines are skipped.

var (
	frogPrefix = regexp.MustCompile(`(?i)^\s*frog\s*[:\-]?\s+`)

	trailingDash  = regexp.MustCompile(`(?i)[-–]\s*(\d+(?:\.\d+)?)\s*(m|min|mins|minutes|h|hr|hrs|hour|hours)\s*$`)
	trailingParen = regexp.MustCompile(`(?i)\(\s*(\d+(?:\.\d+)?)\s*(m|min|mins|minutes|h|hr|hrs|hour|hours)\s*\)\s*$`)
)

// ImportLine is one parsed line of a bulk import.
type ImportLine struct {
	Title    string
	Duration int // minutes; 0 when the line carried no marker
	Frog     bool
}

// ParseImportLines parses raw bulk-import text. Lines that carry no
// duration marker report Duration 0 for the caller to fill with its
// default.
func ParseImportLines(text string) []ImportLine {
	var out []ImportLine
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		var parsed ImportLine
		if frogPrefix.MatchString(line) {
			parsed.Frog = true
			line = frogPrefix.ReplaceAllString(line, "")
		}

		for _, re := range []*regexp.Regexp{trailingParen, trailingDash} {
			if m := re.FindStringSubmatch(line); m != nil {
				parsed.Duration = parseDuration(m[1], m[2])
				line = strings.TrimSpace(line[:len(line)-len(m[0])])
				break
			}
		}

		parsed.Title = strings.TrimRight(strings.TrimSpace(line), ".,;:-– ")
		if parsed.Title == "" {
			continue
		}
		out = append(out, parsed)
	}
	return out
}

func parseDuration(value, unit string) int {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	if strings.HasPrefix(strings.ToLower(unit), "h") {
		n *= 60
	}
	return plan.RoundToBlock(int(n + 0.5))
}

// Import parses raw text and creates one backlog task per line, frog
// tasks at high priority, defaulting missing durations from settings.
func (s *Service) Import(text string) ([]QueueTask, error) {
	settings, err := s.Settings()
	if err != nil {
		return nil, err
	}

	var created []QueueTask
	for _, line := range ParseImportLines(text) {
		duration := line.Duration
		if duration == 0 {
			duration = settings.DefaultDuration
		}
		priority := plan.PriorityMedium
		if line.Frog {
			priority = plan.PriorityHigh
		}
		task, err := s.Add(line.Title, duration, priority, line.Frog, plan.SourceImport)
		if err != nil {
			return created, err
		}
		created = append(created, *task)
	}
	return created, nil
}
