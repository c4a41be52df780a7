package queue

import "fmt"

// Strategy picks the sort order the suggestion algorithm fills the
// budget in.
type Strategy string

const (
	// StrategyPriority: effective priority descending.
	StrategyPriority Strategy = "priority"
	// StrategyQuickWins: shortest tasks first.
	StrategyQuickWins Strategy = "quick-wins"
	// StrategyDueDate: earliest due date first, undated last, ties by
	// effective priority.
	StrategyDueDate Strategy = "due-date"
	// StrategyBalanced: frog tasks first, then effective priority.
	StrategyBalanced Strategy = "balanced"
)

// Suggestion is the outcome of filling a time budget from the backlog.
type Suggestion struct {
	Tasks        []QueueTask
	TotalMinutes int
	Utilization  float64 // percent of the budget consumed
	FrogCount    int
}

// Suggest selects backlog tasks to fill availableMinutes under the
// given strategy. Packing is greedy fit, not optimal: a task that does
// not fit is skipped and later smaller tasks may still be accepted.
func (s *Service) Suggest(availableMinutes int, strategy Strategy) (*Suggestion, error) {
	if availableMinutes <= 0 {
		return &Suggestion{}, nil
	}

	pending, err := s.Pending()
	if err != nil {
		return nil, err
	}
	if strategy == "" {
		settings, err := s.Settings()
		if err != nil {
			return nil, err
		}
		strategy = settings.DefaultStrategy
	}
	if err := sortByStrategy(pending, strategy); err != nil {
		return nil, err
	}

	out := &Suggestion{}
	for _, t := range pending {
		if out.TotalMinutes+t.Duration > availableMinutes {
			continue
		}
		out.Tasks = append(out.Tasks, t)
		out.TotalMinutes += t.Duration
		if t.Frog {
			out.FrogCount++
		}
	}
	out.Utilization = float64(out.TotalMinutes) * 100 / float64(availableMinutes)
	return out, nil
}

func sortByStrategy(tasks []QueueTask, strategy Strategy) error {
	switch strategy {
	case StrategyPriority:
		sortStable(tasks, func(a, b QueueTask) int {
			return compareFloatDesc(a.EffectivePriority, b.EffectivePriority)
		})
	case StrategyQuickWins:
		sortStable(tasks, func(a, b QueueTask) int {
			return a.Duration - b.Duration
		})
	case StrategyDueDate:
		sortStable(tasks, func(a, b QueueTask) int {
			if c := compareDueDate(a.DueDate, b.DueDate); c != 0 {
				return c
			}
			return compareFloatDesc(a.EffectivePriority, b.EffectivePriority)
		})
	case StrategyBalanced:
		sortStable(tasks, func(a, b QueueTask) int {
			if a.Frog != b.Frog {
				if a.Frog {
					return -1
				}
				return 1
			}
			return compareFloatDesc(a.EffectivePriority, b.EffectivePriority)
		})
	default:
		return fmt.Errorf("unknown strategy %q", strategy)
	}
	return nil
}

func compareFloatDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

// compareDueDate orders dated tasks ascending and pushes undated ones
// last.
func compareDueDate(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
