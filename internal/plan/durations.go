// Package plan holds the time-boxing domain model: tasks, time boxes,
// story blocks and sessions, the duration rules that constrain them,
// and the splitter/builder that turn a raw task list into a valid
// schedule.
package plan

// All durations are integer minutes.
const (
	// BlockSize is the smallest scheduling granularity.
	BlockSize = 5
	// MinDuration is the shortest allowed task.
	MinDuration = 5
	// MaxWorkWithoutBreak bounds uninterrupted work time.
	MaxWorkWithoutBreak = 90
	// ShortBreak and LongBreak are the two rest lengths.
	ShortBreak = 10
	LongBreak  = 30

	// longBreakThreshold: a run of work at or above this earns a long
	// break instead of a short one.
	longBreakThreshold = 60
)

// RoundToBlock rounds minutes to the nearest multiple of BlockSize,
// never below MinDuration.
func RoundToBlock(minutes int) int {
	if minutes <= MinDuration {
		return MinDuration
	}
	rounded := ((minutes + BlockSize/2) / BlockSize) * BlockSize
	if rounded < MinDuration {
		return MinDuration
	}
	return rounded
}

// breakFor picks the break earned by a run of uninterrupted work.
func breakFor(runMinutes int) TimeBox {
	if runMinutes >= longBreakThreshold {
		return TimeBox{Type: BoxLongBreak, Duration: LongBreak, Status: BoxTodo}
	}
	return TimeBox{Type: BoxShortBreak, Duration: ShortBreak, Status: BoxTodo}
}
