package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workBox(title string, minutes int) TimeBox {
	return TimeBox{
		Type:     BoxWork,
		Duration: minutes,
		Status:   BoxTodo,
		Tasks: []Task{{
			ID:       "t-" + title,
			Title:    title,
			Duration: minutes,
			Status:   TaskScheduled,
		}},
	}
}

func block(title string, boxes ...TimeBox) StoryBlock {
	b := StoryBlock{ID: "b-" + title, Title: title, TimeBoxes: boxes}
	b.Recalc()
	return b
}

// workDuration sums work minutes across blocks.
func workDuration(stories []StoryBlock) int {
	total := 0
	for i := range stories {
		total += stories[i].WorkDuration()
	}
	return total
}

// maxRun is the longest consecutive run of work minutes, breaks
// ignored as separators.
func maxRun(stories []StoryBlock) int {
	longest := 0
	for _, b := range stories {
		run := 0
		for _, box := range b.TimeBoxes {
			if box.Type.IsBreak() {
				run = 0
				continue
			}
			run += box.Duration
			if run > longest {
				longest = run
			}
		}
	}
	return longest
}

func TestRoundToBlock(t *testing.T) {
	cases := map[int]int{
		0:   MinDuration,
		3:   MinDuration,
		5:   5,
		7:   5,
		8:   10,
		12:  10,
		13:  15,
		65:  65,
		131: 130,
		133: 135,
	}
	for in, want := range cases {
		assert.Equal(t, want, RoundToBlock(in), "RoundToBlock(%d)", in)
	}
}

func TestSplitOversizedTask(t *testing.T) {
	// One 130-minute task against a 90-minute cap: exactly two parts
	// with a long break between, each part a multiple of BlockSize.
	stories := SplitForRetry([]StoryBlock{block("Thesis", workBox("Write chapter", 130))}, nil)

	require.Len(t, stories, 1)
	boxes := stories[0].TimeBoxes
	require.Len(t, boxes, 3)

	assert.Equal(t, BoxWork, boxes[0].Type)
	assert.Equal(t, BoxLongBreak, boxes[1].Type)
	assert.Equal(t, BoxWork, boxes[2].Type)

	assert.Equal(t, 130, boxes[0].Duration+boxes[2].Duration)
	assert.Zero(t, boxes[0].Duration%BlockSize)
	assert.Zero(t, boxes[2].Duration%BlockSize)

	require.Len(t, boxes[0].Tasks, 1)
	assert.Equal(t, "Write chapter (Part 1 of 2)", boxes[0].Tasks[0].Title)
	assert.Equal(t, "Write chapter (Part 2 of 2)", boxes[2].Tasks[0].Title)
}

func TestSplitIdempotent(t *testing.T) {
	input := []StoryBlock{
		block("Deep work", workBox("Design doc", 130), workBox("Review", 45)),
		block("Admin", workBox("Email", 20)),
	}

	once := SplitForRetry(input, nil)
	twice := SplitForRetry(once, nil)
	assert.Equal(t, once, twice, "second pass over a valid layout must be a no-op")
}

func TestDurationConservation(t *testing.T) {
	input := []StoryBlock{
		block("Mixed", workBox("Long haul", 200), workBox("Short", 25), workBox("Mid", 60)),
	}
	before := workDuration(input)

	out := SplitForRetry(input, nil)
	assert.Equal(t, before, workDuration(out), "work minutes must be conserved")

	// Block total = work + inserted breaks.
	breaks := 0
	for _, box := range out[0].TimeBoxes {
		if box.Type.IsBreak() {
			breaks += box.Duration
		}
	}
	assert.Equal(t, before+breaks, out[0].TotalDuration)
}

func TestBreakConstraintHolds(t *testing.T) {
	inputs := [][]StoryBlock{
		{block("A", workBox("Huge", 400))},
		{block("B", workBox("One", 60), workBox("Two", 60), workBox("Three", 60))},
		{block("C", workBox("Exact", 90), workBox("More", 90))},
		{block("D", workBox("Tiny", 5))},
	}
	for _, input := range inputs {
		out := SplitForRetry(input, nil)
		assert.LessOrEqual(t, maxRun(out), MaxWorkWithoutBreak)
	}
}

func TestForcedBreakBetweenTasks(t *testing.T) {
	// 60 + 60 would run 120 uninterrupted; a break must be forced
	// before the second task.
	out := SplitForRetry([]StoryBlock{block("Focus", workBox("One", 60), workBox("Two", 60))}, nil)

	boxes := out[0].TimeBoxes
	require.Len(t, boxes, 3)
	assert.Equal(t, BoxWork, boxes[0].Type)
	assert.True(t, boxes[1].Type.IsBreak())
	assert.Equal(t, BoxWork, boxes[2].Type)
	// A 60-minute run earns the long break.
	assert.Equal(t, BoxLongBreak, boxes[1].Type)
}

func TestShortBreakForShortRun(t *testing.T) {
	// 50 + 45 exceeds the cap with a run of only 50: short break.
	out := SplitForRetry([]StoryBlock{block("Focus", workBox("One", 50), workBox("Two", 45))}, nil)

	boxes := out[0].TimeBoxes
	require.Len(t, boxes, 3)
	assert.Equal(t, BoxShortBreak, boxes[1].Type)
}

func TestMultiTaskBoxPassesThrough(t *testing.T) {
	// A 60-minute box holding two 25-minute tasks is valid: the task
	// sum may undershoot the planned duration, and the box must come
	// back exactly as authored.
	box := TimeBox{
		Type:     BoxWork,
		Duration: 60,
		Status:   BoxTodo,
		Tasks: []Task{
			{ID: "t-a", Title: "First", Duration: 25, Status: TaskScheduled},
			{ID: "t-b", Title: "Second", Duration: 25, Status: TaskScheduled},
		},
	}
	input := []StoryBlock{block("Paired", box)}
	before := input[0].TotalDuration

	out := SplitForRetry(input, nil)
	assert.Equal(t, input, out, "valid multi-task box must pass through unchanged")
	assert.Equal(t, before, out[0].TotalDuration, "planned duration must not drift")
}

func TestOversizedMultiTaskBoxConservesPlannedDuration(t *testing.T) {
	// 120 planned minutes, tasks summing 110: the box must split, and
	// the 10-minute slack lands on the final part.
	box := TimeBox{
		Type:     BoxWork,
		Duration: 120,
		Status:   BoxTodo,
		Tasks: []Task{
			{ID: "t-a", Title: "First", Duration: 55, Status: TaskScheduled},
			{ID: "t-b", Title: "Second", Duration: 55, Status: TaskScheduled},
		},
	}
	out := SplitForRetry([]StoryBlock{block("Loaded", box)}, nil)

	work := 0
	var last TimeBox
	for _, b := range out[0].TimeBoxes {
		if b.Type == BoxWork {
			work += b.Duration
			last = b
		}
	}
	assert.Equal(t, 120, work, "planned minutes must be conserved across the split")
	assert.Equal(t, 65, last.Duration)
	assert.LessOrEqual(t, maxRun(out), MaxWorkWithoutBreak)
}

func TestExistingBreaksPreserved(t *testing.T) {
	rest := TimeBox{Type: BoxShortBreak, Duration: ShortBreak, Status: BoxTodo}
	input := []StoryBlock{block("Paced", workBox("One", 45), rest, workBox("Two", 45))}

	out := SplitForRetry(input, nil)
	assert.Equal(t, input, out, "valid layout with authored breaks passes through")
}

func TestTighteningHalvesOffendingBlockMax(t *testing.T) {
	input := []StoryBlock{block("Stubborn", workBox("Big", 130))}

	// Tightening 1 halves the cap to 45 for the named block only.
	out := SplitForRetry(input, &Violation{BlockTitle: "Stubborn", Tightening: 1})

	var parts []int
	for _, box := range out[0].TimeBoxes {
		if box.Type == BoxWork {
			parts = append(parts, box.Duration)
			assert.LessOrEqual(t, box.Duration, 45)
		}
	}
	assert.Len(t, parts, 3)
	assert.Equal(t, 130, parts[0]+parts[1]+parts[2])
}

func TestTighteningLeavesOtherBlocksAlone(t *testing.T) {
	input := []StoryBlock{
		block("Offender", workBox("Big", 80)),
		block("Innocent", workBox("AlsoBig", 80)),
	}
	out := SplitForRetry(input, &Violation{BlockTitle: "Offender", Tightening: 1})

	// 80 > 45: the offender splits; the innocent block keeps its
	// single 80-minute box (within the global 90 cap).
	offWork := 0
	for _, box := range out[0].TimeBoxes {
		if box.Type == BoxWork {
			offWork++
		}
	}
	assert.Greater(t, offWork, 1)
	assert.Equal(t, input[1].TimeBoxes, out[1].TimeBoxes)
}

func TestSplitPartIDsDerived(t *testing.T) {
	out := SplitForRetry([]StoryBlock{block("X", workBox("Task", 180))}, nil)
	var ids []string
	for _, box := range out[0].TimeBoxes {
		if box.Type == BoxWork {
			ids = append(ids, box.Tasks[0].ID)
		}
	}
	require.Len(t, ids, 2)
	assert.Equal(t, "t-Task.1", ids[0])
	assert.Equal(t, "t-Task.2", ids[1])
}
