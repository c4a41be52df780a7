package plan

import "fmt"

// Violation identifies the story block an external validator rejected.
// Tightening counts how many times that block has been flagged; each
// flag halves the per-task duration cap for the block so repeated
// retries converge instead of oscillating.
type Violation struct {
	BlockTitle string
	Tightening int
}

// SplitForRetry produces a layout honoring the break constraints:
// oversized tasks are divided into block-rounded parts with a mandatory
// break after every part except the last, and a break is forced
// whenever a run of uninterrupted work would exceed
// MaxWorkWithoutBreak. Existing break boxes are kept and reset the run
// counter, so applying the routine to an already-valid layout is a
// no-op. Block caches are recalculated afterwards.
func SplitForRetry(stories []StoryBlock, v *Violation) []StoryBlock {
	out := make([]StoryBlock, len(stories))
	for i, block := range stories {
		effMax := effectiveMax(block, v)
		out[i] = splitBlock(block, effMax)
	}
	return out
}

func effectiveMax(block StoryBlock, v *Violation) int {
	max := MaxWorkWithoutBreak
	if v == nil || v.BlockTitle != block.Title {
		return max
	}
	for i := 0; i < v.Tightening; i++ {
		max /= 2
	}
	if max < BlockSize {
		max = BlockSize
	}
	return max
}

func splitBlock(block StoryBlock, effMax int) StoryBlock {
	var boxes []TimeBox
	run := 0

	for _, box := range block.TimeBoxes {
		if box.Type.IsBreak() {
			boxes = append(boxes, box)
			run = 0
			continue
		}

		// A work box within the cap passes through whole, keeping its
		// planned duration and task grouping. Task sums may undershoot
		// the planned duration; that slack belongs to the box.
		if box.Duration <= effMax {
			if run > 0 && run+box.Duration > MaxWorkWithoutBreak {
				boxes = append(boxes, breakFor(run))
				run = 0
			}
			boxes = append(boxes, box)
			run += box.Duration
			continue
		}

		tasks := box.Tasks
		if len(tasks) == 0 {
			// A bare work box acts as a single anonymous task.
			tasks = []Task{{Title: block.Title, Duration: box.Duration, Status: TaskScheduled}}
		}

		// Slack between the box's planned duration and its task sum
		// rides on the final part so no minutes are dropped.
		slack := box.Duration
		for _, t := range tasks {
			slack -= t.Duration
		}
		if slack < 0 {
			slack = 0
		}

		for ti, task := range tasks {
			parts := splitTask(task, effMax)
			for k, part := range parts {
				duration := part.Duration
				if ti == len(tasks)-1 && k == len(parts)-1 {
					duration += slack
				}
				if run > 0 && run+duration > MaxWorkWithoutBreak {
					boxes = append(boxes, breakFor(run))
					run = 0
				}
				boxes = append(boxes, TimeBox{
					Type:     BoxWork,
					Duration: duration,
					Status:   box.Status,
					Tasks:    []Task{part},
				})
				run += duration
				if k < len(parts)-1 {
					boxes = append(boxes, breakFor(run))
					run = 0
				}
			}
		}
	}

	block.TimeBoxes = boxes
	block.Recalc()
	return block
}

// splitTask divides a task exceeding effMax into N = ceil(d/effMax)
// parts. Every part but the last is rounded to BlockSize; the last
// carries the exact remainder so no minutes are created or destroyed.
func splitTask(t Task, effMax int) []Task {
	if t.Duration <= effMax {
		return []Task{t}
	}

	n := (t.Duration + effMax - 1) / effMax
	base := RoundToBlock((t.Duration + n - 1) / n)
	for base > effMax && base > MinDuration {
		base -= BlockSize
	}
	last := t.Duration - base*(n-1)
	if last < MinDuration {
		// Fold a too-small remainder into the final full part.
		n--
		last = t.Duration - base*(n-1)
	}

	parts := make([]Task, n)
	for k := 0; k < n; k++ {
		part := t
		part.ID = fmt.Sprintf("%s.%d", t.ID, k+1)
		part.Title = fmt.Sprintf("%s (Part %d of %d)", t.Title, k+1, n)
		part.Duration = base
		if k == n-1 {
			part.Duration = last
		}
		parts[k] = part
	}
	return parts
}
