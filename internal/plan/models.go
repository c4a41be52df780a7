package plan

import "time"

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type TaskStatus string

const (
	TaskBacklog   TaskStatus = "backlog"
	TaskScheduled TaskStatus = "scheduled"
	TaskCompleted TaskStatus = "completed"
	TaskDiscarded TaskStatus = "discarded"
)

type TaskSource string

const (
	SourceManual    TaskSource = "manual"
	SourceImport    TaskSource = "import"
	SourceGenerated TaskSource = "generated"
	// SourceResidue marks tasks extracted from a closed-out session.
	SourceResidue TaskSource = "session-residue"
)

// Task is the unit of work. Duration is integer minutes, never below
// MinDuration.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Duration    int        `json:"duration"`
	Priority    Priority   `json:"priority"`
	Frog        bool       `json:"frog,omitempty"`
	DueDate     string     `json:"due_date,omitempty"` // YYYY-MM-DD
	Tags        []string   `json:"tags,omitempty"`
	Source      TaskSource `json:"source"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type BoxType string

const (
	BoxWork       BoxType = "work"
	BoxShortBreak BoxType = "break-short"
	BoxLongBreak  BoxType = "break-long"
)

func (t BoxType) IsBreak() bool {
	return t == BoxShortBreak || t == BoxLongBreak
}

type BoxStatus string

const (
	BoxTodo       BoxStatus = "todo"
	BoxInProgress BoxStatus = "in-progress"
	BoxCompleted  BoxStatus = "completed"
)

// TimeBox is one ordered interval inside a session. Break boxes carry
// no tasks; a work box's task durations sum to at most its duration.
type TimeBox struct {
	Type           BoxType    `json:"type"`
	Duration       int        `json:"duration"`
	Status         BoxStatus  `json:"status"`
	Tasks          []Task     `json:"tasks,omitempty"`
	ActualDuration *int       `json:"actual_duration,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
}

// StoryBlock is a named group of time boxes representing one focus
// unit. TotalDuration and Progress are caches; Recalc refreshes them.
type StoryBlock struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	TimeBoxes     []TimeBox `json:"time_boxes"`
	TotalDuration int       `json:"total_duration"`
	Progress      int       `json:"progress"`
	TaskIDs       []string  `json:"task_ids,omitempty"`
}

// Recalc recomputes the cached total duration (work plus breaks) and
// the completion progress (completed work boxes over total work boxes).
func (b *StoryBlock) Recalc() {
	total := 0
	work, done := 0, 0
	for _, box := range b.TimeBoxes {
		total += box.Duration
		if box.Type == BoxWork {
			work++
			if box.Status == BoxCompleted {
				done++
			}
		}
	}
	b.TotalDuration = total
	if work == 0 {
		b.Progress = 0
		return
	}
	b.Progress = done * 100 / work
}

// WorkDuration is the sum of work-box minutes in the block.
func (b *StoryBlock) WorkDuration() int {
	total := 0
	for _, box := range b.TimeBoxes {
		if box.Type == BoxWork {
			total += box.Duration
		}
	}
	return total
}

type SessionStatus string

const (
	StatusPlanned    SessionStatus = "planned"
	StatusInProgress SessionStatus = "in-progress"
	StatusCompleted  SessionStatus = "completed"
	StatusIncomplete SessionStatus = "incomplete"
	StatusArchived   SessionStatus = "archived"
)

// Session is the schedulable unit for one calendar date. Exactly one
// session may exist per date.
type Session struct {
	Date          string        `json:"date"` // YYYY-MM-DD, the storage key
	StoryBlocks   []StoryBlock  `json:"story_blocks"`
	Status        SessionStatus `json:"status"`
	TotalDuration int           `json:"total_duration"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// WorkDuration is the sum of work-box minutes across all blocks.
func (s *Session) WorkDuration() int {
	total := 0
	for i := range s.StoryBlocks {
		total += s.StoryBlocks[i].WorkDuration()
	}
	return total
}

// Recalc refreshes every block's caches and the session total.
func (s *Session) Recalc() {
	for i := range s.StoryBlocks {
		s.StoryBlocks[i].Recalc()
	}
	s.TotalDuration = s.WorkDuration()
}

// Progress reports completed work boxes over total work boxes, 0-100.
func (s *Session) Progress() int {
	work, done := 0, 0
	for i := range s.StoryBlocks {
		for _, box := range s.StoryBlocks[i].TimeBoxes {
			if box.Type == BoxWork {
				work++
				if box.Status == BoxCompleted {
					done++
				}
			}
		}
	}
	if work == 0 {
		return 0
	}
	return done * 100 / work
}

// AllWorkCompleted reports whether every work box is completed. A
// session with no work boxes is not considered completed.
func (s *Session) AllWorkCompleted() bool {
	work, done := 0, 0
	for i := range s.StoryBlocks {
		for _, box := range s.StoryBlocks[i].TimeBoxes {
			if box.Type == BoxWork {
				work++
				if box.Status == BoxCompleted {
					done++
				}
			}
		}
	}
	return work > 0 && work == done
}
