package plan

import "time"

// Patch types list only the mutable fields of an entity. A nil field
// means "no change"; patch values win over stored values.

type TaskPatch struct {
	Title       *string     `json:"title,omitempty"`
	Duration    *int        `json:"duration,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
	Frog        *bool       `json:"frog,omitempty"`
	DueDate     *string     `json:"due_date,omitempty"`
	Tags        *[]string   `json:"tags,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// Apply merges the patch into t and stamps UpdatedAt.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Duration != nil {
		t.Duration = *p.Duration
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Frog != nil {
		t.Frog = *p.Frog
	}
	if p.DueDate != nil {
		t.DueDate = NormalizeDate(*p.DueDate)
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.CompletedAt != nil {
		t.CompletedAt = p.CompletedAt
	}
	t.UpdatedAt = time.Now().UTC()
}

type SessionPatch struct {
	Status      *SessionStatus `json:"status,omitempty"`
	StoryBlocks *[]StoryBlock  `json:"story_blocks,omitempty"`
}

// Apply merges the patch into s, refreshing caches and UpdatedAt.
func (p SessionPatch) Apply(s *Session) {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.StoryBlocks != nil {
		s.StoryBlocks = *p.StoryBlocks
	}
	s.Recalc()
	s.UpdatedAt = time.Now().UTC()
}
