// Package queue stores unscheduled tasks, ranks them by effective
// priority, and fills a time budget from the backlog.
package queue

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/timebox/internal/kv"
	"github.com/sadopc/timebox/internal/plan"
)

const (
	tasksKey    = "queue-tasks"
	settingsKey = "queue-settings"
)

// Priority tier weights for effective priority. Aging is what lets an
// old low-priority task eventually outrank a fresh urgent one:
// effective = weight(tier) + ageDays * AgingRate.
var priorityWeights = map[plan.Priority]float64{
	plan.PriorityUrgent: 1000,
	plan.PriorityHigh:   100,
	plan.PriorityMedium: 10,
	plan.PriorityLow:    1,
}

// Settings is the explicit per-user queue configuration, persisted
// separately from task data and passed in rather than read ambiently.
type Settings struct {
	DefaultStrategy Strategy `json:"default_strategy"`
	DefaultDuration int      `json:"default_duration"` // minutes, for imports without a marker
	AgingRate       float64  `json:"aging_rate"`       // effective-priority points per day of age
}

func DefaultSettings() Settings {
	return Settings{
		DefaultStrategy: StrategyPriority,
		DefaultDuration: 30,
		AgingRate:       2,
	}
}

// QueueTask is a backlog task with its derived ranking fields. The
// derived fields are recomputed on every read and never persisted.
type QueueTask struct {
	plan.Task
	EffectivePriority float64 `json:"-"`
	AgeDays           int     `json:"-"`
}

// Service owns backlog task records. All mutations read-modify-write
// the whole queue-tasks collection record.
type Service struct {
	kv  kv.Store
	now func() time.Time
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store kv.Store, opts ...ServiceOption) *Service {
	s := &Service{kv: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings reads the persisted queue settings, falling back to
// defaults field by field.
func (s *Service) Settings() (Settings, error) {
	raw, err := s.kv.Get(settingsKey)
	if err != nil {
		return Settings{}, fmt.Errorf("read queue settings: %w", err)
	}
	settings := DefaultSettings()
	if raw == nil {
		return settings, nil
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return Settings{}, fmt.Errorf("decode queue settings: %w", err)
	}
	if settings.DefaultStrategy == "" {
		settings.DefaultStrategy = StrategyPriority
	}
	if settings.DefaultDuration <= 0 {
		settings.DefaultDuration = DefaultSettings().DefaultDuration
	}
	if settings.AgingRate <= 0 {
		settings.AgingRate = DefaultSettings().AgingRate
	}
	return settings, nil
}

func (s *Service) SaveSettings(settings Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode queue settings: %w", err)
	}
	return s.kv.Set(settingsKey, raw)
}

func (s *Service) load() ([]plan.Task, error) {
	raw, err := s.kv.Get(tasksKey)
	if err != nil {
		return nil, fmt.Errorf("read backlog: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var tasks []plan.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, fmt.Errorf("decode backlog: %w", err)
	}
	return tasks, nil
}

func (s *Service) save(tasks []plan.Task) error {
	raw, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode backlog: %w", err)
	}
	return s.kv.Set(tasksKey, raw)
}

// decorate attaches the derived ranking fields.
func (s *Service) decorate(t plan.Task, settings Settings) QueueTask {
	age := int(s.now().UTC().Sub(t.CreatedAt.UTC()).Hours() / 24)
	if age < 0 {
		age = 0
	}
	return QueueTask{
		Task:              t,
		AgeDays:           age,
		EffectivePriority: priorityWeights[t.Priority] + float64(age)*settings.AgingRate,
	}
}

// List returns every backlog record with derived fields, newest last.
func (s *Service) List() ([]QueueTask, error) {
	tasks, err := s.load()
	if err != nil {
		return nil, err
	}
	settings, err := s.Settings()
	if err != nil {
		return nil, err
	}
	out := make([]QueueTask, len(tasks))
	for i, t := range tasks {
		out[i] = s.decorate(t, settings)
	}
	return out, nil
}

// Pending returns only tasks still waiting in the backlog.
func (s *Service) Pending() ([]QueueTask, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []QueueTask
	for _, t := range all {
		if t.Status == plan.TaskBacklog {
			out = append(out, t)
		}
	}
	return out, nil
}

// Get returns a task by ID, or nil when absent.
func (s *Service) Get(id string) (*QueueTask, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, nil
}

// Add creates a backlog task from a title and attributes. Duration is
// block-rounded; priority defaults to medium.
func (s *Service) Add(title string, duration int, priority plan.Priority, frog bool, source plan.TaskSource) (*QueueTask, error) {
	if priority == "" {
		priority = plan.PriorityMedium
	}
	now := s.now().UTC()
	task := plan.Task{
		ID:        uuid.NewString(),
		Title:     title,
		Duration:  plan.RoundToBlock(duration),
		Priority:  priority,
		Frog:      frog,
		Source:    source,
		Status:    plan.TaskBacklog,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tasks, err := s.load()
	if err != nil {
		return nil, err
	}
	tasks = append(tasks, task)
	if err := s.save(tasks); err != nil {
		return nil, err
	}
	settings, err := s.Settings()
	if err != nil {
		return nil, err
	}
	qt := s.decorate(task, settings)
	return &qt, nil
}

// Update applies a patch to a stored task. Returns false when absent.
func (s *Service) Update(id string, patch plan.TaskPatch) (bool, error) {
	tasks, err := s.load()
	if err != nil {
		return false, err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			patch.Apply(&tasks[i])
			return true, s.save(tasks)
		}
	}
	return false, nil
}

// Complete marks a task done and stamps CompletedAt.
func (s *Service) Complete(id string) (bool, error) {
	done := plan.TaskCompleted
	at := s.now().UTC()
	return s.Update(id, plan.TaskPatch{Status: &done, CompletedAt: &at})
}

// Discard drops a task from consideration without deleting its record.
func (s *Service) Discard(id string) (bool, error) {
	discarded := plan.TaskDiscarded
	return s.Update(id, plan.TaskPatch{Status: &discarded})
}

// Delete removes the record entirely. Returns false when absent.
func (s *Service) Delete(id string) (bool, error) {
	tasks, err := s.load()
	if err != nil {
		return false, err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			tasks = append(tasks[:i], tasks[i+1:]...)
			return true, s.save(tasks)
		}
	}
	return false, nil
}

// MarkScheduled flags a backlog task as placed into a session.
func (s *Service) MarkScheduled(id string) (bool, error) {
	scheduled := plan.TaskScheduled
	return s.Update(id, plan.TaskPatch{Status: &scheduled})
}

// AddScheduled records session-built tasks in the backlog as already
// scheduled, preserving traceability from backlog entry to placement.
// Tasks that originated in the backlog are updated in place; anything
// else (split parts, ad-hoc work) gets a fresh record.
func (s *Service) AddScheduled(built []plan.Task) error {
	tasks, err := s.load()
	if err != nil {
		return err
	}
	index := make(map[string]int, len(tasks))
	for i := range tasks {
		index[tasks[i].ID] = i
	}
	now := s.now().UTC()
	for _, t := range built {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.Status = plan.TaskScheduled
		if t.Source == "" {
			t.Source = plan.SourceGenerated
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
		if i, ok := index[t.ID]; ok {
			tasks[i] = t
			continue
		}
		tasks = append(tasks, t)
	}
	return s.save(tasks)
}

// AddResidue creates fresh backlog tasks from unfinished session work
// and returns their new IDs.
func (s *Service) AddResidue(unfinished []plan.Task) ([]string, error) {
	tasks, err := s.load()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	ids := make([]string, 0, len(unfinished))
	for _, t := range unfinished {
		fresh := plan.Task{
			ID:        uuid.NewString(),
			Title:     t.Title,
			Duration:  t.Duration,
			Priority:  t.Priority,
			Frog:      t.Frog,
			DueDate:   t.DueDate,
			Tags:      t.Tags,
			Source:    plan.SourceResidue,
			Status:    plan.TaskBacklog,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if fresh.Priority == "" {
			fresh.Priority = plan.PriorityMedium
		}
		tasks = append(tasks, fresh)
		ids = append(ids, fresh.ID)
	}
	if err := s.save(tasks); err != nil {
		return nil, err
	}
	return ids, nil
}

// sortStable orders tasks deterministically: the given less function
// first, then CreatedAt, then ID.
func sortStable(tasks []QueueTask, less func(a, b QueueTask) int) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if c := less(tasks[i], tasks[j]); c != 0 {
			return c < 0
		}
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}
