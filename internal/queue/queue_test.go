package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/timebox/internal/kv"
	"github.com/sadopc/timebox/internal/plan"
)

var testNow = time.Date(2026, 3, 15, 13, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mem, err := kv.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })
	return NewService(mem, WithClock(func() time.Time { return testNow }))
}

func TestAddDefaultsAndRounding(t *testing.T) {
	s := newTestService(t)

	task, err := s.Add("Write report", 47, "", false, plan.SourceManual)
	require.NoError(t, err)

	assert.Equal(t, 45, task.Duration, "duration rounds to the block size")
	assert.Equal(t, plan.PriorityMedium, task.Priority)
	assert.Equal(t, plan.TaskBacklog, task.Status)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, 0, task.AgeDays)
}

func TestGetAbsent(t *testing.T) {
	s := newTestService(t)
	task, err := s.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestUpdatePatchSemantics(t *testing.T) {
	s := newTestService(t)
	task, _ := s.Add("Original", 30, plan.PriorityLow, false, plan.SourceManual)

	title := "Renamed"
	frog := true
	ok, err := s.Update(task.ID, plan.TaskPatch{Title: &title, Frog: &frog})
	require.NoError(t, err)
	require.True(t, ok)

	got, _ := s.Get(task.ID)
	assert.Equal(t, "Renamed", got.Title)
	assert.True(t, got.Frog)
	// nil patch fields mean "no change", not "clear".
	assert.Equal(t, 30, got.Duration)
	assert.Equal(t, plan.PriorityLow, got.Priority)
}

func TestUpdateAbsent(t *testing.T) {
	s := newTestService(t)
	title := "x"
	ok, err := s.Update("nope", plan.TaskPatch{Title: &title})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompleteDiscardDelete(t *testing.T) {
	s := newTestService(t)
	a, _ := s.Add("A", 30, "", false, plan.SourceManual)
	b, _ := s.Add("B", 30, "", false, plan.SourceManual)
	c, _ := s.Add("C", 30, "", false, plan.SourceManual)

	ok, err := s.Complete(a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	got, _ := s.Get(a.ID)
	assert.Equal(t, plan.TaskCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	ok, _ = s.Discard(b.ID)
	require.True(t, ok)
	got, _ = s.Get(b.ID)
	assert.Equal(t, plan.TaskDiscarded, got.Status)

	ok, _ = s.Delete(c.ID)
	require.True(t, ok)
	got, _ = s.Get(c.ID)
	assert.Nil(t, got)

	// Completed and discarded tasks drop out of the pending backlog.
	pending, _ := s.Pending()
	assert.Empty(t, pending)
}

func TestEffectivePriorityAging(t *testing.T) {
	s := newTestService(t)
	old, _ := s.Add("Old chore", 30, plan.PriorityLow, false, plan.SourceManual)

	// Age the low-priority task 60 days.
	backdate(t, s, old.ID, testNow.AddDate(0, 0, -60))

	fresh, _ := s.Add("Fresh urgent-ish", 30, plan.PriorityHigh, false, plan.SourceManual)

	tasks, err := s.List()
	require.NoError(t, err)
	byID := map[string]QueueTask{}
	for _, task := range tasks {
		byID[task.ID] = task
	}

	// low(1) + 60*2 = 121 beats high(100) + 0.
	assert.Equal(t, 60, byID[old.ID].AgeDays)
	assert.InDelta(t, 121, byID[old.ID].EffectivePriority, 0.001)
	assert.InDelta(t, 100, byID[fresh.ID].EffectivePriority, 0.001)
	assert.Greater(t, byID[old.ID].EffectivePriority, byID[fresh.ID].EffectivePriority,
		"sufficiently old low-priority outranks fresh high-priority")
}

// backdate rewrites a task's CreatedAt directly through the service's
// whole-record load/save path.
func backdate(t *testing.T, s *Service, id string, created time.Time) {
	t.Helper()
	tasks, err := s.load()
	require.NoError(t, err)
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i].CreatedAt = created
		}
	}
	require.NoError(t, s.save(tasks))
}

func TestAddScheduledTraceability(t *testing.T) {
	s := newTestService(t)
	built := []plan.Task{
		{ID: "t1", Title: "Design (Part 1 of 2)", Duration: 45, Status: plan.TaskScheduled, Source: plan.SourceGenerated},
		{Title: "No id yet", Duration: 30},
	}
	require.NoError(t, s.AddScheduled(built))

	all, _ := s.List()
	require.Len(t, all, 2)
	for _, task := range all {
		assert.Equal(t, plan.TaskScheduled, task.Status)
		assert.NotEmpty(t, task.ID)
	}
}

func TestAddScheduledUpsertsExistingTask(t *testing.T) {
	s := newTestService(t)
	added, err := s.Add("From backlog", 45, plan.PriorityHigh, false, plan.SourceManual)
	require.NoError(t, err)

	require.NoError(t, s.AddScheduled([]plan.Task{added.Task}))

	all, _ := s.List()
	require.Len(t, all, 1, "scheduling a backlog task must not duplicate it")
	assert.Equal(t, plan.TaskScheduled, all[0].Status)
	assert.Equal(t, plan.SourceManual, all[0].Source)
}

func TestAddResidue(t *testing.T) {
	s := newTestService(t)
	ids, err := s.AddResidue([]plan.Task{
		{ID: "old-id", Title: "Unfinished", Duration: 30, Priority: plan.PriorityHigh, Frog: true},
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	got, _ := s.Get(ids[0])
	require.NotNil(t, got)
	assert.NotEqual(t, "old-id", got.ID, "residue tasks are fresh records")
	assert.Equal(t, plan.TaskBacklog, got.Status)
	assert.Equal(t, plan.SourceResidue, got.Source)
	assert.Equal(t, plan.PriorityHigh, got.Priority)
	assert.True(t, got.Frog)
}

func TestSettingsRoundTripAndDefaults(t *testing.T) {
	s := newTestService(t)

	settings, err := s.Settings()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings, "absent record falls back to defaults")

	settings.DefaultStrategy = StrategyBalanced
	settings.DefaultDuration = 20
	settings.AgingRate = 5
	require.NoError(t, s.SaveSettings(settings))

	got, err := s.Settings()
	require.NoError(t, err)
	assert.Equal(t, settings, got)
}
