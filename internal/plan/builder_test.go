package plan

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	sessions map[string]*Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*Session{}}
}

func (f *fakeSessions) Put(s *Session) error {
	f.sessions[s.Date] = s
	return nil
}

func (f *fakeSessions) Get(date string) (*Session, error) {
	return f.sessions[date], nil
}

func (f *fakeSessions) Delete(date string) (bool, error) {
	if _, ok := f.sessions[date]; !ok {
		return false, nil
	}
	delete(f.sessions, date)
	return true, nil
}

type fakeBacklog struct {
	scheduled []Task
	err       error
}

func (f *fakeBacklog) AddScheduled(tasks []Task) error {
	if f.err != nil {
		return f.err
	}
	f.scheduled = append(f.scheduled, tasks...)
	return nil
}

// scriptedMaterializer returns its queued errors in order, then nil.
type scriptedMaterializer struct {
	errs  []error
	calls int
	seen  [][]StoryBlock
}

func (m *scriptedMaterializer) Materialize(_ context.Context, _ string, stories []StoryBlock) error {
	m.seen = append(m.seen, stories)
	m.calls++
	if len(m.errs) == 0 {
		return nil
	}
	err := m.errs[0]
	m.errs = m.errs[1:]
	return err
}

func testBuilder(t *testing.T, sessions *fakeSessions, backlog *fakeBacklog, opts ...BuilderOption) *Builder {
	t.Helper()
	logger := log.New(io.Discard)
	opts = append([]BuilderOption{WithRetryDelay(0)}, opts...)
	return NewBuilder(sessions, backlog, logger, opts...)
}

func TestBuildSuccessFirstAttempt(t *testing.T) {
	sessions := newFakeSessions()
	backlog := &fakeBacklog{}
	b := testBuilder(t, sessions, backlog)

	stories := []StoryBlock{block("Writing", workBox("Draft", 60))}
	sess, err := b.Build(context.Background(), "2026-05-01", stories)
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, "2026-05-01", sess.Date)
	assert.Equal(t, StatusPlanned, sess.Status)
	assert.Equal(t, 60, sess.TotalDuration)
	assert.NotNil(t, sessions.sessions["2026-05-01"])

	// Constituent tasks land in the backlog as scheduled.
	require.Len(t, backlog.scheduled, 1)
	assert.Equal(t, "Draft", backlog.scheduled[0].Title)
}

func TestBuildProactiveSplit(t *testing.T) {
	sessions := newFakeSessions()
	b := testBuilder(t, sessions, &fakeBacklog{})

	sess, err := b.Build(context.Background(), "2026-05-01",
		[]StoryBlock{block("Thesis", workBox("Chapter", 130))})
	require.NoError(t, err)

	// The oversized task was split before any validation.
	boxes := sess.StoryBlocks[0].TimeBoxes
	require.Len(t, boxes, 3)
	assert.Equal(t, BoxLongBreak, boxes[1].Type)
}

func TestBuildMalformedTotalNotBlockMultiple(t *testing.T) {
	b := testBuilder(t, newFakeSessions(), &fakeBacklog{})

	_, err := b.Build(context.Background(), "2026-05-01",
		[]StoryBlock{block("Odd", workBox("Task", 63))})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestBuildMalformedBelowMinimum(t *testing.T) {
	b := testBuilder(t, newFakeSessions(), &fakeBacklog{})

	_, err := b.Build(context.Background(), "2026-05-01", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestBuildExistingSessionRejected(t *testing.T) {
	sessions := newFakeSessions()
	sessions.sessions["2026-05-01"] = &Session{Date: "2026-05-01"}
	b := testBuilder(t, sessions, &fakeBacklog{})

	_, err := b.Build(context.Background(), "2026-05-01",
		[]StoryBlock{block("W", workBox("T", 30))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestBuildRetriesTransientUnchanged(t *testing.T) {
	sessions := newFakeSessions()
	m := &scriptedMaterializer{errs: []error{
		&TransientError{Err: errors.New("bad response format")},
		&TransientError{Err: errors.New("bad response format")},
	}}
	b := testBuilder(t, sessions, &fakeBacklog{}, WithMaterializer(m))

	sess, err := b.Build(context.Background(), "2026-05-01",
		[]StoryBlock{block("W", workBox("T", 30))})
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, 3, m.calls)
	// Transient retries do not change the proposal.
	assert.Equal(t, m.seen[0], m.seen[1])
	assert.Equal(t, m.seen[1], m.seen[2])
}

func TestBuildSplitsOnStructuralViolation(t *testing.T) {
	sessions := newFakeSessions()
	m := &scriptedMaterializer{errs: []error{
		&BlockViolationError{Name: "Deep Work", Err: errors.New("block too dense")},
	}}
	b := testBuilder(t, sessions, &fakeBacklog{}, WithMaterializer(m))

	sess, err := b.Build(context.Background(), "2026-05-01",
		[]StoryBlock{block("Deep Work", workBox("Design", 80))})
	require.NoError(t, err)

	// Second attempt saw the targeted split: 80 > 45 after one
	// tightening pass, so the block now holds multiple work boxes.
	require.Equal(t, 2, m.calls)
	work := 0
	for _, box := range sess.StoryBlocks[0].TimeBoxes {
		if box.Type == BoxWork {
			work++
		}
	}
	assert.Greater(t, work, 1)
}

func TestBuildViolationByPartTitleAttributed(t *testing.T) {
	sessions := newFakeSessions()
	// The validator names a generated part title, not the block.
	m := &scriptedMaterializer{errs: []error{
		&BlockViolationError{Name: "Chapter (Part 1 of 2)", Err: errors.New("overrun")},
	}}
	b := testBuilder(t, sessions, &fakeBacklog{}, WithMaterializer(m))

	sess, err := b.Build(context.Background(), "2026-05-01",
		[]StoryBlock{block("Thesis", workBox("Chapter", 130))})
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, 2, m.calls)

	// The tightened pass split the parts further.
	for _, box := range sess.StoryBlocks[0].TimeBoxes {
		if box.Type == BoxWork {
			assert.LessOrEqual(t, box.Duration, 45)
		}
	}
}

func TestBuildExhaustsBudgetAndSurfacesLastError(t *testing.T) {
	sessions := newFakeSessions()
	var errs []error
	for i := 0; i < 20; i++ {
		errs = append(errs, &TransientError{Err: errors.New("still parsing badly")})
	}
	m := &scriptedMaterializer{errs: errs}
	b := testBuilder(t, sessions, &fakeBacklog{}, WithMaterializer(m), WithMaxAttempts(3))

	_, err := b.Build(context.Background(), "2026-05-01",
		[]StoryBlock{block("W", workBox("T", 30))})
	require.Error(t, err)
	assert.Equal(t, 3, m.calls)
	assert.Contains(t, err.Error(), "3 attempts")
	// The triggering error's message survives, not a generic failure.
	assert.Contains(t, err.Error(), "still parsing badly")

	// No partial session is left persisted.
	assert.Empty(t, sessions.sessions)
}

func TestBuildRollsBackSessionOnBacklogFailure(t *testing.T) {
	sessions := newFakeSessions()
	backlog := &fakeBacklog{err: errors.New("backlog store closed")}
	b := testBuilder(t, sessions, backlog)

	_, err := b.Build(context.Background(), "2026-05-01",
		[]StoryBlock{block("W", workBox("T", 30))})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backlog store closed")

	// The session written just before the backlog failure is backed
	// out, so a failed commit persists nothing.
	assert.Empty(t, sessions.sessions)
}

func TestBuildFatalMaterializerError(t *testing.T) {
	m := &scriptedMaterializer{errs: []error{errors.New("disk on fire")}}
	b := testBuilder(t, newFakeSessions(), &fakeBacklog{}, WithMaterializer(m))

	_, err := b.Build(context.Background(), "2026-05-01",
		[]StoryBlock{block("W", workBox("T", 30))})
	require.Error(t, err)
	assert.Equal(t, 1, m.calls)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestBuildContextCancelledBetweenRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &scriptedMaterializer{errs: []error{
		&TransientError{Err: errors.New("flaky")},
	}}
	b := testBuilder(t, newFakeSessions(), &fakeBacklog{}, WithMaterializer(m))

	_, err := b.Build(ctx, "2026-05-01",
		[]StoryBlock{block("W", workBox("T", 30))})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTitleIndexCoversGeneratedTitles(t *testing.T) {
	stories := SplitForRetry([]StoryBlock{block("Thesis", workBox("Chapter", 130))}, nil)
	idx := titleIndex(stories)

	assert.Equal(t, "Thesis", idx["Thesis"])
	assert.Equal(t, "Thesis", idx["Chapter"])
	assert.Equal(t, "Thesis", idx["Chapter (Part 1 of 2)"])
	assert.Equal(t, "Thesis", idx["Chapter (Part 2 of 2)"])
}
