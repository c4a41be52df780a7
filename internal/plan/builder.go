package plan

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/charmbracelet/log"
)

const (
	defaultMaxAttempts = 10
	defaultRetryDelay  = 500 * time.Millisecond
)

// Materializer validates and externally materializes a proposed layout
// before it is persisted. Failures must be a *TransientError, a
// *BlockViolationError, or anything else (treated as fatal).
type Materializer interface {
	Materialize(ctx context.Context, date string, stories []StoryBlock) error
}

// MaterializerFunc adapts a function to the Materializer interface.
type MaterializerFunc func(ctx context.Context, date string, stories []StoryBlock) error

func (f MaterializerFunc) Materialize(ctx context.Context, date string, stories []StoryBlock) error {
	return f(ctx, date, stories)
}

// SessionWriter is the slice of the session store the builder needs.
// Delete backs out a just-written session when the commit cannot
// finish.
type SessionWriter interface {
	Put(s *Session) error
	Get(date string) (*Session, error)
	Delete(date string) (bool, error)
}

// BacklogWriter records the built session's tasks in the backlog as
// scheduled, preserving traceability from backlog entry to placement.
type BacklogWriter interface {
	AddScheduled(tasks []Task) error
}

// Builder assembles story blocks into a persisted session, repairing
// constraint violations by splitting tasks and inserting breaks until
// the layout is accepted or the retry budget runs out.
type Builder struct {
	sessions    SessionWriter
	backlog     BacklogWriter
	materialize Materializer
	logger      *log.Logger

	maxAttempts int
	retryDelay  time.Duration
	now         func() time.Time
}

// BuilderOption tunes a Builder.
type BuilderOption func(*Builder)

func WithMaterializer(m Materializer) BuilderOption {
	return func(b *Builder) { b.materialize = m }
}

func WithRetryDelay(d time.Duration) BuilderOption {
	return func(b *Builder) { b.retryDelay = d }
}

func WithMaxAttempts(n int) BuilderOption {
	return func(b *Builder) { b.maxAttempts = n }
}

func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

func NewBuilder(sessions SessionWriter, backlog BacklogWriter, logger *log.Logger, opts ...BuilderOption) *Builder {
	b := &Builder{
		sessions:    sessions,
		backlog:     backlog,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs the retry/reconciliation protocol and returns the
// persisted session. Nothing is persisted until a layout is accepted,
// so a failed build leaves no partial session behind.
func (b *Builder) Build(ctx context.Context, date string, stories []StoryBlock) (*Session, error) {
	date = NormalizeDate(date)

	if existing, err := b.sessions.Get(date); err != nil {
		return nil, fmt.Errorf("check existing session: %w", err)
	} else if existing != nil {
		return nil, fmt.Errorf("session for %s already exists", date)
	}

	// Proactive pass: oversized single tasks are the common failure
	// mode, so split before any external validation.
	stories = SplitForRetry(stories, nil)

	total := 0
	for i := range stories {
		total += stories[i].WorkDuration()
	}
	if total < MinDuration {
		return nil, fmt.Errorf("%w: total work %dm is below the %dm minimum", ErrMalformedInput, total, MinDuration)
	}
	if total%BlockSize != 0 {
		return nil, fmt.Errorf("%w: total work %dm is not a multiple of %dm", ErrMalformedInput, total, BlockSize)
	}

	tightening := map[string]int{}
	var lastErr error

	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		titles := titleIndex(stories)

		err := b.runMaterializer(ctx, date, stories)
		if err == nil {
			return b.commit(date, stories)
		}
		lastErr = err

		var transient *TransientError
		var violation *BlockViolationError
		switch {
		case errors.As(err, &transient):
			b.logger.Warn("transient materialize failure, retrying unchanged",
				"date", date, "attempt", attempt, "err", err)
		case errors.As(err, &violation):
			block, ok := titles[violation.Name]
			if !ok {
				block = violation.Name
			}
			tightening[block]++
			b.logger.Warn("structural violation, splitting block",
				"date", date, "attempt", attempt, "block", block, "tightening", tightening[block])
			stories = SplitForRetry(stories, &Violation{BlockTitle: block, Tightening: tightening[block]})
		default:
			return nil, fmt.Errorf("materialize session: %w", err)
		}

		if attempt < b.maxAttempts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.retryDelay):
			}
		}
	}

	return nil, fmt.Errorf("session build exhausted %d attempts: %w", b.maxAttempts, lastErr)
}

func (b *Builder) runMaterializer(ctx context.Context, date string, stories []StoryBlock) error {
	if b.materialize == nil {
		return nil
	}
	return b.materialize.Materialize(ctx, date, stories)
}

func (b *Builder) commit(date string, stories []StoryBlock) (*Session, error) {
	session := &Session{
		Date:        date,
		StoryBlocks: stories,
		Status:      StatusPlanned,
		UpdatedAt:   b.now().UTC(),
	}
	session.Recalc()

	if err := b.sessions.Put(session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	var tasks []Task
	for i := range stories {
		for _, box := range stories[i].TimeBoxes {
			if box.Type == BoxWork {
				tasks = append(tasks, box.Tasks...)
			}
		}
	}
	if b.backlog != nil && len(tasks) > 0 {
		if err := b.backlog.AddScheduled(tasks); err != nil {
			// Back the session out so a failed commit leaves nothing
			// persisted.
			if _, derr := b.sessions.Delete(date); derr != nil {
				b.logger.Error("roll back session after backlog failure",
					"date", date, "err", derr)
			}
			return nil, fmt.Errorf("record scheduled tasks: %w", err)
		}
	}

	b.logger.Info("session built", "date", date, "blocks", len(stories), "work_minutes", session.TotalDuration)
	return session, nil
}

var partSuffix = regexp.MustCompile(`^(.+) \(Part \d+ of \d+\)$`)

// titleIndex maps every block title and every task title — including
// split-generated "(Part k of N)" variants and their originals — back
// to the owning block, so violations reported against any title can be
// attributed during retries.
func titleIndex(stories []StoryBlock) map[string]string {
	idx := make(map[string]string)
	for i := range stories {
		block := stories[i].Title
		idx[block] = block
		for _, box := range stories[i].TimeBoxes {
			for _, task := range box.Tasks {
				title := task.Title
				idx[title] = block
				for {
					m := partSuffix.FindStringSubmatch(title)
					if m == nil {
						break
					}
					title = m[1]
					idx[title] = block
				}
			}
		}
	}
	return idx
}
