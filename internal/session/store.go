// Package session persists sessions by calendar date and enforces the
// date-driven status lifecycle.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sadopc/timebox/internal/kv"
	"github.com/sadopc/timebox/internal/plan"
)

const keyPrefix = "session-"

// Store owns on-disk session records, keyed session-<YYYY-MM-DD>.
type Store struct {
	kv kv.Store
}

func NewStore(store kv.Store) *Store {
	return &Store{kv: store}
}

func key(date string) string {
	return keyPrefix + plan.NormalizeDate(date)
}

// Get returns the session for a date, or nil when absent.
func (s *Store) Get(date string) (*plan.Session, error) {
	raw, err := s.kv.Get(key(date))
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", date, err)
	}
	if raw == nil {
		return nil, nil
	}
	var sess plan.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", date, err)
	}
	return &sess, nil
}

// Put writes the whole session record, stamping UpdatedAt.
func (s *Store) Put(sess *plan.Session) error {
	sess.Date = plan.NormalizeDate(sess.Date)
	sess.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.Date, err)
	}
	if err := s.kv.Set(key(sess.Date), raw); err != nil {
		return fmt.Errorf("write session %s: %w", sess.Date, err)
	}
	return nil
}

// Patch applies a read-modify-write update to the stored record.
// Returns false when no session exists for the date.
func (s *Store) Patch(date string, patch plan.SessionPatch) (bool, error) {
	sess, err := s.Get(date)
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}
	patch.Apply(sess)
	return true, s.Put(sess)
}

// Delete removes the record permanently. Returns false when absent.
func (s *Store) Delete(date string) (bool, error) {
	sess, err := s.Get(date)
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}
	if err := s.kv.Delete(key(date)); err != nil {
		return false, fmt.Errorf("delete session %s: %w", date, err)
	}
	return true, nil
}

// Duplicate copies the session at from to the date to, resetting every
// box to todo and the status to planned. Returns nil when the source
// is absent.
func (s *Store) Duplicate(from, to string) (*plan.Session, error) {
	src, err := s.Get(from)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, nil
	}
	if existing, err := s.Get(to); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("session for %s already exists", to)
	}

	dup := *src
	dup.Date = plan.NormalizeDate(to)
	dup.Status = plan.StatusPlanned
	dup.StoryBlocks = make([]plan.StoryBlock, len(src.StoryBlocks))
	for i, block := range src.StoryBlocks {
		boxes := make([]plan.TimeBox, len(block.TimeBoxes))
		for j, box := range block.TimeBoxes {
			box.Status = plan.BoxTodo
			box.ActualDuration = nil
			box.StartedAt = nil
			boxes[j] = box
		}
		block.TimeBoxes = boxes
		block.Recalc()
		dup.StoryBlocks[i] = block
	}
	dup.Recalc()

	if err := s.Put(&dup); err != nil {
		return nil, err
	}
	return &dup, nil
}

// ScheduleTask appends a backlog task to the session for date, into
// the block named blockTitle (created when missing), re-running the
// splitter so the layout keeps honoring the break constraints.
// Returns false when no session exists for the date.
func (s *Store) ScheduleTask(date, blockTitle string, task plan.Task) (bool, error) {
	sess, err := s.Get(date)
	if err != nil {
		return false, err
	}
	if sess == nil {
		return false, nil
	}

	task.Status = plan.TaskScheduled
	box := plan.TimeBox{
		Type:     plan.BoxWork,
		Duration: task.Duration,
		Status:   plan.BoxTodo,
		Tasks:    []plan.Task{task},
	}

	placed := false
	for i := range sess.StoryBlocks {
		if sess.StoryBlocks[i].Title == blockTitle {
			sess.StoryBlocks[i].TimeBoxes = append(sess.StoryBlocks[i].TimeBoxes, box)
			sess.StoryBlocks[i].TaskIDs = append(sess.StoryBlocks[i].TaskIDs, task.ID)
			placed = true
			break
		}
	}
	if !placed {
		sess.StoryBlocks = append(sess.StoryBlocks, plan.StoryBlock{
			ID:        task.ID,
			Title:     blockTitle,
			TimeBoxes: []plan.TimeBox{box},
			TaskIDs:   []string{task.ID},
		})
	}

	sess.StoryBlocks = plan.SplitForRetry(sess.StoryBlocks, nil)
	sess.Recalc()
	return true, s.Put(sess)
}

// Dates lists every stored session date in ascending order.
func (s *Store) Dates() ([]string, error) {
	keys, err := s.kv.ListKeysWithPrefix(keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	dates := make([]string, len(keys))
	for i, k := range keys {
		dates[i] = k[len(keyPrefix):]
	}
	return dates, nil
}

// Range returns sessions with from <= date <= to, in date order.
func (s *Store) Range(from, to string) ([]*plan.Session, error) {
	from, to = plan.NormalizeDate(from), plan.NormalizeDate(to)
	dates, err := s.Dates()
	if err != nil {
		return nil, err
	}
	var out []*plan.Session
	for _, d := range dates {
		if d < from || d > to {
			continue
		}
		sess, err := s.Get(d)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			out = append(out, sess)
		}
	}
	return out, nil
}

// All returns every stored session in date order.
func (s *Store) All() ([]*plan.Session, error) {
	dates, err := s.Dates()
	if err != nil {
		return nil, err
	}
	out := make([]*plan.Session, 0, len(dates))
	for _, d := range dates {
		sess, err := s.Get(d)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			out = append(out, sess)
		}
	}
	return out, nil
}
