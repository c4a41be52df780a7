package session

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sadopc/timebox/internal/plan"
)

// archiveAfterDays: incomplete sessions older than this earn an
// info-level violation suggesting archival.
const archiveAfterDays = 30

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Violation codes.
const (
	CodeInvalidStatusForDate = "invalid-status-for-date"
	CodeStaleInProgress      = "stale-in-progress"
	CodeStaleIncomplete      = "stale-incomplete"
)

// Violation is a detected lifecycle rule breach. Violations are data,
// not errors: callers decide whether to apply the attached AutoFix.
// AutoFix is idempotent; only persistence failures propagate from it.
type Violation struct {
	Date     string
	Code     string
	Severity Severity
	Message  string
	AutoFix  func() error
}

// ResidueWriter receives unfinished tasks extracted at closeout.
type ResidueWriter interface {
	AddResidue(tasks []plan.Task) ([]string, error)
}

// Manager enforces which statuses a session may legally hold for its
// date and repairs records that drifted out of line.
type Manager struct {
	store   *Store
	residue ResidueWriter
	logger  *log.Logger
	now     func() time.Time
}

type ManagerOption func(*Manager)

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(store *Store, residue ResidueWriter, logger *log.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:   store,
		residue: residue,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LegalStatuses is the pure date-validity rule: future dates may only
// be planned; today may be planned, in-progress or completed; past
// dates may be completed, incomplete or archived.
func LegalStatuses(date string, now time.Time) []plan.SessionStatus {
	switch plan.CompareToToday(date, now) {
	case 1:
		return []plan.SessionStatus{plan.StatusPlanned}
	case 0:
		return []plan.SessionStatus{plan.StatusPlanned, plan.StatusInProgress, plan.StatusCompleted}
	default:
		return []plan.SessionStatus{plan.StatusCompleted, plan.StatusIncomplete, plan.StatusArchived}
	}
}

func statusLegal(status plan.SessionStatus, date string, now time.Time) bool {
	for _, s := range LegalStatuses(date, now) {
		if s == status {
			return true
		}
	}
	return false
}

// SuggestStatus recomputes the status a session should hold given its
// date and progress.
func (m *Manager) SuggestStatus(sess *plan.Session) plan.SessionStatus {
	now := m.now()
	if plan.CompareToToday(sess.Date, now) > 0 {
		return plan.StatusPlanned
	}
	if sess.AllWorkCompleted() {
		return plan.StatusCompleted
	}
	progress := sess.Progress()
	if plan.CompareToToday(sess.Date, now) < 0 {
		if progress > 0 {
			return plan.StatusIncomplete
		}
		return plan.StatusArchived
	}
	if progress > 0 {
		return plan.StatusInProgress
	}
	return plan.StatusPlanned
}

// Validate checks one session against the lifecycle rules and returns
// every violation found, each carrying an idempotent auto-fix.
func (m *Manager) Validate(sess *plan.Session) []Violation {
	now := m.now()
	var out []Violation

	if !statusLegal(sess.Status, sess.Date, now) {
		suggested := m.SuggestStatus(sess)
		date := sess.Date
		out = append(out, Violation{
			Date:     date,
			Code:     CodeInvalidStatusForDate,
			Severity: SeverityError,
			Message:  fmt.Sprintf("status %q is not legal for %s; suggest %q", sess.Status, date, suggested),
			AutoFix:  m.fixStatus(date, suggested),
		})
	}

	if sess.Status == plan.StatusInProgress && plan.CompareToToday(sess.Date, now) < 0 {
		date := sess.Date
		out = append(out, Violation{
			Date:     date,
			Code:     CodeStaleInProgress,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("session %s is still in-progress after its date", date),
			AutoFix:  m.fixStatus(date, plan.StatusIncomplete),
		})
	}

	if sess.Status == plan.StatusIncomplete {
		age := plan.DaysBetween(sess.Date, plan.DateOf(now))
		if age > archiveAfterDays {
			date := sess.Date
			out = append(out, Violation{
				Date:     date,
				Code:     CodeStaleIncomplete,
				Severity: SeverityInfo,
				Message:  fmt.Sprintf("session %s has been incomplete for %d days", date, age),
				AutoFix:  m.fixStatus(date, plan.StatusArchived),
			})
		}
	}

	return out
}

func (m *Manager) fixStatus(date string, status plan.SessionStatus) func() error {
	return func() error {
		ok, err := m.store.Patch(date, plan.SessionPatch{Status: &status})
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		m.logger.Info("lifecycle auto-fix applied", "date", date, "status", status)
		return nil
	}
}

// Sweep validates every stored session and applies error-severity
// fixes, in the order discovered per session. Warnings and infos are
// returned for the caller to act on but never auto-applied. Returns
// the number of transitions applied and the full violation list.
func (m *Manager) Sweep() (int, []Violation, error) {
	sessions, err := m.store.All()
	if err != nil {
		return 0, nil, err
	}

	applied := 0
	var all []Violation
	for _, sess := range sessions {
		violations := m.Validate(sess)
		for _, v := range violations {
			if v.Severity == SeverityError {
				if err := v.AutoFix(); err != nil {
					return applied, all, fmt.Errorf("auto-fix %s for %s: %w", v.Code, v.Date, err)
				}
				applied++
			}
		}
		all = append(all, violations...)
	}
	return applied, all, nil
}

// Closeout finalizes the session for a date: when extract is set,
// every task sitting in a non-completed work box is returned to the
// backlog as a fresh session-residue task; the session is then marked
// completed regardless of actual progress. Returns the new backlog
// task IDs, or nil when no session exists.
func (m *Manager) Closeout(date string, extract bool) ([]string, error) {
	sess, err := m.store.Get(date)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	var ids []string
	if extract && m.residue != nil {
		var unfinished []plan.Task
		for i := range sess.StoryBlocks {
			for _, box := range sess.StoryBlocks[i].TimeBoxes {
				if box.Type != plan.BoxWork || box.Status == plan.BoxCompleted {
					continue
				}
				unfinished = append(unfinished, box.Tasks...)
			}
		}
		if len(unfinished) > 0 {
			ids, err = m.residue.AddResidue(unfinished)
			if err != nil {
				return nil, fmt.Errorf("extract unfinished work: %w", err)
			}
		}
	}

	status := plan.StatusCompleted
	if _, err := m.store.Patch(date, plan.SessionPatch{Status: &status}); err != nil {
		return nil, err
	}
	m.logger.Info("session closed out", "date", date, "extracted", len(ids))
	return ids, nil
}

// Archive soft-terminates a session, keeping its data.
func (m *Manager) Archive(date string) (bool, error) {
	status := plan.StatusArchived
	return m.store.Patch(date, plan.SessionPatch{Status: &status})
}

// DeleteExperimental hard-deletes a session, allowed only for today or
// future dates; past sessions are history and may only be archived.
func (m *Manager) DeleteExperimental(date string) (bool, error) {
	if plan.CompareToToday(plan.NormalizeDate(date), m.now()) < 0 {
		return false, fmt.Errorf("refusing to delete past session %s; archive it instead", date)
	}
	return m.store.Delete(date)
}
