package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Thiht/transactor"
	"github.com/benjamonnguyen/clockin-go"
	"github.com/benjamonnguyen/clockin-go/cmd/bot/models"
	"github.com/benjamonnguyen/clockin-go/i18n"
	"github.com/benjamonnguyen/clockin-go/sqlite"
	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
)

// User identifies who issued a command.
type User struct {
	ID, Name, Locale string
}

// Outcome is the state a command left the user in plus what to tell them.
type Outcome struct {
	State clockin.AttendanceState
	// Locale is the user's last known locale.
	Locale  string
	Reports []Report
}

type AttendanceManager interface {
	StartWork(context.Context, User) (Outcome, error)
	StartBreak(context.Context, User, clockin.BreakType) (Outcome, error)
	EndBreak(context.Context, User) (Outcome, error)
	RequestOffWork(context.Context, User) (Outcome, error)
	ConfirmOffWork(context.Context, User) (Outcome, error)
	CancelOffWork(context.Context, User) (Outcome, error)
	// Dispatch routes a parsed command to the matching operation.
	Dispatch(context.Context, User, clockin.Command) (Outcome, error)
	// Panel reports the current state without changing it.
	Panel(context.Context, User) Outcome
	RestoreSessions(context.Context) error
}

type attendanceManager struct {
	policy    clockin.ShiftPolicy
	baseURL   string
	clock     clockwork.Clock
	repo      clockin.SessionRepo
	tx        transactor.Transactor
	scheduler WarningScheduler
	monitor   MonitorController
	activity  ActivityLogger
	cache     *userSessionCache
	l         log.Logger
}

type attendanceDeps struct {
	Policy    clockin.ShiftPolicy
	BaseURL   string
	Clock     clockwork.Clock
	Repo      clockin.SessionRepo
	Tx        transactor.Transactor
	Scheduler WarningScheduler
	Monitor   MonitorController
	Activity  ActivityLogger
	Logger    log.Logger
}

func NewAttendanceManager(deps attendanceDeps) *attendanceManager {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	return &attendanceManager{
		policy:    deps.Policy,
		baseURL:   deps.BaseURL,
		clock:     deps.Clock,
		repo:      deps.Repo,
		tx:        deps.Tx,
		scheduler: deps.Scheduler,
		monitor:   deps.Monitor,
		activity:  deps.Activity,
		cache:     newUserSessionCache(),
		l:         deps.Logger,
	}
}

func (m *attendanceManager) Dispatch(ctx context.Context, u User, cmd clockin.Command) (Outcome, error) {
	switch cmd.Action {
	case clockin.ActionStartWork:
		return m.StartWork(ctx, u)
	case clockin.ActionStartBreak:
		return m.StartBreak(ctx, u, cmd.Break)
	case clockin.ActionEndBreak:
		return m.EndBreak(ctx, u)
	case clockin.ActionOffWork:
		return m.RequestOffWork(ctx, u)
	case clockin.ActionConfirmOffWork:
		return m.ConfirmOffWork(ctx, u)
	case clockin.ActionCancelOffWork:
		return m.CancelOffWork(ctx, u)
	default:
		return Outcome{}, fmt.Errorf("%w: unknown action %s", clockin.ErrInvalidTransition, cmd.Action)
	}
}

func (m *attendanceManager) StartWork(ctx context.Context, u User) (Outcome, error) {
	return m.withSession(ctx, u, func(s *models.UserSession, now time.Time) ([]Report, error) {
		if err := s.StartWork(now, m.policy.ShiftDay(now)); err != nil {
			return nil, err
		}

		late := m.policy.LateBy(now)
		detail := "On time"
		if late > 0 {
			detail = "Late by " + i18n.FormatDuration(i18n.WithLocale(ctx, "en"), late)
		}
		m.log(ctx, *s, clockin.ActivityStartWork, detail, now)

		return []Report{WorkStartedReport{
			Name:       s.Username(),
			At:         m.policy.Local(now),
			Late:       late,
			MonitorURL: clockin.MonitorURL(m.baseURL, s.UserID()),
		}}, nil
	})
}

func (m *attendanceManager) StartBreak(ctx context.Context, u User, t clockin.BreakType) (Outcome, error) {
	return m.withSession(ctx, u, func(s *models.UserSession, now time.Time) ([]Report, error) {
		if _, err := models.NextState(s.State(), clockin.ActionStartBreak); err != nil {
			return nil, err
		}
		if err := models.Eligible(m.policy, t, s.BreakCounts(), now); err != nil {
			return nil, err
		}

		m.signal(ctx, s.UserID(), SignalPause, m.monitor.Pause)
		n, err := s.StartBreak(t, now)
		if err != nil {
			return nil, err
		}
		m.armWarning(*s, now)
		m.log(ctx, *s, clockin.ActivityStartBreak(t), fmt.Sprintf("Break #%d", n), now)

		bp, _ := m.policy.Break(t)
		return []Report{BreakStartedReport{
			Break:  t,
			Number: n,
			At:     m.policy.Local(now),
			Policy: bp,
		}}, nil
	})
}

func (m *attendanceManager) EndBreak(ctx context.Context, u User) (Outcome, error) {
	return m.withSession(ctx, u, func(s *models.UserSession, now time.Time) ([]Report, error) {
		if _, err := models.NextState(s.State(), clockin.ActionEndBreak); err != nil {
			return nil, err
		}

		m.signal(ctx, s.UserID(), SignalResume, m.monitor.Resume)
		t, startedAt, err := s.EndBreak(now)
		if err != nil {
			return nil, err
		}
		m.scheduler.Disarm(s.UserID())

		elapsed := now.Sub(startedAt).Truncate(time.Second)
		bp, _ := m.policy.Break(t)
		report := BreakEndedReport{
			Break:      t,
			Elapsed:    elapsed,
			Over:       models.Overrun(m.policy, t, startedAt, now),
			OverWindow: bp.Allotment == 0 && bp.Window != nil,
		}
		m.log(ctx, *s, clockin.ActivityEndBreak(t), "Duration: "+i18n.FormatDuration(i18n.WithLocale(ctx, "en"), elapsed), now)
		return []Report{report}, nil
	})
}

func (m *attendanceManager) RequestOffWork(ctx context.Context, u User) (Outcome, error) {
	return m.withSession(ctx, u, func(s *models.UserSession, now time.Time) ([]Report, error) {
		if err := s.RequestOffWork(); err != nil {
			return nil, err
		}
		return []Report{CheckoutPromptReport{}}, nil
	})
}

func (m *attendanceManager) CancelOffWork(ctx context.Context, u User) (Outcome, error) {
	return m.withSession(ctx, u, func(s *models.UserSession, now time.Time) ([]Report, error) {
		if err := s.CancelOffWork(); err != nil {
			return nil, err
		}
		return []Report{CheckoutCancelledReport{}}, nil
	})
}

func (m *attendanceManager) ConfirmOffWork(ctx context.Context, u User) (Outcome, error) {
	return m.withSession(ctx, u, func(s *models.UserSession, now time.Time) ([]Report, error) {
		if _, err := models.NextState(s.State(), clockin.ActionConfirmOffWork); err != nil {
			return nil, err
		}

		m.signal(ctx, s.UserID(), SignalStop, m.monitor.Stop)
		before := *s
		summary, err := s.ConfirmOffWork(now)
		if err != nil {
			return nil, err
		}
		m.scheduler.Disarm(s.UserID())
		m.log(ctx, before, clockin.ActivityOffWork, "Worked: "+i18n.FormatDuration(i18n.WithLocale(ctx, "en"), summary.Worked), now)

		return []Report{ShiftEndedReport{
			Name:    s.Username(),
			At:      m.policy.Local(now),
			Summary: summary,
		}}, nil
	})
}

func (m *attendanceManager) Panel(ctx context.Context, u User) Outcome {
	out, _ := m.withSession(ctx, u, func(s *models.UserSession, now time.Time) ([]Report, error) {
		return []Report{PanelReport{
			State:          s.State(),
			WorkStartedAt:  m.policy.Local(s.WorkStartedAt()),
			BreakStartedAt: m.policy.Local(s.BreakStartedAt()),
			Break:          s.CurrentBreak(),
			Breaks:         s.BreakCounts(),
		}}, nil
	})
	return out
}

// withSession runs fn under the user's lock. A rejected command leaves the
// session untouched; an accepted one is persisted best-effort.
func (m *attendanceManager) withSession(
	ctx context.Context, u User,
	fn func(s *models.UserSession, now time.Time) ([]Report, error),
) (Outcome, error) {
	if u.ID == "" {
		return Outcome{}, fmt.Errorf("%w: missing user ID", clockin.ErrInvalidTransition)
	}
	s, unlock := m.cache.Get(u.ID, func() models.UserSession {
		return models.NewUserSession(u.ID, u.Name, u.Locale)
	})
	defer unlock()

	now := m.clock.Now()
	var reports []Report
	dirty := false
	if r, ok := m.rollover(ctx, s, now); ok {
		reports = append(reports, r)
		dirty = true
	}
	s.SetProfile(u.Name, u.Locale)

	before := *s
	more, err := fn(s, now)
	if err != nil {
		*s = before
		if dirty {
			m.persist(ctx, *s)
		}
		m.l.Debug("rejected command", "uid", u.ID, "state", s.State(), "err", err)
		return Outcome{State: s.State(), Locale: s.Locale(), Reports: reports}, err
	}
	if dirty || s.Record() != before.Record() {
		m.persist(ctx, *s)
	}
	return Outcome{State: s.State(), Locale: s.Locale(), Reports: append(reports, more...)}, nil
}

// rollover closes a session left open from a previous shift day.
func (m *attendanceManager) rollover(ctx context.Context, s *models.UserSession, now time.Time) (Report, bool) {
	if s.State() == clockin.StateIdle || s.ShiftDay() == m.policy.ShiftDay(now) {
		return nil, false
	}
	day := s.ShiftDay()
	m.signal(ctx, s.UserID(), SignalStop, m.monitor.Stop)
	m.scheduler.Disarm(s.UserID())
	before := *s
	summary := s.Close(now)
	m.log(ctx, before, clockin.ActivityAutoCheckout, "Shift "+day+" closed automatically", now)
	m.l.Info("closed stale session", "uid", s.UserID(), "shiftDay", day, "worked", summary.Worked)
	return AutoCheckoutReport{ShiftDay: day}, true
}

func (m *attendanceManager) armWarning(s models.UserSession, now time.Time) {
	t := s.CurrentBreak()
	delay, ok := models.WarningDelay(m.policy, t, s.BreakStartedAt())
	if !ok {
		return
	}
	delay -= now.Sub(s.BreakStartedAt())
	if delay <= 0 {
		return
	}

	w := Warning{
		UserID: s.UserID(),
		Locale: s.Locale(),
		Break:  t,
		Lead:   m.policy.WarningLead,
	}
	if bp, _ := m.policy.Break(t); bp.Allotment == 0 && bp.Window != nil {
		_, w.WindowEnd = bp.Window.Bounds(m.policy.Local(s.BreakStartedAt()))
	}
	if err := m.scheduler.Arm(s.UserID(), delay, w); err != nil {
		m.l.Error("failed to arm break warning", "uid", s.UserID(), "err", err)
	}
}

func (m *attendanceManager) signal(ctx context.Context, uid, sig string, send func(context.Context, string) error) {
	if err := send(ctx, uid); err != nil {
		m.l.Warn("monitoring signal not delivered", "uid", uid, "signal", sig, "err", err)
	}
}

func (m *attendanceManager) log(ctx context.Context, s models.UserSession, kind clockin.ActivityKind, detail string, now time.Time) {
	m.activity.Log(ctx, clockin.ActivityRecord{
		UserID:   s.UserID(),
		Username: s.Username(),
		Kind:     kind,
		Detail:   detail,
		At:       now,
	})
}

// persist saves the session, or deletes it once it is back to Idle.
func (m *attendanceManager) persist(ctx context.Context, s models.UserSession) {
	err := m.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if s.State() == clockin.StateIdle {
			_, err := m.repo.DeleteSession(ctx, s.UserID())
			if err != nil && !errors.Is(err, sqlite.ErrNotFound) {
				return err
			}
			return nil
		}
		_, err := m.repo.SaveSession(ctx, s.Record())
		return err
	})
	if err != nil {
		m.l.Error("failed to persist session", "uid", s.UserID(), "state", s.State(), "err", err)
	}
}

func (m *attendanceManager) RestoreSessions(ctx context.Context) error {
	var records []clockin.ExistingUserSessionRecord
	err := m.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		records, err = m.repo.GetSessions(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to restore sessions: %w", err)
	}

	now := m.clock.Now()
	var restored, closed int
	for _, r := range records {
		s, err := models.UserSessionFromRecord(r.UserSessionRecord)
		if err != nil {
			m.l.Error("skipped invalid session", "uid", r.UserID, "err", err)
			continue
		}

		if _, ok := m.rollover(ctx, &s, now); ok {
			m.persist(ctx, s)
			closed++
			continue
		}
		m.cache.Add(s)
		if s.OnBreak() {
			m.armWarning(s, now)
		}
		restored++
	}
	m.l.Info("restored sessions", "count", restored, "closed", closed)
	return nil
}

// Cache

type userSessionCache struct {
	cacheMu  sync.RWMutex
	sessions map[string]*models.UserSession
	locks    map[string]*sync.Mutex
}

func newUserSessionCache() *userSessionCache {
	return &userSessionCache{
		sessions: make(map[string]*models.UserSession),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Add installs sessions, replacing any cached for the same users.
func (c *userSessionCache) Add(sessions ...models.UserSession) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	for _, s := range sessions {
		if _, ok := c.locks[s.UserID()]; !ok {
			c.locks[s.UserID()] = &sync.Mutex{}
		}
		c.sessions[s.UserID()] = &s
	}
}

// Get returns the user's session locked, creating it with newSession if absent.
// Entries are never evicted so a lock, once handed out, stays valid.
func (c *userSessionCache) Get(userID string, newSession func() models.UserSession) (*models.UserSession, func()) {
	c.cacheMu.RLock()
	l, ok := c.locks[userID]
	c.cacheMu.RUnlock()

	if !ok {
		c.cacheMu.Lock()
		if l, ok = c.locks[userID]; !ok {
			s := newSession()
			l = &sync.Mutex{}
			c.locks[userID] = l
			c.sessions[userID] = &s
		}
		c.cacheMu.Unlock()
	}

	l.Lock()
	c.cacheMu.RLock()
	s := c.sessions[userID]
	c.cacheMu.RUnlock()
	return s, l.Unlock
}

func (c *userSessionCache) Has(userID string) bool {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	_, exists := c.locks[userID]
	return exists
}
