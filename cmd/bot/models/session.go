// Package models helps control struct access and mutation
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/benjamonnguyen/clockin-go"
)

// NextState is the attendance transition function. It is total over every
// (state, action) pair: each either yields the next state or an error wrapping
// clockin.ErrInvalidTransition.
func NextState(s clockin.AttendanceState, a clockin.Action) (clockin.AttendanceState, error) {
	switch a {
	case clockin.ActionStartWork:
		if s == clockin.StateIdle {
			return clockin.StateWorking, nil
		}
		return s, clockin.ErrAlreadyStarted
	case clockin.ActionStartBreak:
		switch s {
		case clockin.StateWorking:
			return clockin.StateOnBreak, nil
		case clockin.StateOnBreak:
			return s, clockin.ErrAlreadyOnBreak
		case clockin.StateAwaitingCheckout:
			return s, clockin.ErrCheckoutPending
		default:
			return s, clockin.ErrNotStarted
		}
	case clockin.ActionEndBreak:
		if s == clockin.StateOnBreak {
			return clockin.StateWorking, nil
		}
		return s, clockin.ErrNotOnBreak
	case clockin.ActionOffWork:
		switch s {
		case clockin.StateWorking, clockin.StateAwaitingCheckout:
			return clockin.StateAwaitingCheckout, nil
		case clockin.StateOnBreak:
			return s, clockin.ErrStillOnBreak
		default:
			return s, clockin.ErrNotStarted
		}
	case clockin.ActionConfirmOffWork:
		if s == clockin.StateAwaitingCheckout {
			return clockin.StateIdle, nil
		}
		return s, clockin.ErrNoPendingCheckout
	case clockin.ActionCancelOffWork:
		if s == clockin.StateAwaitingCheckout {
			return clockin.StateWorking, nil
		}
		return s, clockin.ErrNoPendingCheckout
	default:
		return s, fmt.Errorf("%w: unknown action %s", clockin.ErrInvalidTransition, a)
	}
}

type UserSession struct {
	record clockin.UserSessionRecord
}

func NewUserSession(userID, username, locale string) UserSession {
	if userID == "" {
		panic("missing user ID")
	}
	return UserSession{
		record: clockin.UserSessionRecord{
			UserID:   userID,
			Username: username,
			Locale:   locale,
			State:    clockin.StateIdle,
		},
	}
}

func UserSessionFromRecord(r clockin.UserSessionRecord) (UserSession, error) {
	s := UserSession{record: r}
	if err := s.Validate(); err != nil {
		return UserSession{}, err
	}
	return s, nil
}

func (s UserSession) Record() clockin.UserSessionRecord {
	return s.record
}

// Validate checks the break fields agree with the state.
func (s UserSession) Validate() error {
	r := s.record
	if r.UserID == "" {
		return errors.New("missing user ID")
	}
	onBreak := r.State == clockin.StateOnBreak
	if onBreak != (r.CurrentBreak != clockin.BreakNone) || onBreak != !r.BreakStartedAt.IsZero() {
		return fmt.Errorf("inconsistent break fields for state %s", r.State)
	}
	if r.State != clockin.StateIdle && r.WorkStartedAt.IsZero() {
		return fmt.Errorf("missing work start for state %s", r.State)
	}
	for _, t := range clockin.BreakTypes {
		if r.BreakCounts.Get(t) < 0 {
			return fmt.Errorf("negative %s count", t)
		}
	}
	return nil
}

func (s UserSession) UserID() string {
	return s.record.UserID
}

func (s UserSession) Username() string {
	return s.record.Username
}

func (s UserSession) Locale() string {
	return s.record.Locale
}

func (s UserSession) ShiftDay() string {
	return s.record.ShiftDay
}

func (s UserSession) State() clockin.AttendanceState {
	return s.record.State
}

func (s UserSession) OnBreak() bool {
	return s.record.State == clockin.StateOnBreak
}

func (s UserSession) CurrentBreak() clockin.BreakType {
	return s.record.CurrentBreak
}

func (s UserSession) BreakStartedAt() time.Time {
	return s.record.BreakStartedAt
}

func (s UserSession) WorkStartedAt() time.Time {
	return s.record.WorkStartedAt
}

func (s UserSession) BreakCounts() clockin.BreakCounts {
	return s.record.BreakCounts
}

func (s UserSession) TotalBreak() time.Duration {
	return s.record.TotalBreak
}

// SetProfile refreshes the display name and locale seen on the latest command.
func (s *UserSession) SetProfile(username, locale string) {
	if username != "" {
		s.record.Username = username
	}
	if locale != "" {
		s.record.Locale = locale
	}
}

func (s *UserSession) transition(a clockin.Action) error {
	next, err := NextState(s.record.State, a)
	if err != nil {
		return err
	}
	s.record.State = next
	return nil
}

func (s *UserSession) StartWork(now time.Time, shiftDay string) error {
	if err := s.transition(clockin.ActionStartWork); err != nil {
		return err
	}
	s.record.ShiftDay = shiftDay
	s.record.WorkStartedAt = now
	s.record.BreakCounts = clockin.BreakCounts{}
	s.record.TotalBreak = 0
	return nil
}

// StartBreak records a break of type t and returns its ordinal number in the shift.
// Eligibility must be checked beforehand.
func (s *UserSession) StartBreak(t clockin.BreakType, now time.Time) (int, error) {
	if t == clockin.BreakNone {
		return 0, fmt.Errorf("%w: missing break type", clockin.ErrInvalidTransition)
	}
	if err := s.transition(clockin.ActionStartBreak); err != nil {
		return 0, err
	}
	s.record.BreakCounts[t]++
	s.record.CurrentBreak = t
	s.record.BreakStartedAt = now
	return s.record.BreakCounts[t], nil
}

// EndBreak clears the active break and returns its type and start time.
func (s *UserSession) EndBreak(now time.Time) (clockin.BreakType, time.Time, error) {
	if err := s.transition(clockin.ActionEndBreak); err != nil {
		return clockin.BreakNone, time.Time{}, err
	}
	t, startedAt := s.record.CurrentBreak, s.record.BreakStartedAt
	if now.After(startedAt) {
		s.record.TotalBreak += now.Sub(startedAt)
	}
	s.record.CurrentBreak = clockin.BreakNone
	s.record.BreakStartedAt = time.Time{}
	return t, startedAt, nil
}

func (s *UserSession) RequestOffWork() error {
	return s.transition(clockin.ActionOffWork)
}

func (s *UserSession) CancelOffWork() error {
	return s.transition(clockin.ActionCancelOffWork)
}

type ShiftSummary struct {
	Worked, TotalBreak time.Duration
	Breaks             clockin.BreakCounts
}

// ConfirmOffWork ends the shift and resets the session to a fresh Idle one.
func (s *UserSession) ConfirmOffWork(now time.Time) (ShiftSummary, error) {
	if err := s.transition(clockin.ActionConfirmOffWork); err != nil {
		return ShiftSummary{}, err
	}
	summary := s.summary(now)
	s.reset()
	return summary, nil
}

// Close ends the shift regardless of state. Used when a session outlives its shift day.
func (s *UserSession) Close(now time.Time) ShiftSummary {
	if s.OnBreak() {
		_, _, _ = s.EndBreak(now)
	}
	summary := s.summary(now)
	s.reset()
	return summary
}

func (s UserSession) summary(now time.Time) ShiftSummary {
	summary := ShiftSummary{
		TotalBreak: s.record.TotalBreak,
		Breaks:     s.record.BreakCounts,
	}
	if !s.record.WorkStartedAt.IsZero() && now.After(s.record.WorkStartedAt) {
		summary.Worked = now.Sub(s.record.WorkStartedAt)
	}
	return summary
}

func (s *UserSession) reset() {
	*s = NewUserSession(s.record.UserID, s.record.Username, s.record.Locale)
}
