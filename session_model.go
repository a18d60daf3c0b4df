package clockin

import (
	"context"
	"fmt"
	"time"
)

type AttendanceState uint8

const (
	StateIdle AttendanceState = iota
	StateWorking
	StateOnBreak
	StateAwaitingCheckout
)

func (s AttendanceState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWorking:
		return "working"
	case StateOnBreak:
		return "on_break"
	case StateAwaitingCheckout:
		return "awaiting_checkout"
	default:
		return fmt.Sprintf("AttendanceState(%d)", uint8(s))
	}
}

type BreakType uint8

const (
	BreakNone BreakType = iota
	BreakToilet
	BreakEat
	BreakRest

	numBreakTypes = 4
)

// BreakTypes lists every startable break type in display order.
var BreakTypes = []BreakType{BreakToilet, BreakEat, BreakRest}

func (t BreakType) String() string {
	switch t {
	case BreakNone:
		return "none"
	case BreakToilet:
		return "toilet"
	case BreakEat:
		return "eat"
	case BreakRest:
		return "rest"
	default:
		return fmt.Sprintf("BreakType(%d)", uint8(t))
	}
}

func ParseBreakType(s string) (BreakType, error) {
	for _, t := range BreakTypes {
		if t.String() == s {
			return t, nil
		}
	}
	return BreakNone, fmt.Errorf("unknown break type: %q", s)
}

// BreakCounts holds breaks taken per type during the current shift.
type BreakCounts [numBreakTypes]int

func (c BreakCounts) Get(t BreakType) int {
	if int(t) >= len(c) {
		return 0
	}
	return c[t]
}

func (c BreakCounts) Total() int {
	var n int
	for _, t := range BreakTypes {
		n += c[t]
	}
	return n
}

type Action uint8

const (
	_ Action = iota
	ActionStartWork
	ActionStartBreak
	ActionEndBreak
	ActionOffWork
	ActionConfirmOffWork
	ActionCancelOffWork
)

func (a Action) String() string {
	switch a {
	case ActionStartWork:
		return "start_work"
	case ActionStartBreak:
		return "start_break"
	case ActionEndBreak:
		return "end_break"
	case ActionOffWork:
		return "off_work"
	case ActionConfirmOffWork:
		return "confirm_off_work"
	case ActionCancelOffWork:
		return "cancel_off_work"
	default:
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
}

type UserSessionRecord struct {
	UserID, Username string
	Locale           string
	ShiftDay         string // YYYY-MM-DD

	//
	State          AttendanceState
	WorkStartedAt  time.Time
	BreakStartedAt time.Time
	CurrentBreak   BreakType
	BreakCounts    BreakCounts
	TotalBreak     time.Duration
}

type ExistingUserSessionRecord struct {
	ExistingRecord[string]
	UserSessionRecord
}

type ActivityKind string

const (
	ActivityStartWork    ActivityKind = "start_work"
	ActivityOffWork      ActivityKind = "off_work"
	ActivityAutoCheckout ActivityKind = "auto_checkout"
	ActivityStatusActive ActivityKind = "status_active"
	ActivityStatusIdle   ActivityKind = "status_idle"
)

func ActivityStartBreak(t BreakType) ActivityKind {
	return ActivityKind("start_" + t.String())
}

func ActivityEndBreak(t BreakType) ActivityKind {
	return ActivityKind("end_" + t.String())
}

type ActivityID string

type ActivityRecord struct {
	UserID, Username string
	Kind             ActivityKind
	Detail           string
	At               time.Time
}

type ExistingActivityRecord struct {
	ExistingRecord[ActivityID]
	ActivityRecord
}

type SessionRepo interface {
	// SaveSession inserts or replaces the session stored for record.UserID.
	SaveSession(context.Context, UserSessionRecord) (ExistingUserSessionRecord, error)
	GetSession(ctx context.Context, userID string) (ExistingUserSessionRecord, error)
	GetSessions(context.Context) ([]ExistingUserSessionRecord, error)
	DeleteSession(ctx context.Context, userID string) (ExistingUserSessionRecord, error)
}

type ActivityRepo interface {
	InsertActivity(context.Context, ActivityRecord) (ExistingActivityRecord, error)
	// ListActivity returns up to limit most recent entries, newest first.
	ListActivity(ctx context.Context, limit int) ([]ExistingActivityRecord, error)
}
