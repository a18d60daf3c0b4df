package models

import (
	"fmt"
	"time"

	"github.com/benjamonnguyen/clockin-go"
)

// Eligible reports whether a break of type t may start at now given the breaks
// already taken this shift. A denial is a *clockin.PolicyDenial.
func Eligible(p clockin.ShiftPolicy, t clockin.BreakType, counts clockin.BreakCounts, now time.Time) error {
	bp, ok := p.Break(t)
	if !ok {
		return fmt.Errorf("%w: no policy for %s break", clockin.ErrPolicyDenied, t)
	}
	if counts.Get(t) >= bp.MaxCount {
		return &clockin.PolicyDenial{Break: t, Reason: clockin.QuotaExhausted, Policy: bp}
	}
	if bp.Window != nil && !bp.Window.Contains(p.Local(now).Truncate(time.Second)) {
		return &clockin.PolicyDenial{Break: t, Reason: clockin.OutsideWindow, Policy: bp}
	}
	return nil
}

// WarningDelay returns how long after startedAt the break warning should fire.
// ok is false when no warning applies.
func WarningDelay(p clockin.ShiftPolicy, t clockin.BreakType, startedAt time.Time) (time.Duration, bool) {
	bp, ok := p.Break(t)
	if !ok {
		return 0, false
	}
	switch {
	case bp.Allotment > 0:
		d := bp.Allotment - p.WarningLead
		if d < 0 {
			d = 0
		}
		return d, true
	case bp.Window != nil:
		local := p.Local(startedAt).Truncate(time.Second)
		_, end := bp.Window.Bounds(local)
		d := end.Sub(local) - p.WarningLead
		if d <= p.WarningLead {
			return 0, false
		}
		return d, true
	default:
		return 0, false
	}
}

// Overrun returns how far a break ending at endedAt went past its allotment or
// window end, or zero.
func Overrun(p clockin.ShiftPolicy, t clockin.BreakType, startedAt, endedAt time.Time) time.Duration {
	bp, ok := p.Break(t)
	if !ok {
		return 0
	}
	var over time.Duration
	switch {
	case bp.Allotment > 0:
		over = endedAt.Sub(startedAt) - bp.Allotment
	case bp.Window != nil:
		_, end := bp.Window.Bounds(p.Local(startedAt))
		over = endedAt.Sub(end)
	}
	if over < 0 {
		return 0
	}
	return over.Truncate(time.Second)
}
