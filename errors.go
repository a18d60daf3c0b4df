package clockin

import (
	"errors"
	"fmt"
)

var (
	ErrPolicyDenied       = errors.New("break policy denied")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrChannelUnavailable = errors.New("monitoring channel unavailable")
	ErrSchedulerFailure   = errors.New("warning scheduler failure")
	ErrTransportFailure   = errors.New("transport failure")
)

var (
	ErrAlreadyStarted    = fmt.Errorf("%w: work already started", ErrInvalidTransition)
	ErrNotStarted        = fmt.Errorf("%w: work not started", ErrInvalidTransition)
	ErrAlreadyOnBreak    = fmt.Errorf("%w: already on break", ErrInvalidTransition)
	ErrNotOnBreak        = fmt.Errorf("%w: not on break", ErrInvalidTransition)
	ErrStillOnBreak      = fmt.Errorf("%w: still on break", ErrInvalidTransition)
	ErrNoPendingCheckout = fmt.Errorf("%w: no pending check-out", ErrInvalidTransition)
	ErrCheckoutPending   = fmt.Errorf("%w: check-out confirmation pending", ErrInvalidTransition)
)

type DenialReason uint8

const (
	_ DenialReason = iota
	QuotaExhausted
	OutsideWindow
)

func (r DenialReason) String() string {
	switch r {
	case QuotaExhausted:
		return "quota exhausted"
	case OutsideWindow:
		return "outside window"
	default:
		return "unknown"
	}
}

// PolicyDenial explains why a break could not be started.
type PolicyDenial struct {
	Break  BreakType
	Reason DenialReason
	Policy BreakPolicy
}

func (d *PolicyDenial) Error() string {
	switch d.Reason {
	case QuotaExhausted:
		return fmt.Sprintf("%s break: %s (max %d)", d.Break, d.Reason, d.Policy.MaxCount)
	case OutsideWindow:
		if d.Policy.Window != nil {
			return fmt.Sprintf("%s break: %s (%s)", d.Break, d.Reason, *d.Policy.Window)
		}
	}
	return fmt.Sprintf("%s break: %s", d.Break, d.Reason)
}

func (d *PolicyDenial) Unwrap() error {
	return ErrPolicyDenied
}
