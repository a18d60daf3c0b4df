package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benjamonnguyen/clockin-go"
	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
)

// Warning reminds a user that their break is about to run out.
type Warning struct {
	UserID string
	Locale string
	Break  clockin.BreakType
	Lead   time.Duration
	// WindowEnd is set when the break is bounded by its window rather than an allotment.
	WindowEnd time.Time
}

type Notifier interface {
	NotifyWarning(context.Context, Warning) error
}

type WarningScheduler interface {
	// Arm replaces any pending warning for userID.
	Arm(userID string, delay time.Duration, w Warning) error
	Disarm(userID string) bool
	Pending(userID string) bool
	Shutdown()
}

func warningName(userID string) string {
	return "break_warning_" + userID
}

type scheduledWarning struct {
	gen     uint64
	timer   clockwork.Timer
	fireAt  time.Time
	warning Warning
}

type warningScheduler struct {
	clock     clockwork.Clock
	notifier  Notifier
	parentCtx context.Context
	l         log.Logger

	mu      sync.Mutex
	gen     uint64
	pending map[string]*scheduledWarning
	closed  bool
	wg      sync.WaitGroup
}

func NewWarningScheduler(ctx context.Context, clock clockwork.Clock, notifier Notifier, logger log.Logger) *warningScheduler {
	return &warningScheduler{
		clock:     clock,
		notifier:  notifier,
		parentCtx: ctx,
		l:         logger,
		pending:   make(map[string]*scheduledWarning),
	}
}

func (s *warningScheduler) Arm(userID string, delay time.Duration, w Warning) error {
	if userID == "" {
		return fmt.Errorf("%w: missing user ID", clockin.ErrSchedulerFailure)
	}
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: scheduler is shut down", clockin.ErrSchedulerFailure)
	}

	s.disarmLocked(userID)
	s.gen++
	gen := s.gen
	s.pending[userID] = &scheduledWarning{
		gen:     gen,
		fireAt:  s.clock.Now().Add(delay),
		warning: w,
		timer: s.clock.AfterFunc(delay, func() {
			s.fire(userID, gen)
		}),
	}
	s.l.Debug("armed warning", "name", warningName(userID), "delay", delay, "gen", gen)
	return nil
}

func (s *warningScheduler) Disarm(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disarmLocked(userID)
}

func (s *warningScheduler) disarmLocked(userID string) bool {
	sw, ok := s.pending[userID]
	if !ok {
		return false
	}
	sw.timer.Stop()
	delete(s.pending, userID)
	s.l.Debug("disarmed warning", "name", warningName(userID), "gen", sw.gen)
	return true
}

func (s *warningScheduler) Pending(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[userID]
	return ok
}

func (s *warningScheduler) fire(userID string, gen uint64) {
	s.mu.Lock()
	sw, ok := s.pending[userID]
	if !ok || sw.gen != gen || s.closed {
		// superseded or disarmed after the timer had already fired
		s.mu.Unlock()
		return
	}
	delete(s.pending, userID)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(s.parentCtx, 10*time.Second)
	defer cancel()
	if err := s.notifier.NotifyWarning(ctx, sw.warning); err != nil {
		s.l.Warn("dropped break warning", "name", warningName(userID), "err", err)
		return
	}
	s.l.Info("delivered break warning", "uid", userID, "break", sw.warning.Break)
}

// Shutdown stops every pending timer and waits for in-flight deliveries.
func (s *warningScheduler) Shutdown() {
	s.mu.Lock()
	s.closed = true
	for userID := range s.pending {
		s.disarmLocked(userID)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
