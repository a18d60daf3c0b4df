package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/benjamonnguyen/clockin-go"
	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
)

// monitoring protocol frames
const (
	SignalPause  = "PAUSE_MONITORING"
	SignalResume = "RESUME_MONITORING"
	SignalStop   = "STOP_MONITORING"

	ObservationActive = "ACTIVE"
	ObservationIdle   = "IDLE"
)

type MonitorController interface {
	Pause(ctx context.Context, userID string) error
	Resume(ctx context.Context, userID string) error
	// Stop signals the client and tears down its link.
	Stop(ctx context.Context, userID string) error
	// Observe records an inbound presence frame. It never changes attendance state.
	Observe(ctx context.Context, u User, frame string)
}

type monitorController struct {
	registry *MonitorRegistry
	activity ActivityLogger
	clock    clockwork.Clock
	l        log.Logger
}

func NewMonitorController(registry *MonitorRegistry, activity ActivityLogger, clock clockwork.Clock, logger log.Logger) *monitorController {
	return &monitorController{
		registry: registry,
		activity: activity,
		clock:    clock,
		l:        logger,
	}
}

func (c *monitorController) Pause(ctx context.Context, userID string) error {
	return c.signal(ctx, userID, SignalPause)
}

func (c *monitorController) Resume(ctx context.Context, userID string) error {
	return c.signal(ctx, userID, SignalResume)
}

func (c *monitorController) Stop(ctx context.Context, userID string) error {
	if err := c.signal(ctx, userID, SignalStop); err != nil {
		_ = c.registry.Close(userID)
		return err
	}
	if err := c.registry.Close(userID); err != nil {
		return fmt.Errorf("close monitoring link: %w", err)
	}
	return nil
}

func (c *monitorController) signal(ctx context.Context, userID, sig string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.registry.Send(userID, sig); err != nil {
		return err
	}
	c.l.Debug("sent monitoring signal", "uid", userID, "signal", sig)
	return nil
}

func (c *monitorController) Observe(ctx context.Context, u User, frame string) {
	var kind clockin.ActivityKind
	var detail string
	switch strings.TrimSpace(frame) {
	case ObservationActive:
		kind, detail = clockin.ActivityStatusActive, "Webcam detected presence"
	case ObservationIdle:
		kind, detail = clockin.ActivityStatusIdle, "Webcam detected absence (unregistered break)"
	default:
		c.l.Debug("ignored monitoring frame", "uid", u.ID, "frame", frame)
		return
	}
	c.activity.Log(ctx, clockin.ActivityRecord{
		UserID:   u.ID,
		Username: u.Name,
		Kind:     kind,
		Detail:   detail,
		At:       c.clock.Now(),
	})
}
