package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamonnguyen/clockin-go"
)

func TestMonitorRegistry(t *testing.T) {
	t.Parallel()

	t.Run("connect replaces and closes previous link", func(t *testing.T) {
		t.Parallel()
		r := NewMonitorRegistry()
		first, second := &mockLink{}, &mockLink{}

		r.Connect("42", first)
		r.Connect("42", second)
		assert.True(t, first.Closed())
		assert.False(t, second.Closed())

		require.NoError(t, r.Send("42", SignalPause))
		assert.Empty(t, first.Sent())
		assert.Equal(t, []string{SignalPause}, second.Sent())
	})

	t.Run("stale disconnect keeps newer link", func(t *testing.T) {
		t.Parallel()
		r := NewMonitorRegistry()
		stale, current := &mockLink{}, &mockLink{}
		r.Connect("42", stale)
		r.Connect("42", current)

		assert.False(t, r.Disconnect("42", stale))
		assert.True(t, r.IsConnected("42"))
		assert.True(t, r.Disconnect("42", current))
		assert.False(t, r.IsConnected("42"))
	})

	t.Run("send without link", func(t *testing.T) {
		t.Parallel()
		r := NewMonitorRegistry()
		assert.ErrorIs(t, r.Send("42", SignalPause), clockin.ErrChannelUnavailable)
		assert.ErrorIs(t, r.Close("42"), clockin.ErrChannelUnavailable)
	})

	t.Run("send failure", func(t *testing.T) {
		t.Parallel()
		r := NewMonitorRegistry()
		r.Connect("42", &mockLink{sendErr: errors.New("broken pipe")})
		assert.ErrorIs(t, r.Send("42", SignalResume), clockin.ErrChannelUnavailable)
	})

	t.Run("close all", func(t *testing.T) {
		t.Parallel()
		r := NewMonitorRegistry()
		a, b := &mockLink{}, &mockLink{}
		r.Connect("1", a)
		r.Connect("2", b)

		r.CloseAll()
		assert.True(t, a.Closed())
		assert.True(t, b.Closed())
		assert.False(t, r.IsConnected("1"))
		assert.False(t, r.IsConnected("2"))
	})
}

func TestMonitorController(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	newController := func() (*monitorController, *MonitorRegistry, *mockActivityLogger) {
		registry := NewMonitorRegistry()
		activity := &mockActivityLogger{}
		return NewMonitorController(registry, activity, clockwork.NewFakeClockAt(now), *log.Default()), registry, activity
	}

	t.Run("signals", func(t *testing.T) {
		t.Parallel()
		c, registry, _ := newController()
		link := &mockLink{}
		registry.Connect("42", link)

		require.NoError(t, c.Pause(ctx, "42"))
		require.NoError(t, c.Resume(ctx, "42"))
		require.NoError(t, c.Stop(ctx, "42"))

		assert.Equal(t, []string{SignalPause, SignalResume, SignalStop}, link.Sent())
		assert.True(t, link.Closed())
		assert.False(t, registry.IsConnected("42"))
		assert.ErrorIs(t, c.Pause(ctx, "42"), clockin.ErrChannelUnavailable)
	})

	t.Run("stop closes even when the signal fails", func(t *testing.T) {
		t.Parallel()
		c, registry, _ := newController()
		link := &mockLink{sendErr: errors.New("broken pipe")}
		registry.Connect("42", link)

		assert.ErrorIs(t, c.Stop(ctx, "42"), clockin.ErrChannelUnavailable)
		assert.True(t, link.Closed())
		assert.False(t, registry.IsConnected("42"))
	})

	t.Run("observe", func(t *testing.T) {
		t.Parallel()
		c, _, activity := newController()
		u := User{ID: "42", Name: "alice"}

		c.Observe(ctx, u, ObservationActive)
		c.Observe(ctx, u, " IDLE\n")
		c.Observe(ctx, u, "HELLO")

		assert.Equal(t, []clockin.ActivityKind{clockin.ActivityStatusActive, clockin.ActivityStatusIdle}, activity.Kinds())
		last := activity.Last()
		assert.Equal(t, clockin.ActivityRecord{
			UserID:   "42",
			Username: "alice",
			Kind:     clockin.ActivityStatusIdle,
			Detail:   "Webcam detected absence (unregistered break)",
			At:       now,
		}, last)
	})
}
