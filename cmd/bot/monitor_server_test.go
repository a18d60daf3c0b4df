package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamonnguyen/clockin-go"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockMonitorController records observed frames
type mockMonitorController struct {
	MonitorController
	observeFunc func(u User, frame string)
}

func (m *mockMonitorController) Observe(_ context.Context, u User, frame string) {
	m.observeFunc(u, frame)
}

func newTestMonitorServer(t *testing.T, usernames UsernameLookup) (*httptest.Server, *MonitorRegistry, chan string) {
	t.Helper()
	registry := NewMonitorRegistry()
	frames := make(chan string, 8)
	controller := &mockMonitorController{
		observeFunc: func(u User, frame string) {
			frames <- u.ID + "/" + u.Name + ":" + frame
		},
	}
	srv := httptest.NewServer(NewMonitorRouter(registry, controller, usernames, *log.Default()))
	t.Cleanup(func() {
		registry.CloseAll()
		srv.Close()
	})
	return srv, registry, frames
}

func dialMonitor(t *testing.T, srv *httptest.Server, uid string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user_id=" + uid
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMonitorServer_HTTP(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestMonitorServer(t, nil)

	for _, path := range []string{"/", "/health"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, healthText, string(body), path)
	}

	resp, err := http.Get(srv.URL + "/monitor.html")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "PAUSE_MONITORING")

	for _, q := range []string{"", "?user_id=", "?user_id=abc", "?user_id=-1"} {
		resp, err := http.Get(srv.URL + "/ws" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestMonitorServer_WebSocket(t *testing.T) {
	t.Parallel()
	srv, registry, frames := newTestMonitorServer(t, func(_ context.Context, uid string) (string, error) {
		return "alice", nil
	})

	conn := dialMonitor(t, srv, "42")
	require.Eventually(t, func() bool { return registry.IsConnected("42") }, time.Second, 5*time.Millisecond)

	// inbound frames are observed
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(ObservationActive)))
	select {
	case f := <-frames:
		assert.Equal(t, "42/alice:ACTIVE", f)
	case <-time.After(time.Second):
		t.Fatal("frame not observed")
	}

	// outbound signals reach the client
	require.NoError(t, registry.Send("42", SignalPause))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, SignalPause, string(msg))

	// closing from the server side ends the session
	require.NoError(t, registry.Close("42"))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "err: %v", err)
}

func TestMonitorServer_ReconnectReplacesLink(t *testing.T) {
	t.Parallel()
	srv, registry, frames := newTestMonitorServer(t, func(context.Context, string) (string, error) {
		return "", errors.New("unknown user")
	})

	first := dialMonitor(t, srv, "42")
	require.Eventually(t, func() bool { return registry.IsConnected("42") }, time.Second, 5*time.Millisecond)
	firstLink, _ := registry.Get("42")

	second := dialMonitor(t, srv, "42")
	require.Eventually(t, func() bool {
		link, ok := registry.Get("42")
		return ok && link != firstLink
	}, time.Second, 5*time.Millisecond)

	// the replaced client is closed; its read loop exiting must not unregister the new one
	require.NoError(t, first.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := first.ReadMessage()
	assert.Error(t, err)
	assert.Never(t, func() bool { return !registry.IsConnected("42") }, 100*time.Millisecond, 10*time.Millisecond)

	// name falls back to the id when the lookup fails
	require.NoError(t, second.WriteMessage(websocket.TextMessage, []byte(ObservationIdle)))
	select {
	case f := <-frames:
		assert.Equal(t, "42/42:IDLE", f)
	case <-time.After(time.Second):
		t.Fatal("frame not observed")
	}

	require.NoError(t, registry.Send("42", SignalStop))
	assert.ErrorIs(t, registry.Send("7", SignalStop), clockin.ErrChannelUnavailable)
}
