package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/benjamonnguyen/clockin-go"
	"github.com/gorilla/websocket"
)

// MonitorLink is a live channel to one user's monitoring client.
type MonitorLink interface {
	Send(msg string) error
	Close() error
}

// MonitorRegistry maps users to their monitoring link. A user has at most one link.
type MonitorRegistry struct {
	mu    sync.RWMutex
	links map[string]MonitorLink
}

func NewMonitorRegistry() *MonitorRegistry {
	return &MonitorRegistry{
		links: make(map[string]MonitorLink),
	}
}

// Connect registers link for userID, closing any link it replaces.
func (r *MonitorRegistry) Connect(userID string, link MonitorLink) {
	r.mu.Lock()
	prev := r.links[userID]
	r.links[userID] = link
	r.mu.Unlock()

	if prev != nil && prev != link {
		_ = prev.Close()
	}
}

// Disconnect unregisters link only if it is still the one registered for userID.
func (r *MonitorRegistry) Disconnect(userID string, link MonitorLink) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.links[userID] != link {
		return false
	}
	delete(r.links, userID)
	return true
}

func (r *MonitorRegistry) Get(userID string) (MonitorLink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	link, ok := r.links[userID]
	return link, ok
}

func (r *MonitorRegistry) IsConnected(userID string) bool {
	_, ok := r.Get(userID)
	return ok
}

func (r *MonitorRegistry) Send(userID, msg string) error {
	link, ok := r.Get(userID)
	if !ok {
		return fmt.Errorf("%w: no link for user %s", clockin.ErrChannelUnavailable, userID)
	}
	if err := link.Send(msg); err != nil {
		return fmt.Errorf("%w: %w", clockin.ErrChannelUnavailable, err)
	}
	return nil
}

// Close closes and unregisters the link for userID.
func (r *MonitorRegistry) Close(userID string) error {
	r.mu.Lock()
	link, ok := r.links[userID]
	delete(r.links, userID)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no link for user %s", clockin.ErrChannelUnavailable, userID)
	}
	return link.Close()
}

func (r *MonitorRegistry) CloseAll() {
	r.mu.Lock()
	links := r.links
	r.links = make(map[string]MonitorLink)
	r.mu.Unlock()
	for _, link := range links {
		_ = link.Close()
	}
}

// wsLink serializes writes to a websocket connection.
type wsLink struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

const wsWriteTimeout = 5 * time.Second

func newWSLink(conn *websocket.Conn) *wsLink {
	return &wsLink{conn: conn}
}

func (l *wsLink) Send(msg string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return l.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (l *wsLink) Close() error {
	l.closeOnce.Do(func() {
		l.writeMu.Lock()
		_ = l.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		l.writeMu.Unlock()
		l.closeErr = l.conn.Close()
	})
	return l.closeErr
}
