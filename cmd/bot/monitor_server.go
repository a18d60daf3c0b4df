package main

import (
	"context"
	_ "embed"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

//go:embed web/monitor.html
var monitorPage []byte

const healthText = "Health check: OK, I am alive!"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the monitor page may be served from another origin behind a proxy
	CheckOrigin: func(*http.Request) bool { return true },
}

// UsernameLookup resolves a display name for activity entries.
type UsernameLookup func(ctx context.Context, userID string) (string, error)

type monitorServer struct {
	registry   *MonitorRegistry
	controller MonitorController
	usernames  UsernameLookup
	l          log.Logger
}

// NewMonitorRouter serves the health check, the monitor page and the monitoring websocket.
func NewMonitorRouter(registry *MonitorRegistry, controller MonitorController, usernames UsernameLookup, logger log.Logger) *gin.Engine {
	s := &monitorServer{
		registry:   registry,
		controller: controller,
		usernames:  usernames,
		l:          logger,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/", s.health)
	r.GET("/health", s.health)
	r.GET("/monitor.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", monitorPage)
	})
	r.GET("/ws", s.websocket)
	return r
}

func NewMonitorServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *monitorServer) health(c *gin.Context) {
	c.String(http.StatusOK, healthText)
}

func (s *monitorServer) websocket(c *gin.Context) {
	uid := c.Query("user_id")
	if _, err := strconv.ParseUint(uid, 10, 64); err != nil {
		s.l.Error("rejected monitoring connection without a valid user_id", "user_id", uid)
		c.String(http.StatusBadRequest, "user_id is required.")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied
		s.l.Error("failed websocket upgrade", "uid", uid, "err", err)
		return
	}
	link := newWSLink(conn)
	s.registry.Connect(uid, link)
	s.l.Info("monitoring connected", "uid", uid)

	defer func() {
		s.registry.Disconnect(uid, link)
		_ = link.Close()
		s.l.Info("monitoring disconnected", "uid", uid)
	}()

	ctx := context.WithoutCancel(c.Request.Context())
	u := User{ID: uid, Name: uid}
	if s.usernames != nil {
		if name, err := s.usernames(ctx, uid); err != nil {
			s.l.Error("could not resolve username", "uid", uid, "err", err)
		} else {
			u.Name = name
		}
	}

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.l.Debug("monitoring read ended", "uid", uid, "err", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		s.l.Debug("received monitoring frame", "uid", uid, "frame", string(data))
		s.controller.Observe(ctx, u, string(data))
	}
}
