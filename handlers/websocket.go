package handlers

import (
	"net/http"
	"time"

	"github.com/plantCo2/water-device/logging"
	"github.com/plantCo2/water-device/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// FeedHandler streams newly ingested readings to UI clients.
type FeedHandler struct {
	mgr      *ws.Manager
	upgrader websocket.Upgrader
}

func NewFeedHandler(mgr *ws.Manager) *FeedHandler {
	return &FeedHandler{
		mgr: mgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleReadings upgrades to a websocket and keeps the subscriber
// registered until the client goes away.
// GET /ws/readings
func (h *FeedHandler) HandleReadings(c *gin.Context) {
	log := logging.Component("ws")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := h.mgr.Register(conn)
	log.Info("feed subscriber connected", "subscriber", id, "client", c.ClientIP())
	defer func() {
		h.mgr.Unregister(id)
		log.Info("feed subscriber disconnected", "subscriber", id)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	// The feed is one-way; reads only detect close and drive pong handling.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("feed read ended", "subscriber", id, "error", err)
			}
			return
		}
	}
}

// GetSubscribers GET /api/feed/subscribers
func (h *FeedHandler) GetSubscribers(c *gin.Context) {
	ids := h.mgr.List()
	c.JSON(http.StatusOK, gin.H{"subscribers": ids, "count": len(ids)})
}
