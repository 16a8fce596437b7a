package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mr1hm/go-campus-sos/internal/broadcast"
	"github.com/mr1hm/go-campus-sos/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

// Hub upgrades HTTP connections and bridges each one to the broadcaster.
// Every connected observer gets its own subscription; frames are JSON
// events. No replay: observers sync via GET /api/sos after connecting.
type Hub struct {
	broadcaster *broadcast.Broadcaster
	upgrader    websocket.Upgrader
}

func NewHub(b *broadcast.Broadcaster) *Hub {
	return &Hub{
		broadcaster: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The dashboard is served cross-origin in development
				return true
			},
		},
	}
}

func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	id, events := h.broadcaster.Subscribe()
	slog.Info("observer connected", "subscriber_id", id, "remote", conn.RemoteAddr().String())

	c := &observer{
		id:   id,
		ws:   conn,
		hub:  h,
		done: make(chan struct{}),
	}

	go c.writePump(events)
	c.readPump()
}

type observer struct {
	id   uint64
	ws   *websocket.Conn
	hub  *Hub
	done chan struct{}
}

// readPump drains client frames to keep pong handling alive. Observers
// never send application data; a read error means the observer is gone.
func (c *observer) readPump() {
	defer func() {
		c.hub.broadcaster.Unsubscribe(c.id)
		close(c.done)
		c.ws.Close()
		slog.Info("observer disconnected", "subscriber_id", c.id)
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "subscriber_id", c.id, "error", err)
			}
			return
		}
	}
}

func (c *observer) writePump(events chan models.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case ev, ok := <-events:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Broadcaster shut down
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(ev); err != nil {
				slog.Debug("websocket write error", "subscriber_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
