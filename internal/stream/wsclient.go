package stream

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// WSClient adapts a websocket connection to the Subscriber interface
// with a buffered send channel, so a slow peer never blocks Publish.
type WSClient struct {
	conn *websocket.Conn
	send chan []byte
	log  *slog.Logger
}

// NewWSClient wraps conn. Call ReadPump and WritePump on their own
// goroutines after subscribing.
func NewWSClient(conn *websocket.Conn, log *slog.Logger) *WSClient {
	return &WSClient{
		conn: conn,
		send: make(chan []byte, 256),
		log:  log,
	}
}

// Send queues data for delivery, dropping it when the peer is too slow
// to drain its buffer.
func (c *WSClient) Send(data []byte) {
	select {
	case c.send <- data:
	default:
		c.log.Debug("subscriber send buffer full, dropping message")
	}
}

// ReadPump consumes and discards client frames until the connection
// closes, keeping pong handling alive. onClose runs exactly once when
// the peer goes away.
func (c *WSClient) ReadPump(onClose func()) {
	defer func() {
		onClose()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump writes queued messages and periodic pings to the peer.
func (c *WSClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
