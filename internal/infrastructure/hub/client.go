package hub

import (
	"sync"
	"time"

	"voxhub/internal/core/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client owns the write side of one websocket connection. All outbound
// events pass through a buffered channel drained by a single writer
// goroutine, so every recipient sees events in the order they were
// enqueued. The read side stays with the server's per-connection loop.
type Client struct {
	conn *websocket.Conn
	send chan domain.Event

	done      chan struct{}
	closeOnce sync.Once

	pingInterval time.Duration
	writeTimeout time.Duration

	logger *zap.SugaredLogger
}

func NewClient(conn *websocket.Conn, queueSize int, pingInterval, writeTimeout time.Duration, logger *zap.SugaredLogger) *Client {
	return &Client{
		conn:         conn,
		send:         make(chan domain.Event, queueSize),
		done:         make(chan struct{}),
		pingInterval: pingInterval,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Enqueue hands the event to the writer without blocking. A full queue
// means the connection cannot keep up; the event is dropped and the
// caller is told so.
func (c *Client) Enqueue(event domain.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// Close tears the connection down. Safe to call multiple times and from
// any goroutine; the write pump exits on the done signal.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// WritePump drains the send queue onto the wire and keeps the connection
// alive with periodic pings. Run exactly once, in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Debugw("write failed, closing connection", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debugw("ping failed, closing connection", "error", err)
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
