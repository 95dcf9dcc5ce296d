// Package ws is the WebSocket transport for the real-time core: it
// authenticates upgrades, wraps each socket in a connection handle, and feeds
// decoded events to the dispatch router.
package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guildhub/guildhub/internal/event"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// ErrConnClosed is returned by Push after the connection has shut down.
var ErrConnClosed = errors.New("connection closed")

// ErrSlowConsumer is returned by Push when the outbound buffer is full; the
// event is dropped, durable storage is the retry mechanism.
var ErrSlowConsumer = errors.New("outbound buffer full, event dropped")

// Conn is one live client connection. A single writer goroutine drains the
// send channel, so pushes are delivered in the order they were enqueued.
type Conn struct {
	ws   *websocket.Conn
	send chan event.Outbound
	done chan struct{}
	once sync.Once
}

func newConn(wsConn *websocket.Conn) *Conn {
	return &Conn{
		ws:   wsConn,
		send: make(chan event.Outbound, sendBuffer),
		done: make(chan struct{}),
	}
}

// Push enqueues an outbound event. Never blocks: a closed connection or a
// full buffer returns an error and the event is dropped.
func (c *Conn) Push(ev event.Outbound) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- ev:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSlowConsumer
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// writeLoop is the single writer for the underlying socket.
func (c *Conn) writeLoop() {
	for {
		select {
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteJSON(ev); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
