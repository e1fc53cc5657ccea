package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn wraps one viewer's WebSocket connection.
// ARCHITECTURAL DISCOVERY: WebSocket writes must be serialized to prevent
// race conditions - a single writer goroutine drains a buffered channel so
// fanout pushes and direct acks never interleave on the wire.
type Conn struct {
	handle    string // opaque connection handle, immutable after creation
	userID    string // bound user id, immutable after creation
	conn      *websocket.Conn
	writeCh   chan []byte // FUNCTIONAL DISCOVERY: buffer absorbs fanout bursts on busy channels
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	writeTimeout time.Duration
}

// NewConn creates a connection wrapper and starts its writer goroutine.
func NewConn(handle, userID string, conn *websocket.Conn, bufferSize int, writeTimeout time.Duration) *Conn {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		handle:       handle,
		userID:       userID,
		conn:         conn,
		writeCh:      make(chan []byte, bufferSize),
		ctx:          ctx,
		cancel:       cancel,
		writeTimeout: writeTimeout,
	}

	go c.writeLoop()
	return c
}

// ARCHITECTURAL DISCOVERY: Single writer goroutine pattern eliminates races
func (c *Conn) writeLoop() {
	for {
		select {
		case data, ok := <-c.writeCh:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Write queues a pre-serialized payload for delivery, honoring ctx.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-ctx.Done():
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// WriteJSON marshals v and queues it for delivery.
func (c *Conn) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()
	return c.Write(ctx, data)
}

// Close tears the connection down exactly once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// Handle returns the opaque connection handle.
func (c *Conn) Handle() string {
	return c.handle
}

// UserID returns the bound user id.
func (c *Conn) UserID() string {
	return c.userID
}

// Closed reports whether the connection has been torn down.
func (c *Conn) Closed() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}
