package websocket

import (
	"context"
	"log"
	"sync"

	"livegate/pkg/interfaces"
)

// Registry tracks live connections by handle with thread-safe operations.
// ARCHITECTURAL DISCOVERY: Pure connection management without business logic;
// it doubles as the delivery transport for fanout, which only needs the three
// outcomes success, gone, or transient error.
type Registry struct {
	mu          sync.RWMutex // TECHNICAL DISCOVERY: RWMutex optimizes for read-heavy fanout lookups
	connections map[string]*Conn
}

// NewRegistry creates a new connection registry.
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]*Conn),
	}
}

// Register adds a connection under its handle.
func (r *Registry) Register(conn *Conn) error {
	if conn == nil {
		return ErrNilConnection
	}
	if conn.Handle() == "" {
		return ErrEmptyHandle
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Handles are freshly generated uuids, but guard against replacement so a
	// stale goroutine can never leak a live socket.
	if existing, exists := r.connections[conn.Handle()]; exists && existing != conn {
		go func() {
			if err := existing.Close(); err != nil {
				log.Printf("Failed to close replaced connection: %v", err)
			}
		}()
	}

	r.connections[conn.Handle()] = conn
	return nil
}

// Unregister removes a connection. Idempotent, and only removes the exact
// instance currently registered so late cleanup cannot evict a replacement.
func (r *Registry) Unregister(conn *Conn) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	registered, exists := r.connections[conn.Handle()]
	if !exists || registered != conn {
		return
	}
	delete(r.connections, conn.Handle())
}

// Get returns the live connection for a handle.
func (r *Registry) Get(handle string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, exists := r.connections[handle]
	return conn, exists
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// Push implements interfaces.Deliverer over the live connection map.
// FUNCTIONAL DISCOVERY: An unknown or closed handle is the "gone" outcome
// that lets fanout treat it as an implicit leave; a full write buffer is a
// transient error so a slow peer is skipped, not pruned.
func (r *Registry) Push(ctx context.Context, handle string, payload []byte) error {
	conn, exists := r.Get(handle)
	if !exists {
		return interfaces.ErrConnectionGone
	}

	if err := conn.Write(ctx, payload); err != nil {
		if err == ErrConnectionClosed {
			return interfaces.ErrConnectionGone
		}
		return err
	}
	return nil
}
