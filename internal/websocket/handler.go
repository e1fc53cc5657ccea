package websocket

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"livegate/internal/gateway"
	"livegate/internal/identity"
	"livegate/internal/observability"
	viewerreg "livegate/internal/registry"
	"livegate/pkg/interfaces"
	"livegate/pkg/types"
)

// WebSocket upgrader with production-ready settings
// FUNCTIONAL DISCOVERY: Allow all origins for development; production
// deployments should implement stricter origin checking
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Options tunes per-connection behavior.
type Options struct {
	ReadTimeout    time.Duration // read deadline, refreshed on pong
	PingInterval   time.Duration // heartbeat cadence
	WriteTimeout   time.Duration // per-write deadline on the socket
	BufferSize     int           // outbound queue depth per connection
	MessageTimeout time.Duration // budget for processing one inbound message
}

// DefaultOptions returns the handler defaults.
func DefaultOptions() Options {
	return Options{
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		WriteTimeout:   5 * time.Second,
		BufferSize:     100,
		MessageTimeout: 10 * time.Second,
	}
}

// Handler owns the connection lifecycle: connect-time authentication and
// binding, the read pump that feeds the action router, and disconnect
// cleanup so no viewer row outlives its connection.
type Handler struct {
	registry *Registry
	store    interfaces.Store
	tokens   *identity.TokenService
	router   *gateway.Router
	viewers  *viewerreg.Viewers
	limiter  interfaces.Limiter
	metrics  *observability.Metrics
	opts     Options
}

// NewHandler creates a WebSocket handler with dependency injection.
func NewHandler(
	registry *Registry,
	store interfaces.Store,
	tokens *identity.TokenService,
	router *gateway.Router,
	viewers *viewerreg.Viewers,
	limiter interfaces.Limiter,
	metrics *observability.Metrics,
	opts Options,
) *Handler {
	return &Handler{
		registry: registry,
		store:    store,
		tokens:   tokens,
		router:   router,
		viewers:  viewers,
		limiter:  limiter,
		metrics:  metrics,
		opts:     opts,
	}
}

// HandleWebSocket authenticates the connect token, upgrades the connection,
// creates the identity binding, and starts the read pump.
// ARCHITECTURAL DISCOVERY: Multi-stage setup (token -> upgrade -> binding ->
// registration) ensures invalid connections never consume gateway resources.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing required query parameter: token", http.StatusBadRequest)
		return
	}

	profile, err := h.tokens.Validate(token)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	// Upgrade after validation prevents resource waste on invalid requests
	// while still providing proper HTTP error responses.
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	// FUNCTIONAL DISCOVERY: Server-generated handles keep the identifier
	// opaque to clients, so a client can never speak for another connection.
	handle := uuid.New().String()
	conn := NewConn(handle, profile.ID, wsConn, h.opts.BufferSize, h.opts.WriteTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.MessageTimeout)
	defer cancel()

	if err := h.store.UpsertUser(ctx, profile); err != nil {
		log.Printf("Failed to upsert user %s: %v", profile.ID, err)
		_ = conn.Close()
		return
	}
	if err := h.store.BindConnection(ctx, handle, profile.ID); err != nil {
		log.Printf("Failed to bind connection %s: %v", handle, err)
		_ = conn.Close()
		return
	}
	if err := h.registry.Register(conn); err != nil {
		log.Printf("Failed to register connection %s: %v", handle, err)
		_ = conn.Close()
		return
	}

	h.metrics.ConnectionOpened()
	log.Printf("Connection established: handle=%s user=%s", handle, profile.ID)

	go h.readPump(conn)
}

// readPump reads inbound messages and runs them through the action router,
// writing the direct ack or error back to the originating connection.
// ARCHITECTURAL DISCOVERY: One goroutine per connection handles heartbeat and
// reads; each message is an independent unit of work with its own timeout.
func (h *Handler) readPump(conn *Conn) {
	defer h.teardown(conn)

	if err := conn.conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.opts.ReadTimeout))
	})

	// Heartbeat ticker keeps its own goroutine so ping cadence is independent
	// of message processing.
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(h.opts.WriteTimeout)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error on %s: %v", conn.Handle(), err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		h.processMessage(conn, data)
	}
}

// processMessage dispatches one inbound message and writes the response.
func (h *Handler) processMessage(conn *Conn, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.MessageTimeout)
	defer cancel()

	ack, err := h.router.Dispatch(ctx, conn.Handle(), data)
	if err != nil {
		// FUNCTIONAL DISCOVERY: The boundary converts the taxonomy to a
		// status class and generic message; internal detail never leaves.
		status := types.StatusFor(err)
		if status >= http.StatusInternalServerError {
			log.Printf("Dispatch failed for %s: %v", conn.Handle(), err)
		}
		errAck := &types.ErrorAck{Type: "error", Message: types.MessageFor(err), Status: status}
		if writeErr := conn.WriteJSON(errAck); writeErr != nil {
			log.Printf("Failed to write error ack to %s: %v", conn.Handle(), writeErr)
		}
		return
	}

	if writeErr := conn.WriteJSON(ack); writeErr != nil {
		log.Printf("Failed to write ack to %s: %v", conn.Handle(), writeErr)
	}
}

// teardown releases every resource tied to the connection.
// FUNCTIONAL DISCOVERY: Viewer rows, the identity binding, and rate-limit
// state all share the connection's lifetime; clearing them here is what keeps
// the session-scoped invariant true even on abrupt disconnects.
func (h *Handler) teardown(conn *Conn) {
	h.registry.Unregister(conn)
	_ = conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), h.opts.MessageTimeout)
	defer cancel()

	h.viewers.RemoveAllForHandle(ctx, conn.Handle())
	if err := h.store.UnbindConnection(ctx, conn.Handle()); err != nil {
		log.Printf("Failed to unbind connection %s: %v", conn.Handle(), err)
	}
	h.limiter.Release(conn.Handle())
	h.metrics.ConnectionClosed()
	log.Printf("Connection closed: handle=%s user=%s", conn.Handle(), conn.UserID())
}
