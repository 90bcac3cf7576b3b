package realtime

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TokenValidator validates a bearer token and returns the subject user ID.
type TokenValidator func(token string) (string, error)

// conn is a hub-side connection with a buffered send queue.
type conn struct {
	id     string
	userID string
	nc     net.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.nc.Close()
	})
}

// Hub accepts WebSocket connections at the monitoring endpoint and
// broadcasts bus events to every connected client as JSON frames.
type Hub struct {
	validate TokenValidator
	logger   zerolog.Logger

	mu    sync.RWMutex
	conns map[string]*conn
}

// NewHub creates a hub. validate guards the upgrade; nil disables auth
// (tests only).
func NewHub(validate TokenValidator, logger zerolog.Logger) *Hub {
	return &Hub{
		validate: validate,
		logger:   logger,
		conns:    make(map[string]*conn),
	}
}

// Run consumes the bus and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context, bus Bus) error {
	events, cancel, err := bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				h.closeAll()
				return nil
			}
			h.Broadcast(evt)
		}
	}
}

// Broadcast sends the event to every connected client. Clients with a
// full send queue have the event dropped rather than blocking the hub.
func (h *Hub) Broadcast(evt Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error().Err(err).Str("event", evt.Name).Msg("marshal realtime event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.conns {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn().Str("conn_id", c.id).Str("event", evt.Name).
				Msg("dropping event, client is slow")
		}
	}
}

// ConnectionCount returns the number of connected clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// ServeHTTP upgrades the request to a WebSocket connection. The access
// token is carried in the access_token query parameter, the same way
// browser WebSocket clients pass bearer tokens.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if h.validate != nil {
		token := r.URL.Query().Get("access_token")
		if token == "" {
			http.Error(w, "missing access token", http.StatusUnauthorized)
			return
		}
		uid, err := h.validate(token)
		if err != nil {
			http.Error(w, "invalid access token", http.StatusUnauthorized)
			return
		}
		userID = uid
	}

	nc, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &conn{
		id:     "con_" + uuid.New().String()[:22],
		userID: userID,
		nc:     nc,
		send:   make(chan []byte, 64),
		closed: make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()

	h.logger.Info().Str("conn_id", c.id).Str("user_id", userID).Msg("realtime client connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

// writeLoop drains the send queue onto the wire.
func (h *Hub) writeLoop(c *conn) {
	defer h.remove(c)

	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.send:
			if err := wsutil.WriteServerText(c.nc, payload); err != nil {
				return
			}
		}
	}
}

// readLoop consumes client frames. Clients only send control frames and
// pings; any read error means the connection is gone.
func (h *Hub) readLoop(c *conn) {
	defer h.remove(c)

	for {
		if _, err := wsutil.ReadClientText(c.nc); err != nil {
			return
		}
	}
}

func (h *Hub) remove(c *conn) {
	c.close()

	h.mu.Lock()
	_, present := h.conns[c.id]
	delete(h.conns, c.id)
	h.mu.Unlock()

	if present {
		h.logger.Info().Str("conn_id", c.id).Msg("realtime client disconnected")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[string]*conn)
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// Publisher is a convenience wrapper for components that emit events.
type Publisher struct {
	bus    Bus
	logger zerolog.Logger
}

// NewPublisher wraps a bus for fire-and-forget event publication.
func NewPublisher(bus Bus, logger zerolog.Logger) *Publisher {
	return &Publisher{bus: bus, logger: logger}
}

// Emit marshals and publishes a named event. Publication failures are
// logged, not returned: realtime events are best-effort.
func (p *Publisher) Emit(ctx context.Context, name string, data any) {
	evt, err := NewEvent(name, data)
	if err != nil {
		p.logger.Error().Err(err).Str("event", name).Msg("marshal event payload")
		return
	}
	if err := p.bus.Publish(ctx, evt); err != nil {
		p.logger.Warn().Err(err).Str("event", name).Msg("publish realtime event")
	}
}
