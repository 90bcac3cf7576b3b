package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// SubscriberState is the connection state of a Subscriber.
type SubscriberState int32

// Subscriber states. Transitions: Connected -> Reconnecting ->
// (Connected | Disconnected).
const (
	StateDisconnected SubscriberState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s SubscriberState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// ErrReconnectExhausted is delivered to OnTerminal when the subscriber
// has used up its reconnect attempts.
var ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

// EventHandler receives the raw JSON payload of a named event.
type EventHandler func(data json.RawMessage)

// SubscriberConfig configures a Subscriber.
type SubscriberConfig struct {
	// URL is the hub endpoint, e.g. "wss://api.pulsewatch.io/hubs/monitoring".
	URL string

	// AccessToken is passed as the access_token query parameter.
	AccessToken string

	// MaxAttempts caps consecutive reconnect attempts. Default 5.
	MaxAttempts int

	// InitialBackoff is the first reconnect delay, doubled per attempt
	// up to MaxBackoff. Defaults 500ms / 30s.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// OnStateChange is invoked on every state transition. Optional.
	OnStateChange func(state SubscriberState)

	// OnTerminal is invoked once when the subscriber gives up for good,
	// after the state has moved to StateDisconnected. Optional.
	OnTerminal func(err error)
}

// Subscriber consumes events from the monitoring hub. Register handlers
// with On before calling Start; registering a second handler for the
// same event replaces the first.
type Subscriber struct {
	cfg SubscriberConfig

	mu       sync.Mutex
	handlers map[string]EventHandler
	state    SubscriberState
	conn     net.Conn
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSubscriber creates a Subscriber.
func NewSubscriber(cfg SubscriberConfig) *Subscriber {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Subscriber{
		cfg:      cfg,
		handlers: make(map[string]EventHandler),
		state:    StateDisconnected,
	}
}

// On registers a handler for a named event. Last write wins: a second
// registration for the same event replaces the first.
func (s *Subscriber) On(event string, handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = handler
}

// State returns the current connection state.
func (s *Subscriber) State() SubscriberState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start connects and begins dispatching events. It returns once the
// initial connection is established. Calling Start on a running
// subscriber is a no-op.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.notify(StateConnecting)

	runCtx, cancel := context.WithCancel(ctx)

	conn, err := s.dial(runCtx)
	if err != nil {
		cancel()
		s.setState(StateDisconnected)
		return fmt.Errorf("connect: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateConnected
	s.mu.Unlock()
	s.notify(StateConnected)

	go s.readLoop(runCtx)
	return nil
}

// Stop disconnects and stops dispatching. Calling Stop on a stopped
// subscriber is a no-op.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	conn := s.conn
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}
	s.setState(StateDisconnected)
}

func (s *Subscriber) dial(ctx context.Context) (net.Conn, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return nil, err
	}
	if s.cfg.AccessToken != "" {
		q := u.Query()
		q.Set("access_token", s.cfg.AccessToken)
		u.RawQuery = q.Encode()
	}

	conn, br, _, err := ws.Dial(ctx, u.String())
	if err != nil {
		return nil, err
	}
	// A non-nil reader holds frames the server wrote right after the
	// handshake. Keep those bytes ahead of the connection so they are
	// not lost.
	if br != nil {
		buffered := make([]byte, br.Buffered())
		if _, err := io.ReadFull(br, buffered); err != nil {
			_ = conn.Close()
			ws.PutReader(br)
			return nil, err
		}
		ws.PutReader(br)
		conn = &bufferedConn{Conn: conn, buf: buffered}
	}
	return conn, nil
}

// bufferedConn serves bytes buffered during the handshake before
// reading from the underlying connection.
type bufferedConn struct {
	net.Conn
	buf []byte
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	if len(c.buf) > 0 {
		n := copy(p, c.buf)
		c.buf = c.buf[n:]
		return n, nil
	}
	return c.Conn.Read(p)
}

// readLoop reads frames and dispatches them, reconnecting on failure
// until the attempt cap is hit.
func (s *Subscriber) readLoop(ctx context.Context) {
	defer close(s.doneCh())

	for {
		err := s.consume(ctx)
		s.closeConn()
		if ctx.Err() != nil {
			return
		}

		s.setState(StateReconnecting)
		if !s.reconnect(ctx) {
			s.setState(StateDisconnected)
			if ctx.Err() == nil && s.cfg.OnTerminal != nil {
				s.cfg.OnTerminal(fmt.Errorf("%w: last error: %v", ErrReconnectExhausted, err))
			}
			return
		}
		s.setState(StateConnected)
	}
}

// consume reads from the current connection until it fails.
func (s *Subscriber) consume(_ context.Context) error {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return errors.New("connection closed")
		}

		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			return err
		}

		var evt struct {
			Name string          `json:"event"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &evt); err != nil {
			continue
		}

		s.mu.Lock()
		handler := s.handlers[evt.Name]
		s.mu.Unlock()
		if handler != nil {
			handler(evt.Data)
		}
	}
}

// reconnect retries the dial with exponential backoff. Returns false
// once MaxAttempts consecutive attempts have failed or ctx is done.
func (s *Subscriber) reconnect(ctx context.Context) bool {
	delay := s.cfg.InitialBackoff

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		conn, err := s.dial(ctx)
		if err == nil {
			s.mu.Lock()
			s.conn = conn
			s.mu.Unlock()
			return true
		}

		delay *= 2
		if delay > s.cfg.MaxBackoff {
			delay = s.cfg.MaxBackoff
		}
	}
	return false
}

// closeConn releases the current connection, if any.
func (s *Subscriber) closeConn() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (s *Subscriber) doneCh() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Subscriber) setState(state SubscriberState) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()
	if changed {
		s.notify(state)
	}
}

func (s *Subscriber) notify(state SubscriberState) {
	if s.cfg.OnStateChange != nil {
		s.cfg.OnStateChange(state)
	}
}
