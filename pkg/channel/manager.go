// Package channel manages the persistent WebSocket channel between a
// session participant and the remote classifier: connection lifecycle,
// typed message routing, application-level heartbeat, and automatic
// reconnection with capped backoff.
package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/internal/log"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/protocol"
)

// Default heartbeat cadence, matching the server's expectations.
const (
	defaultHeartbeatInterval = 15 * time.Second
	defaultPongTimeout       = 10 * time.Second
)

// Manager owns one live transport at a time and drives its lifecycle
// state machine. It is the only component that touches the transport
// directly; everything else observes it through Send, On, and
// OnStateChange.
type Manager struct {
	url    string
	dial   Dialer
	router *Router

	hbInterval  time.Duration
	pongTimeout time.Duration
	policy      *ReconnectPolicy

	mu               sync.Mutex
	state            State
	conn             Conn
	hb               *heartbeatMonitor
	gen              int // connection generation, invalidates stale callbacks
	attempt          int // reconnect attempt in flight
	intentionalClose bool
	reconnectTimer   *time.Timer

	nextSubID   int
	stateSubs   map[int]func(StateChange)
	failureSubs map[int]func(attempts int)
}

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the transport dialer (used by tests).
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dial = d }
}

// WithHeartbeat sets the ping cadence and the pong deadline.
func WithHeartbeat(interval, pongTimeout time.Duration) Option {
	return func(m *Manager) {
		m.hbInterval = interval
		m.pongTimeout = pongTimeout
	}
}

// WithReconnectPolicy replaces the backoff policy.
func WithReconnectPolicy(p *ReconnectPolicy) Option {
	return func(m *Manager) { m.policy = p }
}

// NewManager creates a manager for the given session URL. It does not
// connect; call Connect.
func NewManager(url string, opts ...Option) *Manager {
	m := &Manager{
		url:         url,
		dial:        DialWebSocket,
		router:      NewRouter(),
		hbInterval:  defaultHeartbeatInterval,
		pongTimeout: defaultPongTimeout,
		policy:      NewReconnectPolicy(time.Second, 30*time.Second, 10),
		state:       StateDisconnected,
		stateSubs:   make(map[int]func(StateChange)),
		failureSubs: make(map[int]func(int)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect opens the channel. It is a no-op when already connected and
// fails fast when a connection attempt is already in flight. The open
// is bounded by the transport handshake timeout.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		return nil
	case StateConnecting, StateReconnecting:
		m.mu.Unlock()
		return ErrConnectInProgress
	}
	m.intentionalClose = false
	m.attempt = 0
	change := m.setStateLocked(StateConnecting, 0)
	m.mu.Unlock()
	m.notifyState(change)

	dialCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	conn, err := m.dial(dialCtx, m.url)
	if err != nil {
		m.mu.Lock()
		change := m.setStateLocked(StateDisconnected, 0)
		m.mu.Unlock()
		m.notifyState(change)
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	m.adoptConn(conn)
	return nil
}

// adoptConn installs a freshly dialed transport, resets the reconnect
// budget, starts the heartbeat, and launches the read loop.
func (m *Manager) adoptConn(conn Conn) {
	m.mu.Lock()
	if m.intentionalClose {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.conn = conn
	m.gen++
	gen := m.gen
	m.attempt = 0

	hb := newHeartbeat(m.hbInterval, m.pongTimeout, m.Send, func() {
		m.connectionLost(gen, ErrHeartbeatTimeout)
	})
	m.hb = hb
	change := m.setStateLocked(StateConnected, 0)
	m.mu.Unlock()

	m.notifyState(change)
	hb.Start()
	go m.readLoop(conn, gen, hb)
}

// readLoop decodes inbound frames and dispatches them. Reserved
// ping/pong envelopes are consumed by the heartbeat and never reach
// application subscribers.
func (m *Manager) readLoop(conn Conn, gen int, hb *heartbeatMonitor) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.connectionLost(gen, err)
			return
		}

		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			// A single bad frame must not terminate the session.
			log.Warn("dropping malformed message", "error", err)
			continue
		}

		switch env.Type {
		case protocol.TypePing:
			hb.HandlePing(env)
		case protocol.TypePong:
			hb.HandlePong()
		default:
			m.router.Dispatch(env)
		}
	}
}

// Send transmits one envelope. It returns false (never an error) when
// the channel is not in the connected state, so callers can treat
// transmission as best-effort.
func (m *Manager) Send(env *protocol.Envelope) bool {
	m.mu.Lock()
	if m.state != StateConnected || m.conn == nil {
		m.mu.Unlock()
		return false
	}
	conn := m.conn
	gen := m.gen
	m.mu.Unlock()

	data, err := env.Bytes()
	if err != nil {
		log.Error("failed to encode envelope", "type", env.Type, "error", err)
		return false
	}
	if err := conn.WriteMessage(data); err != nil {
		// Teardown must not run on the caller's goroutine: the heartbeat
		// sends pings from the goroutine its Stop waits on.
		go m.connectionLost(gen, err)
		return false
	}
	return true
}

// On registers a handler for a message type. protocol.TypeWildcard
// receives every envelope. The returned handle unsubscribes.
func (m *Manager) On(msgType protocol.MessageType, fn Handler) Unsubscribe {
	return m.router.Subscribe(msgType, fn)
}

// OnStateChange registers a lifecycle observer.
func (m *Manager) OnStateChange(fn func(StateChange)) Unsubscribe {
	m.mu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.stateSubs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.stateSubs, id)
		m.mu.Unlock()
	}
}

// OnReconnectFailed registers an observer for reconnect exhaustion. A
// fresh Connect call is required to resume after it fires.
func (m *Manager) OnReconnectFailed(fn func(attempts int)) Unsubscribe {
	m.mu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.failureSubs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.failureSubs, id)
		m.mu.Unlock()
	}
}

// Disconnect tears the channel down: suppresses auto-reconnect, stops
// all timers, releases the transport, clears registered handlers, and
// settles in the disconnected state. Idempotent, and safe to call from
// within any handler.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.intentionalClose = true
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	conn := m.conn
	hb := m.hb
	m.conn = nil
	m.hb = nil
	m.gen++
	m.attempt = 0

	var changes []StateChange
	if m.state != StateDisconnected {
		changes = append(changes, m.setStateLocked(StateDisconnecting, 0))
		changes = append(changes, m.setStateLocked(StateDisconnected, 0))
	}
	m.mu.Unlock()

	if hb != nil {
		hb.Stop()
	}
	if conn != nil {
		conn.Close()
	}
	for _, c := range changes {
		m.notifyState(c)
	}
	m.router.Clear()
}

// connectionLost handles an unexpected close, write failure, or missed
// heartbeat for the given connection generation. Stale generations are
// ignored so the loss of one transport is handled exactly once.
func (m *Manager) connectionLost(gen int, cause error) {
	m.mu.Lock()
	if gen != m.gen || m.intentionalClose {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	hb := m.hb
	m.conn = nil
	m.hb = nil
	m.gen++
	m.mu.Unlock()

	log.Warn("connection lost", "error", cause)
	if hb != nil {
		hb.Stop()
	}
	if conn != nil {
		conn.Close()
	}
	m.scheduleReconnect()
}

// scheduleReconnect arms the retry timer for the next attempt, or
// reports exhaustion once the budget runs out.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.intentionalClose {
		m.mu.Unlock()
		return
	}
	m.attempt++
	attempt := m.attempt
	delay, ok := m.policy.NextDelay(attempt)
	if !ok {
		change := m.setStateLocked(StateDisconnected, 0)
		subs := make([]func(int), 0, len(m.failureSubs))
		for _, fn := range m.failureSubs {
			subs = append(subs, fn)
		}
		m.mu.Unlock()

		log.Error("reconnect attempts exhausted", "attempts", m.policy.MaxAttempts)
		m.notifyState(change)
		for _, fn := range subs {
			fn(m.policy.MaxAttempts)
		}
		return
	}

	change := m.setStateLocked(StateReconnecting, attempt)
	m.reconnectTimer = time.AfterFunc(delay, m.attemptReconnect)
	m.mu.Unlock()

	log.Info("scheduling reconnect",
		"attempt", attempt, "max_attempts", m.policy.MaxAttempts, "delay", delay)
	m.notifyState(change)
}

// attemptReconnect runs when the retry timer fires.
func (m *Manager) attemptReconnect() {
	m.mu.Lock()
	if m.intentionalClose || m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.reconnectTimer = nil
	attempt := m.attempt
	change := m.setStateLocked(StateConnecting, attempt)
	m.mu.Unlock()
	m.notifyState(change)

	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	defer cancel()

	conn, err := m.dial(ctx, m.url)
	if err != nil {
		log.Warn("reconnect attempt failed", "attempt", attempt, "error", err)
		m.mu.Lock()
		if m.intentionalClose {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		m.scheduleReconnect()
		return
	}

	m.adoptConn(conn)
}

// setStateLocked records a transition; the caller must hold m.mu and
// deliver the returned change via notifyState after unlocking.
func (m *Manager) setStateLocked(s State, attempt int) StateChange {
	m.state = s
	return StateChange{State: s, Attempt: attempt, MaxAttempts: m.policy.MaxAttempts}
}

func (m *Manager) notifyState(change StateChange) {
	m.mu.Lock()
	subs := make([]func(StateChange), 0, len(m.stateSubs))
	for _, fn := range m.stateSubs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(change)
	}
}
