package channel

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/internal/log"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/protocol"
)

// heartbeatMonitor probes connection liveness at the application level.
// Transport-level close events are not guaranteed to fire promptly (NAT
// timeouts, sleep/wake), so an unanswered ping is the authoritative
// signal that the channel is dead.
//
// The monitor is symmetric: an unsolicited ping from the remote gets an
// immediate pong reply.
type heartbeatMonitor struct {
	interval    time.Duration
	pongTimeout time.Duration
	send        func(env *protocol.Envelope) bool
	onDead      func()

	mu        sync.Mutex
	pongTimer *time.Timer
	dead      bool // expired or stopped; no further pings or deadlines

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newHeartbeat(interval, pongTimeout time.Duration, send func(*protocol.Envelope) bool, onDead func()) *heartbeatMonitor {
	return &heartbeatMonitor{
		interval:    interval,
		pongTimeout: pongTimeout,
		send:        send,
		onDead:      onDead,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the probe loop.
func (h *heartbeatMonitor) Start() {
	go h.run()
}

// Stop cancels the probe loop and any pending pong deadline. Safe to
// call more than once and from within the onDead callback.
func (h *heartbeatMonitor) Stop() {
	h.mu.Lock()
	h.dead = true
	if h.pongTimer != nil {
		h.pongTimer.Stop()
		h.pongTimer = nil
	}
	h.mu.Unlock()

	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

func (h *heartbeatMonitor) run() {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.sendPing()
		}
	}
}

func (h *heartbeatMonitor) sendPing() {
	h.mu.Lock()
	if h.dead {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	env, err := protocol.NewPingEnvelope(uuid.NewString())
	if err != nil {
		return
	}
	if !h.send(env) {
		// Not connected; the manager is already handling it.
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dead {
		return
	}
	if h.pongTimer == nil {
		// Deadline runs from the first unanswered ping. Later pings in
		// the same silent stretch do not extend it.
		h.pongTimer = time.AfterFunc(h.pongTimeout, h.expired)
	}
}

func (h *heartbeatMonitor) expired() {
	h.mu.Lock()
	if h.dead {
		h.mu.Unlock()
		return
	}
	h.dead = true
	h.pongTimer = nil
	h.mu.Unlock()

	log.Warn("heartbeat pong overdue, declaring connection dead",
		"timeout", h.pongTimeout)
	h.onDead()
}

// HandlePong records a liveness reply, clearing the pending deadline.
func (h *heartbeatMonitor) HandlePong() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pongTimer != nil {
		h.pongTimer.Stop()
		h.pongTimer = nil
	}
}

// HandlePing answers a remote liveness probe.
func (h *heartbeatMonitor) HandlePing(env *protocol.Envelope) {
	id := ""
	if data, err := env.GetPingData(); err == nil {
		id = data.ID
	}
	pong, err := protocol.NewPongEnvelope(id)
	if err != nil {
		return
	}
	h.send(pong)
}
