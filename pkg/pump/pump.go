// Package pump samples the video source on a fixed cadence and forwards
// encoded frames over the channel. The cadence is the backpressure
// policy: the remote classifier cannot sustain full frame-rate video, so
// the pump downsamples instead of queuing, and a tick that cannot send
// is dropped rather than retried.
package pump

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/internal/log"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/capture"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/protocol"
)

// DefaultInterval is the fixed send cadence: 2 frames per second.
const DefaultInterval = 500 * time.Millisecond

// Sender transmits one envelope, returning false when the channel is
// not usable. The connection manager satisfies this.
type Sender interface {
	Send(env *protocol.Envelope) bool
}

// Pump drives the capture → encode → send loop.
type Pump struct {
	interval time.Duration
	source   capture.Source
	sender   Sender
	onError  func(error)

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	framesSent atomic.Int64
}

// Option configures a Pump.
type Option func(*Pump)

// WithInterval overrides the send cadence.
func WithInterval(d time.Duration) Option {
	return func(p *Pump) { p.interval = d }
}

// WithOnError sets the callback for a fatal capture failure. It fires
// at most once; the pump stops producing frames afterwards, while the
// message channel itself stays up.
func WithOnError(fn func(error)) Option {
	return func(p *Pump) { p.onError = fn }
}

// New creates a pump. It does not start ticking; call Start.
func New(source capture.Source, sender Sender, opts ...Option) *Pump {
	p := &Pump{
		interval: DefaultInterval,
		source:   source,
		sender:   sender,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the capture loop. Calling Start on a running pump is
// a no-op.
func (p *Pump) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.stop, p.done)
}

// Stop cancels the ticker and waits for the loop to exit, so the caller
// can release the capture source without racing an in-flight capture.
// Safe to call more than once.
func (p *Pump) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stop, done := p.stop, p.done
	p.mu.Unlock()

	close(stop)
	<-done
}

// FramesSent returns how many frames were handed to the sender.
func (p *Pump) FramesSent() int64 {
	return p.framesSent.Load()
}

func (p *Pump) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !p.tick() {
				p.mu.Lock()
				p.running = false
				p.mu.Unlock()
				return
			}
		}
	}
}

// tick captures and sends one frame. It returns false when the source
// has failed and the pump should stop.
func (p *Pump) tick() bool {
	jpeg, err := p.source.Frame()
	switch {
	case err == nil:
	case errors.Is(err, capture.ErrNoFrame):
		// Source has nothing buffered yet; skip this tick.
		return true
	default:
		log.Error("frame capture failed, stopping pump", "error", err)
		if p.onError != nil {
			p.onError(err)
		}
		return false
	}

	env, err := protocol.NewVideoFrameEnvelope(jpeg, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		log.Error("failed to build video frame envelope", "error", err)
		return true
	}

	// A false Send means the channel is not connected; the tick is
	// skipped, never queued or retried.
	if p.sender.Send(env) {
		p.framesSent.Add(1)
	}
	return true
}
