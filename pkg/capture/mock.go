package capture

import (
	"sync"
	"sync/atomic"
)

// MockSource is an in-memory Source for testing. It serves a fixed
// JPEG payload and can be switched into warm-up or failure modes.
type MockSource struct {
	mu      sync.Mutex
	payload []byte
	err     error
	closed  bool

	frames atomic.Int64
}

// MockOption configures a MockSource.
type MockOption func(*MockSource)

// WithPayload sets the bytes every Frame call returns.
func WithPayload(jpeg []byte) MockOption {
	return func(m *MockSource) { m.payload = jpeg }
}

// WithError makes Frame return the given error until cleared.
func WithError(err error) MockOption {
	return func(m *MockSource) { m.err = err }
}

// NewMockSource creates a mock frame source.
func NewMockSource(opts ...MockOption) *MockSource {
	m := &MockSource{
		payload: []byte{0xFF, 0xD8, 0xFF, 0xD9}, // minimal JPEG marker pair
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Frame returns the configured payload or error.
func (m *MockSource) Frame() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.err != nil {
		return nil, m.err
	}
	m.frames.Add(1)
	out := make([]byte, len(m.payload))
	copy(out, m.payload)
	return out, nil
}

// SetError switches the mock into (or out of) failure mode.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Frames returns how many frames were served.
func (m *MockSource) Frames() int64 {
	return m.frames.Load()
}

// Close marks the source closed.
func (m *MockSource) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
